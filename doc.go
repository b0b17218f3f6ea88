// Package authkit issues, validates, and revokes authentication
// credentials: short-lived access tokens, long-lived single-use refresh
// tokens, and purpose-bound email verification and password reset tokens.
//
// Token lifecycle:
//   - Codec signs and parses compact HS256 tokens carrying subject,
//     purpose, and expiry. It is pure; forged, malformed, and expired
//     input is rejected before any store access.
//   - TokenRecords persists refresh, verify-email, and reset-password
//     tokens so they can be revoked and enforced single-use. Access
//     tokens stay stateless.
//   - TokenLifecycle orchestrates issue, verify, consume, rotate, and
//     bulk invalidation. Consumption rides on one conditional delete
//     whose affected count decides concurrent races: exactly one caller
//     wins, the rest see token-not-found.
//
// Flows:
//   - Authenticator composes the lifecycle with the Users repository and
//     the bcrypt capability to implement register, login, logout,
//     refresh, forgot/reset password, and email verification. Failures
//     on the security-sensitive flows collapse into coarse errors so the
//     API cannot be used to enumerate accounts or probe token state.
//   - AuthController is the fiber JSON adapter over those flows.
package authkit
