package authkit

import (
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
)

// AuthControllerRoutes holds the route paths, overridable per deployment.
type AuthControllerRoutes struct {
	Register              string
	Login                 string
	Logout                string
	RefreshTokens         string
	ForgotPassword        string
	ResetPassword         string
	SendVerificationEmail string
	VerifyEmail           string
}

// AuthController is the thin JSON adapter over the Authenticator. It does
// request binding, payload validation, and error-to-status mapping, and
// nothing else.
type AuthController struct {
	Logger Logger
	Auth   *Authenticator
	Routes *AuthControllerRoutes
}

// AuthControllerOption configures the controller.
type AuthControllerOption func(*AuthController) *AuthController

// WithControllerLogger sets the controller logger.
func WithControllerLogger(logger Logger) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		if logger != nil {
			c.Logger = logger
		}
		return c
	}
}

// NewAuthController builds a controller with default routes.
func NewAuthController(auth *Authenticator, opts ...AuthControllerOption) *AuthController {
	c := &AuthController{
		Logger: defLogger{},
		Auth:   auth,
		Routes: &AuthControllerRoutes{
			Register:              "/register",
			Login:                 "/login",
			Logout:                "/logout",
			RefreshTokens:         "/refresh-tokens",
			ForgotPassword:        "/forgot-password",
			ResetPassword:         "/reset-password",
			SendVerificationEmail: "/send-verification-email",
			VerifyEmail:           "/verify-email",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Auth == nil {
		panic("Missing Authenticator in auth controller...")
	}

	return c
}

// RegisterAuthRoutes mounts the auth endpoints on the app.
func RegisterAuthRoutes(app *fiber.App, auth *Authenticator, opts ...AuthControllerOption) *AuthController {
	controller := NewAuthController(auth, opts...)

	app.Post(controller.Routes.Register, controller.RegisterPost)
	app.Post(controller.Routes.Login, controller.LoginPost)
	app.Post(controller.Routes.Logout, controller.LogoutPost)
	app.Post(controller.Routes.RefreshTokens, controller.RefreshPost)
	app.Post(controller.Routes.ForgotPassword, controller.ForgotPasswordPost)
	app.Post(controller.Routes.ResetPassword, controller.ResetPasswordPost)
	app.Post(controller.Routes.SendVerificationEmail, controller.SendVerificationEmailPost)
	app.Post(controller.Routes.VerifyEmail, controller.VerifyEmailPost)

	return controller
}

// RegisterRequest payload
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate will run validation rules
func (r RegisterRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Email, validation.Required, validation.Length(6, 100), is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(8, 100)),
	)
}

// LoginRequest payload
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate will run validation rules
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required),
	)
}

// RefreshTokenRequest payload, shared by logout and refresh
type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// Validate will run validation rules
func (r RefreshTokenRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.RefreshToken, validation.Required),
	)
}

// ForgotPasswordRequest payload
type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

// Validate will run validation rules
func (r ForgotPasswordRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
	)
}

// ResetPasswordRequest payload; the token travels in the query string.
type ResetPasswordRequest struct {
	Password string `json:"password"`
}

// Validate will run validation rules
func (r ResetPasswordRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Password, validation.Required, validation.Length(8, 100)),
	)
}

func (a *AuthController) RegisterPost(c *fiber.Ctx) error {
	payload := new(RegisterRequest)

	if err := c.BodyParser(payload); err != nil {
		return badRequest(c, "invalid request body")
	}
	if err := payload.Validate(); err != nil {
		return validationFailed(c, err)
	}

	user, pair, err := a.Auth.Register(c.Context(), RegisterUserMessage{
		Name:     payload.Name,
		Email:    payload.Email,
		Password: payload.Password,
	})
	if err != nil {
		return a.handleError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"user":   user,
		"tokens": pair,
	})
}

func (a *AuthController) LoginPost(c *fiber.Ctx) error {
	payload := new(LoginRequest)

	if err := c.BodyParser(payload); err != nil {
		return badRequest(c, "invalid request body")
	}
	if err := payload.Validate(); err != nil {
		return validationFailed(c, err)
	}

	user, pair, err := a.Auth.Login(c.Context(), payload.Email, payload.Password)
	if err != nil {
		return a.handleError(c, err)
	}

	return c.JSON(fiber.Map{
		"user":   user,
		"tokens": pair,
	})
}

func (a *AuthController) LogoutPost(c *fiber.Ctx) error {
	payload := new(RefreshTokenRequest)

	if err := c.BodyParser(payload); err != nil {
		return badRequest(c, "invalid request body")
	}
	if err := payload.Validate(); err != nil {
		return validationFailed(c, err)
	}

	if err := a.Auth.Logout(c.Context(), payload.RefreshToken); err != nil {
		return a.handleError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (a *AuthController) RefreshPost(c *fiber.Ctx) error {
	payload := new(RefreshTokenRequest)

	if err := c.BodyParser(payload); err != nil {
		return badRequest(c, "invalid request body")
	}
	if err := payload.Validate(); err != nil {
		return validationFailed(c, err)
	}

	pair, err := a.Auth.Refresh(c.Context(), payload.RefreshToken)
	if err != nil {
		return a.handleError(c, err)
	}

	return c.JSON(pair)
}

func (a *AuthController) ForgotPasswordPost(c *fiber.Ctx) error {
	payload := new(ForgotPasswordRequest)

	if err := c.BodyParser(payload); err != nil {
		return badRequest(c, "invalid request body")
	}
	if err := payload.Validate(); err != nil {
		return validationFailed(c, err)
	}

	if err := a.Auth.ForgotPassword(c.Context(), payload.Email); err != nil {
		return a.handleError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (a *AuthController) ResetPasswordPost(c *fiber.Ctx) error {
	token := c.Query("token")
	if token == "" {
		return badRequest(c, "missing token")
	}

	payload := new(ResetPasswordRequest)
	if err := c.BodyParser(payload); err != nil {
		return badRequest(c, "invalid request body")
	}
	if err := payload.Validate(); err != nil {
		return validationFailed(c, err)
	}

	if err := a.Auth.ResetPassword(c.Context(), token, payload.Password); err != nil {
		return a.handleError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (a *AuthController) SendVerificationEmailPost(c *fiber.Ctx) error {
	token := bearerToken(c)
	if token == "" {
		return a.handleError(c, ErrUnauthenticated)
	}

	subjectID, err := a.Auth.VerifyAccess(c.Context(), token)
	if err != nil {
		return a.handleError(c, err)
	}

	if err := a.Auth.SendVerificationEmail(c.Context(), subjectID); err != nil {
		return a.handleError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (a *AuthController) VerifyEmailPost(c *fiber.Ctx) error {
	token := c.Query("token")
	if token == "" {
		return badRequest(c, "missing token")
	}

	if err := a.Auth.VerifyEmail(c.Context(), token); err != nil {
		return a.handleError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// handleError maps rich error categories onto HTTP statuses. 401 bodies
// carry only the coarse message; internal causes stay in the logs.
func (a *AuthController) handleError(c *fiber.Ctx, err error) error {
	var rich *goerrors.Error
	if goerrors.As(err, &rich) {
		switch rich.Category {
		case goerrors.CategoryAuth:
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": rich.Message,
				"code":  rich.TextCode,
			})
		case goerrors.CategoryNotFound:
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": rich.Message,
				"code":  rich.TextCode,
			})
		case goerrors.CategoryConflict:
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": rich.Message,
				"code":  rich.TextCode,
			})
		case goerrors.CategoryValidation, goerrors.CategoryBadInput:
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": rich.Message,
				"code":  rich.TextCode,
			})
		}
	}

	a.Logger.Error("unhandled auth error: %v", err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": "internal server error",
	})
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
}

func validationFailed(c *fiber.Ctx, err error) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error":      "validation failed",
		"validation": err.Error(),
	})
}

func bearerToken(c *fiber.Ctx) string {
	const scheme = "Bearer "
	header := c.Get(fiber.HeaderAuthorization)
	if len(header) > len(scheme) && strings.EqualFold(header[:len(scheme)], scheme) {
		return strings.TrimSpace(header[len(scheme):])
	}
	return ""
}
