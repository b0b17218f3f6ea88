package authkit

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeTokenRecord(subjectID uuid.UUID, purpose TokenPurpose, signedValue string) *TokenRecord {
	return &TokenRecord{
		SignedValue: signedValue,
		SubjectID:   subjectID,
		Purpose:     purpose,
		ExpiresAt:   time.Now().Add(time.Hour),
	}
}

func TestTokenRecordsInsertAssignsID(t *testing.T) {
	db := newTestDB(t)
	repo := NewTokenRecordsRepository(db)
	ctx := context.Background()

	record, err := repo.Insert(ctx, makeTokenRecord(uuid.New(), PurposeRefresh, "signed-1"))
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, record.ID)
}

func TestTokenRecordsInsertRejectsAccessPurpose(t *testing.T) {
	db := newTestDB(t)
	repo := NewTokenRecordsRepository(db)

	_, err := repo.Insert(context.Background(), makeTokenRecord(uuid.New(), PurposeAccess, "signed-1"))
	require.Error(t, err)
}

func TestTokenRecordsInsertRejectsNil(t *testing.T) {
	db := newTestDB(t)
	repo := NewTokenRecordsRepository(db)

	_, err := repo.Insert(context.Background(), nil)
	require.Error(t, err)
}

func TestTokenRecordsInsertDuplicateSignedValue(t *testing.T) {
	db := newTestDB(t)
	repo := NewTokenRecordsRepository(db)
	ctx := context.Background()
	subject := uuid.New()

	_, err := repo.Insert(ctx, makeTokenRecord(subject, PurposeRefresh, "signed-dup"))
	require.NoError(t, err)

	_, err = repo.Insert(ctx, makeTokenRecord(subject, PurposeRefresh, "signed-dup"))
	require.ErrorIs(t, err, ErrDuplicateToken)
	assert.True(t, HasTextCode(err, TextCodeDuplicateToken))
}

func TestTokenRecordsFindOneMatchesAllFields(t *testing.T) {
	db := newTestDB(t)
	repo := NewTokenRecordsRepository(db)
	ctx := context.Background()
	subject := uuid.New()

	_, err := repo.Insert(ctx, makeTokenRecord(subject, PurposeRefresh, "signed-find"))
	require.NoError(t, err)

	found, err := repo.FindOne(ctx, "signed-find", subject, PurposeRefresh)
	require.NoError(t, err)
	assert.Equal(t, subject, found.SubjectID)

	// Wrong subject, wrong purpose, and unknown value all miss.
	_, err = repo.FindOne(ctx, "signed-find", uuid.New(), PurposeRefresh)
	require.ErrorIs(t, err, ErrTokenNotFound)

	_, err = repo.FindOne(ctx, "signed-find", subject, PurposeResetPassword)
	require.ErrorIs(t, err, ErrTokenNotFound)

	_, err = repo.FindOne(ctx, "signed-other", subject, PurposeRefresh)
	require.ErrorIs(t, err, ErrTokenNotFound)
}

func TestTokenRecordsDeleteBySignedValueCount(t *testing.T) {
	db := newTestDB(t)
	repo := NewTokenRecordsRepository(db)
	ctx := context.Background()
	subject := uuid.New()

	_, err := repo.Insert(ctx, makeTokenRecord(subject, PurposeRefresh, "signed-del"))
	require.NoError(t, err)

	count, err := repo.DeleteBySignedValue(ctx, "signed-del", subject, PurposeRefresh)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	// The row is gone, the second delete affects nothing.
	count, err = repo.DeleteBySignedValue(ctx, "signed-del", subject, PurposeRefresh)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}

func TestTokenRecordsDeleteAllByUserAndPurpose(t *testing.T) {
	db := newTestDB(t)
	repo := NewTokenRecordsRepository(db)
	ctx := context.Background()

	subject := uuid.New()
	other := uuid.New()

	for _, value := range []string{"reset-a", "reset-b", "reset-c"} {
		_, err := repo.Insert(ctx, makeTokenRecord(subject, PurposeResetPassword, value))
		require.NoError(t, err)
	}
	_, err := repo.Insert(ctx, makeTokenRecord(subject, PurposeRefresh, "refresh-a"))
	require.NoError(t, err)
	_, err = repo.Insert(ctx, makeTokenRecord(other, PurposeResetPassword, "reset-other"))
	require.NoError(t, err)

	count, err := repo.DeleteAllByUserAndPurpose(ctx, subject, PurposeResetPassword)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	// Other purposes and other subjects are untouched.
	_, err = repo.FindOne(ctx, "refresh-a", subject, PurposeRefresh)
	require.NoError(t, err)
	_, err = repo.FindOne(ctx, "reset-other", other, PurposeResetPassword)
	require.NoError(t, err)
}
