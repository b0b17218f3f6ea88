package authkit

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// TokenRecords persists issued tokens for the purposes that need
// server-side revocability. Deletes are single-statement conditional
// operations returning an affected count; that count is the single-use
// primitive the lifecycle manager relies on, so callers must never split
// it into a read followed by a delete.
type TokenRecords interface {
	repository.Repository[*TokenRecord]

	Insert(ctx context.Context, record *TokenRecord) (*TokenRecord, error)
	InsertTx(ctx context.Context, tx bun.IDB, record *TokenRecord) (*TokenRecord, error)

	FindOne(ctx context.Context, signedValue string, subjectID uuid.UUID, purpose TokenPurpose) (*TokenRecord, error)
	FindOneTx(ctx context.Context, tx bun.IDB, signedValue string, subjectID uuid.UUID, purpose TokenPurpose) (*TokenRecord, error)

	DeleteBySignedValue(ctx context.Context, signedValue string, subjectID uuid.UUID, purpose TokenPurpose) (int64, error)
	DeleteBySignedValueTx(ctx context.Context, tx bun.IDB, signedValue string, subjectID uuid.UUID, purpose TokenPurpose) (int64, error)

	DeleteAllByUserAndPurpose(ctx context.Context, subjectID uuid.UUID, purpose TokenPurpose) (int64, error)
	DeleteAllByUserAndPurposeTx(ctx context.Context, tx bun.IDB, subjectID uuid.UUID, purpose TokenPurpose) (int64, error)
}

type tokenRecords struct {
	repository.Repository[*TokenRecord]
	db *bun.DB
}

var (
	_ TokenRecords                        = (*tokenRecords)(nil)
	_ repository.Repository[*TokenRecord] = (*tokenRecords)(nil)
)

func NewTokenRecordsRepository(db *bun.DB) TokenRecords {
	repo := repository.NewRepository[*TokenRecord](db, repository.ModelHandlers[*TokenRecord]{
		NewRecord: func() *TokenRecord { return &TokenRecord{} },
		GetID: func(t *TokenRecord) uuid.UUID {
			if t == nil {
				return uuid.Nil
			}
			return t.ID
		},
		SetID: func(t *TokenRecord, id uuid.UUID) {
			if t != nil {
				t.ID = id
			}
		},
		GetIdentifier: func() string {
			return "signed_value"
		},
	})

	return &tokenRecords{
		Repository: repo,
		db:         db,
	}
}

func (r *tokenRecords) Insert(ctx context.Context, record *TokenRecord) (*TokenRecord, error) {
	return r.InsertTx(ctx, r.db, record)
}

func (r *tokenRecords) InsertTx(ctx context.Context, tx bun.IDB, record *TokenRecord) (*TokenRecord, error) {
	if record == nil {
		return nil, goerrors.New("token record is required", goerrors.CategoryBadInput)
	}
	if !record.Purpose.Persisted() {
		return nil, goerrors.New("purpose is not persisted", goerrors.CategoryBadInput)
	}
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}

	created, err := r.Repository.CreateTx(ctx, tx, record)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateToken
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "could not insert token record")
	}

	return created, nil
}

func (r *tokenRecords) FindOne(ctx context.Context, signedValue string, subjectID uuid.UUID, purpose TokenPurpose) (*TokenRecord, error) {
	return r.FindOneTx(ctx, r.db, signedValue, subjectID, purpose)
}

// FindOneTx matches on (signedValue, subjectID, purpose) exactly. The
// stored expiry is deliberately NOT part of the query; callers check it
// against their own clock.
func (r *tokenRecords) FindOneTx(ctx context.Context, tx bun.IDB, signedValue string, subjectID uuid.UUID, purpose TokenPurpose) (*TokenRecord, error) {
	record := &TokenRecord{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.signed_value = ?", signedValue).
		Where("?TableAlias.subject_id = ?", subjectID).
		Where("?TableAlias.purpose = ?", string(purpose)).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if isNoRows(err) {
			return nil, ErrTokenNotFound
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "could not look up token record")
	}

	return record, nil
}

func (r *tokenRecords) DeleteBySignedValue(ctx context.Context, signedValue string, subjectID uuid.UUID, purpose TokenPurpose) (int64, error) {
	return r.DeleteBySignedValueTx(ctx, r.db, signedValue, subjectID, purpose)
}

// DeleteBySignedValueTx is delete-if-present: one atomic statement whose
// affected count tells the caller whether it won the race. Two concurrent
// callers on the same signedValue get counts 1 and 0, never 1 and 1.
func (r *tokenRecords) DeleteBySignedValueTx(ctx context.Context, tx bun.IDB, signedValue string, subjectID uuid.UUID, purpose TokenPurpose) (int64, error) {
	res, err := tx.NewDelete().
		Model((*TokenRecord)(nil)).
		Where("?TableAlias.signed_value = ?", signedValue).
		Where("?TableAlias.subject_id = ?", subjectID).
		Where("?TableAlias.purpose = ?", string(purpose)).
		Exec(ctx)
	if err != nil {
		return 0, goerrors.Wrap(err, goerrors.CategoryInternal, "could not delete token record")
	}

	return res.RowsAffected()
}

func (r *tokenRecords) DeleteAllByUserAndPurpose(ctx context.Context, subjectID uuid.UUID, purpose TokenPurpose) (int64, error) {
	return r.DeleteAllByUserAndPurposeTx(ctx, r.db, subjectID, purpose)
}

func (r *tokenRecords) DeleteAllByUserAndPurposeTx(ctx context.Context, tx bun.IDB, subjectID uuid.UUID, purpose TokenPurpose) (int64, error) {
	res, err := tx.NewDelete().
		Model((*TokenRecord)(nil)).
		Where("?TableAlias.subject_id = ?", subjectID).
		Where("?TableAlias.purpose = ?", string(purpose)).
		Exec(ctx)
	if err != nil {
		return 0, goerrors.Wrap(err, goerrors.CategoryInternal, "could not delete token records")
	}

	return res.RowsAffected()
}
