package auth

import (
	"context"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type AccountCredentials interface {
	repository.Repository[*AccountCredential]

	FindByUser(ctx context.Context, userID uuid.UUID) ([]*AccountCredential, error)
	FindByUserTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) ([]*AccountCredential, error)

	Create(ctx context.Context, record *AccountCredential, criteria ...repository.InsertCriteria) (*AccountCredential, error)
	CreateTx(ctx context.Context, tx bun.IDB, record *AccountCredential, criteria ...repository.InsertCriteria) (*AccountCredential, error)
}

type accountCredentials struct {
	repository.Repository[*AccountCredential]
	db *bun.DB
}

var (
	_ AccountCredentials                        = (*accountCredentials)(nil)
	_ repository.Repository[*AccountCredential] = (*accountCredentials)(nil)
)

func NewAccountCredentialsRepository(db *bun.DB) AccountCredentials {
	repo := repository.NewRepository[*AccountCredential](db, repository.ModelHandlers[*AccountCredential]{
		NewRecord: func() *AccountCredential { return &AccountCredential{} },
		GetID: func(c *AccountCredential) uuid.UUID {
			if c == nil {
				return uuid.Nil
			}
			return c.ID
		},
		SetID: func(c *AccountCredential, id uuid.UUID) {
			if c != nil {
				c.ID = id
			}
		},
	})

	return &accountCredentials{
		Repository: repo,
		db:         db,
	}
}

func (a *accountCredentials) FindByUser(ctx context.Context, userID uuid.UUID) ([]*AccountCredential, error) {
	return a.FindByUserTx(ctx, a.db, userID)
}

func (a *accountCredentials) FindByUserTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) ([]*AccountCredential, error) {
	records := []*AccountCredential{}
	err := tx.NewSelect().
		Model(&records).
		Where("?TableAlias.user_id = ?", userID).
		Scan(ctx)

	if err != nil {
		return nil, err
	}

	return records, nil
}

func (a *accountCredentials) Create(ctx context.Context, record *AccountCredential, criteria ...repository.InsertCriteria) (*AccountCredential, error) {
	return a.CreateTx(ctx, a.db, record, criteria...)
}

func (a *accountCredentials) CreateTx(ctx context.Context, tx bun.IDB, record *AccountCredential, criteria ...repository.InsertCriteria) (*AccountCredential, error) {
	if record != nil && record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	return a.Repository.CreateTx(ctx, tx, record, criteria...)
}
