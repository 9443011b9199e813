package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/setil-app/backend/internal/docstore"
	"github.com/setil-app/backend/internal/models"
)

// Ensure Accounts implements UserStorage.
var _ UserStorage = (*Accounts)(nil)

// Accounts stores registered users as documents under "accounts/".
type Accounts struct {
	docs docstore.Store
}

// NewAccounts creates an account store over the given document store.
func NewAccounts(docs docstore.Store) *Accounts {
	return &Accounts{docs: docs}
}

func accountPath(id string) string { return "accounts/" + id }

// CreateUser persists a new user account.
func (a *Accounts) CreateUser(ctx context.Context, user *models.User) error {
	data, err := docstore.Encode(user)
	if err != nil {
		return err
	}
	if err := a.docs.Apply(ctx, docstore.Batch{docstore.Set(accountPath(user.ID), data)}); err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetUserByEmail retrieves a user by their email address. Returns
// (nil, nil) when no account matches.
func (a *Accounts) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	docs, err := a.docs.List(ctx, "accounts")
	if err != nil {
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}

	for _, data := range docs {
		var user models.User
		if err := docstore.Decode(data, &user); err != nil {
			return nil, fmt.Errorf("failed to get user by email: %w", err)
		}
		if strings.EqualFold(user.Email, email) {
			return &user, nil
		}
	}
	return nil, nil
}

// GetUserByID retrieves a user by their ID. Returns (nil, nil) when
// the account does not exist.
func (a *Accounts) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	data, err := a.docs.Get(ctx, accountPath(id))
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by ID: %w", err)
	}

	var user models.User
	if err := docstore.Decode(data, &user); err != nil {
		return nil, fmt.Errorf("failed to get user by ID: %w", err)
	}
	return &user, nil
}
