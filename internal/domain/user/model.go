// Package user models the chat-bot end user (§3 "User").
package user

import (
	"context"
	"time"

	ierr "github.com/vpnbroker/broker/internal/errors"
	"github.com/vpnbroker/broker/internal/types"
)

// User is created on first chat contact and never hard-deleted by the bot
// (GDPR-style deletion is an admin operation outside the core, §3
// "Lifecycle").
type User struct {
	ID                     string
	TelegramID             int64
	Language               types.Language
	BalanceKopeks          types.Kopeks
	HasHadPaidSubscription bool
	PromoGroupID           string
	PanelUUID              string // empty until first panel sync
	LastActivity           time.Time
	types.BaseModel
}

// NewUser creates a fresh User for a first-time chat contact.
func NewUser(telegramID int64, language types.Language, promoGroupID string, now time.Time) *User {
	return &User{
		ID:           types.GenerateUUIDWithPrefix(types.UUIDPrefixUser),
		TelegramID:   telegramID,
		Language:     language,
		PromoGroupID: promoGroupID,
		LastActivity: now,
		BaseModel:    types.NewBaseModel(now),
	}
}

// Validate enforces the §3 balance invariant outside of any transaction
// boundary — the authoritative check still happens inside the store's
// DebitBalance, this just rejects obviously malformed state early.
func (u *User) Validate() error {
	if u.BalanceKopeks < 0 {
		return ierr.NewError("balance cannot be negative").
			WithHint("Wallet balance cannot go below zero").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// Repository persists users.
type Repository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByTelegramID(ctx context.Context, telegramID int64) (*User, error)
	Update(ctx context.Context, u *User) error
}

// ErrCodeNotFound is the user-domain not-found error code.
const ErrCodeNotFound = "USER_NOT_FOUND"

var ErrNotFound = ierr.New(ErrCodeNotFound)

// NewNotFoundError builds a not-found error scoped to a user id.
func NewNotFoundError(id string) error {
	return ierr.WithError(ErrNotFound).
		WithHintf("no user found with id %s", id).
		Mark(ierr.ErrNotFound)
}
