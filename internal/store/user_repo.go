package store

import (
	"context"

	"github.com/vpnbroker/broker/internal/domain/user"
	ierr "github.com/vpnbroker/broker/internal/errors"
)

// userRepo adapts Store to user.Repository.
type userRepo struct{ store *Store }

func (st *Store) Users() user.Repository { return &userRepo{store: st} }

func (r *userRepo) Create(ctx context.Context, u *user.User) error {
	s, unlock := r.store.stateFor(ctx)
	defer unlock()

	if _, exists := s.usersByTelegram[u.TelegramID]; exists {
		return ierr.WithError(ierr.ErrAlreadyExists).
			WithHintf("user with telegram_id %d already exists", u.TelegramID).
			Mark(ierr.ErrAlreadyExists)
	}
	s.users[u.ID] = u
	s.usersByTelegram[u.TelegramID] = u.ID
	return nil
}

func (r *userRepo) GetByID(ctx context.Context, id string) (*user.User, error) {
	s, unlock := r.store.stateFor(ctx)
	defer unlock()

	u, ok := s.users[id]
	if !ok {
		return nil, user.NewNotFoundError(id)
	}
	return u, nil
}

func (r *userRepo) GetByTelegramID(ctx context.Context, telegramID int64) (*user.User, error) {
	s, unlock := r.store.stateFor(ctx)
	defer unlock()

	id, ok := s.usersByTelegram[telegramID]
	if !ok {
		return nil, user.NewNotFoundError("")
	}
	return s.users[id], nil
}

func (r *userRepo) Update(ctx context.Context, u *user.User) error {
	s, unlock := r.store.stateFor(ctx)
	defer unlock()

	if _, ok := s.users[u.ID]; !ok {
		return user.NewNotFoundError(u.ID)
	}
	s.users[u.ID] = u
	return nil
}
