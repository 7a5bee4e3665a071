package store

import (
	"context"

	"github.com/vpnbroker/broker/internal/domain/checkout"
)

type checkoutRepo struct{ store *Store }

func (st *Store) CheckoutDrafts() checkout.Repository { return &checkoutRepo{store: st} }

func (r *checkoutRepo) Save(ctx context.Context, d *checkout.Draft) error {
	s, unlock := r.store.stateFor(ctx)
	defer unlock()
	s.checkoutDrafts[d.UserID] = d
	return nil
}

func (r *checkoutRepo) Get(ctx context.Context, userID string) (*checkout.Draft, error) {
	s, unlock := r.store.stateFor(ctx)
	defer unlock()

	d, ok := s.checkoutDrafts[userID]
	if !ok {
		return nil, nil
	}
	return d, nil
}

func (r *checkoutRepo) Delete(ctx context.Context, userID string) error {
	s, unlock := r.store.stateFor(ctx)
	defer unlock()
	delete(s.checkoutDrafts, userID)
	return nil
}
