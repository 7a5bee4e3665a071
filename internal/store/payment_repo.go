package store

import (
	"context"

	"github.com/vpnbroker/broker/internal/domain/payment"
	ierr "github.com/vpnbroker/broker/internal/errors"
	"github.com/vpnbroker/broker/internal/types"
)

type paymentRepo struct{ store *Store }

func (st *Store) Payments() payment.Repository { return &paymentRepo{store: st} }

func (r *paymentRepo) Create(ctx context.Context, p *payment.Payment) error {
	s, unlock := r.store.stateFor(ctx)
	defer unlock()

	if p.ExternalID != "" {
		s.paymentsByExternal[externalKey(p.Provider, p.ExternalID)] = p.ID
	}
	s.payments[p.ID] = p
	return nil
}

func (r *paymentRepo) GetByExternalID(ctx context.Context, provider types.PaymentProvider, externalID string) (*payment.Payment, error) {
	s, unlock := r.store.stateFor(ctx)
	defer unlock()

	id, ok := s.paymentsByExternal[externalKey(provider, externalID)]
	if !ok {
		return nil, ierr.WithError(ierr.ErrNotFound).WithHint("no payment for that external id").Mark(ierr.ErrNotFound)
	}
	return s.payments[id], nil
}

func (r *paymentRepo) Update(ctx context.Context, p *payment.Payment) error {
	s, unlock := r.store.stateFor(ctx)
	defer unlock()

	if _, ok := s.payments[p.ID]; !ok {
		return ierr.WithError(ierr.ErrNotFound).WithHintf("payment %s not found", p.ID).Mark(ierr.ErrNotFound)
	}
	if p.ExternalID != "" {
		s.paymentsByExternal[externalKey(p.Provider, p.ExternalID)] = p.ID
	}
	s.payments[p.ID] = p
	return nil
}
