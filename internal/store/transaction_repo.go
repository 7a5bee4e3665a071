package store

import (
	"context"
	"fmt"
	"time"

	"github.com/vpnbroker/broker/internal/domain/transaction"
	ierr "github.com/vpnbroker/broker/internal/errors"
	"github.com/vpnbroker/broker/internal/types"
)

type transactionRepo struct{ store *Store }

func (st *Store) Transactions() transaction.Repository { return &transactionRepo{store: st} }

func externalKey(provider types.PaymentProvider, externalID string) string {
	return fmt.Sprintf("%s|%s", provider, externalID)
}

// Create enforces the §3/§5 exactly-once invariant: no two completed
// deposits may share (provider, external_id).
func (r *transactionRepo) Create(ctx context.Context, t *transaction.Transaction) error {
	s, unlock := r.store.stateFor(ctx)
	defer unlock()

	if t.ExternalID != "" {
		key := externalKey(t.Provider, t.ExternalID)
		if _, exists := s.transactionsByExternal[key]; exists {
			return ierr.WithError(ierr.ErrDuplicatePayment).
				WithHintf("transaction for %s already recorded", key).
				Mark(ierr.ErrDuplicatePayment)
		}
		s.transactionsByExternal[key] = t.ID
	}
	s.transactions[t.ID] = t
	return nil
}

func (r *transactionRepo) GetByExternalID(ctx context.Context, provider types.PaymentProvider, externalID string) (*transaction.Transaction, error) {
	s, unlock := r.store.stateFor(ctx)
	defer unlock()

	id, ok := s.transactionsByExternal[externalKey(provider, externalID)]
	if !ok {
		return nil, ierr.WithError(ierr.ErrNotFound).WithHint("no transaction for that external id").Mark(ierr.ErrNotFound)
	}
	return s.transactions[id], nil
}

func (r *transactionRepo) ListByUser(ctx context.Context, userID string) ([]*transaction.Transaction, error) {
	s, unlock := r.store.stateFor(ctx)
	defer unlock()

	var out []*transaction.Transaction
	for _, t := range s.transactions {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (r *transactionRepo) ListCompletedInRange(ctx context.Context, from, to time.Time) ([]*transaction.Transaction, error) {
	s, unlock := r.store.stateFor(ctx)
	defer unlock()

	var out []*transaction.Transaction
	for _, t := range s.transactions {
		if t.IsCompleted && !t.CreatedAt.Before(from) && t.CreatedAt.Before(to) {
			out = append(out, t)
		}
	}
	return out, nil
}
