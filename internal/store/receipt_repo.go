package store

import (
	"context"
	"sort"

	"github.com/vpnbroker/broker/internal/domain/receipt"
	ierr "github.com/vpnbroker/broker/internal/errors"
)

type receiptRepo struct{ store *Store }

func (st *Store) Receipts() receipt.Repository { return &receiptRepo{store: st} }

func (r *receiptRepo) Enqueue(ctx context.Context, rec *receipt.Receipt) error {
	s, unlock := r.store.stateFor(ctx)
	defer unlock()
	s.receipts[rec.ID] = rec
	return nil
}

// ListPending returns up to limit pending receipts, oldest first — the FIFO
// order the drainer relies on (§6 "Fiscal receipt queue format").
func (r *receiptRepo) ListPending(ctx context.Context, limit int) ([]*receipt.Receipt, error) {
	s, unlock := r.store.stateFor(ctx)
	defer unlock()

	var pending []*receipt.Receipt
	for _, rec := range s.receipts {
		if rec.Status == receipt.StatusPending {
			pending = append(pending, rec)
		}
	}
	sort.Slice(pending, func(i, j int) bool { return pending[i].CreatedAt.Before(pending[j].CreatedAt) })
	if limit > 0 && len(pending) > limit {
		pending = pending[:limit]
	}
	return pending, nil
}

func (r *receiptRepo) MarkSubmitted(ctx context.Context, id string) error {
	s, unlock := r.store.stateFor(ctx)
	defer unlock()

	rec, ok := s.receipts[id]
	if !ok {
		return ierr.WithError(ierr.ErrNotFound).WithHintf("receipt %s not found", id).Mark(ierr.ErrNotFound)
	}
	updated := *rec
	updated.Status = receipt.StatusSubmitted
	s.receipts[id] = &updated
	return nil
}

// RecordAttemptFailure increments the attempt counter and flips the receipt
// to StatusFailed once maxAttempts is reached (§4.7 "capped attempts").
func (r *receiptRepo) RecordAttemptFailure(ctx context.Context, id string, maxAttempts int) error {
	s, unlock := r.store.stateFor(ctx)
	defer unlock()

	rec, ok := s.receipts[id]
	if !ok {
		return ierr.WithError(ierr.ErrNotFound).WithHintf("receipt %s not found", id).Mark(ierr.ErrNotFound)
	}
	updated := *rec
	updated.Attempts++
	if updated.Attempts >= maxAttempts {
		updated.Status = receipt.StatusFailed
	}
	s.receipts[id] = &updated
	return nil
}

func (r *receiptRepo) CountPending(ctx context.Context) (int, error) {
	s, unlock := r.store.stateFor(ctx)
	defer unlock()

	count := 0
	for _, rec := range s.receipts {
		if rec.Status == receipt.StatusPending {
			count++
		}
	}
	return count, nil
}
