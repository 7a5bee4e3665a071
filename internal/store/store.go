// Package store is the broker's Entity Store (C2): a typed repository per
// entity plus one primitive, WithTx, providing a unit-of-work over an
// in-memory snapshot. It is grounded on the teacher's
// internal/postgres.Client.WithTx/TxFromContext shape — same context-keyed
// transaction handle, same panic-safe rollback — adapted to the spec's
// explicit Non-goal of ORM/DB plumbing: entities live in memory, guarded by
// a single mutex per the §5 "cooperative, single-writer" concurrency model.
package store

import (
	"context"
	"sync"

	"github.com/vpnbroker/broker/internal/domain/checkout"
	"github.com/vpnbroker/broker/internal/domain/event"
	"github.com/vpnbroker/broker/internal/domain/payment"
	"github.com/vpnbroker/broker/internal/domain/promogroup"
	"github.com/vpnbroker/broker/internal/domain/receipt"
	"github.com/vpnbroker/broker/internal/domain/server"
	"github.com/vpnbroker/broker/internal/domain/subscription"
	"github.com/vpnbroker/broker/internal/domain/transaction"
	"github.com/vpnbroker/broker/internal/domain/user"
	ierr "github.com/vpnbroker/broker/internal/errors"
	"github.com/vpnbroker/broker/internal/logger"
	"github.com/vpnbroker/broker/internal/types"
)

// state is the full in-memory snapshot. Repository methods only ever
// replace map entries wholesale (never mutate a stored pointer's fields in
// place), so a shallow clone of the map headers is enough to give a
// transaction its own consistent view (§4.2 "Reads within a transaction see
// a consistent snapshot").
type state struct {
	users           map[string]*user.User
	usersByTelegram map[int64]string // telegram_id -> user id

	subscriptions       map[string]*subscription.Subscription // keyed by user id (1:1)
	subscriptionServers map[string][]*subscription.Server     // keyed by subscription id

	servers map[string]*server.Server

	promoGroups map[string]*promogroup.PromoGroup

	transactions           map[string]*transaction.Transaction
	transactionsByExternal map[string]string // "provider|external_id" -> transaction id

	payments           map[string]*payment.Payment
	paymentsByExternal map[string]string // "provider|external_id" -> payment id

	checkoutDrafts map[string]*checkout.Draft // keyed by user id

	events []*event.Event

	receipts map[string]*receipt.Receipt
}

func newState() *state {
	return &state{
		users:                  make(map[string]*user.User),
		usersByTelegram:        make(map[int64]string),
		subscriptions:          make(map[string]*subscription.Subscription),
		subscriptionServers:    make(map[string][]*subscription.Server),
		servers:                make(map[string]*server.Server),
		promoGroups:            make(map[string]*promogroup.PromoGroup),
		transactions:           make(map[string]*transaction.Transaction),
		transactionsByExternal: make(map[string]string),
		payments:               make(map[string]*payment.Payment),
		paymentsByExternal:     make(map[string]string),
		checkoutDrafts:         make(map[string]*checkout.Draft),
		events:                 nil,
		receipts:               make(map[string]*receipt.Receipt),
	}
}

// clone returns a new state whose maps are independent (new map headers)
// but whose values are shared pointers until a repository call replaces
// them — giving copy-on-write semantics cheaply.
func (s *state) clone() *state {
	c := &state{
		users:                  make(map[string]*user.User, len(s.users)),
		usersByTelegram:        make(map[int64]string, len(s.usersByTelegram)),
		subscriptions:          make(map[string]*subscription.Subscription, len(s.subscriptions)),
		subscriptionServers:    make(map[string][]*subscription.Server, len(s.subscriptionServers)),
		servers:                make(map[string]*server.Server, len(s.servers)),
		promoGroups:            make(map[string]*promogroup.PromoGroup, len(s.promoGroups)),
		transactions:           make(map[string]*transaction.Transaction, len(s.transactions)),
		transactionsByExternal: make(map[string]string, len(s.transactionsByExternal)),
		payments:               make(map[string]*payment.Payment, len(s.payments)),
		paymentsByExternal:     make(map[string]string, len(s.paymentsByExternal)),
		checkoutDrafts:         make(map[string]*checkout.Draft, len(s.checkoutDrafts)),
		events:                 append([]*event.Event(nil), s.events...),
		receipts:               make(map[string]*receipt.Receipt, len(s.receipts)),
	}
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.usersByTelegram {
		c.usersByTelegram[k] = v
	}
	for k, v := range s.subscriptions {
		c.subscriptions[k] = v
	}
	for k, v := range s.subscriptionServers {
		c.subscriptionServers[k] = append([]*subscription.Server(nil), v...)
	}
	for k, v := range s.servers {
		c.servers[k] = v
	}
	for k, v := range s.promoGroups {
		c.promoGroups[k] = v
	}
	for k, v := range s.transactions {
		c.transactions[k] = v
	}
	for k, v := range s.transactionsByExternal {
		c.transactionsByExternal[k] = v
	}
	for k, v := range s.payments {
		c.payments[k] = v
	}
	for k, v := range s.paymentsByExternal {
		c.paymentsByExternal[k] = v
	}
	for k, v := range s.checkoutDrafts {
		c.checkoutDrafts[k] = v
	}
	for k, v := range s.receipts {
		c.receipts[k] = v
	}
	return c
}

// txKey is the context key type holding the active transaction's state,
// mirroring postgres.TxKey.
type txKey struct{}

// Store is the Entity Store aggregate (C2). It exposes one repository per
// entity (via the Users/Subscriptions/... accessors) and the WithTx
// primitive; every accessor resolves to either the live state (auto-commit,
// single read) or the in-flight transaction's state (when called from
// inside a WithTx callback).
type Store struct {
	mu     sync.Mutex
	live   *state
	logger *logger.Logger
}

func New(log *logger.Logger) *Store {
	return &Store{live: newState(), logger: log}
}

// stateFor returns the state a call running under ctx should read/write:
// the transaction's private clone if inside WithTx, otherwise the store's
// live state under the store's lock (single-operation auto-commit).
func (st *Store) stateFor(ctx context.Context) (*state, func()) {
	if tx, ok := ctx.Value(txKey{}).(*state); ok {
		return tx, func() {}
	}
	st.mu.Lock()
	return st.live, st.mu.Unlock
}

// WithTx runs fn with a private, consistent snapshot of the store. On
// success the snapshot is atomically swapped in as the new live state; on
// error or panic the snapshot is discarded and live state is untouched —
// the same contract as postgres.Client.WithTx, without disk-backed
// savepoints since there is only ever one nesting level in this broker.
func (st *Store) WithTx(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	if _, already := ctx.Value(txKey{}).(*state); already {
		return fn(ctx)
	}

	snapshot := st.live.clone()
	txCtx := context.WithValue(ctx, txKey{}, snapshot)

	defer func() {
		if r := recover(); r != nil {
			st.logger.Errorw("panic in store transaction, rolling back", "panic", r)
			panic(r)
		}
	}()

	if err = fn(txCtx); err != nil {
		st.logger.Debugw("store transaction failed, rolling back", "error", err)
		return err
	}

	st.live = snapshot
	return nil
}

// DebitBalance implements §4.2's debit primitive: it returns
// ErrInsufficientFunds without mutating anything when the post-state would
// be negative. Must be called from inside WithTx — it operates on the
// transaction's private snapshot.
func (st *Store) DebitBalance(ctx context.Context, userID string, amount types.Kopeks) error {
	s, unlock := st.stateFor(ctx)
	defer unlock()

	u, ok := s.users[userID]
	if !ok {
		return user.NewNotFoundError(userID)
	}

	post := u.BalanceKopeks - amount
	if post < 0 {
		return ierr.WithError(ierr.ErrInsufficientFunds).
			WithHintf("balance %d insufficient for debit %d", u.BalanceKopeks, amount).
			WithReportableDetails(map[string]any{"missing": int64(-post)}).
			Mark(ierr.ErrInsufficientFunds)
	}

	updated := *u
	updated.BalanceKopeks = post
	s.users[userID] = &updated
	return nil
}

// CreditBalance implements §4.2's credit primitive: idempotent on
// dedupeKey (provider, external_id) — a repeat call with an already-seen
// key is a no-op success (§5 "Exactly-once on money-in").
func (st *Store) CreditBalance(ctx context.Context, userID string, amount types.Kopeks, dedupeKey string) error {
	s, unlock := st.stateFor(ctx)
	defer unlock()

	if dedupeKey != "" {
		if _, seen := s.transactionsByExternal[dedupeKey]; seen {
			return nil
		}
	}

	u, ok := s.users[userID]
	if !ok {
		return user.NewNotFoundError(userID)
	}

	updated := *u
	updated.BalanceKopeks += amount
	s.users[userID] = &updated
	return nil
}
