package store

import (
	"context"
	goerrors "errors"
	"testing"
	"time"

	"github.com/vpnbroker/broker/internal/domain/transaction"
	"github.com/vpnbroker/broker/internal/domain/user"
	"github.com/vpnbroker/broker/internal/logger"
	"github.com/vpnbroker/broker/internal/types"
	"github.com/stretchr/testify/require"
)

var errInjectedTestFailure = goerrors.New("injected test failure")

func seedUser(t *testing.T, st *Store, balance types.Kopeks) *user.User {
	u := user.NewUser(12345, types.LanguageRU, "default", time.Now())
	u.BalanceKopeks = balance
	require.NoError(t, st.Users().Create(context.Background(), u))
	return u
}

func TestStore_WithTx_RollsBackOnError(t *testing.T) {
	st := New(logger.GetLogger())
	u := seedUser(t, st, 1000)

	err := st.WithTx(context.Background(), func(ctx context.Context) error {
		require.NoError(t, st.DebitBalance(ctx, u.ID, 500))
		return errInjectedTestFailure
	})
	require.Error(t, err)

	got, err := st.Users().GetByID(context.Background(), u.ID)
	require.NoError(t, err)
	require.EqualValues(t, 1000, got.BalanceKopeks)
}

func TestStore_DebitBalance_InsufficientFunds(t *testing.T) {
	st := New(logger.GetLogger())
	u := seedUser(t, st, 100)

	err := st.WithTx(context.Background(), func(ctx context.Context) error {
		return st.DebitBalance(ctx, u.ID, 101)
	})
	require.Error(t, err)

	got, _ := st.Users().GetByID(context.Background(), u.ID)
	require.EqualValues(t, 100, got.BalanceKopeks)
}

// S5 — Webhook replay: a second credit with the same dedupe key is a no-op.
func TestStore_CreditBalance_IdempotentOnDedupeKey(t *testing.T) {
	st := New(logger.GetLogger())
	u := seedUser(t, st, 0)

	dedupe := "stripe|pay-42"
	credit := func() error {
		return st.WithTx(context.Background(), func(ctx context.Context) error {
			if err := st.CreditBalance(ctx, u.ID, 50000, dedupe); err != nil {
				return err
			}
			if _, err := st.Transactions().GetByExternalID(ctx, types.PaymentProviderStripe, "pay-42"); err == nil {
				return nil
			}
			return st.Transactions().Create(ctx, &transaction.Transaction{
				ID:           types.GenerateUUIDWithPrefix(types.UUIDPrefixTransaction),
				UserID:       u.ID,
				Type:         types.TransactionTypeDeposit,
				AmountKopeks: 50000,
				IsCompleted:  true,
				Provider:     types.PaymentProviderStripe,
				ExternalID:   "pay-42",
				BaseModel:    types.NewBaseModel(time.Now()),
			})
		})
	}

	require.NoError(t, credit())
	require.NoError(t, credit())

	got, err := st.Users().GetByID(context.Background(), u.ID)
	require.NoError(t, err)
	require.EqualValues(t, 50000, got.BalanceKopeks)
}
