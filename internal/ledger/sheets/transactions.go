package sheets

import (
	"context"

	"github.com/dvloznov/garagebot/internal/ledger"
)

// TransactionRepo reads and appends the Income and Expenses tabs.
type TransactionRepo struct {
	c *Client
}

func (r *TransactionRepo) Append(ctx context.Context, t ledger.Transaction) error {
	tab, rng := transactionTab(t.Kind)
	if err := r.c.appendRow(ctx, rng, encodeTransaction(t)); err != nil {
		return ledger.NewStoreError("append "+tab, err)
	}
	return nil
}

func (r *TransactionRepo) List(ctx context.Context, kind ledger.Kind) ([]ledger.Transaction, error) {
	tab, rng := transactionTab(kind)
	rows, err := r.c.values(ctx, rng)
	if err != nil {
		return nil, ledger.NewStoreError("list "+tab, err)
	}
	return decodeTransactionRows(r.c.log, kind, tab, rows), nil
}
