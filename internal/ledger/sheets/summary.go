package sheets

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/dvloznov/garagebot/internal/ledger"
	"github.com/dvloznov/garagebot/internal/money"
)

// SummaryRepo holds the starting card balance in a single Summary cell.
type SummaryRepo struct {
	c *Client
}

func (r *SummaryRepo) InitialBalance(ctx context.Context) (decimal.Decimal, error) {
	rows, err := r.c.values(ctx, cellInitialBalance)
	if err != nil {
		return decimal.Zero, ledger.NewStoreError("read "+tabSummary, err)
	}
	if len(rows) == 0 {
		return decimal.Zero, nil
	}
	v, err := money.ParseCell(cell(rows[0], 0))
	if err != nil {
		return decimal.Zero, ledger.NewStoreError("read "+tabSummary, err)
	}
	return v, nil
}

func (r *SummaryRepo) SetInitialBalance(ctx context.Context, v decimal.Decimal) error {
	if err := r.c.updateCells(ctx, cellInitialBalance, []interface{}{money.Serialize(v)}); err != nil {
		return ledger.NewStoreError("write "+tabSummary, err)
	}
	return nil
}
