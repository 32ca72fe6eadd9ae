package sheets

import (
	"context"

	"github.com/dvloznov/garagebot/internal/ledger"
)

// FrozenRepo manages the Frozen tab. Settlement removes rows by sheet id,
// so concurrent manual edits between list and delete surface as not-found
// rather than deleting a neighbor.
type FrozenRepo struct {
	c *Client
}

func (r *FrozenRepo) Append(ctx context.Context, f ledger.FrozenFunds) error {
	if err := r.c.appendRow(ctx, rangeFrozen, encodeFrozen(f)); err != nil {
		return ledger.NewStoreError("append "+tabFrozen, err)
	}
	return nil
}

func (r *FrozenRepo) List(ctx context.Context) ([]ledger.FrozenFunds, error) {
	rows, err := r.c.values(ctx, rangeFrozen)
	if err != nil {
		return nil, ledger.NewStoreError("list "+tabFrozen, err)
	}
	return decodeFrozenRows(r.c.log, rows), nil
}

func (r *FrozenRepo) ListByCar(ctx context.Context, carID string) ([]ledger.FrozenFunds, error) {
	all, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	out := all[:0:0]
	for _, f := range all {
		if f.CarID == carID {
			out = append(out, f)
		}
	}
	return out, nil
}

func (r *FrozenRepo) Delete(ctx context.Context, id string) error {
	rows, err := r.c.values(ctx, rangeFrozen)
	if err != nil {
		return ledger.NewStoreError("delete "+tabFrozen, err)
	}
	for i, row := range rows {
		if cell(row, 0) != id {
			continue
		}
		// Data starts at sheet row 2; deleteRow indexes from the header.
		if err := r.c.deleteRow(ctx, tabFrozen, int64(i+1)); err != nil {
			return ledger.NewStoreError("delete "+tabFrozen, err)
		}
		return nil
	}
	return ledger.ErrNotFound
}
