package sheets

import (
	"context"

	"github.com/dvloznov/garagebot/internal/ledger"
)

// CategoryRepo manages the Categories tab.
type CategoryRepo struct {
	c *Client
}

func (r *CategoryRepo) List(ctx context.Context) ([]ledger.Category, error) {
	rows, err := r.c.values(ctx, rangeCategories)
	if err != nil {
		return nil, ledger.NewStoreError("list "+tabCategories, err)
	}
	out := make([]ledger.Category, 0, len(rows))
	for _, row := range rows {
		if blankRow(row) {
			continue
		}
		out = append(out, decodeCategory(row))
	}
	return out, nil
}

func (r *CategoryRepo) Append(ctx context.Context, c ledger.Category) error {
	if err := r.c.appendRow(ctx, rangeCategories, encodeCategory(c)); err != nil {
		return ledger.NewStoreError("append "+tabCategories, err)
	}
	return nil
}

func (r *CategoryRepo) Delete(ctx context.Context, id string) error {
	rows, err := r.c.values(ctx, rangeCategories)
	if err != nil {
		return ledger.NewStoreError("delete "+tabCategories, err)
	}
	for i, row := range rows {
		if cell(row, 0) != id {
			continue
		}
		if err := r.c.deleteRow(ctx, tabCategories, int64(i+1)); err != nil {
			return ledger.NewStoreError("delete "+tabCategories, err)
		}
		return nil
	}
	return ledger.ErrNotFound
}
