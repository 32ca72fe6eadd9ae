package sheets

import (
	"context"

	"github.com/dvloznov/garagebot/internal/ledger"
)

// ServiceRepo manages the Services tab. Rows are append-only history.
type ServiceRepo struct {
	c *Client
}

func (r *ServiceRepo) Append(ctx context.Context, s ledger.Service) error {
	if err := r.c.appendRow(ctx, rangeServices, encodeService(s)); err != nil {
		return ledger.NewStoreError("append "+tabServices, err)
	}
	return nil
}

func (r *ServiceRepo) List(ctx context.Context) ([]ledger.Service, error) {
	rows, err := r.c.values(ctx, rangeServices)
	if err != nil {
		return nil, ledger.NewStoreError("list "+tabServices, err)
	}
	return decodeServiceRows(r.c.log, rows), nil
}

func (r *ServiceRepo) ListByCar(ctx context.Context, carID string) ([]ledger.Service, error) {
	all, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	out := all[:0:0]
	for _, s := range all {
		if s.CarID == carID {
			out = append(out, s)
		}
	}
	return out, nil
}
