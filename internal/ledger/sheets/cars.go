package sheets

import (
	"context"
	"fmt"

	"github.com/dvloznov/garagebot/internal/ledger"
)

// carColumns maps each editable field to its column letter in the Cars tab.
// Must stay in sync with the header order in rows.go.
var carColumns = map[ledger.CarField]string{
	ledger.FieldInsurance:   "D",
	ledger.FieldInspection:  "E",
	ledger.FieldDriverName:  "F",
	ledger.FieldDriverPhone: "G",
	ledger.FieldContractEnd: "H",
}

// CarRepo manages the Cars tab. UpdateField writes a single cell so two
// edits to different fields of one car cannot clobber each other.
type CarRepo struct {
	c *Client
}

func (r *CarRepo) Append(ctx context.Context, car ledger.Car) error {
	if err := r.c.appendRow(ctx, rangeCars, encodeCar(car)); err != nil {
		return ledger.NewStoreError("append "+tabCars, err)
	}
	return nil
}

func (r *CarRepo) List(ctx context.Context) ([]ledger.Car, error) {
	rows, err := r.c.values(ctx, rangeCars)
	if err != nil {
		return nil, ledger.NewStoreError("list "+tabCars, err)
	}
	out := make([]ledger.Car, 0, len(rows))
	for _, row := range rows {
		if blankRow(row) {
			continue
		}
		out = append(out, decodeCar(row))
	}
	return out, nil
}

func (r *CarRepo) Get(ctx context.Context, id string) (ledger.Car, error) {
	cars, err := r.List(ctx)
	if err != nil {
		return ledger.Car{}, err
	}
	for _, c := range cars {
		if c.ID == id {
			return c, nil
		}
	}
	return ledger.Car{}, ledger.ErrNotFound
}

func (r *CarRepo) UpdateField(ctx context.Context, id string, field ledger.CarField, value string) error {
	col, ok := carColumns[field]
	if !ok {
		return ledger.NewStoreError("update "+tabCars, fmt.Errorf("unknown car field %q", field))
	}
	row, err := r.rowIndex(ctx, id)
	if err != nil {
		return err
	}
	rng := fmt.Sprintf("%s!%s%d", tabCars, col, row)
	if err := r.c.updateCells(ctx, rng, []interface{}{value}); err != nil {
		return ledger.NewStoreError("update "+tabCars, err)
	}
	return nil
}

func (r *CarRepo) Delete(ctx context.Context, id string) error {
	row, err := r.rowIndex(ctx, id)
	if err != nil {
		return err
	}
	if err := r.c.deleteRow(ctx, tabCars, int64(row-1)); err != nil {
		return ledger.NewStoreError("delete "+tabCars, err)
	}
	return nil
}

// rowIndex returns the 1-based sheet row of the car with the given id.
func (r *CarRepo) rowIndex(ctx context.Context, id string) (int, error) {
	rows, err := r.c.values(ctx, rangeCars)
	if err != nil {
		return 0, ledger.NewStoreError("list "+tabCars, err)
	}
	for i, row := range rows {
		if cell(row, 0) == id {
			return i + 2, nil
		}
	}
	return 0, ledger.ErrNotFound
}
