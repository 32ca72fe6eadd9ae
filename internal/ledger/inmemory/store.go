// Package inmemory is an in-memory implementation of the ledger
// repositories. It backs the test suites and can serve as a demo backend.
// Data is lost on restart - for persistence, use the sheets backend.
package inmemory

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/dvloznov/garagebot/internal/ledger"
)

// Store holds every logical table in memory behind one mutex. It is safe for
// concurrent use and preserves append order, matching the behavior the
// reports rely on.
type Store struct {
	mu           sync.RWMutex
	transactions []ledger.Transaction
	frozen       []ledger.FrozenFunds
	services     []ledger.Service
	cars         []ledger.Car
	categories   []ledger.Category
	initial      decimal.Decimal
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{}
}

// Ledger bundles the store into the repository set consumed by the engine
// and the conversation flows.
func (s *Store) Ledger() ledger.Store {
	return ledger.Store{
		Transactions: (*transactionRepo)(s),
		Frozen:       (*frozenRepo)(s),
		Services:     (*serviceRepo)(s),
		Cars:         (*carRepo)(s),
		Categories:   (*categoryRepo)(s),
		Summary:      (*summaryRepo)(s),
	}
}

type transactionRepo Store

func (r *transactionRepo) Append(ctx context.Context, t ledger.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transactions = append(r.transactions, t)
	return nil
}

func (r *transactionRepo) List(ctx context.Context, kind ledger.Kind) ([]ledger.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []ledger.Transaction
	for _, t := range r.transactions {
		if t.Kind == kind {
			out = append(out, t)
		}
	}
	return out, nil
}

type frozenRepo Store

func (r *frozenRepo) Append(ctx context.Context, f ledger.FrozenFunds) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frozen = append(r.frozen, f)
	return nil
}

func (r *frozenRepo) List(ctx context.Context) ([]ledger.FrozenFunds, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ledger.FrozenFunds, len(r.frozen))
	copy(out, r.frozen)
	return out, nil
}

func (r *frozenRepo) ListByCar(ctx context.Context, carID string) ([]ledger.FrozenFunds, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []ledger.FrozenFunds
	for _, f := range r.frozen {
		if f.CarID == carID {
			out = append(out, f)
		}
	}
	return out, nil
}

func (r *frozenRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, f := range r.frozen {
		if f.ID == id {
			r.frozen = append(r.frozen[:i], r.frozen[i+1:]...)
			return nil
		}
	}
	return ledger.ErrNotFound
}

type serviceRepo Store

func (r *serviceRepo) Append(ctx context.Context, s ledger.Service) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.services = append(r.services, s)
	return nil
}

func (r *serviceRepo) List(ctx context.Context) ([]ledger.Service, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ledger.Service, len(r.services))
	copy(out, r.services)
	return out, nil
}

func (r *serviceRepo) ListByCar(ctx context.Context, carID string) ([]ledger.Service, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []ledger.Service
	for _, s := range r.services {
		if s.CarID == carID {
			out = append(out, s)
		}
	}
	return out, nil
}

type carRepo Store

func (r *carRepo) Append(ctx context.Context, c ledger.Car) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cars = append(r.cars, c)
	return nil
}

func (r *carRepo) List(ctx context.Context) ([]ledger.Car, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ledger.Car, len(r.cars))
	copy(out, r.cars)
	return out, nil
}

func (r *carRepo) Get(ctx context.Context, id string) (ledger.Car, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.cars {
		if c.ID == id {
			return c, nil
		}
	}
	return ledger.Car{}, ledger.ErrNotFound
}

func (r *carRepo) UpdateField(ctx context.Context, id string, field ledger.CarField, value string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.cars {
		if r.cars[i].ID != id {
			continue
		}
		switch field {
		case ledger.FieldInsurance, ledger.FieldInspection, ledger.FieldContractEnd:
			d, err := ledger.ParseDate(value)
			if err != nil {
				return err
			}
			switch field {
			case ledger.FieldInsurance:
				r.cars[i].Insurance = d
			case ledger.FieldInspection:
				r.cars[i].Inspection = d
			default:
				r.cars[i].ContractEnd = d
			}
		case ledger.FieldDriverName:
			r.cars[i].DriverName = value
		case ledger.FieldDriverPhone:
			r.cars[i].DriverPhone = value
		}
		return nil
	}
	return ledger.ErrNotFound
}

func (r *carRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, c := range r.cars {
		if c.ID == id {
			r.cars = append(r.cars[:i], r.cars[i+1:]...)
			return nil
		}
	}
	return ledger.ErrNotFound
}

type categoryRepo Store

func (r *categoryRepo) List(ctx context.Context) ([]ledger.Category, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ledger.Category, len(r.categories))
	copy(out, r.categories)
	return out, nil
}

func (r *categoryRepo) Append(ctx context.Context, c ledger.Category) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.categories = append(r.categories, c)
	return nil
}

func (r *categoryRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, c := range r.categories {
		if c.ID == id {
			r.categories = append(r.categories[:i], r.categories[i+1:]...)
			return nil
		}
	}
	return ledger.ErrNotFound
}

type summaryRepo Store

func (r *summaryRepo) InitialBalance(ctx context.Context) (decimal.Decimal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.initial, nil
}

func (r *summaryRepo) SetInitialBalance(ctx context.Context, v decimal.Decimal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.initial = v
	return nil
}

// Interface guards.
var (
	_ ledger.TransactionRepository = (*transactionRepo)(nil)
	_ ledger.FrozenRepository      = (*frozenRepo)(nil)
	_ ledger.ServiceRepository     = (*serviceRepo)(nil)
	_ ledger.CarRepository         = (*carRepo)(nil)
	_ ledger.CategoryRepository    = (*categoryRepo)(nil)
	_ ledger.SummaryRepository     = (*summaryRepo)(nil)
)
