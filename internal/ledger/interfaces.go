package ledger

import (
	"context"

	"github.com/shopspring/decimal"
)

// TransactionRepository is the append-only income/expense ledger. List
// re-reads the store on every call; concurrent external edits are visible on
// the next scan. Append order is preserved and serves as the recency proxy.
type TransactionRepository interface {
	Append(ctx context.Context, t Transaction) error
	List(ctx context.Context, kind Kind) ([]Transaction, error)
}

// FrozenRepository stores funds earmarked against cars. Entries are hard
// deleted when a repair is settled.
type FrozenRepository interface {
	Append(ctx context.Context, f FrozenFunds) error
	List(ctx context.Context) ([]FrozenFunds, error)
	ListByCar(ctx context.Context, carID string) ([]FrozenFunds, error)
	Delete(ctx context.Context, id string) error
}

// ServiceRepository stores billable labor lines. Services are never deleted;
// finishing a repair books their total as income and leaves them as history.
type ServiceRepository interface {
	Append(ctx context.Context, s Service) error
	List(ctx context.Context) ([]Service, error)
	ListByCar(ctx context.Context, carID string) ([]Service, error)
}

// CarRepository is the workshop table. UpdateField performs a targeted
// single-cell update; Delete removes a finished car.
type CarRepository interface {
	Append(ctx context.Context, c Car) error
	List(ctx context.Context) ([]Car, error)
	Get(ctx context.Context, id string) (Car, error)
	UpdateField(ctx context.Context, id string, field CarField, value string) error
	Delete(ctx context.Context, id string) error
}

// CategoryRepository persists categories. Delete returns ErrNotFound when the
// id does not exist; it never cascades to historical ledger rows.
type CategoryRepository interface {
	List(ctx context.Context) ([]Category, error)
	Append(ctx context.Context, c Category) error
	Delete(ctx context.Context, id string) error
}

// SummaryRepository holds the single persisted scalar: the starting card
// balance. Last writer wins.
type SummaryRepository interface {
	InitialBalance(ctx context.Context) (decimal.Decimal, error)
	SetInitialBalance(ctx context.Context, v decimal.Decimal) error
}

// Store bundles the per-table repositories of one backend.
type Store struct {
	Transactions TransactionRepository
	Frozen       FrozenRepository
	Services     ServiceRepository
	Cars         CarRepository
	Categories   CategoryRepository
	Summary      SummaryRepository
}
