// Package ledger defines the domain records persisted in the shared
// spreadsheet and the repository interfaces every backend implements.
// Rows are decoded into these strongly typed records exactly once, at the
// store boundary.
package ledger

import (
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// Kind distinguishes the two logical transaction tables.
type Kind string

const (
	KindIncome  Kind = "income"
	KindExpense Kind = "expense"
)

// Wallet is a funding source. There are exactly two.
type Wallet string

const (
	WalletCard Wallet = "Card"
	WalletCash Wallet = "Cash"
)

// ParseWallet normalizes a stored or user-supplied source string into a
// Wallet. Legacy rows carry free-text variants in two languages; anything
// unrecognized is an error, never a silent default.
func ParseWallet(s string) (Wallet, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "card", "карта":
		return WalletCard, nil
	case "cash", "наличные":
		return WalletCash, nil
	}
	return "", fmt.Errorf("ParseWallet: unrecognized funding source %q", s)
}

// Other returns the opposite wallet.
func (w Wallet) Other() Wallet {
	if w == WalletCard {
		return WalletCash
	}
	return WalletCard
}

// TransferCategory is the reserved category name written by the transfer
// commit and matched (case-insensitively) by the report filters. Writer and
// reader must agree on it; do not rename one side only.
const TransferCategory = "Transfer"

// IsTransferCategory reports whether a category name is the reserved
// transfer sentinel.
func IsTransferCategory(name string) bool {
	return strings.EqualFold(strings.TrimSpace(name), TransferCategory)
}

// RepairCategory is the income category used when booking the accumulated
// service total of a finished repair.
const RepairCategory = "Repair"

// DefaultCategoryName is the fallback category auto-created per kind when the
// user skips selection.
const DefaultCategoryName = "Other"

// DefaultDescription is stored when the user skips the description step.
const DefaultDescription = "-"

// Transaction is one row of the Income or Expense table. Exactly one of
// Card/Cash is non-zero. Rows are append-only and never mutated.
type Transaction struct {
	Timestamp   time.Time
	Kind        Kind
	CategoryID  string
	Category    string
	Card        decimal.Decimal
	Cash        decimal.Decimal
	Description string
}

// NewTransaction builds a transaction funded from a single wallet.
func NewTransaction(kind Kind, categoryID, category string, wallet Wallet, amount decimal.Decimal, description string, at time.Time) Transaction {
	t := Transaction{
		Timestamp:   at,
		Kind:        kind,
		CategoryID:  categoryID,
		Category:    category,
		Description: description,
	}
	if t.Description == "" {
		t.Description = DefaultDescription
	}
	if wallet == WalletCash {
		t.Cash = amount
	} else {
		t.Card = amount
	}
	return t
}

// Amount returns the transaction amount regardless of funding source.
func (t Transaction) Amount() decimal.Decimal {
	if !t.Card.IsZero() {
		return t.Card
	}
	return t.Cash
}

// Wallet returns the funding source of the transaction.
func (t Transaction) Wallet() Wallet {
	if !t.Card.IsZero() {
		return WalletCard
	}
	return WalletCash
}

// FrozenFunds is money earmarked against a car for parts, pending settlement.
// Deleted when the repair is finished.
type FrozenFunds struct {
	ID          string
	CarID       string
	CarName     string
	Source      Wallet
	Amount      decimal.Decimal
	Description string
}

// Service is one billable labor line against a car. Kept as history after the
// repair is finished; its total is booked as a single income row.
type Service struct {
	ID          string
	CarID       string
	CarName     string
	VIN         string
	Timestamp   time.Time
	Amount      decimal.Decimal
	Description string
}

// Car is one row of the workshop table. Deadline fields are date-only and may
// be unset (zero civil.Date).
type Car struct {
	ID          string
	Name        string
	VIN         string
	Insurance   civil.Date
	Inspection  civil.Date
	DriverName  string
	DriverPhone string
	ContractEnd civil.Date
}

// Category is an income or expense category. Historical ledger rows keep the
// category name as a text snapshot, so deleting a category never rewrites
// history.
type Category struct {
	ID        string
	Kind      Kind
	Name      string
	Active    bool
	SortOrder int
}

// CarField names a single editable car cell for targeted updates.
type CarField string

const (
	FieldInsurance   CarField = "insurance"
	FieldInspection  CarField = "inspection"
	FieldDriverName  CarField = "driver_name"
	FieldDriverPhone CarField = "driver_phone"
	FieldContractEnd CarField = "contract_end"
)
