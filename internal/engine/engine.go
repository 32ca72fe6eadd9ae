// Package engine derives balances and reports from ledger scans. It keeps no
// state of its own: every computation re-reads the store, so external edits
// to the spreadsheet are picked up on the next call. The scans are
// network-bound anyway, so recomputing beats caching in both simplicity and
// correctness.
package engine

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dvloznov/garagebot/internal/ledger"
)

// Balance is the current wallet state derived from the full ledger.
type Balance struct {
	Card  decimal.Decimal
	Cash  decimal.Decimal
	Total decimal.Decimal
}

// Summary extends Balance with the lifetime totals shown on the summary view.
// NetProfit ignores the initial balance offset; Balance does not.
type Summary struct {
	Initial      decimal.Decimal
	IncomeTotal  decimal.Decimal
	ExpenseTotal decimal.Decimal
	Card         decimal.Decimal
	Cash         decimal.Decimal
	Balance      decimal.Decimal
	NetProfit    decimal.Decimal
}

// FrozenTotals is the sum of earmarked parts money grouped by source wallet,
// across all cars.
type FrozenTotals struct {
	Card  decimal.Decimal
	Cash  decimal.Decimal
	Total decimal.Decimal
}

// Available is the spendable balance per wallet after subtracting frozen
// funds. Available + Frozen == Balance holds per wallet by construction.
type Available struct {
	Card decimal.Decimal
	Cash decimal.Decimal
}

// PeriodSums is the outcome of a windowed scan over one transaction table.
type PeriodSums struct {
	Card decimal.Decimal
	Cash decimal.Decimal
	Rows []ledger.Transaction
}

// Total returns card + cash for the period.
func (p PeriodSums) Total() decimal.Decimal {
	return p.Card.Add(p.Cash)
}

// CategoryTotal is one line of a per-category breakdown.
type CategoryTotal struct {
	Category string
	Total    decimal.Decimal
}

// Engine computes balances and reports over a ledger store.
type Engine struct {
	store ledger.Store
	now   func() time.Time
}

// New creates an engine over the given store.
func New(store ledger.Store) *Engine {
	return &Engine{store: store, now: time.Now}
}

// ComputeBalance recomputes card/cash/total from the complete ledger:
// cash is income cash minus expense cash, card additionally starts from the
// persisted initial balance.
func (e *Engine) ComputeBalance(ctx context.Context) (Balance, error) {
	s, err := e.ComputeSummary(ctx)
	if err != nil {
		return Balance{}, err
	}
	return Balance{Card: s.Card, Cash: s.Cash, Total: s.Balance}, nil
}

// ComputeSummary recomputes the full summary from the complete ledger.
func (e *Engine) ComputeSummary(ctx context.Context) (Summary, error) {
	initial, err := e.store.Summary.InitialBalance(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("ComputeSummary: initial balance: %w", err)
	}
	income, err := e.store.Transactions.List(ctx, ledger.KindIncome)
	if err != nil {
		return Summary{}, fmt.Errorf("ComputeSummary: scan income: %w", err)
	}
	expense, err := e.store.Transactions.List(ctx, ledger.KindExpense)
	if err != nil {
		return Summary{}, fmt.Errorf("ComputeSummary: scan expense: %w", err)
	}

	var incomeCard, incomeCash, expenseCard, expenseCash decimal.Decimal
	for _, t := range income {
		incomeCard = incomeCard.Add(t.Card)
		incomeCash = incomeCash.Add(t.Cash)
	}
	for _, t := range expense {
		expenseCard = expenseCard.Add(t.Card)
		expenseCash = expenseCash.Add(t.Cash)
	}

	card := initial.Add(incomeCard).Sub(expenseCard)
	cash := incomeCash.Sub(expenseCash)
	incomeTotal := incomeCard.Add(incomeCash)
	expenseTotal := expenseCard.Add(expenseCash)

	return Summary{
		Initial:      initial,
		IncomeTotal:  incomeTotal,
		ExpenseTotal: expenseTotal,
		Card:         card,
		Cash:         cash,
		Balance:      card.Add(cash),
		NetProfit:    incomeTotal.Sub(expenseTotal),
	}, nil
}

// FrozenTotals sums frozen funds grouped by normalized source wallet.
func (e *Engine) FrozenTotals(ctx context.Context) (FrozenTotals, error) {
	rows, err := e.store.Frozen.List(ctx)
	if err != nil {
		return FrozenTotals{}, fmt.Errorf("FrozenTotals: scan frozen: %w", err)
	}
	var f FrozenTotals
	for _, r := range rows {
		switch r.Source {
		case ledger.WalletCash:
			f.Cash = f.Cash.Add(r.Amount)
		default:
			f.Card = f.Card.Add(r.Amount)
		}
	}
	f.Total = f.Card.Add(f.Cash)
	return f, nil
}

// ComputeAvailable returns the per-wallet balance minus frozen funds.
func (e *Engine) ComputeAvailable(ctx context.Context) (Available, error) {
	b, err := e.ComputeBalance(ctx)
	if err != nil {
		return Available{}, err
	}
	f, err := e.FrozenTotals(ctx)
	if err != nil {
		return Available{}, err
	}
	return Available{
		Card: b.Card.Sub(f.Card),
		Cash: b.Cash.Sub(f.Cash),
	}, nil
}

// PeriodSum scans one transaction table for rows not older than the given
// number of days. With excludeTransfers set, rows whose category matches the
// reserved transfer name are skipped so that money which only moved wallets
// is not double-counted.
func (e *Engine) PeriodSum(ctx context.Context, kind ledger.Kind, days int, excludeTransfers bool) (PeriodSums, error) {
	rows, err := e.store.Transactions.List(ctx, kind)
	if err != nil {
		return PeriodSums{}, fmt.Errorf("PeriodSum: scan %s: %w", kind, err)
	}
	since := e.now().AddDate(0, 0, -days)

	var p PeriodSums
	for _, t := range rows {
		if t.Timestamp.Before(since) {
			continue
		}
		if excludeTransfers && ledger.IsTransferCategory(t.Category) {
			continue
		}
		p.Card = p.Card.Add(t.Card)
		p.Cash = p.Cash.Add(t.Cash)
		p.Rows = append(p.Rows, t)
	}
	return p, nil
}

// AggregateByCategory groups rows by category name and returns the totals in
// descending order, names compared case-insensitively after trimming.
// Callers are expected to have excluded transfer rows already; a pure
// function, safe to re-run on the same snapshot.
func AggregateByCategory(rows []ledger.Transaction) []CategoryTotal {
	totals := make(map[string]decimal.Decimal)
	names := make(map[string]string)
	for _, t := range rows {
		key := normalizeName(t.Category)
		if _, ok := names[key]; !ok {
			names[key] = t.Category
		}
		totals[key] = totals[key].Add(t.Amount())
	}

	out := make([]CategoryTotal, 0, len(totals))
	for key, total := range totals {
		out = append(out, CategoryTotal{Category: names[key], Total: total})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Total.Equal(out[j].Total) {
			return out[i].Total.GreaterThan(out[j].Total)
		}
		return out[i].Category < out[j].Category
	})
	return out
}

// RecentServices returns the newest service lines, relying on append order as
// the recency proxy. limit <= 0 returns everything, newest first.
func (e *Engine) RecentServices(ctx context.Context, limit int) ([]ledger.Service, error) {
	rows, err := e.store.Services.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("RecentServices: scan services: %w", err)
	}
	out := make([]ledger.Service, len(rows))
	for i, s := range rows {
		out[len(rows)-1-i] = s
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func normalizeName(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
