package sheets

import (
	"github.com/dvloznov/garagebot/internal/ledger"
)

// Interface guards.
var (
	_ ledger.TransactionRepository = (*TransactionRepo)(nil)
	_ ledger.FrozenRepository      = (*FrozenRepo)(nil)
	_ ledger.ServiceRepository     = (*ServiceRepo)(nil)
	_ ledger.CarRepository         = (*CarRepo)(nil)
	_ ledger.CategoryRepository    = (*CategoryRepo)(nil)
	_ ledger.SummaryRepository     = (*SummaryRepo)(nil)
)

// NewStore builds the ledger repositories over one spreadsheet client.
func NewStore(c *Client) ledger.Store {
	return ledger.Store{
		Transactions: &TransactionRepo{c: c},
		Frozen:       &FrozenRepo{c: c},
		Services:     &ServiceRepo{c: c},
		Cars:         &CarRepo{c: c},
		Categories:   &CategoryRepo{c: c},
		Summary:      &SummaryRepo{c: c},
	}
}
