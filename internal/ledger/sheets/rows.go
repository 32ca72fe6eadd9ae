package sheets

import (
	"fmt"
	"strconv"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/rs/zerolog"

	"github.com/dvloznov/garagebot/internal/ledger"
	"github.com/dvloznov/garagebot/internal/money"
)

// Tab titles and data ranges. Row 1 of every tab is the header; data starts
// at row 2. The migrate binary creates these tabs and headers.
const (
	tabIncome     = "Income"
	tabExpenses   = "Expenses"
	tabFrozen     = "Frozen"
	tabServices   = "Services"
	tabCars       = "Cars"
	tabCategories = "Categories"
	tabSummary    = "Summary"

	rangeIncome     = tabIncome + "!A2:E"
	rangeExpenses   = tabExpenses + "!A2:E"
	rangeFrozen     = tabFrozen + "!A2:F"
	rangeServices   = tabServices + "!A2:G"
	rangeCars       = tabCars + "!A2:H"
	rangeCategories = tabCategories + "!A2:E"

	// The single persisted scalar: the starting card balance.
	cellInitialBalance = tabSummary + "!B1"
)

// headers maps each tab to its header row, in column order. The decoders
// below depend on this order.
var headers = map[string][]interface{}{
	tabIncome:     {"Date", "Category", "Card", "Cash", "Description"},
	tabExpenses:   {"Date", "Category", "Card", "Cash", "Description"},
	tabFrozen:     {"ID", "Car ID", "Car", "Source", "Amount", "Description"},
	tabServices:   {"ID", "Car ID", "Car", "VIN", "Date", "Amount", "Description"},
	tabCars:       {"ID", "Name", "VIN", "Insurance", "Inspection", "Driver", "Phone", "Contract end"},
	tabCategories: {"ID", "Kind", "Name", "Active", "Order"},
	tabSummary:    {"Initial balance"},
}

func transactionTab(kind ledger.Kind) (tab, rng string) {
	if kind == ledger.KindIncome {
		return tabIncome, rangeIncome
	}
	return tabExpenses, rangeExpenses
}

// cell returns the i-th cell of a row as a trimmed string. Short rows read
// as empty cells: Sheets drops trailing empty columns from responses.
func cell(row []interface{}, i int) string {
	if i >= len(row) {
		return ""
	}
	return strings.TrimSpace(fmt.Sprint(row[i]))
}

// blankRow reports whether every cell is empty. Blank rows appear when data
// rows are cleared by hand instead of deleted; they are skipped, not errors.
func blankRow(row []interface{}) bool {
	for i := range row {
		if cell(row, i) != "" {
			return false
		}
	}
	return true
}

// skipRow records one undecodable data row. A hand-mangled cell must not
// take every balance and report down with it, so list scans log and move
// on rather than failing the whole read.
func skipRow(log zerolog.Logger, tab string, sheetRow int, err error) {
	log.Warn().
		Str("tab", tab).
		Int("row", sheetRow).
		Err(err).
		Msg("Skipping undecodable row")
}

// decodeTransactionRows decodes a tab scan, skipping blank and undecodable
// rows.
func decodeTransactionRows(log zerolog.Logger, kind ledger.Kind, tab string, rows [][]interface{}) []ledger.Transaction {
	out := make([]ledger.Transaction, 0, len(rows))
	for i, row := range rows {
		if blankRow(row) {
			continue
		}
		t, err := decodeTransaction(kind, row)
		if err != nil {
			skipRow(log, tab, i+2, err)
			continue
		}
		out = append(out, t)
	}
	return out
}

func decodeFrozenRows(log zerolog.Logger, rows [][]interface{}) []ledger.FrozenFunds {
	out := make([]ledger.FrozenFunds, 0, len(rows))
	for i, row := range rows {
		if blankRow(row) {
			continue
		}
		f, err := decodeFrozen(row)
		if err != nil {
			skipRow(log, tabFrozen, i+2, err)
			continue
		}
		out = append(out, f)
	}
	return out
}

func decodeServiceRows(log zerolog.Logger, rows [][]interface{}) []ledger.Service {
	out := make([]ledger.Service, 0, len(rows))
	for i, row := range rows {
		if blankRow(row) {
			continue
		}
		s, err := decodeService(row)
		if err != nil {
			skipRow(log, tabServices, i+2, err)
			continue
		}
		out = append(out, s)
	}
	return out
}

func encodeTransaction(t ledger.Transaction) []interface{} {
	return []interface{}{
		ledger.FormatTimestamp(t.Timestamp),
		t.Category,
		money.Serialize(t.Card),
		money.Serialize(t.Cash),
		t.Description,
	}
}

func decodeTransaction(kind ledger.Kind, row []interface{}) (ledger.Transaction, error) {
	ts, err := ledger.ParseTimestamp(cell(row, 0))
	if err != nil {
		return ledger.Transaction{}, fmt.Errorf("decodeTransaction: column Date: %w", err)
	}
	card, err := money.ParseCell(cell(row, 2))
	if err != nil {
		return ledger.Transaction{}, fmt.Errorf("decodeTransaction: column Card: %w", err)
	}
	cash, err := money.ParseCell(cell(row, 3))
	if err != nil {
		return ledger.Transaction{}, fmt.Errorf("decodeTransaction: column Cash: %w", err)
	}
	return ledger.Transaction{
		Timestamp:   ts,
		Kind:        kind,
		Category:    cell(row, 1),
		Card:        card,
		Cash:        cash,
		Description: cell(row, 4),
	}, nil
}

func encodeFrozen(f ledger.FrozenFunds) []interface{} {
	return []interface{}{
		f.ID,
		f.CarID,
		f.CarName,
		string(f.Source),
		money.Serialize(f.Amount),
		f.Description,
	}
}

func decodeFrozen(row []interface{}) (ledger.FrozenFunds, error) {
	source, err := ledger.ParseWallet(cell(row, 3))
	if err != nil {
		return ledger.FrozenFunds{}, fmt.Errorf("decodeFrozen: column Source: %w", err)
	}
	amount, err := money.ParseCell(cell(row, 4))
	if err != nil {
		return ledger.FrozenFunds{}, fmt.Errorf("decodeFrozen: column Amount: %w", err)
	}
	return ledger.FrozenFunds{
		ID:          cell(row, 0),
		CarID:       cell(row, 1),
		CarName:     cell(row, 2),
		Source:      source,
		Amount:      amount,
		Description: cell(row, 5),
	}, nil
}

func encodeService(s ledger.Service) []interface{} {
	return []interface{}{
		s.ID,
		s.CarID,
		s.CarName,
		s.VIN,
		ledger.FormatTimestamp(s.Timestamp),
		money.Serialize(s.Amount),
		s.Description,
	}
}

func decodeService(row []interface{}) (ledger.Service, error) {
	ts, err := ledger.ParseTimestamp(cell(row, 4))
	if err != nil {
		return ledger.Service{}, fmt.Errorf("decodeService: column Date: %w", err)
	}
	amount, err := money.ParseCell(cell(row, 5))
	if err != nil {
		return ledger.Service{}, fmt.Errorf("decodeService: column Amount: %w", err)
	}
	return ledger.Service{
		ID:          cell(row, 0),
		CarID:       cell(row, 1),
		CarName:     cell(row, 2),
		VIN:         cell(row, 3),
		Timestamp:   ts,
		Amount:      amount,
		Description: cell(row, 6),
	}, nil
}

func encodeCar(c ledger.Car) []interface{} {
	return []interface{}{
		c.ID,
		c.Name,
		c.VIN,
		ledger.FormatDate(c.Insurance),
		ledger.FormatDate(c.Inspection),
		c.DriverName,
		c.DriverPhone,
		ledger.FormatDate(c.ContractEnd),
	}
}

// decodeCar never fails: deadline cells edited by hand into an unparseable
// shape read as unset, so one bad cell does not hide the whole workshop.
func decodeCar(row []interface{}) ledger.Car {
	return ledger.Car{
		ID:          cell(row, 0),
		Name:        cell(row, 1),
		VIN:         cell(row, 2),
		Insurance:   parseDateCell(cell(row, 3)),
		Inspection:  parseDateCell(cell(row, 4)),
		DriverName:  cell(row, 5),
		DriverPhone: cell(row, 6),
		ContractEnd: parseDateCell(cell(row, 7)),
	}
}

func encodeCategory(c ledger.Category) []interface{} {
	active := "TRUE"
	if !c.Active {
		active = "FALSE"
	}
	return []interface{}{
		c.ID,
		string(c.Kind),
		c.Name,
		active,
		strconv.Itoa(c.SortOrder),
	}
}

func decodeCategory(row []interface{}) ledger.Category {
	kind := ledger.KindIncome
	if strings.EqualFold(cell(row, 1), string(ledger.KindExpense)) {
		kind = ledger.KindExpense
	}
	order, _ := strconv.Atoi(cell(row, 4))
	return ledger.Category{
		ID:        cell(row, 0),
		Kind:      kind,
		Name:      cell(row, 2),
		Active:    !strings.EqualFold(cell(row, 3), "FALSE"),
		SortOrder: order,
	}
}

func parseDateCell(s string) civil.Date {
	if s == "" {
		return civil.Date{}
	}
	parsed, err := ledger.ParseDate(s)
	if err != nil {
		return civil.Date{}
	}
	return parsed
}
