package sheets

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dvloznov/garagebot/internal/ledger"
	"github.com/dvloznov/garagebot/internal/logger"
)

func TestTransactionRowRoundTrip(t *testing.T) {
	at := time.Date(2025, 3, 7, 14, 30, 0, 0, time.UTC)
	in := ledger.NewTransaction(ledger.KindExpense, "c1", "Fuel", ledger.WalletCard, decimal.RequireFromString("1234.5"), "diesel", at)

	row := encodeTransaction(in)
	if row[0] != "07.03.2025 14:30" {
		t.Errorf("date cell = %v", row[0])
	}
	if row[2] != "1234.50" || row[3] != "0.00" {
		t.Errorf("amount cells = %v / %v", row[2], row[3])
	}

	out, err := decodeTransaction(ledger.KindExpense, row)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if !out.Timestamp.Equal(at) || out.Category != "Fuel" || out.Description != "diesel" {
		t.Errorf("round trip = %+v", out)
	}
	if !out.Card.Equal(in.Card) || !out.Cash.IsZero() {
		t.Errorf("amounts = card %s cash %s", out.Card, out.Cash)
	}
}

func TestDecodeTransactionLegacyDateOnly(t *testing.T) {
	row := []interface{}{"01.02.2024", "Rent", "", "300", ""}
	tx, err := decodeTransaction(ledger.KindExpense, row)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if tx.Timestamp.Day() != 1 || tx.Timestamp.Month() != time.February {
		t.Errorf("timestamp = %s", tx.Timestamp)
	}
	if !tx.Cash.Equal(decimal.RequireFromString("300")) || !tx.Card.IsZero() {
		t.Errorf("empty card cell must read as zero: %+v", tx)
	}
}

func TestDecodeTransactionRejectsGarbageAmount(t *testing.T) {
	row := []interface{}{"01.02.2024", "Rent", "lots", "", ""}
	if _, err := decodeTransaction(ledger.KindExpense, row); err == nil {
		t.Error("garbage amount must be an error, not zero")
	}
}

func TestFrozenRowRoundTrip(t *testing.T) {
	in := ledger.FrozenFunds{
		ID: "f1", CarID: "car1", CarName: "Toyota",
		Source: ledger.WalletCash, Amount: decimal.RequireFromString("50"),
		Description: "filters",
	}
	out, err := decodeFrozen(encodeFrozen(in))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if out.ID != in.ID || out.Source != in.Source || !out.Amount.Equal(in.Amount) {
		t.Errorf("round trip = %+v", out)
	}
}

func TestDecodeFrozenLegacySourceNames(t *testing.T) {
	row := []interface{}{"f1", "car1", "Toyota", "карта", "10", ""}
	f, err := decodeFrozen(row)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if f.Source != ledger.WalletCard {
		t.Errorf("source = %q", f.Source)
	}
}

func TestDecodeCarToleratesBadDates(t *testing.T) {
	row := []interface{}{"car1", "Toyota", "VIN", "not-a-date", "15.06.2025", "Ivan", "+371", ""}
	car := decodeCar(row)
	if car.Insurance.IsValid() {
		t.Errorf("unparseable insurance cell must read as unset, got %v", car.Insurance)
	}
	if ledger.FormatDate(car.Inspection) != "15.06.2025" {
		t.Errorf("inspection = %v", car.Inspection)
	}
	if car.ContractEnd.IsValid() {
		t.Errorf("empty contract cell must read as unset")
	}
}

func TestCategoryRowDefaultsActive(t *testing.T) {
	// Legacy rows predate the Active column.
	c := decodeCategory([]interface{}{"1", "expense", "Fuel"})
	if !c.Active || c.Kind != ledger.KindExpense {
		t.Errorf("decoded = %+v", c)
	}

	c = decodeCategory(encodeCategory(ledger.Category{ID: "2", Kind: ledger.KindIncome, Name: "Salary", Active: false, SortOrder: 3}))
	if c.Active || c.SortOrder != 3 || c.Kind != ledger.KindIncome {
		t.Errorf("decoded = %+v", c)
	}
}

// One hand-mangled cell must not fail the whole tab scan: the bad row is
// skipped with a warning and every decodable row still comes back.
func TestDecodeTransactionRowsSkipsMangled(t *testing.T) {
	var buf strings.Builder
	log := logger.NewWithWriter(&buf)

	rows := [][]interface{}{
		{"01.02.2024", "Rent", "", "300", ""},
		{"garbage-date", "Fuel", "50", "", ""},
		{"", "", ""},
		{"02.02.2024", "Fuel", "lots", "", ""},
		{"03.02.2024", "Fuel", "75", "", "diesel"},
	}

	out := decodeTransactionRows(log, ledger.KindExpense, tabExpenses, rows)
	if len(out) != 2 {
		t.Fatalf("got %d rows, want 2 decodable ones", len(out))
	}
	if out[0].Category != "Rent" || out[1].Description != "diesel" {
		t.Errorf("decoded = %+v", out)
	}
	logged := buf.String()
	if !strings.Contains(logged, "Skipping undecodable row") {
		t.Errorf("skips must be logged, got: %s", logged)
	}
	// Sheet row numbers, counting the header: the mangled rows are 3 and 5.
	for _, want := range []string{`"row":3`, `"row":5`} {
		if !strings.Contains(logged, want) {
			t.Errorf("log should name %s, got: %s", want, logged)
		}
	}
}

func TestDecodeFrozenRowsSkipsMangled(t *testing.T) {
	var buf strings.Builder
	log := logger.NewWithWriter(&buf)

	rows := [][]interface{}{
		{"f1", "car1", "Toyota", "Card", "100", ""},
		{"f2", "car1", "Toyota", "wallet?", "50", ""},
	}
	out := decodeFrozenRows(log, rows)
	if len(out) != 1 || out[0].ID != "f1" {
		t.Fatalf("decoded = %+v", out)
	}
	if !strings.Contains(buf.String(), "Skipping undecodable row") {
		t.Error("skip must be logged")
	}
}

func TestDecodeServiceRowsSkipsMangled(t *testing.T) {
	var buf strings.Builder
	log := logger.NewWithWriter(&buf)

	rows := [][]interface{}{
		{"s1", "car1", "Toyota", "VIN", "01.02.2024", "80", "brakes"},
		{"s2", "car1", "Toyota", "VIN", "01.02.2024", "eighty", "oil"},
	}
	out := decodeServiceRows(log, rows)
	if len(out) != 1 || out[0].ID != "s1" {
		t.Fatalf("decoded = %+v", out)
	}
	if !strings.Contains(buf.String(), "Skipping undecodable row") {
		t.Error("skip must be logged")
	}
}

func TestBlankRowDetection(t *testing.T) {
	if !blankRow([]interface{}{"", "  ", ""}) {
		t.Error("whitespace-only row should count as blank")
	}
	if blankRow([]interface{}{"", "x"}) {
		t.Error("row with data is not blank")
	}
	if !blankRow(nil) {
		t.Error("empty row is blank")
	}
}
