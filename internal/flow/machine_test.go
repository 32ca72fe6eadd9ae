package flow

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dvloznov/garagebot/internal/category"
	"github.com/dvloznov/garagebot/internal/engine"
	"github.com/dvloznov/garagebot/internal/ledger"
	"github.com/dvloznov/garagebot/internal/ledger/inmemory"
	"github.com/dvloznov/garagebot/internal/logger"
)

const chat = int64(100)

func newMachine(t *testing.T) (*Machine, ledger.Store) {
	t.Helper()
	store := inmemory.New().Ledger()
	sessions := NewSessionStore(0)
	m := New(store, engine.New(store), category.NewRegistry(store.Categories), sessions, logger.NewWithWriter(&strings.Builder{}))
	m.now = func() time.Time { return time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC) }
	seq := 0
	m.newID = func() string {
		seq++
		return fmt.Sprintf("id-%d", seq)
	}
	return m, store
}

func mustControl(t *testing.T, m *Machine, token string) Reply {
	t.Helper()
	r, err := m.HandleControl(context.Background(), chat, token)
	if err != nil {
		t.Fatalf("HandleControl(%q) failed: %v", token, err)
	}
	return r
}

func mustText(t *testing.T, m *Machine, text string) Reply {
	t.Helper()
	r, err := m.HandleText(context.Background(), chat, text)
	if err != nil {
		t.Fatalf("HandleText(%q) failed: %v", text, err)
	}
	return r
}

func hasToken(r Reply, token string) bool {
	for _, rw := range r.Controls {
		for _, c := range rw {
			if c.Token == token {
				return true
			}
		}
	}
	return false
}

// With no categories defined, starting the income flow short-circuits the
// category step to the default "Other"; a non-numeric amount re-prompts
// without advancing; a valid amount advances to the source step.
func TestIncomeFlow_StepMonotonicity(t *testing.T) {
	m, _ := newMachine(t)

	mustControl(t, m, tokenIncome)
	sess, ok := m.sessions.Get(chat)
	if !ok {
		t.Fatal("no session after starting income flow")
	}
	if sess.Step != StepAmount {
		t.Fatalf("step = %q, want %q (empty registry skips category selection)", sess.Step, StepAmount)
	}
	if sess.CategoryName != ledger.DefaultCategoryName {
		t.Errorf("category = %q, want defaulted %q", sess.CategoryName, ledger.DefaultCategoryName)
	}

	mustText(t, m, "lots")
	sess, _ = m.sessions.Get(chat)
	if sess.Step != StepAmount || !sess.Amount.IsZero() {
		t.Errorf("invalid amount must not advance: step=%q amount=%s", sess.Step, sess.Amount)
	}

	mustText(t, m, "0")
	sess, _ = m.sessions.Get(chat)
	if sess.Step != StepAmount {
		t.Errorf("zero amount must be rejected, step=%q", sess.Step)
	}

	r := mustText(t, m, "1 200,50")
	sess, _ = m.sessions.Get(chat)
	if sess.Step != StepSource {
		t.Errorf("valid amount should advance to %q, got %q", StepSource, sess.Step)
	}
	if !sess.Amount.Equal(decimal.RequireFromString("1200.50")) {
		t.Errorf("amount = %s, want 1200.50", sess.Amount)
	}
	if !hasToken(r, tokenWalletCard) || !hasToken(r, tokenWalletCash) {
		t.Error("source step must offer both wallets")
	}
}

func TestIncomeFlow_CommitWritesRowAndClearsState(t *testing.T) {
	ctx := context.Background()
	m, store := newMachine(t)

	mustControl(t, m, tokenIncome)
	mustText(t, m, "250")
	mustControl(t, m, tokenWalletCash)
	r := mustText(t, m, "salary advance")

	rows, err := store.Transactions.List(ctx, ledger.KindIncome)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("got %d income rows, want 1", len(rows))
	}
	tx := rows[0]
	if !tx.Cash.Equal(decimal.RequireFromString("250")) || !tx.Card.IsZero() {
		t.Errorf("funding split wrong: card=%s cash=%s", tx.Card, tx.Cash)
	}
	if tx.Category != ledger.DefaultCategoryName || tx.Description != "salary advance" {
		t.Errorf("row = %+v", tx)
	}

	if _, ok := m.sessions.Get(chat); ok {
		t.Error("session must be cleared after commit")
	}
	if !strings.Contains(r.Text, "Balance") {
		t.Errorf("receipt must include the live balance, got: %s", r.Text)
	}
}

func TestExpenseFlow_CategorySelection(t *testing.T) {
	ctx := context.Background()
	m, store := newMachine(t)

	reg := category.NewRegistry(store.Categories)
	id, err := reg.Add(ctx, ledger.KindExpense, "Fuel")
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	r := mustControl(t, m, tokenExpense)
	if !hasToken(r, "cat:"+id) {
		t.Fatalf("category step must offer Fuel, got %+v", r.Controls)
	}

	mustControl(t, m, "cat:"+id)
	sess, _ := m.sessions.Get(chat)
	if sess.Step != StepAmount || sess.CategoryName != "Fuel" {
		t.Fatalf("after category pick: step=%q category=%q", sess.Step, sess.CategoryName)
	}

	// Validation failure must preserve the accumulated category.
	mustText(t, m, "not-a-number")
	sess, _ = m.sessions.Get(chat)
	if sess.CategoryName != "Fuel" {
		t.Error("validation failure dropped accumulated fields")
	}

	mustText(t, m, "120.50")
	mustControl(t, m, tokenWalletCard)
	mustText(t, m, "diesel")

	rows, _ := store.Transactions.List(ctx, ledger.KindExpense)
	if len(rows) != 1 || rows[0].Category != "Fuel" {
		t.Fatalf("expense rows = %+v", rows)
	}
}

func TestCancelClearsState(t *testing.T) {
	m, _ := newMachine(t)

	mustControl(t, m, tokenExpense)
	mustText(t, m, "50")

	r := mustText(t, m, "CANCEL")
	if _, ok := m.sessions.Get(chat); ok {
		t.Error("cancel must clear the session")
	}
	if !strings.Contains(r.Text, "Canceled") {
		t.Errorf("cancel reply = %q", r.Text)
	}

	// The control variant behaves the same.
	mustControl(t, m, tokenIncome)
	mustControl(t, m, tokenCancel)
	if _, ok := m.sessions.Get(chat); ok {
		t.Error("cancel control must clear the session")
	}
}

// A transfer never asks for category or description and keeps the total
// unchanged while moving exactly X between wallets.
func TestTransferFlow_Neutrality(t *testing.T) {
	ctx := context.Background()
	m, store := newMachine(t)
	eng := engine.New(store)

	if err := store.Summary.SetInitialBalance(ctx, decimal.RequireFromString("500.00")); err != nil {
		t.Fatalf("SetInitialBalance failed: %v", err)
	}
	before, err := eng.ComputeBalance(ctx)
	if err != nil {
		t.Fatalf("ComputeBalance failed: %v", err)
	}

	mustControl(t, m, tokenTransfer)
	mustControl(t, m, tokenTransferCardCash)
	r := mustText(t, m, "123.45")

	if _, ok := m.sessions.Get(chat); ok {
		t.Error("transfer must commit immediately after the amount")
	}
	if !strings.Contains(r.Text, "Transferred") {
		t.Errorf("transfer reply = %q", r.Text)
	}

	x := decimal.RequireFromString("123.45")
	after, err := eng.ComputeBalance(ctx)
	if err != nil {
		t.Fatalf("ComputeBalance failed: %v", err)
	}
	if !after.Total.Equal(before.Total) {
		t.Errorf("transfer changed the total: %s -> %s", before.Total, after.Total)
	}
	if !after.Card.Equal(before.Card.Sub(x)) || !after.Cash.Equal(before.Cash.Add(x)) {
		t.Errorf("after transfer card=%s cash=%s", after.Card, after.Cash)
	}

	// Both rows carry the reserved category, so period reports exclude them.
	income, _ := store.Transactions.List(ctx, ledger.KindIncome)
	expense, _ := store.Transactions.List(ctx, ledger.KindExpense)
	if len(income) != 1 || len(expense) != 1 {
		t.Fatalf("transfer must write exactly one row per table: %d/%d", len(income), len(expense))
	}
	if !ledger.IsTransferCategory(income[0].Category) || !ledger.IsTransferCategory(expense[0].Category) {
		t.Error("transfer rows must use the reserved category name")
	}
	if !income[0].Timestamp.Equal(expense[0].Timestamp) {
		t.Error("transfer rows must share one timestamp")
	}
}

func TestWorkshopBuyFlow(t *testing.T) {
	ctx := context.Background()
	m, store := newMachine(t)

	if err := store.Cars.Append(ctx, ledger.Car{ID: "car1", Name: "Toyota"}); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	mustControl(t, m, "car:car1:buy")
	mustText(t, m, "100")
	mustControl(t, m, tokenWalletCard)
	mustText(t, m, "brake pads")

	rows, err := store.Frozen.ListByCar(ctx, "car1")
	if err != nil {
		t.Fatalf("ListByCar failed: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("got %d frozen rows, want 1", len(rows))
	}
	f := rows[0]
	if f.Source != ledger.WalletCard || !f.Amount.Equal(decimal.RequireFromString("100")) || f.Description != "brake pads" {
		t.Errorf("frozen row = %+v", f)
	}
	if f.CarName != "Toyota" || f.ID == "" {
		t.Errorf("frozen row car fields = %+v", f)
	}
}

func TestWorkshopServiceFlow_AllowsZero(t *testing.T) {
	ctx := context.Background()
	m, store := newMachine(t)

	if err := store.Cars.Append(ctx, ledger.Car{ID: "car1", Name: "Toyota", VIN: "VIN123"}); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	mustControl(t, m, "car:car1:service")
	mustText(t, m, "-5") // rejected
	sess, _ := m.sessions.Get(chat)
	if sess.Step != StepAmount {
		t.Error("negative service amount must be rejected")
	}
	mustText(t, m, "0")
	mustText(t, m, "warranty check")

	rows, _ := store.Services.ListByCar(ctx, "car1")
	if len(rows) != 1 || !rows[0].Amount.IsZero() || rows[0].VIN != "VIN123" {
		t.Fatalf("service rows = %+v", rows)
	}
}

// The settlement example: frozen Card 100 and Cash 50, one service of 80,
// finish with return wallet Cash and income wallet Card, starting from
// card 500 / cash 200. The card-sourced bucket moves card->cash as one
// transfer, the cash-sourced bucket is released in place, and the service
// total books as card income: card 500-100+80=480, cash 200+100=300.
func TestWorkshopFinish_Settlement(t *testing.T) {
	ctx := context.Background()
	m, store := newMachine(t)
	eng := engine.New(store)

	if err := store.Summary.SetInitialBalance(ctx, decimal.RequireFromString("500.00")); err != nil {
		t.Fatalf("SetInitialBalance failed: %v", err)
	}
	seed := ledger.NewTransaction(ledger.KindIncome, "", "Franky", ledger.WalletCash, decimal.RequireFromString("200.00"), "", m.now())
	if err := store.Transactions.Append(ctx, seed); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if err := store.Cars.Append(ctx, ledger.Car{ID: "car1", Name: "Toyota"}); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	frozen := []ledger.FrozenFunds{
		{ID: "f1", CarID: "car1", CarName: "Toyota", Source: ledger.WalletCard, Amount: decimal.RequireFromString("100.00")},
		{ID: "f2", CarID: "car1", CarName: "Toyota", Source: ledger.WalletCash, Amount: decimal.RequireFromString("50.00")},
	}
	for _, f := range frozen {
		if err := store.Frozen.Append(ctx, f); err != nil {
			t.Fatalf("Append frozen failed: %v", err)
		}
	}
	svc := ledger.Service{ID: "s1", CarID: "car1", CarName: "Toyota", Amount: decimal.RequireFromString("80.00")}
	if err := store.Services.Append(ctx, svc); err != nil {
		t.Fatalf("Append service failed: %v", err)
	}

	mustControl(t, m, "car:car1:finish")
	mustControl(t, m, tokenWalletCash) // return wallet
	r := mustControl(t, m, tokenWalletCard) // income wallet
	if !hasToken(r, tokenConfirm) {
		t.Fatal("finish flow must ask for confirmation")
	}
	mustControl(t, m, tokenConfirm)

	// Frozen records consumed, car removed.
	left, _ := store.Frozen.List(ctx)
	if len(left) != 0 {
		t.Errorf("frozen records not consumed: %+v", left)
	}
	if _, err := store.Cars.Get(ctx, "car1"); err == nil {
		t.Error("car must be removed from the workshop")
	}

	// Exactly one cross-wallet transfer pair plus the repair income.
	income, _ := store.Transactions.List(ctx, ledger.KindIncome)
	expense, _ := store.Transactions.List(ctx, ledger.KindExpense)
	var transfersIn, repairs int
	for _, tx := range income {
		if ledger.IsTransferCategory(tx.Category) {
			transfersIn++
			if !tx.Cash.Equal(decimal.RequireFromString("100.00")) {
				t.Errorf("settlement transfer must move 100.00 into cash, got %+v", tx)
			}
		}
		if tx.Category == ledger.RepairCategory {
			repairs++
			if !tx.Card.Equal(decimal.RequireFromString("80.00")) {
				t.Errorf("repair income must be 80.00 on card, got %+v", tx)
			}
		}
	}
	if transfersIn != 1 || repairs != 1 {
		t.Errorf("income rows: %d transfers, %d repairs, want 1 and 1", transfersIn, repairs)
	}
	if len(expense) != 1 || !ledger.IsTransferCategory(expense[0].Category) || !expense[0].Card.Equal(decimal.RequireFromString("100.00")) {
		t.Errorf("expense rows = %+v, want one 100.00 card transfer", expense)
	}

	// Services stay as history.
	services, _ := store.Services.List(ctx)
	if len(services) != 1 {
		t.Errorf("services must be kept after settlement, got %d", len(services))
	}

	b, err := eng.ComputeBalance(ctx)
	if err != nil {
		t.Fatalf("ComputeBalance failed: %v", err)
	}
	if !b.Card.Equal(decimal.RequireFromString("480.00")) {
		t.Errorf("card = %s, want 480.00", b.Card)
	}
	if !b.Cash.Equal(decimal.RequireFromString("300.00")) {
		t.Errorf("cash = %s, want 300.00", b.Cash)
	}
}

func TestWorkshopFinish_RejectedWhenNothingToSettle(t *testing.T) {
	ctx := context.Background()
	m, store := newMachine(t)

	if err := store.Cars.Append(ctx, ledger.Car{ID: "car1", Name: "Toyota"}); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	r := mustControl(t, m, "car:car1:finish")
	if !strings.Contains(r.Text, "Nothing to settle") {
		t.Errorf("reply = %q", r.Text)
	}
	if _, ok := m.sessions.Get(chat); ok {
		t.Error("no session should be created for an empty settlement")
	}
}

func TestEditCarDate(t *testing.T) {
	ctx := context.Background()
	m, store := newMachine(t)

	if err := store.Cars.Append(ctx, ledger.Car{ID: "car1", Name: "Toyota"}); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	mustControl(t, m, "car:car1:edit:insurance")

	// Invalid format re-prompts without clearing the flow.
	r := mustText(t, m, "2025-09-01")
	if !strings.Contains(r.Text, "dd.mm.yyyy") {
		t.Errorf("reply = %q", r.Text)
	}
	if sess, ok := m.sessions.Get(chat); !ok || sess.Step != StepDate {
		t.Fatal("invalid date must keep the flow on the date step")
	}

	mustText(t, m, "01.09.2025")
	car, _ := store.Cars.Get(ctx, "car1")
	if ledger.FormatDate(car.Insurance) != "01.09.2025" {
		t.Errorf("insurance = %q, want 01.09.2025", ledger.FormatDate(car.Insurance))
	}
	if _, ok := m.sessions.Get(chat); ok {
		t.Error("session must be cleared after the edit")
	}
}

func TestDeadlineListFreeTextEdit(t *testing.T) {
	ctx := context.Background()
	m, store := newMachine(t)

	if err := store.Cars.Append(ctx, ledger.Car{ID: "car1", Name: "Toyota"}); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	r := mustControl(t, m, "deadlines:inspection")
	if !strings.Contains(r.Text, "dd.mm.yyyy") {
		t.Errorf("listing must advertise the shortcut, got: %q", r.Text)
	}

	// Unknown car keeps the shortcut armed.
	mustText(t, m, "Lada - 01.09.2025")
	if _, ok := m.sessions.Get(chat); !ok {
		t.Fatal("unknown car must not drop the shortcut")
	}

	// Case-insensitive name match, field picked by the open listing.
	mustText(t, m, "toyota - 01.09.2025")
	car, _ := store.Cars.Get(ctx, "car1")
	if ledger.FormatDate(car.Inspection) != "01.09.2025" {
		t.Errorf("inspection = %q, want 01.09.2025", ledger.FormatDate(car.Inspection))
	}
	if car.Insurance.IsValid() {
		t.Error("insurance must stay untouched")
	}
	if _, ok := m.sessions.Get(chat); ok {
		t.Error("shortcut session must clear after the update")
	}
}

func TestEditDriverFlow(t *testing.T) {
	ctx := context.Background()
	m, store := newMachine(t)

	if err := store.Cars.Append(ctx, ledger.Car{ID: "car1", Name: "Toyota"}); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	mustControl(t, m, "car:car1:edit:driver")
	mustText(t, m, "Ivan")
	mustText(t, m, "+371 20000000")
	mustText(t, m, "bogus") // invalid contract date re-prompts
	if sess, _ := m.sessions.Get(chat); sess.Step != StepContractEnd {
		t.Fatal("invalid contract date must keep the step")
	}
	mustText(t, m, "31.12.2025")

	car, _ := store.Cars.Get(ctx, "car1")
	if car.DriverName != "Ivan" || car.DriverPhone != "+371 20000000" {
		t.Errorf("driver = %q / %q", car.DriverName, car.DriverPhone)
	}
	if ledger.FormatDate(car.ContractEnd) != "31.12.2025" {
		t.Errorf("contract end = %q", ledger.FormatDate(car.ContractEnd))
	}
}

func TestCreateCarFlow(t *testing.T) {
	ctx := context.Background()
	m, store := newMachine(t)

	mustControl(t, m, tokenNewCar)
	mustText(t, m, "BMW E39")
	mustText(t, m, "WBADE6322VBW00000")

	cars, _ := store.Cars.List(ctx)
	if len(cars) != 1 || cars[0].Name != "BMW E39" || cars[0].VIN != "WBADE6322VBW00000" {
		t.Fatalf("cars = %+v", cars)
	}
}

func TestCategoryAddAndInitialBalanceFlows(t *testing.T) {
	ctx := context.Background()
	m, store := newMachine(t)

	mustControl(t, m, "addcat:expense")
	mustText(t, m, "Parts")
	cats, _ := store.Categories.List(ctx)
	if len(cats) != 1 || cats[0].Name != "Parts" || cats[0].Kind != ledger.KindExpense {
		t.Fatalf("categories = %+v", cats)
	}

	mustControl(t, m, tokenInitBal)
	mustText(t, m, "-1") // rejected
	if sess, _ := m.sessions.Get(chat); sess.Step != StepAmount {
		t.Fatal("negative initial balance must be rejected")
	}
	mustText(t, m, "500")
	v, _ := store.Summary.InitialBalance(ctx)
	if !v.Equal(decimal.RequireFromString("500")) {
		t.Errorf("initial balance = %s, want 500", v)
	}
}

// failingTransactions injects append failures to verify commit error
// handling.
type failingTransactions struct {
	ledger.TransactionRepository
	fail bool
}

func (f *failingTransactions) Append(ctx context.Context, t ledger.Transaction) error {
	if f.fail {
		return ledger.NewStoreError("append", fmt.Errorf("backend down"))
	}
	return f.TransactionRepository.Append(ctx, t)
}

func TestCommitFailureKeepsStep(t *testing.T) {
	ctx := context.Background()
	store := inmemory.New().Ledger()
	failing := &failingTransactions{TransactionRepository: store.Transactions, fail: true}
	store.Transactions = failing

	m := New(store, engine.New(store), category.NewRegistry(store.Categories), NewSessionStore(0), logger.NewWithWriter(&strings.Builder{}))
	m.now = time.Now
	m.newID = func() string { return "id" }

	mustControl(t, m, tokenIncome)
	mustText(t, m, "100")
	mustControl(t, m, tokenWalletCash)
	r := mustText(t, m, "desc")

	if !strings.Contains(r.Text, "try again") {
		t.Errorf("failure reply = %q", r.Text)
	}
	sess, ok := m.sessions.Get(chat)
	if !ok || sess.Step != StepDescription {
		t.Fatalf("failed commit must keep the description step, got %+v ok=%v", sess, ok)
	}

	// The retry with a working backend succeeds with the same state.
	failing.fail = false
	mustText(t, m, "desc")
	rows, _ := store.Transactions.List(ctx, ledger.KindIncome)
	if len(rows) != 1 {
		t.Fatalf("retry did not commit: %d rows", len(rows))
	}
	if _, ok := m.sessions.Get(chat); ok {
		t.Error("session must clear after the successful retry")
	}
}
