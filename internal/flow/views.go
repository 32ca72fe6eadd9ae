package flow

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"cloud.google.com/go/civil"

	"github.com/dvloznov/garagebot/internal/ledger"
	"github.com/dvloznov/garagebot/internal/money"
	"github.com/dvloznov/garagebot/internal/reminder"
)

const detailPageSize = 10

func (m *Machine) mainMenu() Reply {
	return Reply{
		Text: "Choose an action:",
		Controls: [][]Control{
			row(Control{Label: "📊 Balance", Token: tokenBalance}),
			row(
				Control{Label: "📥 Income", Token: tokenIncome},
				Control{Label: "📤 Expense", Token: tokenExpense},
			),
			row(Control{Label: "🔁 Transfer", Token: tokenTransfer}),
			row(Control{Label: "🔧 Workshop", Token: tokenCars}),
			row(
				Control{Label: "🛡 Insurance", Token: "deadlines:insurance"},
				Control{Label: "🧰 Inspections", Token: "deadlines:inspection"},
			),
			row(
				Control{Label: "📈 Report 7 days", Token: "report:7"},
				Control{Label: "📊 Report 30 days", Token: "report:30"},
			),
			row(Control{Label: "⚙️ Settings", Token: tokenSettings}),
		},
	}
}

func (m *Machine) balanceView(ctx context.Context) Reply {
	summary, err := m.engine.ComputeSummary(ctx)
	if err != nil {
		return m.storeFailure("compute summary", err)
	}
	frozen, err := m.engine.FrozenTotals(ctx)
	if err != nil {
		return m.storeFailure("frozen totals", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "💼 Balance: %s\n", money.Format(summary.Balance))
	fmt.Fprintf(&b, "💳 Card: %s\n", money.Format(summary.Card))
	fmt.Fprintf(&b, "💵 Cash: %s\n", money.Format(summary.Cash))
	if frozen.Total.IsPositive() {
		fmt.Fprintf(&b, "\n🧊 Frozen: %s (card %s, cash %s)\n",
			money.Format(frozen.Total), money.Format(frozen.Card), money.Format(frozen.Cash))
		fmt.Fprintf(&b, "✅ Available: card %s, cash %s\n",
			money.Format(summary.Card.Sub(frozen.Card)), money.Format(summary.Cash.Sub(frozen.Cash)))
	}
	fmt.Fprintf(&b, "\n📈 Net profit: %s", money.Format(summary.NetProfit))

	return Reply{
		Text: b.String(),
		Controls: [][]Control{
			row(
				Control{Label: "📥 Income", Token: tokenIncome},
				Control{Label: "📤 Expense", Token: tokenExpense},
			),
			backRow(),
		},
	}
}

func (m *Machine) reportView(ctx context.Context, days int) Reply {
	income, err := m.engine.PeriodSum(ctx, ledger.KindIncome, days, true)
	if err != nil {
		return m.storeFailure("period income", err)
	}
	expense, err := m.engine.PeriodSum(ctx, ledger.KindExpense, days, true)
	if err != nil {
		return m.storeFailure("period expense", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📅 Report for %d days:\n\n", days)
	fmt.Fprintf(&b, "📥 Income: %s\n", money.Format(income.Total()))
	fmt.Fprintf(&b, "📤 Expense: %s\n", money.Format(expense.Total()))
	fmt.Fprintf(&b, "💰 Net: %s\n", money.Format(income.Total().Sub(expense.Total())))

	return Reply{
		Text: b.String(),
		Controls: [][]Control{
			row(Control{Label: "📥 Income details", Token: fmt.Sprintf("detail:income:%d:0", days)}),
			row(Control{Label: "📤 Expense details", Token: fmt.Sprintf("detail:expense:%d:0", days)}),
			backRow(),
		},
	}
}

// detailView renders one page of period rows. Token shape:
// detail:<income|expense>:<days>:<page>.
func (m *Machine) detailView(ctx context.Context, token string) Reply {
	parts := strings.Split(token, ":")
	if len(parts) != 4 {
		return m.mainMenu()
	}
	kind := ledger.Kind(parts[1])
	days, errD := strconv.Atoi(parts[2])
	page, errP := strconv.Atoi(parts[3])
	if errD != nil || errP != nil || (kind != ledger.KindIncome && kind != ledger.KindExpense) {
		return m.mainMenu()
	}

	p, err := m.engine.PeriodSum(ctx, kind, days, true)
	if err != nil {
		return m.storeFailure("period detail", err)
	}

	totalPages := (len(p.Rows) + detailPageSize - 1) / detailPageSize
	if totalPages > 0 {
		if page < 0 {
			page = 0
		}
		if page > totalPages-1 {
			page = totalPages - 1
		}
	} else {
		page = 0
	}
	start := page * detailPageSize
	end := start + detailPageSize
	if end > len(p.Rows) {
		end = len(p.Rows)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📋 %s details for %d days:\n\n", kindTitle(kind), days)
	if start >= end {
		b.WriteString("No rows found.")
	}
	for _, r := range p.Rows[start:end] {
		wallet := "💳"
		if r.Wallet() == ledger.WalletCash {
			wallet = "💵"
		}
		sign := "🟢"
		amount := money.Format(r.Amount())
		if kind == ledger.KindExpense {
			sign = "🔴"
			amount = "-" + amount
		}
		fmt.Fprintf(&b, "📅 %s | 🏷 %s | %s %s %s | 📝 %s\n",
			ledger.FormatTimestamp(r.Timestamp), r.Category, sign, wallet, amount, r.Description)
	}

	var nav []Control
	if page > 0 {
		nav = append(nav, Control{Label: "⬅️ Previous", Token: fmt.Sprintf("detail:%s:%d:%d", kind, days, page-1)})
	}
	if page < totalPages-1 {
		nav = append(nav, Control{Label: "➡️ Next", Token: fmt.Sprintf("detail:%s:%d:%d", kind, days, page+1)})
	}

	controls := [][]Control{}
	if len(nav) > 0 {
		controls = append(controls, nav)
	}
	controls = append(controls,
		row(Control{Label: "⬅️ Report", Token: fmt.Sprintf("report:%d", days)}),
		backRow(),
	)
	return Reply{Text: b.String(), Controls: controls}
}

func (m *Machine) carsView(ctx context.Context) Reply {
	cars, err := m.store.Cars.List(ctx)
	if err != nil {
		return m.storeFailure("list cars", err)
	}

	controls := make([][]Control, 0, len(cars)+2)
	for _, c := range cars {
		controls = append(controls, row(Control{Label: "🚗 " + c.Name, Token: "car:" + c.ID}))
	}
	controls = append(controls, row(Control{Label: "➕ Add car", Token: tokenNewCar}))
	controls = append(controls, backRow())

	text := "🔧 Workshop:"
	if len(cars) == 0 {
		text = "🔧 Workshop is empty."
	}
	return Reply{Text: text, Controls: controls}
}

func (m *Machine) carView(ctx context.Context, car ledger.Car) Reply {
	frozen, err := m.store.Frozen.ListByCar(ctx, car.ID)
	if err != nil {
		return m.storeFailure("list frozen", err)
	}
	services, err := m.store.Services.ListByCar(ctx, car.ID)
	if err != nil {
		return m.storeFailure("list services", err)
	}

	frozenTotal := decimalSumFrozen(frozen)
	servicesTotal := decimalSumServices(services)
	today := civil.DateOf(m.now())

	var b strings.Builder
	fmt.Fprintf(&b, "🚗 %s\n", car.Name)
	if car.VIN != "" {
		fmt.Fprintf(&b, "VIN: %s\n", car.VIN)
	}
	b.WriteString(deadlineLine("🛡 Insurance", car.Insurance, today))
	b.WriteString(deadlineLine("🧰 Inspection", car.Inspection, today))
	if car.DriverName != "" {
		fmt.Fprintf(&b, "👤 Driver: %s (%s)\n", car.DriverName, car.DriverPhone)
		b.WriteString(deadlineLine("📄 Contract", car.ContractEnd, today))
	}
	fmt.Fprintf(&b, "\n🧊 Frozen parts money: %s\n", money.Format(frozenTotal))
	fmt.Fprintf(&b, "🛠 Services (%d): %s", len(services), money.Format(servicesTotal))

	return Reply{
		Text: b.String(),
		Controls: [][]Control{
			row(Control{Label: "🧊 Buy parts", Token: "car:" + car.ID + ":buy"}),
			row(Control{Label: "🛠 Add service", Token: "car:" + car.ID + ":service"}),
			row(Control{Label: "🏁 Finish repair", Token: "car:" + car.ID + ":finish"}),
			row(
				Control{Label: "✏️ Insurance", Token: "car:" + car.ID + ":edit:insurance"},
				Control{Label: "✏️ Inspection", Token: "car:" + car.ID + ":edit:inspection"},
			),
			row(Control{Label: "✏️ Driver", Token: "car:" + car.ID + ":edit:driver"}),
			row(Control{Label: "⬅️ Workshop", Token: tokenCars}),
			backRow(),
		},
	}
}

func (m *Machine) deadlinesView(ctx context.Context, field ledger.CarField) Reply {
	cars, err := m.store.Cars.List(ctx)
	if err != nil {
		return m.storeFailure("list cars", err)
	}

	title := "🛡 Insurance:"
	if field == ledger.FieldInspection {
		title = "🧰 Inspections:"
	}
	if len(cars) == 0 {
		return Reply{Text: title + "\nNo cars found.", Controls: [][]Control{backRow()}}
	}

	today := civil.DateOf(m.now())
	var b strings.Builder
	b.WriteString(title + "\n")
	for i, c := range cars {
		date := c.Insurance
		if field == ledger.FieldInspection {
			date = c.Inspection
		}
		label := "—"
		until := "—"
		if date.IsValid() {
			until = ledger.FormatDate(date)
			label = reminder.Label(reminder.DaysLeft(today, date))
		}
		fmt.Fprintf(&b, "%d. %s until %s (%s)\n", i+1, c.Name, until, label)
	}

	return Reply{
		Text: b.String(),
		Controls: [][]Control{
			row(Control{Label: "🔧 Workshop", Token: tokenCars}),
			backRow(),
		},
	}
}

func (m *Machine) settingsView() Reply {
	return Reply{
		Text: "⚙️ Settings:",
		Controls: [][]Control{
			row(Control{Label: "➕ Income category", Token: "addcat:income"}),
			row(Control{Label: "➕ Expense category", Token: "addcat:expense"}),
			row(Control{Label: "🗑 Delete category", Token: tokenDelCat}),
			row(Control{Label: "💼 Initial balance", Token: tokenInitBal}),
			backRow(),
		},
	}
}

func (m *Machine) deleteCategoryView(ctx context.Context) Reply {
	var controls [][]Control
	for _, kind := range []ledger.Kind{ledger.KindIncome, ledger.KindExpense} {
		cats, err := m.categories.ListAll(ctx, kind)
		if err != nil {
			return m.storeFailure("list categories", err)
		}
		for _, c := range cats {
			controls = append(controls, row(Control{
				Label: fmt.Sprintf("🗑 %s (%s)", c.Name, kind),
				Token: "delcat:" + c.ID,
			}))
		}
	}
	if len(controls) == 0 {
		return Reply{Text: "No categories defined.", Controls: [][]Control{backRow()}}
	}
	controls = append(controls, backRow())
	return Reply{Text: "Choose a category to delete:", Controls: controls}
}

// finishPreview shows the settlement summary before the user confirms.
func (m *Machine) finishPreview(ctx context.Context, sess Session) (Reply, error) {
	frozen, err := m.store.Frozen.ListByCar(ctx, sess.CarID)
	if err != nil {
		return m.storeFailure("list frozen", err), nil
	}
	services, err := m.store.Services.ListByCar(ctx, sess.CarID)
	if err != nil {
		return m.storeFailure("list services", err), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "🏁 Finish repair of %s:\n\n", sess.CarName)
	fmt.Fprintf(&b, "🧊 Frozen to release: %s → %s\n", money.Format(decimalSumFrozen(frozen)), sess.ReturnWallet)
	fmt.Fprintf(&b, "🛠 Service income: %s → %s\n", money.Format(decimalSumServices(services)), sess.IncomeWallet)
	b.WriteString("\nThe car will be removed from the workshop.")

	return Reply{
		Text: b.String(),
		Controls: [][]Control{
			row(Control{Label: "✅ Confirm", Token: tokenConfirm}),
			cancelRow(),
		},
	}, nil
}

func kindTitle(kind ledger.Kind) string {
	if kind == ledger.KindIncome {
		return "Income"
	}
	return "Expense"
}

func deadlineLine(label string, date civil.Date, today civil.Date) string {
	if !date.IsValid() {
		return fmt.Sprintf("%s: —\n", label)
	}
	return fmt.Sprintf("%s: %s (%s)\n",
		label, ledger.FormatDate(date), reminder.Label(reminder.DaysLeft(today, date)))
}
