package flow

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/dvloznov/garagebot/internal/ledger"
	"github.com/dvloznov/garagebot/internal/money"
)

// commitTransaction writes the collected income/expense row, recomputes the
// balance and replies with a receipt. On store failure the session keeps its
// step so the user can resend the description.
func (m *Machine) commitTransaction(ctx context.Context, sess Session) (Reply, error) {
	if sess.CategoryName == "" {
		id, name, err := m.categories.EnsureDefault(ctx, sess.Kind)
		if err != nil {
			return m.storeFailure("ensure default category", err), nil
		}
		sess.CategoryID = id
		sess.CategoryName = name
		m.sessions.Put(sess)
	}

	now := m.now()
	tx := ledger.NewTransaction(sess.Kind, sess.CategoryID, sess.CategoryName, sess.Wallet, sess.Amount, sess.Description, now)
	if err := m.store.Transactions.Append(ctx, tx); err != nil {
		return m.storeFailure("append transaction", err), nil
	}
	m.sessions.Clear(sess.ChatID)

	var b strings.Builder
	fmt.Fprintf(&b, "✅ Added to %s:\n", kindTitle(sess.Kind))
	fmt.Fprintf(&b, "📅 %s\n", ledger.FormatTimestamp(now))
	fmt.Fprintf(&b, "🏷 %s\n", tx.Category)
	if sess.Kind == ledger.KindExpense {
		fmt.Fprintf(&b, "💸 -%s (%s)\n", money.Format(tx.Amount()), tx.Wallet())
	} else {
		fmt.Fprintf(&b, "💰 %s (%s)\n", money.Format(tx.Amount()), tx.Wallet())
	}
	fmt.Fprintf(&b, "📝 %s", tx.Description)

	return m.receipt(ctx, b.String()), nil
}

// commitTransfer writes the linked expense+income pair with the reserved
// category name. The two appends are not atomic: a failure after the first
// one leaves the ledger half-applied, which is logged loudly.
func (m *Machine) commitTransfer(ctx context.Context, sess Session) (Reply, error) {
	now := m.now()
	out := ledger.NewTransaction(ledger.KindExpense, "", ledger.TransferCategory, sess.From, sess.Amount, ledger.DefaultDescription, now)
	in := ledger.NewTransaction(ledger.KindIncome, "", ledger.TransferCategory, sess.To, sess.Amount, ledger.DefaultDescription, now)

	if err := m.store.Transactions.Append(ctx, out); err != nil {
		return m.storeFailure("append transfer expense", err), nil
	}
	if err := m.store.Transactions.Append(ctx, in); err != nil {
		m.log.Error().
			Err(err).
			Str("amount", money.Serialize(sess.Amount)).
			Str("from", string(sess.From)).
			Msg("Transfer half-applied: expense row written, income row failed")
		return m.storeFailure("append transfer income", err), nil
	}
	m.sessions.Clear(sess.ChatID)

	text := fmt.Sprintf("🔁 Transferred %s: %s ➜ %s",
		money.Format(sess.Amount), sess.From, sess.To)
	return m.receipt(ctx, text), nil
}

// commitFrozen writes the parts freeze for the car.
func (m *Machine) commitFrozen(ctx context.Context, sess Session) (Reply, error) {
	f := ledger.FrozenFunds{
		ID:          m.newID(),
		CarID:       sess.CarID,
		CarName:     sess.CarName,
		Source:      sess.Wallet,
		Amount:      sess.Amount,
		Description: sess.Description,
	}
	if err := m.store.Frozen.Append(ctx, f); err != nil {
		return m.storeFailure("append frozen", err), nil
	}
	m.sessions.Clear(sess.ChatID)

	text := fmt.Sprintf("🧊 Froze %s (%s) for parts on %s\n📝 %s",
		money.Format(f.Amount), f.Source, f.CarName, f.Description)
	return m.receipt(ctx, text), nil
}

// commitService writes one billable labor line for the car.
func (m *Machine) commitService(ctx context.Context, sess Session) (Reply, error) {
	s := ledger.Service{
		ID:          m.newID(),
		CarID:       sess.CarID,
		CarName:     sess.CarName,
		VIN:         sess.VIN,
		Timestamp:   m.now(),
		Amount:      sess.Amount,
		Description: sess.Description,
	}
	if err := m.store.Services.Append(ctx, s); err != nil {
		return m.storeFailure("append service", err), nil
	}
	m.sessions.Clear(sess.ChatID)

	text := fmt.Sprintf("🛠 Service added for %s: %s\n📝 %s",
		s.CarName, money.Format(s.Amount), s.Description)
	return Reply{Text: text, Controls: [][]Control{backRow()}}, nil
}

func (m *Machine) commitCar(ctx context.Context, sess Session) (Reply, error) {
	c := ledger.Car{
		ID:   m.newID(),
		Name: sess.CarName,
		VIN:  sess.VIN,
	}
	if err := m.store.Cars.Append(ctx, c); err != nil {
		return m.storeFailure("append car", err), nil
	}
	m.sessions.Clear(sess.ChatID)
	return Reply{
		Text: fmt.Sprintf("✅ Car %s added to the workshop.", c.Name),
		Controls: [][]Control{
			row(Control{Label: "🚗 " + c.Name, Token: "car:" + c.ID}),
			backRow(),
		},
	}, nil
}

// commitDriver applies the three collected driver fields as targeted cell
// updates.
func (m *Machine) commitDriver(ctx context.Context, sess Session, contractEnd string) (Reply, error) {
	updates := []struct {
		field ledger.CarField
		value string
	}{
		{ledger.FieldDriverName, sess.DriverName},
		{ledger.FieldDriverPhone, sess.DriverPhone},
		{ledger.FieldContractEnd, contractEnd},
	}
	for _, u := range updates {
		if err := m.store.Cars.UpdateField(ctx, sess.CarID, u.field, u.value); err != nil {
			return m.storeFailure("update driver", err), nil
		}
	}
	m.sessions.Clear(sess.ChatID)
	return Reply{
		Text: fmt.Sprintf("✅ Driver updated for %s:\n👤 %s (%s)\n📄 Contract until %s",
			sess.CarName, sess.DriverName, sess.DriverPhone, contractEnd),
		Controls: [][]Control{backRow()},
	}, nil
}

// confirmFinish settles the repair: releases frozen funds into the chosen
// return wallet (moving cross-wallet buckets as transfers), books the
// service total as income, and removes the car from the workshop.
//
// The sub-writes are sequential and not atomic; a failure mid-sequence
// leaves a partially settled repair. The session is kept on the confirm step
// so the remaining writes can be retried, but already-deleted frozen rows
// are not restored.
func (m *Machine) confirmFinish(ctx context.Context, chatID int64) (Reply, error) {
	sess, ok := m.sessions.Get(chatID)
	if !ok || sess.Action != ActionWorkshopFinish || sess.Step != StepConfirm {
		return m.mainMenu(), nil
	}

	frozen, err := m.store.Frozen.ListByCar(ctx, sess.CarID)
	if err != nil {
		return m.storeFailure("list frozen", err), nil
	}
	services, err := m.store.Services.ListByCar(ctx, sess.CarID)
	if err != nil {
		return m.storeFailure("list services", err), nil
	}

	// 1. Consume the frozen records, summing per original source.
	buckets := map[ledger.Wallet]decimal.Decimal{}
	for _, f := range frozen {
		buckets[f.Source] = buckets[f.Source].Add(f.Amount)
		if err := m.store.Frozen.Delete(ctx, f.ID); err != nil {
			return m.storeFailure("delete frozen", err), nil
		}
	}

	now := m.now()
	// 2. Move each cross-wallet bucket into the chosen return wallet. A
	// bucket already parked in the return wallet is released as-is.
	for _, source := range []ledger.Wallet{ledger.WalletCard, ledger.WalletCash} {
		amount := buckets[source]
		if amount.IsZero() || source == sess.ReturnWallet {
			continue
		}
		out := ledger.NewTransaction(ledger.KindExpense, "", ledger.TransferCategory, source, amount, ledger.DefaultDescription, now)
		in := ledger.NewTransaction(ledger.KindIncome, "", ledger.TransferCategory, sess.ReturnWallet, amount, ledger.DefaultDescription, now)
		if err := m.store.Transactions.Append(ctx, out); err != nil {
			return m.storeFailure("append settlement transfer", err), nil
		}
		if err := m.store.Transactions.Append(ctx, in); err != nil {
			m.log.Error().Err(err).Str("car", sess.CarName).Msg("Settlement transfer half-applied")
			return m.storeFailure("append settlement transfer", err), nil
		}
	}

	// 3. Book the accumulated service total as one income row.
	servicesTotal := decimalSumServices(services)
	if servicesTotal.IsPositive() {
		income := ledger.NewTransaction(ledger.KindIncome, "", ledger.RepairCategory, sess.IncomeWallet, servicesTotal,
			"Repair of "+sess.CarName, now)
		if err := m.store.Transactions.Append(ctx, income); err != nil {
			return m.storeFailure("append repair income", err), nil
		}
	}

	// 4. The repair is closed: drop the car from the workshop.
	if err := m.store.Cars.Delete(ctx, sess.CarID); err != nil {
		return m.storeFailure("delete car", err), nil
	}
	m.sessions.Clear(chatID)

	var b strings.Builder
	fmt.Fprintf(&b, "🏁 Repair of %s finished.\n", sess.CarName)
	fmt.Fprintf(&b, "🧊 Released %s to %s\n", money.Format(sumBuckets(buckets)), sess.ReturnWallet)
	if servicesTotal.IsPositive() {
		fmt.Fprintf(&b, "💰 Service income %s to %s", money.Format(servicesTotal), sess.IncomeWallet)
	}
	return m.receipt(ctx, b.String()), nil
}

// receipt appends the live balance to a commit message, duplicates it to the
// broadcast destination, and returns the reply.
func (m *Machine) receipt(ctx context.Context, text string) Reply {
	if balance, err := m.engine.ComputeBalance(ctx); err != nil {
		m.log.Error().Err(err).Msg("Balance recompute after commit failed")
	} else {
		text += fmt.Sprintf("\n\n📊 Balance:\n💼 %s\n💳 %s\n💵 %s",
			money.Format(balance.Total), money.Format(balance.Card), money.Format(balance.Cash))
	}

	if m.notifier != nil {
		if err := m.notifier.Notify(ctx, text); err != nil {
			m.log.Error().Err(err).Msg("Failed to duplicate receipt to broadcast chat")
		}
	}

	return Reply{
		Text: text,
		Controls: [][]Control{
			row(
				Control{Label: "📥 Income", Token: tokenIncome},
				Control{Label: "📤 Expense", Token: tokenExpense},
			),
			backRow(),
		},
	}
}

func decimalSumFrozen(rows []ledger.FrozenFunds) decimal.Decimal {
	var total decimal.Decimal
	for _, r := range rows {
		total = total.Add(r.Amount)
	}
	return total
}

func decimalSumServices(rows []ledger.Service) decimal.Decimal {
	var total decimal.Decimal
	for _, r := range rows {
		total = total.Add(r.Amount)
	}
	return total
}

func sumBuckets(buckets map[ledger.Wallet]decimal.Decimal) decimal.Decimal {
	var total decimal.Decimal
	for _, v := range buckets {
		total = total.Add(v)
	}
	return total
}
