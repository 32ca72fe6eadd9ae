package flow

import (
	"context"
	"fmt"
	"strings"

	"github.com/dvloznov/garagebot/internal/ledger"
	"github.com/dvloznov/garagebot/internal/money"
)

// cancelTokens are the free-text inputs that abort any flow. The Russian
// token is kept for parity with the original spreadsheet users.
var cancelTokens = map[string]bool{
	"cancel": true,
	"отмена": true,
}

// HandleText processes a free-text message for the chat, validated against
// the current step. Validation failures re-prompt the same step and never
// discard accumulated fields.
func (m *Machine) HandleText(ctx context.Context, chatID int64, text string) (Reply, error) {
	text = strings.TrimSpace(text)

	if cancelTokens[strings.ToLower(text)] {
		m.sessions.Clear(chatID)
		r := m.mainMenu()
		r.Text = "❌ Canceled.\n\n" + r.Text
		return r, nil
	}

	sess, ok := m.sessions.Get(chatID)
	if !ok || sess.Action == ActionNone {
		return m.mainMenu(), nil
	}

	switch sess.Action {
	case ActionIncome, ActionExpense:
		return m.transactionText(ctx, sess, text)
	case ActionTransfer:
		return m.transferText(ctx, sess, text)
	case ActionWorkshopBuy:
		return m.workshopBuyText(ctx, sess, text)
	case ActionWorkshopService:
		return m.workshopServiceText(ctx, sess, text)
	case ActionCreateCar:
		return m.createCarText(ctx, sess, text)
	case ActionEditCar:
		return m.editCarText(ctx, sess, text)
	case ActionDeadlineEdit:
		return m.deadlineEditText(ctx, sess, text)
	case ActionCategoryAdd:
		return m.categoryAddText(ctx, sess, text)
	case ActionBalanceEdit:
		return m.balanceEditText(ctx, sess, text)
	}

	return m.mainMenu(), nil
}

func (m *Machine) transactionText(ctx context.Context, sess Session, text string) (Reply, error) {
	switch sess.Step {
	case StepAmount:
		amount, err := money.ParsePositive(text)
		if err != nil {
			return prompt("⚠️ Enter a positive number (example: 1200.50)"), nil
		}
		sess.Amount = amount
		sess.Step = StepSource
		m.sessions.Put(sess)
		return Reply{Text: "Choose the funding source:", Controls: walletRows()}, nil

	case StepDescription:
		sess.Description = text
		return m.commitTransaction(ctx, sess)
	}
	return m.mainMenu(), nil
}

func (m *Machine) transferText(ctx context.Context, sess Session, text string) (Reply, error) {
	if sess.Step != StepAmount {
		return m.mainMenu(), nil
	}
	amount, err := money.ParsePositive(text)
	if err != nil {
		return prompt("⚠️ Enter a positive number (example: 1200.50)"), nil
	}
	sess.Amount = amount
	// No category or description step: the transfer commits right here.
	return m.commitTransfer(ctx, sess)
}

func (m *Machine) workshopBuyText(ctx context.Context, sess Session, text string) (Reply, error) {
	switch sess.Step {
	case StepAmount:
		amount, err := money.ParsePositive(text)
		if err != nil {
			return prompt("⚠️ Enter a positive number (example: 1200.50)"), nil
		}
		sess.Amount = amount
		sess.Step = StepSource
		m.sessions.Put(sess)
		return Reply{Text: "Which wallet pays for the parts?", Controls: walletRows()}, nil

	case StepDescription:
		sess.Description = text
		return m.commitFrozen(ctx, sess)
	}
	return m.mainMenu(), nil
}

func (m *Machine) workshopServiceText(ctx context.Context, sess Session, text string) (Reply, error) {
	switch sess.Step {
	case StepAmount:
		amount, err := money.ParseNonNegative(text)
		if err != nil {
			return prompt("⚠️ Enter a non-negative number (example: 80.00)"), nil
		}
		sess.Amount = amount
		sess.Step = StepDescription
		m.sessions.Put(sess)
		return prompt("Describe the service:"), nil

	case StepDescription:
		sess.Description = text
		return m.commitService(ctx, sess)
	}
	return m.mainMenu(), nil
}

func (m *Machine) createCarText(ctx context.Context, sess Session, text string) (Reply, error) {
	switch sess.Step {
	case StepCarName:
		if text == "" {
			return prompt("⚠️ The car name cannot be empty."), nil
		}
		sess.CarName = text
		sess.Step = StepCarVIN
		m.sessions.Put(sess)
		return prompt("Enter the VIN (or \"-\" to skip):"), nil

	case StepCarVIN:
		if text != "-" {
			sess.VIN = text
		}
		return m.commitCar(ctx, sess)
	}
	return m.mainMenu(), nil
}

func (m *Machine) editCarText(ctx context.Context, sess Session, text string) (Reply, error) {
	switch sess.Step {
	case StepDate:
		if _, err := ledger.ParseDate(text); err != nil {
			return prompt("❌ Invalid date. Use dd.mm.yyyy"), nil
		}
		if err := m.store.Cars.UpdateField(ctx, sess.CarID, sess.EditField, text); err != nil {
			return m.storeFailure("update car field", err), nil
		}
		m.sessions.Clear(sess.ChatID)
		return Reply{
			Text:     fmt.Sprintf("✅ Date updated:\n%s — %s", sess.CarName, text),
			Controls: [][]Control{backRow()},
		}, nil

	case StepDriverName:
		if text == "" {
			return prompt("⚠️ The driver name cannot be empty."), nil
		}
		sess.DriverName = text
		sess.Step = StepDriverPhone
		m.sessions.Put(sess)
		return prompt("Enter the driver phone:"), nil

	case StepDriverPhone:
		sess.DriverPhone = text
		sess.Step = StepContractEnd
		m.sessions.Put(sess)
		return prompt("Enter the contract end date (dd.mm.yyyy):"), nil

	case StepContractEnd:
		if _, err := ledger.ParseDate(text); err != nil {
			return prompt("❌ Invalid date. Use dd.mm.yyyy"), nil
		}
		return m.commitDriver(ctx, sess, text)
	}
	return m.mainMenu(), nil
}

// deadlineEditText handles the "<car> - dd.mm.yyyy" shortcut offered by the
// deadline listings. The car name is matched case-insensitively; the date
// lands in whichever field the open listing shows.
func (m *Machine) deadlineEditText(ctx context.Context, sess Session, text string) (Reply, error) {
	i := strings.LastIndex(text, "-")
	if i < 0 {
		return prompt("⚠️ Use the format \"<car> - dd.mm.yyyy\""), nil
	}
	name := strings.TrimSpace(text[:i])
	date := strings.TrimSpace(text[i+1:])
	if name == "" {
		return prompt("⚠️ Use the format \"<car> - dd.mm.yyyy\""), nil
	}
	if _, err := ledger.ParseDate(date); err != nil {
		return prompt("❌ Invalid date. Use dd.mm.yyyy"), nil
	}

	cars, err := m.store.Cars.List(ctx)
	if err != nil {
		return m.storeFailure("list cars", err), nil
	}
	for _, c := range cars {
		if !strings.EqualFold(strings.TrimSpace(c.Name), name) {
			continue
		}
		if err := m.store.Cars.UpdateField(ctx, c.ID, sess.EditField, date); err != nil {
			return m.storeFailure("update car field", err), nil
		}
		m.sessions.Clear(sess.ChatID)
		return Reply{
			Text:     fmt.Sprintf("✅ Date updated:\n%s — %s", c.Name, date),
			Controls: [][]Control{backRow()},
		}, nil
	}
	return prompt(fmt.Sprintf("🚫 Car %q not found. Try again:", name)), nil
}

func (m *Machine) categoryAddText(ctx context.Context, sess Session, text string) (Reply, error) {
	if sess.Step != StepName {
		return m.mainMenu(), nil
	}
	if text == "" {
		return prompt("⚠️ The category name cannot be empty."), nil
	}
	if _, err := m.categories.Add(ctx, sess.Kind, text); err != nil {
		return m.storeFailure("add category", err), nil
	}
	m.sessions.Clear(sess.ChatID)
	return Reply{
		Text:     fmt.Sprintf("✅ Category %q added to %s.", text, sess.Kind),
		Controls: [][]Control{backRow()},
	}, nil
}

func (m *Machine) balanceEditText(ctx context.Context, sess Session, text string) (Reply, error) {
	if sess.Step != StepAmount {
		return m.mainMenu(), nil
	}
	amount, err := money.ParseNonNegative(text)
	if err != nil {
		return prompt("⚠️ Enter a non-negative number (example: 500.00)"), nil
	}
	if err := m.store.Summary.SetInitialBalance(ctx, amount); err != nil {
		return m.storeFailure("set initial balance", err), nil
	}
	m.sessions.Clear(sess.ChatID)
	return Reply{
		Text:     fmt.Sprintf("✅ Initial balance set to %s.", money.Format(amount)),
		Controls: [][]Control{backRow()},
	}, nil
}
