package flow

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dvloznov/garagebot/internal/category"
	"github.com/dvloznov/garagebot/internal/engine"
	"github.com/dvloznov/garagebot/internal/ledger"
	"github.com/dvloznov/garagebot/internal/reminder"
)

// Machine drives the conversation flows for all chats. Each chat advances
// only through its own messages, so the only shared mutable state is the
// ledger store behind it.
type Machine struct {
	store      ledger.Store
	engine     *engine.Engine
	categories *category.Registry
	sessions   *SessionStore
	notifier   reminder.Notifier
	log        zerolog.Logger
	now        func() time.Time
	newID      func() string
}

// New creates a machine over the given collaborators.
func New(store ledger.Store, eng *engine.Engine, reg *category.Registry, sessions *SessionStore, log zerolog.Logger) *Machine {
	return &Machine{
		store:      store,
		engine:     eng,
		categories: reg,
		sessions:   sessions,
		log:        log,
		now:        time.Now,
		newID:      uuid.NewString,
	}
}

// WithNotifier makes the machine duplicate commit receipts to the broadcast
// destination. Delivery failures are logged, never surfaced to the user.
func (m *Machine) WithNotifier(n reminder.Notifier) *Machine {
	m.notifier = n
	return m
}

// storeFailure is the single user-facing shape of any backend error: a
// generic retry message. The session is left on the same step so the user
// can resend the last input instead of losing the whole flow.
func (m *Machine) storeFailure(op string, err error) Reply {
	m.log.Error().Err(err).Str("op", op).Msg("Store operation failed")
	return Reply{
		Text:     "⚠️ Could not reach the ledger. Please try again.",
		Controls: [][]Control{backRow()},
	}
}

// HandleControl processes a control selection (button press) for the chat.
func (m *Machine) HandleControl(ctx context.Context, chatID int64, token string) (Reply, error) {
	switch {
	case token == tokenMenu:
		m.sessions.Clear(chatID)
		return m.mainMenu(), nil

	case token == tokenCancel:
		m.sessions.Clear(chatID)
		r := m.mainMenu()
		r.Text = "❌ Canceled.\n\n" + r.Text
		return r, nil

	case token == tokenBalance:
		return m.balanceView(ctx), nil

	case token == tokenIncome:
		return m.startTransaction(ctx, chatID, ledger.KindIncome)

	case token == tokenExpense:
		return m.startTransaction(ctx, chatID, ledger.KindExpense)

	case strings.HasPrefix(token, "cat:"):
		return m.pickCategory(ctx, chatID, strings.TrimPrefix(token, "cat:"))

	case token == tokenTransfer:
		m.sessions.Begin(chatID, ActionTransfer)
		return Reply{
			Text: "Choose transfer direction:",
			Controls: [][]Control{
				row(Control{Label: "💳 ➜ 💵 Card to cash", Token: tokenTransferCardCash}),
				row(Control{Label: "💵 ➜ 💳 Cash to card", Token: tokenTransferCashCard}),
				cancelRow(),
			},
		}, nil

	case token == tokenTransferCardCash, token == tokenTransferCashCard:
		return m.pickTransferDirection(chatID, token)

	case token == tokenWalletCard, token == tokenWalletCash:
		wallet := ledger.WalletCard
		if token == tokenWalletCash {
			wallet = ledger.WalletCash
		}
		return m.pickWallet(ctx, chatID, wallet)

	case token == tokenConfirm:
		return m.confirmFinish(ctx, chatID)

	case strings.HasPrefix(token, "report:"):
		days, err := strconv.Atoi(strings.TrimPrefix(token, "report:"))
		if err != nil {
			return m.mainMenu(), nil
		}
		return m.reportView(ctx, days), nil

	case strings.HasPrefix(token, "detail:"):
		return m.detailView(ctx, token), nil

	case token == tokenCars:
		return m.carsView(ctx), nil

	case token == tokenNewCar:
		sess := m.sessions.Begin(chatID, ActionCreateCar)
		sess.Step = StepCarName
		m.sessions.Put(sess)
		return prompt("Enter the car name:"), nil

	case strings.HasPrefix(token, "car:"):
		return m.carControl(ctx, chatID, strings.TrimPrefix(token, "car:"))

	case token == "deadlines:insurance":
		return m.startDeadlineList(ctx, chatID, ledger.FieldInsurance)

	case token == "deadlines:inspection":
		return m.startDeadlineList(ctx, chatID, ledger.FieldInspection)

	case token == tokenSettings:
		return m.settingsView(), nil

	case strings.HasPrefix(token, "addcat:"):
		return m.startCategoryAdd(chatID, strings.TrimPrefix(token, "addcat:"))

	case token == tokenDelCat:
		return m.deleteCategoryView(ctx), nil

	case strings.HasPrefix(token, "delcat:"):
		return m.deleteCategory(ctx, strings.TrimPrefix(token, "delcat:"))

	case token == tokenInitBal:
		sess := m.sessions.Begin(chatID, ActionBalanceEdit)
		sess.Step = StepAmount
		m.sessions.Put(sess)
		return prompt("Enter the new initial card balance:"), nil
	}

	m.log.Warn().Str("token", token).Int64("chat_id", chatID).Msg("Unknown control token")
	return m.mainMenu(), nil
}

// startTransaction begins the income or expense flow. With no categories
// defined the category step is short-circuited to the default.
func (m *Machine) startTransaction(ctx context.Context, chatID int64, kind ledger.Kind) (Reply, error) {
	sess := m.sessions.Begin(chatID, Action(kind))
	sess.Kind = kind

	cats, err := m.categories.ListActive(ctx, kind)
	if err != nil {
		return m.storeFailure("list categories", err), nil
	}
	if len(cats) == 0 {
		id, name, err := m.categories.EnsureDefault(ctx, kind)
		if err != nil {
			return m.storeFailure("ensure default category", err), nil
		}
		sess.CategoryID = id
		sess.CategoryName = name
		sess.Step = StepAmount
		m.sessions.Put(sess)
		return prompt(fmt.Sprintf("Enter the %s amount:", kind)), nil
	}

	sess.Step = StepCategory
	m.sessions.Put(sess)

	controls := make([][]Control, 0, len(cats)+2)
	for _, c := range cats {
		controls = append(controls, row(Control{Label: c.Name, Token: "cat:" + c.ID}))
	}
	controls = append(controls, row(Control{Label: ledger.DefaultCategoryName, Token: "cat:skip"}))
	controls = append(controls, cancelRow())
	return Reply{Text: fmt.Sprintf("Choose the %s category:", kind), Controls: controls}, nil
}

// pickCategory records the chosen category and advances to the amount step.
func (m *Machine) pickCategory(ctx context.Context, chatID int64, id string) (Reply, error) {
	sess, ok := m.sessions.Get(chatID)
	if !ok || sess.Step != StepCategory {
		return m.mainMenu(), nil
	}

	if id == "skip" {
		defID, name, err := m.categories.EnsureDefault(ctx, sess.Kind)
		if err != nil {
			return m.storeFailure("ensure default category", err), nil
		}
		sess.CategoryID = defID
		sess.CategoryName = name
	} else {
		cats, err := m.categories.ListAll(ctx, sess.Kind)
		if err != nil {
			return m.storeFailure("list categories", err), nil
		}
		found := false
		for _, c := range cats {
			if c.ID == id {
				sess.CategoryID = c.ID
				sess.CategoryName = c.Name
				found = true
				break
			}
		}
		if !found {
			return Reply{
				Text:     "🚫 That category no longer exists.",
				Controls: [][]Control{backRow()},
			}, nil
		}
	}

	sess.Step = StepAmount
	m.sessions.Put(sess)
	return prompt(fmt.Sprintf("Enter the %s amount:", sess.Kind)), nil
}

func (m *Machine) pickTransferDirection(chatID int64, token string) (Reply, error) {
	sess, ok := m.sessions.Get(chatID)
	if !ok || sess.Action != ActionTransfer {
		sess = m.sessions.Begin(chatID, ActionTransfer)
	}
	if token == tokenTransferCardCash {
		sess.From = ledger.WalletCard
	} else {
		sess.From = ledger.WalletCash
	}
	sess.To = sess.From.Other()
	sess.Step = StepAmount
	m.sessions.Put(sess)
	return prompt("Enter the transfer amount:"), nil
}

// pickWallet interprets a wallet selection according to the current step.
func (m *Machine) pickWallet(ctx context.Context, chatID int64, wallet ledger.Wallet) (Reply, error) {
	sess, ok := m.sessions.Get(chatID)
	if !ok {
		return m.mainMenu(), nil
	}

	switch {
	case sess.Step == StepSource &&
		(sess.Action == ActionIncome || sess.Action == ActionExpense || sess.Action == ActionWorkshopBuy):
		sess.Wallet = wallet
		sess.Step = StepDescription
		m.sessions.Put(sess)
		return prompt("Enter a description (or \"-\" to skip):"), nil

	case sess.Action == ActionWorkshopFinish && sess.Step == StepReturnWallet:
		sess.ReturnWallet = wallet
		sess.Step = StepIncomeWallet
		m.sessions.Put(sess)
		return Reply{
			Text:     "Which wallet should receive the service income?",
			Controls: walletRows(),
		}, nil

	case sess.Action == ActionWorkshopFinish && sess.Step == StepIncomeWallet:
		sess.IncomeWallet = wallet
		sess.Step = StepConfirm
		m.sessions.Put(sess)
		return m.finishPreview(ctx, sess)
	}

	return m.mainMenu(), nil
}

// carControl dispatches "car:..." tokens: a bare id shows the car view, a
// suffixed id starts one of the workshop flows.
func (m *Machine) carControl(ctx context.Context, chatID int64, rest string) (Reply, error) {
	id, sub, _ := strings.Cut(rest, ":")

	car, err := m.store.Cars.Get(ctx, id)
	if errors.Is(err, ledger.ErrNotFound) {
		return Reply{Text: "🚫 Car not found.", Controls: [][]Control{backRow()}}, nil
	}
	if err != nil {
		return m.storeFailure("get car", err), nil
	}

	switch sub {
	case "":
		return m.carView(ctx, car), nil

	case "buy":
		sess := m.sessions.Begin(chatID, ActionWorkshopBuy)
		sess.CarID, sess.CarName = car.ID, car.Name
		sess.Step = StepAmount
		m.sessions.Put(sess)
		return prompt("Enter the parts amount to freeze:"), nil

	case "service":
		sess := m.sessions.Begin(chatID, ActionWorkshopService)
		sess.CarID, sess.CarName, sess.VIN = car.ID, car.Name, car.VIN
		sess.Step = StepAmount
		m.sessions.Put(sess)
		return prompt("Enter the service amount:"), nil

	case "finish":
		return m.startFinish(ctx, chatID, car)

	case "edit:insurance", "edit:inspection":
		field := ledger.FieldInsurance
		if sub == "edit:inspection" {
			field = ledger.FieldInspection
		}
		sess := m.sessions.Begin(chatID, ActionEditCar)
		sess.CarID, sess.CarName = car.ID, car.Name
		sess.EditField = field
		sess.Step = StepDate
		m.sessions.Put(sess)
		return prompt("Enter the new date (dd.mm.yyyy):"), nil

	case "edit:driver":
		sess := m.sessions.Begin(chatID, ActionEditCar)
		sess.CarID, sess.CarName = car.ID, car.Name
		sess.EditField = ledger.FieldDriverName
		sess.Step = StepDriverName
		m.sessions.Put(sess)
		return prompt("Enter the driver name:"), nil
	}

	return m.carView(ctx, car), nil
}

// startDeadlineList shows the deadline listing and arms the free-text
// shortcut: while the listing is open, "<car> - dd.mm.yyyy" updates the
// listed field for the named car.
func (m *Machine) startDeadlineList(ctx context.Context, chatID int64, field ledger.CarField) (Reply, error) {
	r := m.deadlinesView(ctx, field)

	sess := m.sessions.Begin(chatID, ActionDeadlineEdit)
	sess.EditField = field
	sess.Step = StepDate
	m.sessions.Put(sess)

	r.Text += "\nSend \"<car> - dd.mm.yyyy\" to update."
	return r, nil
}

// startFinish checks the settlement precondition and begins the finish flow.
func (m *Machine) startFinish(ctx context.Context, chatID int64, car ledger.Car) (Reply, error) {
	frozen, err := m.store.Frozen.ListByCar(ctx, car.ID)
	if err != nil {
		return m.storeFailure("list frozen", err), nil
	}
	services, err := m.store.Services.ListByCar(ctx, car.ID)
	if err != nil {
		return m.storeFailure("list services", err), nil
	}
	if len(frozen) == 0 && len(services) == 0 {
		return Reply{
			Text:     fmt.Sprintf("🚫 Nothing to settle for %s: no frozen funds and no services.", car.Name),
			Controls: [][]Control{backRow()},
		}, nil
	}

	sess := m.sessions.Begin(chatID, ActionWorkshopFinish)
	sess.CarID, sess.CarName = car.ID, car.Name
	sess.Step = StepReturnWallet
	m.sessions.Put(sess)
	return Reply{
		Text:     "Which wallet should the frozen funds return to?",
		Controls: walletRows(),
	}, nil
}

func (m *Machine) startCategoryAdd(chatID int64, kindToken string) (Reply, error) {
	kind := ledger.KindIncome
	if kindToken == string(ledger.KindExpense) {
		kind = ledger.KindExpense
	}
	sess := m.sessions.Begin(chatID, ActionCategoryAdd)
	sess.Kind = kind
	sess.Step = StepName
	m.sessions.Put(sess)
	return prompt(fmt.Sprintf("Enter the new %s category name:", kind)), nil
}

func (m *Machine) deleteCategory(ctx context.Context, id string) (Reply, error) {
	ok, err := m.categories.Delete(ctx, id)
	if err != nil {
		return m.storeFailure("delete category", err), nil
	}
	if !ok {
		return Reply{Text: "🚫 Category not found.", Controls: [][]Control{backRow()}}, nil
	}
	return Reply{
		Text:     "✅ Category deleted. Historical rows keep its name.",
		Controls: [][]Control{backRow()},
	}, nil
}
