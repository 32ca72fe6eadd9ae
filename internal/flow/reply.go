package flow

// Control is one selectable option offered to the user. Token is the opaque
// value the transport feeds back into HandleControl when it is picked.
type Control struct {
	Label string
	Token string
}

// Reply is the directive returned to the transport: text to show and the
// next available control selections, laid out in rows.
type Reply struct {
	Text     string
	Controls [][]Control
}

// Control tokens shared between the views and the handlers.
const (
	tokenMenu     = "menu"
	tokenCancel   = "cancel"
	tokenBalance  = "balance"
	tokenIncome   = "income"
	tokenExpense  = "expense"
	tokenTransfer = "transfer"
	tokenCars     = "cars"
	tokenNewCar   = "car:new"
	tokenSettings = "settings"
	tokenConfirm  = "confirm"
	tokenInitBal  = "initbal"
	tokenDelCat   = "delcat"

	tokenWalletCard = "wallet:card"
	tokenWalletCash = "wallet:cash"

	tokenTransferCardCash = "transfer:card_cash"
	tokenTransferCashCard = "transfer:cash_card"
)

func row(controls ...Control) []Control {
	return controls
}

func backRow() []Control {
	return row(Control{Label: "⬅️ Back", Token: tokenMenu})
}

func cancelRow() []Control {
	return row(Control{Label: "❌ Cancel", Token: tokenCancel})
}

func walletRows() [][]Control {
	return [][]Control{
		row(Control{Label: "💳 Card", Token: tokenWalletCard}),
		row(Control{Label: "💵 Cash", Token: tokenWalletCash}),
		cancelRow(),
	}
}

func prompt(text string) Reply {
	return Reply{Text: text, Controls: [][]Control{cancelRow()}}
}
