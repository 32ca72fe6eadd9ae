// Package telegram adapts the conversation machine to the Telegram Bot API.
// It owns no business logic: messages and button presses are translated into
// machine calls, and machine replies are rendered as messages with inline
// keyboards.
package telegram

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"
	tele "gopkg.in/telebot.v3"

	"github.com/dvloznov/garagebot/internal/flow"
)

// Bot is the long-polling Telegram front end.
type Bot struct {
	bot     *tele.Bot
	machine *flow.Machine
	log     zerolog.Logger
}

// New connects to the Bot API and wires the update routes.
func New(token string, machine *flow.Machine, log zerolog.Logger) (*Bot, error) {
	b, err := tele.NewBot(tele.Settings{
		Token:  token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	})
	if err != nil {
		return nil, err
	}

	bot := &Bot{bot: b, machine: machine, log: log}
	bot.route()
	return bot, nil
}

func (b *Bot) route() {
	b.bot.Handle("/start", func(c tele.Context) error {
		return b.control(c, "menu")
	})
	b.bot.Handle("/menu", func(c tele.Context) error {
		return b.control(c, "menu")
	})

	b.bot.Handle(tele.OnText, func(c tele.Context) error {
		reply, err := b.machine.HandleText(context.Background(), c.Chat().ID, c.Text())
		if err != nil {
			b.log.Error().Err(err).Int64("chat_id", c.Chat().ID).Msg("Text update failed")
			return nil
		}
		return b.send(c, reply)
	})

	b.bot.Handle(tele.OnCallback, func(c tele.Context) error {
		// telebot prefixes raw callback data with \f.
		token := strings.TrimSpace(strings.TrimPrefix(c.Callback().Data, "\f"))
		if err := c.Respond(); err != nil {
			b.log.Warn().Err(err).Msg("Callback ack failed")
		}
		return b.control(c, token)
	})
}

func (b *Bot) control(c tele.Context, token string) error {
	reply, err := b.machine.HandleControl(context.Background(), c.Chat().ID, token)
	if err != nil {
		b.log.Error().Err(err).Int64("chat_id", c.Chat().ID).Str("token", token).Msg("Control update failed")
		return nil
	}

	// Button presses update the menu message in place; if the message is
	// too old to edit, fall back to a fresh one.
	if c.Callback() != nil {
		if err := c.Edit(reply.Text, markup(reply.Controls)); err == nil {
			return nil
		}
	}
	return b.send(c, reply)
}

func (b *Bot) send(c tele.Context, r flow.Reply) error {
	if m := markup(r.Controls); m != nil {
		return c.Send(r.Text, m)
	}
	return c.Send(r.Text)
}

func markup(controls [][]flow.Control) *tele.ReplyMarkup {
	if len(controls) == 0 {
		return nil
	}
	rows := make([][]tele.InlineButton, 0, len(controls))
	for _, cr := range controls {
		row := make([]tele.InlineButton, 0, len(cr))
		for _, ctl := range cr {
			row = append(row, tele.InlineButton{Text: ctl.Label, Data: ctl.Token})
		}
		rows = append(rows, row)
	}
	return &tele.ReplyMarkup{InlineKeyboard: rows}
}

// Start begins long polling and blocks until Stop.
func (b *Bot) Start() {
	b.bot.Start()
}

// Stop terminates long polling.
func (b *Bot) Stop() {
	b.bot.Stop()
}

// Broadcast sends free-form messages to one fixed chat. It backs both the
// deadline reminders and the commit-receipt duplication.
type Broadcast struct {
	bot    *tele.Bot
	chatID int64
}

// NewBroadcast creates a notifier for the given chat. A zero chat id
// returns nil, which callers treat as broadcasting disabled.
func NewBroadcast(b *Bot, chatID int64) *Broadcast {
	if chatID == 0 {
		return nil
	}
	return &Broadcast{bot: b.bot, chatID: chatID}
}

// Notify implements reminder.Notifier.
func (n *Broadcast) Notify(ctx context.Context, text string) error {
	_, err := n.bot.Send(tele.ChatID(n.chatID), text)
	return err
}
