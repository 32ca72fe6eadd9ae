// Package flow implements the per-chat conversation state machine: it walks
// a user through the bounded data-entry flows and commits the result through
// the ledger store on completion.
package flow

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dvloznov/garagebot/internal/ledger"
)

// Action identifies which flow a session is in.
type Action string

const (
	ActionNone            Action = ""
	ActionIncome          Action = "income"
	ActionExpense         Action = "expense"
	ActionTransfer        Action = "transfer"
	ActionWorkshopBuy     Action = "workshop_buy"
	ActionWorkshopService Action = "workshop_service"
	ActionWorkshopFinish  Action = "workshop_finish"
	ActionCreateCar       Action = "create_car"
	ActionEditCar         Action = "edit_car"
	ActionDeadlineEdit    Action = "deadline_edit"
	ActionCategoryAdd     Action = "category_add"
	ActionBalanceEdit     Action = "balance_edit"
)

// Step is the current position inside a flow's state machine.
type Step string

const (
	StepNone         Step = ""
	StepCategory     Step = "category"
	StepAmount       Step = "amount"
	StepSource       Step = "source"
	StepDescription  Step = "description"
	StepReturnWallet Step = "return_wallet"
	StepIncomeWallet Step = "income_wallet"
	StepConfirm      Step = "confirm"
	StepCarName      Step = "car_name"
	StepCarVIN       Step = "car_vin"
	StepDate         Step = "date"
	StepDriverName   Step = "driver_name"
	StepDriverPhone  Step = "driver_phone"
	StepContractEnd  Step = "contract_end"
	StepName         Step = "name"
)

// Session is the transient per-chat state of one flow. It lives only in
// process memory; a new flow always starts from a zero Session, so no stale
// fields survive between flows.
type Session struct {
	ChatID int64
	Action Action
	Step   Step

	Kind         ledger.Kind
	CategoryID   string
	CategoryName string
	Wallet       ledger.Wallet
	Amount       decimal.Decimal
	Description  string

	From ledger.Wallet
	To   ledger.Wallet

	CarID        string
	CarName      string
	VIN          string
	DriverName   string
	DriverPhone  string
	EditField    ledger.CarField
	ReturnWallet ledger.Wallet
	IncomeWallet ledger.Wallet

	UpdatedAt time.Time
}

// SessionStore keeps one Session per chat id behind a mutex. Sessions are
// created on first use, cleared on completion or cancel, and evicted after
// the TTL so abandoned flows do not accumulate.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[int64]Session
	ttl      time.Duration
	now      func() time.Time
}

// NewSessionStore creates a session store. A non-positive ttl disables
// eviction.
func NewSessionStore(ttl time.Duration) *SessionStore {
	return &SessionStore{
		sessions: make(map[int64]Session),
		ttl:      ttl,
		now:      time.Now,
	}
}

// Begin replaces any existing session for the chat with a fresh one for the
// given action and returns it.
func (s *SessionStore) Begin(chatID int64, action Action) Session {
	sess := Session{ChatID: chatID, Action: action, UpdatedAt: s.now()}
	s.mu.Lock()
	s.sessions[chatID] = sess
	s.mu.Unlock()
	return sess
}

// Get returns a copy of the chat's session. An expired session counts as
// absent and is evicted on the spot.
func (s *SessionStore) Get(chatID int64) (Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[chatID]
	if !ok {
		return Session{}, false
	}
	if s.expired(sess) {
		delete(s.sessions, chatID)
		return Session{}, false
	}
	return sess, true
}

// Put stores the updated session back, refreshing its TTL clock.
func (s *SessionStore) Put(sess Session) {
	sess.UpdatedAt = s.now()
	s.mu.Lock()
	s.sessions[sess.ChatID] = sess
	s.mu.Unlock()
}

// Clear drops the chat's session.
func (s *SessionStore) Clear(chatID int64) {
	s.mu.Lock()
	delete(s.sessions, chatID)
	s.mu.Unlock()
}

// Sweep evicts every expired session and returns how many were removed.
func (s *SessionStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, sess := range s.sessions {
		if s.expired(sess) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

// Run sweeps periodically until the context is canceled.
func (s *SessionStore) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}

func (s *SessionStore) expired(sess Session) bool {
	return s.ttl > 0 && s.now().Sub(sess.UpdatedAt) > s.ttl
}
