package ledger

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestParseWallet(t *testing.T) {
	tests := []struct {
		input   string
		want    Wallet
		wantErr bool
	}{
		{"Card", WalletCard, false},
		{"card", WalletCard, false},
		{"  CASH ", WalletCash, false},
		{"Карта", WalletCard, false},
		{"наличные", WalletCash, false},
		{"wallet", "", true},
		{"", "", true},
		{"credit", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseWallet(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseWallet(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseWallet(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestWalletOther(t *testing.T) {
	if WalletCard.Other() != WalletCash || WalletCash.Other() != WalletCard {
		t.Error("Other() must swap the two wallets")
	}
}

func TestIsTransferCategory(t *testing.T) {
	for _, name := range []string{"Transfer", "transfer", " TRANSFER "} {
		if !IsTransferCategory(name) {
			t.Errorf("IsTransferCategory(%q) = false, want true", name)
		}
	}
	if IsTransferCategory("Transfers") || IsTransferCategory("Repair") {
		t.Error("non-sentinel names must not match")
	}
}

func TestNewTransaction_SingleFundingSource(t *testing.T) {
	at := time.Date(2025, 1, 10, 12, 30, 0, 0, time.UTC)
	amount := decimal.RequireFromString("150.25")

	card := NewTransaction(KindExpense, "c1", "Fuel", WalletCard, amount, "diesel", at)
	if !card.Card.Equal(amount) || !card.Cash.IsZero() {
		t.Errorf("card transaction split wrong: card=%s cash=%s", card.Card, card.Cash)
	}
	if card.Wallet() != WalletCard || !card.Amount().Equal(amount) {
		t.Error("Wallet()/Amount() disagree with funding source")
	}

	cash := NewTransaction(KindIncome, "c2", "Repair", WalletCash, amount, "", at)
	if !cash.Cash.Equal(amount) || !cash.Card.IsZero() {
		t.Errorf("cash transaction split wrong: card=%s cash=%s", cash.Card, cash.Cash)
	}
	if cash.Description != DefaultDescription {
		t.Errorf("empty description should default to %q, got %q", DefaultDescription, cash.Description)
	}
}

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		input   string
		want    string
		wantErr bool
	}{
		{"05.01.2025 14:30", "2025-01-05T14:30", false},
		{"05.01.2025", "2025-01-05T00:00", false},
		{" 17.01.2025 ", "2025-01-17T00:00", false},
		{"2025-01-05", "", true},
		{"32.01.2025", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseTimestamp(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseTimestamp(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if !tt.wantErr && got.Format("2006-01-02T15:04") != tt.want {
				t.Errorf("ParseTimestamp(%q) = %v, want %s", tt.input, got, tt.want)
			}
		})
	}
}

func TestDateRoundTrip(t *testing.T) {
	d, err := ParseDate("17.01.2025")
	if err != nil {
		t.Fatalf("ParseDate failed: %v", err)
	}
	if got := FormatDate(d); got != "17.01.2025" {
		t.Errorf("FormatDate(ParseDate(x)) = %q, want 17.01.2025", got)
	}
}

func TestFormatDate_UnsetIsEmpty(t *testing.T) {
	var zero = Car{}.Insurance
	if got := FormatDate(zero); got != "" {
		t.Errorf("FormatDate(zero) = %q, want empty", got)
	}
}
