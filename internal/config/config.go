// Package config loads the bot configuration from the environment. A .env
// file in the working directory is loaded first when present, so local runs
// and deployments use the same variable names.
package config

import (
	"encoding/base64"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds everything the binaries need to start.
type Config struct {
	// TelegramToken authenticates the bot against the Bot API.
	TelegramToken string

	// SpreadsheetID is the Google Sheets document backing the ledger.
	SpreadsheetID string

	// GoogleCredentials is the decoded service-account JSON key.
	GoogleCredentials []byte

	// BroadcastChatID receives reminder messages and commit receipts.
	// Zero disables broadcasting.
	BroadcastChatID int64

	// RemindBeforeDays is the deadline warning threshold.
	RemindBeforeDays int

	// SessionTTL evicts abandoned conversation flows. Zero disables
	// eviction.
	SessionTTL time.Duration
}

// Load reads the full bot configuration from the environment, consulting a
// local .env file first. Missing required variables are reported together
// so a broken deployment fails with one actionable message.
func Load() (Config, error) {
	cfg, err := LoadSheets()
	if err != nil {
		return Config{}, err
	}

	cfg.TelegramToken = os.Getenv("TELEGRAM_TOKEN")
	if cfg.TelegramToken == "" {
		return Config{}, fmt.Errorf("Load: missing required environment variables: [TELEGRAM_TOKEN]")
	}

	if raw := os.Getenv("REMINDER_CHAT_ID"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return Config{}, fmt.Errorf("Load: parse REMINDER_CHAT_ID: %w", err)
		}
		cfg.BroadcastChatID = id
	}

	if raw := os.Getenv("REMIND_BEFORE_DAYS"); raw != "" {
		days, err := strconv.Atoi(raw)
		if err != nil || days < 0 {
			return Config{}, fmt.Errorf("Load: REMIND_BEFORE_DAYS must be a non-negative integer, got %q", raw)
		}
		cfg.RemindBeforeDays = days
	}

	if raw := os.Getenv("SESSION_TTL_MINUTES"); raw != "" {
		minutes, err := strconv.Atoi(raw)
		if err != nil || minutes < 0 {
			return Config{}, fmt.Errorf("Load: SESSION_TTL_MINUTES must be a non-negative integer, got %q", raw)
		}
		cfg.SessionTTL = time.Duration(minutes) * time.Minute
	}

	return cfg, nil
}

// LoadSheets reads only the spreadsheet part of the configuration. Offline
// tools use it so they do not demand a Telegram token.
func LoadSheets() (Config, error) {
	// Best effort: absence of a .env file is the normal production case.
	_ = godotenv.Load()

	cfg := Config{
		RemindBeforeDays: 7,
		SessionTTL:       30 * time.Minute,
	}

	var missing []string

	cfg.SpreadsheetID = os.Getenv("SPREADSHEET_ID")
	if cfg.SpreadsheetID == "" {
		missing = append(missing, "SPREADSHEET_ID")
	}

	if raw := os.Getenv("GOOGLE_CREDENTIALS_B64"); raw != "" {
		creds, err := base64.StdEncoding.DecodeString(raw)
		if err != nil {
			return Config{}, fmt.Errorf("LoadSheets: decode GOOGLE_CREDENTIALS_B64: %w", err)
		}
		cfg.GoogleCredentials = creds
	} else {
		missing = append(missing, "GOOGLE_CREDENTIALS_B64")
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("LoadSheets: missing required environment variables: %v", missing)
	}

	return cfg, nil
}
