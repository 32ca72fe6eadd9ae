package main

import (
	"context"
	"flag"
	"os"

	"github.com/dvloznov/garagebot/internal/config"
	"github.com/dvloznov/garagebot/internal/ledger/sheets"
	"github.com/dvloznov/garagebot/internal/logger"
)

// migrate prepares the spreadsheet schema: it creates any missing tab and
// rewrites the header rows. Run it once against a fresh spreadsheet and
// after any schema change; it never touches data rows.
func main() {
	spreadsheetID := flag.String("spreadsheet", "", "spreadsheet ID (defaults to SPREADSHEET_ID)")
	flag.Parse()

	log := logger.New()

	// The flag wins over the environment, and has to land before the
	// loader validates SPREADSHEET_ID.
	if *spreadsheetID != "" {
		os.Setenv("SPREADSHEET_ID", *spreadsheetID)
	}

	cfg, err := config.LoadSheets()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	ctx := context.Background()

	client, err := sheets.NewClient(ctx, cfg.SpreadsheetID, cfg.GoogleCredentials, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to the spreadsheet")
	}

	if err := client.EnsureSchema(ctx); err != nil {
		log.Fatal().Err(err).Msg("Schema migration failed")
	}

	log.Info().Str("spreadsheet_id", cfg.SpreadsheetID).Msg("Schema is up to date")
}
