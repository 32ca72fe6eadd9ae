package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"cloud.google.com/go/civil"

	"github.com/dvloznov/garagebot/internal/config"
	"github.com/dvloznov/garagebot/internal/engine"
	"github.com/dvloznov/garagebot/internal/ledger"
	"github.com/dvloznov/garagebot/internal/ledger/sheets"
	"github.com/dvloznov/garagebot/internal/logger"
	"github.com/dvloznov/garagebot/internal/money"
	"github.com/dvloznov/garagebot/internal/reminder"
)

// report prints ledger summaries to stdout without going through Telegram.
// Useful for cron jobs and quick checks against the live spreadsheet.
func main() {
	log := logger.New()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
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
	store := sheets.NewStore(client)
	eng := engine.New(store)

	switch os.Args[1] {
	case "balance":
		err = runBalance(ctx, eng)
	case "period":
		err = runPeriod(ctx, eng)
	case "deadlines":
		err = runDeadlines(ctx, store, cfg.RemindBeforeDays)
	case "services":
		err = runServices(ctx, eng)
	case "help", "-h", "--help":
		printUsage()
		return
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		log.Fatal().Err(err).Str("command", os.Args[1]).Msg("Report failed")
	}
}

func printUsage() {
	fmt.Println("Garage ledger reports")
	fmt.Println("\nUsage:")
	fmt.Println("  report <command> [options]")
	fmt.Println("\nCommands:")
	fmt.Println("  balance    Print the current balance, frozen and available totals")
	fmt.Println("  period     Print income/expense totals for a window (-days N)")
	fmt.Println("  deadlines  Print upcoming car deadlines")
	fmt.Println("  services   Print the most recent service lines (-limit N)")
	fmt.Println("  help       Show this help message")
}

func runBalance(ctx context.Context, eng *engine.Engine) error {
	s, err := eng.ComputeSummary(ctx)
	if err != nil {
		return err
	}
	frozen, err := eng.FrozenTotals(ctx)
	if err != nil {
		return err
	}
	avail, err := eng.ComputeAvailable(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Balance:    %s (card %s, cash %s)\n", money.Format(s.Balance), money.Format(s.Card), money.Format(s.Cash))
	fmt.Printf("Frozen:     %s (card %s, cash %s)\n", money.Format(frozen.Total), money.Format(frozen.Card), money.Format(frozen.Cash))
	fmt.Printf("Available:  card %s, cash %s\n", money.Format(avail.Card), money.Format(avail.Cash))
	fmt.Printf("Net profit: %s\n", money.Format(s.NetProfit))
	return nil
}

func runPeriod(ctx context.Context, eng *engine.Engine) error {
	fs := flag.NewFlagSet("period", flag.ExitOnError)
	days := fs.Int("days", 30, "window size in days")
	fs.Parse(os.Args[2:])

	income, err := eng.PeriodSum(ctx, ledger.KindIncome, *days, true)
	if err != nil {
		return err
	}
	expense, err := eng.PeriodSum(ctx, ledger.KindExpense, *days, true)
	if err != nil {
		return err
	}

	fmt.Printf("Last %d days (transfers excluded):\n", *days)
	fmt.Printf("  Income:  %s\n", money.Format(income.Total()))
	fmt.Printf("  Expense: %s\n", money.Format(expense.Total()))
	fmt.Println("\nExpenses by category:")
	for _, ct := range engine.AggregateByCategory(expense.Rows) {
		fmt.Printf("  %-20s %s\n", ct.Category, money.Format(ct.Total))
	}
	return nil
}

func runServices(ctx context.Context, eng *engine.Engine) error {
	fs := flag.NewFlagSet("services", flag.ExitOnError)
	limit := fs.Int("limit", 10, "number of lines to show")
	fs.Parse(os.Args[2:])

	services, err := eng.RecentServices(ctx, *limit)
	if err != nil {
		return err
	}
	if len(services) == 0 {
		fmt.Println("No services recorded.")
		return nil
	}
	for _, s := range services {
		fmt.Printf("%s  %-20s %-10s %s\n",
			ledger.FormatTimestamp(s.Timestamp), s.CarName, money.Format(s.Amount), s.Description)
	}
	return nil
}

func runDeadlines(ctx context.Context, store ledger.Store, threshold int) error {
	cars, err := store.Cars.List(ctx)
	if err != nil {
		return err
	}
	today := reminder.Today()
	found := false
	for _, car := range cars {
		for _, d := range []struct {
			name string
			date civil.Date
		}{
			{"insurance", car.Insurance},
			{"inspection", car.Inspection},
			{"driver contract", car.ContractEnd},
		} {
			if !d.date.IsValid() {
				continue
			}
			days := reminder.DaysLeft(today, d.date)
			if !reminder.Due(days, threshold) {
				continue
			}
			found = true
			fmt.Printf("%s: %s %s (%s)\n", car.Name, d.name, ledger.FormatDate(d.date), reminder.Label(days))
		}
	}
	if !found {
		fmt.Printf("No deadlines within %d days.\n", threshold)
	}
	return nil
}
