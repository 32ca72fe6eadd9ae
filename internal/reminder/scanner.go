// Package reminder runs the background deadline scan: once per interval it
// reads the workshop table and notifies the broadcast chat about insurance,
// inspection and driver-contract deadlines that are close or overdue.
// The scanner only reads the store; it never writes.
package reminder

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/rs/zerolog"

	"github.com/dvloznov/garagebot/internal/ledger"
)

// Notifier delivers one plain-text notification to the broadcast
// destination. Delivery failures are logged by the scanner, not retried.
type Notifier interface {
	Notify(ctx context.Context, text string) error
}

// Scanner periodically scans car deadlines and emits notifications.
type Scanner struct {
	cars      ledger.CarRepository
	notifier  Notifier
	log       zerolog.Logger
	interval  time.Duration
	threshold int
	now       func() time.Time
}

// New creates a scanner with the default 24h interval and 7-day threshold.
func New(cars ledger.CarRepository, notifier Notifier, log zerolog.Logger) *Scanner {
	return &Scanner{
		cars:      cars,
		notifier:  notifier,
		log:       log,
		interval:  24 * time.Hour,
		threshold: DefaultThresholdDays,
		now:       time.Now,
	}
}

// WithInterval overrides the scan interval.
func (s *Scanner) WithInterval(d time.Duration) *Scanner {
	s.interval = d
	return s
}

// WithThreshold overrides the days-before-deadline threshold.
func (s *Scanner) WithThreshold(days int) *Scanner {
	s.threshold = days
	return s
}

// Run scans immediately and then once per interval until the context is
// canceled. Store and delivery errors are logged and the loop continues.
func (s *Scanner) Run(ctx context.Context) {
	s.log.Info().
		Dur("interval", s.interval).
		Int("threshold_days", s.threshold).
		Msg("Starting reminder scanner")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		if err := s.ScanOnce(ctx); err != nil {
			s.log.Error().Err(err).Msg("Reminder scan failed")
		}
		select {
		case <-ctx.Done():
			s.log.Info().Msg("Reminder scanner stopped")
			return
		case <-ticker.C:
		}
	}
}

// ScanOnce performs a single scan and sends the due notifications.
// A malformed or missing date field skips that field only, never the scan.
func (s *Scanner) ScanOnce(ctx context.Context) error {
	cars, err := s.cars.List(ctx)
	if err != nil {
		return fmt.Errorf("ScanOnce: list cars: %w", err)
	}

	today := civil.DateOf(s.now())
	for _, car := range cars {
		for _, d := range carDeadlines(car) {
			if !d.date.IsValid() {
				continue
			}
			days := DaysLeft(today, d.date)
			if !Due(days, s.threshold) {
				continue
			}
			text := deadlineMessage(car.Name, d.what, d.date, days)
			if err := s.notifier.Notify(ctx, text); err != nil {
				s.log.Error().
					Err(err).
					Str("car", car.Name).
					Str("deadline", d.what).
					Msg("Failed to deliver reminder")
			}
		}
	}
	return nil
}

type deadline struct {
	what string
	date civil.Date
}

func carDeadlines(car ledger.Car) []deadline {
	return []deadline{
		{"insurance", car.Insurance},
		{"inspection", car.Inspection},
		{"driver contract", car.ContractEnd},
	}
}

func deadlineMessage(carName, what string, date civil.Date, days int) string {
	if days < 0 {
		return fmt.Sprintf("🚨 %s for %s is overdue since %s (%s). Renew it and update the date.",
			what, carName, ledger.FormatDate(date), Label(days))
	}
	return fmt.Sprintf("⏰ %s for %s expires on %s (%s).",
		what, carName, ledger.FormatDate(date), Label(days))
}
