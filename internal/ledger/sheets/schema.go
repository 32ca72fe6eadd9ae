package sheets

import (
	"context"
	"fmt"
	"sort"

	"google.golang.org/api/sheets/v4"
)

// EnsureSchema creates any missing tab and (re)writes every header row.
// It is idempotent and safe against a spreadsheet already carrying data:
// only row 1 of each tab is touched.
func (c *Client) EnsureSchema(ctx context.Context) error {
	meta, err := c.svc.Spreadsheets.Get(c.spreadsheetID).
		Fields("sheets.properties.sheetId", "sheets.properties.title").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("EnsureSchema: fetch spreadsheet metadata: %w", err)
	}

	existing := make(map[string]bool, len(meta.Sheets))
	for _, s := range meta.Sheets {
		if s.Properties != nil {
			existing[s.Properties.Title] = true
		}
	}

	var missing []string
	for tab := range headers {
		if !existing[tab] {
			missing = append(missing, tab)
		}
	}
	sort.Strings(missing)

	if len(missing) > 0 {
		reqs := make([]*sheets.Request, 0, len(missing))
		for _, tab := range missing {
			reqs = append(reqs, &sheets.Request{
				AddSheet: &sheets.AddSheetRequest{
					Properties: &sheets.SheetProperties{Title: tab},
				},
			})
		}
		if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{
			Requests: reqs,
		}).Context(ctx).Do(); err != nil {
			return fmt.Errorf("EnsureSchema: add tabs %v: %w", missing, err)
		}
	}

	for tab, header := range headers {
		rng := fmt.Sprintf("%s!A1", tab)
		if err := c.updateCells(ctx, rng, header); err != nil {
			return fmt.Errorf("EnsureSchema: write header of %q: %w", tab, err)
		}
	}
	return nil
}
