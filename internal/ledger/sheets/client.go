// Package sheets implements the ledger repositories on top of a Google
// Sheets spreadsheet. Each table lives in its own tab with a header row;
// rows below it are data. The spreadsheet is the source of truth: every
// read re-fetches the tab, so manual edits become visible on the next call.
package sheets

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// Client wraps the Sheets service for one spreadsheet. Tab ids are cached
// after the first lookup; they never change for a live spreadsheet.
type Client struct {
	svc           *sheets.Service
	spreadsheetID string
	log           zerolog.Logger

	mu     sync.Mutex
	tabIDs map[string]int64
}

// NewClient authenticates with the given service-account JSON key and binds
// to the spreadsheet.
func NewClient(ctx context.Context, spreadsheetID string, credentials []byte, log zerolog.Logger) (*Client, error) {
	svc, err := sheets.NewService(ctx,
		option.WithCredentialsJSON(credentials),
		option.WithScopes(sheets.SpreadsheetsScope),
	)
	if err != nil {
		return nil, fmt.Errorf("NewClient: creating sheets service: %w", err)
	}
	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		log:           log,
		tabIDs:        make(map[string]int64),
	}, nil
}

// values fetches a range as formatted strings.
func (c *Client) values(ctx context.Context, rng string) ([][]interface{}, error) {
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("values: get %q: %w", rng, err)
	}
	return resp.Values, nil
}

// appendRow adds one row below the last data row of the range's tab.
func (c *Client) appendRow(ctx context.Context, rng string, row []interface{}) error {
	_, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, &sheets.ValueRange{
		Values: [][]interface{}{row},
	}).ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("appendRow: append to %q: %w", rng, err)
	}
	return nil
}

// updateCells overwrites the given range with the row values.
func (c *Client) updateCells(ctx context.Context, rng string, row []interface{}) error {
	_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, &sheets.ValueRange{
		Values: [][]interface{}{row},
	}).ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("updateCells: update %q: %w", rng, err)
	}
	return nil
}

// deleteRow removes one data row from a tab. rowIndex is zero-based and
// counts the header, matching the sheet's own row numbering minus one.
func (c *Client) deleteRow(ctx context.Context, tab string, rowIndex int64) error {
	id, err := c.tabID(ctx, tab)
	if err != nil {
		return fmt.Errorf("deleteRow: %w", err)
	}
	_, err = c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{{
			DeleteDimension: &sheets.DeleteDimensionRequest{
				Range: &sheets.DimensionRange{
					SheetId:    id,
					Dimension:  "ROWS",
					StartIndex: rowIndex,
					EndIndex:   rowIndex + 1,
				},
			},
		}},
	}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("deleteRow: delete row %d of %q: %w", rowIndex, tab, err)
	}
	return nil
}

// tabID resolves a tab title to its numeric sheet id, caching the result.
func (c *Client) tabID(ctx context.Context, tab string) (int64, error) {
	c.mu.Lock()
	if id, ok := c.tabIDs[tab]; ok {
		c.mu.Unlock()
		return id, nil
	}
	c.mu.Unlock()

	meta, err := c.svc.Spreadsheets.Get(c.spreadsheetID).
		Fields("sheets.properties.sheetId", "sheets.properties.title").
		Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("tabID: fetch spreadsheet metadata: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, s := range meta.Sheets {
		if s.Properties != nil {
			c.tabIDs[s.Properties.Title] = s.Properties.SheetId
		}
	}
	id, ok := c.tabIDs[tab]
	if !ok {
		return 0, fmt.Errorf("tabID: tab %q not found in spreadsheet", tab)
	}
	return id, nil
}
