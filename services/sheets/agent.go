// Package sheets appends committed bookings to the external Google
// Sheets booking log.
package sheets

import (
	"context"
	"fmt"

	"beatbook/models"

	sheetsapi "google.golang.org/api/sheets/v4"
	"google.golang.org/api/option"
)

// Agent writes fixed-column rows to one spreadsheet range.
type Agent struct {
	svc           *sheetsapi.Service
	spreadsheetID string
	writeRange    string
}

func NewAgent(ctx context.Context, credsPath, spreadsheetID, writeRange string) (*Agent, error) {
	svc, err := sheetsapi.NewService(ctx,
		option.WithCredentialsFile(credsPath),
		option.WithScopes(sheetsapi.SpreadsheetsScope),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}
	return &Agent{svc: svc, spreadsheetID: spreadsheetID, writeRange: writeRange}, nil
}

// AppendRow appends one booking in fixed column order. Missing fields
// are written as empty strings.
func (a *Agent) AppendRow(ctx context.Context, rec models.BookingRecord) error {
	vr := &sheetsapi.ValueRange{Values: [][]interface{}{rec.Row()}}
	_, err := a.svc.Spreadsheets.Values.
		Append(a.spreadsheetID, a.writeRange, vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to append booking row: %w", err)
	}
	return nil
}
