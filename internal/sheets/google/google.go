package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"golang.org/x/oauth2"
	goauth "golang.org/x/oauth2/google"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	ports "fintrack/internal/sheets"
)

// Options configure the exporter. Either service account credentials or an
// OAuth client plus a saved token are required.
type Options struct {
	SpreadsheetID string
	// SheetName is the base name; the year of the exported month is
	// prefixed ("2025 Projections").
	SheetName string

	ServiceAccountJSON string
	ServiceAccountFile string

	OAuthClientJSON string
	OAuthTokenFile  string
}

// Exporter appends projection rows to a Google spreadsheet.
type Exporter struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetBase     string
}

var _ ports.ProjectionWriter = (*Exporter)(nil)

func New(ctx context.Context, o Options) (*Exporter, error) {
	if strings.TrimSpace(o.SpreadsheetID) == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	opts, err := clientOptions(ctx, o)
	if err != nil {
		return nil, err
	}
	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	slog.InfoContext(ctx, "Google Sheets exporter ready", "spreadsheet_id", o.SpreadsheetID)
	return NewWithService(svc, o.SpreadsheetID, o.SheetName), nil
}

// NewWithService wraps an existing service.
func NewWithService(svc *gsheet.Service, spreadsheetID, sheetBase string) *Exporter {
	if strings.TrimSpace(sheetBase) == "" {
		sheetBase = "Projections"
	}
	return &Exporter{svc: svc, spreadsheetID: spreadsheetID, sheetBase: sheetBase}
}

func clientOptions(ctx context.Context, o Options) ([]goption.ClientOption, error) {
	switch {
	case o.ServiceAccountJSON != "":
		return []goption.ClientOption{
			goption.WithCredentialsJSON([]byte(o.ServiceAccountJSON)),
			goption.WithScopes(gsheet.SpreadsheetsScope),
		}, nil
	case o.ServiceAccountFile != "":
		b, err := os.ReadFile(o.ServiceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return []goption.ClientOption{
			goption.WithCredentialsJSON(b),
			goption.WithScopes(gsheet.SpreadsheetsScope),
		}, nil
	case o.OAuthClientJSON != "":
		cfg, err := goauth.ConfigFromJSON([]byte(o.OAuthClientJSON), gsheet.SpreadsheetsScope)
		if err != nil {
			return nil, fmt.Errorf("oauth config: %w", err)
		}
		tok, err := readToken(o.OAuthTokenFile)
		if err != nil {
			return nil, err
		}
		return []goption.ClientOption{goption.WithTokenSource(cfg.TokenSource(ctx, tok))}, nil
	}
	return nil, errors.New("missing Google credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE or GOOGLE_OAUTH_CLIENT_JSON)")
}

func readToken(path string) (*oauth2.Token, error) {
	if path == "" {
		return nil, errors.New("missing GOOGLE_OAUTH_TOKEN_FILE")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read oauth token: %w", err)
	}
	var tok oauth2.Token
	if err := json.Unmarshal(b, &tok); err != nil {
		return nil, fmt.Errorf("parse oauth token: %w", err)
	}
	return &tok, nil
}

// AppendProjection appends rows below the existing data of the sheet for
// the first row's year and returns the updated range.
func (e *Exporter) AppendProjection(ctx context.Context, rows []ports.ProjectionRow) (string, error) {
	if len(rows) == 0 {
		return "", nil
	}
	if e.svc == nil {
		return "", errors.New("sheets service not initialized")
	}

	year, _ := rows[0].Month.YearMonth()
	rng := fmt.Sprintf("%s!A:I", yearPrefixedName(e.sheetBase, year))
	vr := &gsheet.ValueRange{Values: toValues(rows)}

	resp, err := e.svc.Spreadsheets.Values.Append(e.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("append to %s: %w", rng, err)
	}
	if resp.Updates == nil {
		return rng, nil
	}
	return resp.Updates.UpdatedRange, nil
}

func toValues(rows []ports.ProjectionRow) [][]any {
	out := make([][]any, 0, len(rows))
	for _, r := range rows {
		out = append(out, []any{
			r.ComputedAt.UTC().Format("2006-01-02 15:04:05"),
			r.OwnerID,
			string(r.Month),
			r.Recorded.StringFixed(2),
			r.Projected.StringFixed(2),
			r.Predicted.StringFixed(2),
			r.Bank.StringFixed(2),
			r.Savings.StringFixed(2),
			r.NetWorth.StringFixed(2),
		})
	}
	return out
}

// yearPrefixedName returns "<year> <base>" unless base already starts with a 4-digit year.
func yearPrefixedName(base string, year int) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return base
	}
	if len(base) >= 5 {
		if y, err := strconv.Atoi(base[0:4]); err == nil && base[4] == ' ' && y > 1900 && y < 3000 {
			return base
		}
	}
	return fmt.Sprintf("%d %s", year, base)
}
