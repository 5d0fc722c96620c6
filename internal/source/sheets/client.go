package sheets

import (
	"context"
	"fmt"
	"os"
	"strings"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/quent-dev/inventory-system/internal/config"
	"github.com/quent-dev/inventory-system/internal/source"
)

// Client reads the configuration worksheets from a single Google
// Spreadsheet. Worksheet names carry a per-store suffix, e.g.
// "Kit Master - Mexico". It implements source.Configuration.
type Client struct {
	cfg *config.Config
	srv *sheets.Service
}

func NewClient(ctx context.Context, cfg *config.Config) (*Client, error) {
	if cfg.Sheets.SpreadsheetID == "" {
		return nil, fmt.Errorf("missing spreadsheet id: set GOOGLE_SPREADSHEET_ID")
	}

	credentials, err := os.ReadFile(cfg.Sheets.CredentialsPath)
	if err != nil {
		return nil, fmt.Errorf("read sheets credentials: %w", err)
	}

	jwtConfig, err := google.JWTConfigFromJSON(credentials, sheets.SpreadsheetsReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse client secret file to config: %w", err)
	}

	srv, err := sheets.NewService(ctx, option.WithHTTPClient(jwtConfig.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve Sheets client: %w", err)
	}

	return &Client{cfg: cfg, srv: srv}, nil
}

// LoadSheet fetches one worksheet and returns its data rows keyed by the
// header row. Schema enforcement is deliberately left to the loader.
func (c *Client) LoadSheet(ctx context.Context, store string, kind source.SheetKind) ([]source.Row, error) {
	sc, err := c.cfg.Store(store)
	if err != nil {
		return nil, err
	}

	worksheet := string(kind) + sc.SheetSuffix
	resp, err := c.srv.Spreadsheets.Values.
		Get(c.cfg.Sheets.SpreadsheetID, fmt.Sprintf("'%s'", worksheet)).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("load sheet %q: %w", worksheet, err)
	}

	if len(resp.Values) < 2 {
		return nil, nil
	}

	header := make([]string, len(resp.Values[0]))
	for i, cell := range resp.Values[0] {
		header[i] = strings.TrimSpace(fmt.Sprint(cell))
	}

	rows := make([]source.Row, 0, len(resp.Values)-1)
	for _, record := range resp.Values[1:] {
		row := make(source.Row, len(header))
		for i, name := range header {
			if name == "" {
				continue
			}
			if i < len(record) {
				row[name] = strings.TrimSpace(fmt.Sprint(record[i]))
			} else {
				row[name] = ""
			}
		}
		rows = append(rows, row)
	}

	return rows, nil
}

// TestConnection reports whether the spreadsheet is reachable.
func (c *Client) TestConnection(ctx context.Context) bool {
	_, err := c.srv.Spreadsheets.Get(c.cfg.Sheets.SpreadsheetID).Fields("spreadsheetId").Context(ctx).Do()
	return err == nil
}
