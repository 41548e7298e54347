package publisher

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

type SheetsConfig struct {
	// BaseURL overrides the Sheets API endpoint.
	BaseURL       string
	SpreadsheetID string
	Range         string
	// CredentialsFile is a service account JSON key. Access tokens minted
	// from it are refreshed before they expire.
	CredentialsFile string
}

// SheetsSink appends one row per post to a Google Sheet through the
// values.append call.
type SheetsSink struct {
	config  SheetsConfig
	service *sheets.Service
	logger  *zap.Logger
}

// NewSheetsSink loads the service account key and builds the Sheets client.
// Without a key the sink is created but every append fails.
func NewSheetsSink(ctx context.Context, cfg SheetsConfig, logger *zap.Logger) (*SheetsSink, error) {
	if cfg.Range == "" {
		cfg.Range = "Posts!A:D"
	}
	sink := &SheetsSink{config: cfg, logger: logger}

	if cfg.CredentialsFile == "" {
		logger.Warn("Sheets credentials file is not configured, sink disabled")
		return sink, nil
	}

	data, err := os.ReadFile(cfg.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheets credentials: %w", err)
	}

	tr := &http.Transport{
		IdleConnTimeout:       120 * time.Second,
		MaxIdleConns:          10,
		MaxIdleConnsPerHost:   10,
		TLSHandshakeTimeout:   20 * time.Second,
		ResponseHeaderTimeout: 20 * time.Second,
	}
	// Token requests and API calls share one transport.
	ctx = context.WithValue(ctx, oauth2.HTTPClient, &http.Client{Transport: tr, Timeout: 30 * time.Second})

	creds, err := google.CredentialsFromJSON(ctx, data, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("failed to parse sheets credentials: %w", err)
	}

	client := oauth2.NewClient(ctx, creds.TokenSource)
	client.Timeout = 30 * time.Second

	opts := []option.ClientOption{option.WithHTTPClient(client)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithEndpoint(strings.TrimRight(cfg.BaseURL, "/")+"/"))
	}

	sink.service, err = sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets client: %w", err)
	}
	return sink, nil
}

func (s *SheetsSink) Name() string {
	return "google-sheets"
}

func (s *SheetsSink) AppendPost(ctx context.Context, content PublishContent) error {
	if s.config.SpreadsheetID == "" {
		return fmt.Errorf("spreadsheet id is not configured")
	}
	if s.service == nil {
		return fmt.Errorf("sheets credentials are not configured")
	}

	row := &sheets.ValueRange{
		MajorDimension: "ROWS",
		Values: [][]interface{}{{
			content.Content,
			content.Title,
			strconv.FormatUint(uint64(content.ItemID), 10),
			content.QueuedAt.UTC().Format(time.RFC3339),
		}},
	}

	resp, err := s.service.Spreadsheets.Values.
		Append(s.config.SpreadsheetID, s.config.Range, row).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to append row: %w", err)
	}

	fields := []zap.Field{zap.Uint("item_id", content.ItemID), zap.String("range", s.config.Range)}
	if resp.Updates != nil {
		fields = append(fields, zap.String("updated_range", resp.Updates.UpdatedRange))
	}
	s.logger.Debug("Appended post to sheet", fields...)
	return nil
}
