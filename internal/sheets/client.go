package sheets

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/intake-service/internal/config"
	"github.com/spec-kit/intake-service/internal/domain"
	apperrors "github.com/spec-kit/intake-service/pkg/util"
)

// Client appends submission rows to the shared spreadsheet. The sheet is a
// convenience mirror; failures here never block the authoritative save.
type Client struct {
	http   *http.Client
	cfg    config.SheetsConfig
	logger *zap.Logger
}

// NewClient constructs the client.
func NewClient(cfg config.SheetsConfig, logger *zap.Logger) *Client {
	return &Client{
		http:   &http.Client{Timeout: 15 * time.Second},
		cfg:    cfg,
		logger: logger,
	}
}

const maxPhotoColumns = 3

type appendRequest struct {
	Values [][]string `json:"values"`
}

// AppendSubmission writes one positional row: date, time, category, master,
// photo1..3 as image-embed formulas or blank, comment.
func (c *Client) AppendSubmission(ctx context.Context, sub *domain.Submission) error {
	if c.cfg.SpreadsheetID == "" {
		return apperrors.NewExternalServiceError("spreadsheet", fmt.Errorf("SPREADSHEET_ID not configured"))
	}

	createdAt := sub.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	row := []string{
		createdAt.Format("02.01.2006"),
		createdAt.Format("15:04"),
		string(sub.Category),
		sub.MasterName,
	}
	for i := 0; i < maxPhotoColumns; i++ {
		if i < len(sub.PhotoURLs) && sub.PhotoURLs[i] != "" {
			row = append(row, fmt.Sprintf(`=IMAGE("%s")`, sub.PhotoURLs[i]))
		} else {
			row = append(row, "")
		}
	}
	row = append(row, sub.Comment)

	body, err := json.Marshal(appendRequest{Values: [][]string{row}})
	if err != nil {
		return err
	}

	endpoint := fmt.Sprintf("%s/v4/spreadsheets/%s/values/%s:append?valueInputOption=USER_ENTERED",
		c.cfg.BaseURL, c.cfg.SpreadsheetID, url.PathEscape(c.cfg.WorksheetName))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.AccessToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return apperrors.NewExternalServiceError("spreadsheet", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return apperrors.NewExternalServiceError("spreadsheet",
			fmt.Errorf("append returned %d", resp.StatusCode))
	}

	c.logger.Debug("spreadsheet row appended",
		zap.String("category", string(sub.Category)),
		zap.String("master", sub.MasterName))
	return nil
}
