package ledgeradapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	recon "recon-cloud/internal/reconciliation/domain"
)

// Client is a minimal REST client for the ledger platform.
type Client struct {
	baseURL string
	token   string
	client  *http.Client
}

// Option customises the client.
type Option func(*Client)

// WithRequestTimeout overrides the default request timeout.
func WithRequestTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.client.Timeout = timeout
		}
	}
}

// NewClient constructs a ledger client.
func NewClient(baseURL, token string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("ledgeradapter: empty base url")
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Receipt acknowledges a recorded reconciliation.
type Receipt struct {
	ReceiptID  string    `json:"receipt_id"`
	RecordedAt time.Time `json:"recorded_at"`
}

type parseRequest struct {
	FileName string `json:"file_name"`
	Content  []byte `json:"content"`
}

type statementDTO struct {
	ID              string          `json:"id"`
	AccountLabel    string          `json:"account_label"`
	Currency        string          `json:"currency"`
	PeriodStart     time.Time       `json:"period_start"`
	PeriodEnd       time.Time       `json:"period_end"`
	DeclaredBalance decimal.Decimal `json:"declared_balance"`
	Operations      []operationDTO  `json:"operations"`
}

type operationDTO struct {
	ID        string          `json:"id"`
	Date      time.Time       `json:"date"`
	Label     string          `json:"label"`
	Amount    decimal.Decimal `json:"amount"`
	Reference string          `json:"reference,omitempty"`
	Category  string          `json:"category,omitempty"`
	Match     *matchDTO       `json:"match,omitempty"`
}

type matchDTO struct {
	TransactionID string  `json:"transaction_id"`
	Score         float64 `json:"score"`
	Status        string  `json:"status"`
}

// ParseStatement uploads a statement file and returns the parsed statement.
func (c *Client) ParseStatement(ctx context.Context, upload recon.StatementUpload) (*recon.Statement, error) {
	if len(upload.Content) == 0 {
		return nil, errors.New("ledgeradapter: empty statement file")
	}
	body := parseRequest{FileName: upload.FileName, Content: upload.Content}
	var resp statementDTO
	if err := c.doJSON(ctx, http.MethodPost, "/api/bank-statements/parse", body, &resp); err != nil {
		return nil, err
	}
	statement := toDomainStatement(resp)
	return &statement, nil
}

// MatchOperations runs automatic matching against the ledger and returns
// the statement annotated with match information.
func (c *Client) MatchOperations(ctx context.Context, statement recon.Statement) (recon.MatchOutcome, error) {
	if statement.ID == "" {
		return recon.MatchOutcome{}, errors.New("ledgeradapter: statement without id")
	}
	body := toStatementDTO(statement)
	var resp statementDTO
	if err := c.doJSON(ctx, http.MethodPost, "/api/reconciliations/match", body, &resp); err != nil {
		return recon.MatchOutcome{}, err
	}

	annotated := toDomainStatement(resp)
	outcome := recon.MatchOutcome{Statement: annotated}
	for _, op := range annotated.Operations {
		if op.Match != nil && op.Match.Status == recon.OperationStatusMatched {
			outcome.Matched = append(outcome.Matched, op)
		} else {
			outcome.Unmatched = append(outcome.Unmatched, op)
		}
	}
	return outcome, nil
}

// ConfirmReconciliation records the reconciliation on the ledger platform.
// The payload is submitted verbatim so retries stay byte-identical.
func (c *Client) ConfirmReconciliation(ctx context.Context, payload []byte) (Receipt, error) {
	if len(payload) == 0 {
		return Receipt{}, errors.New("ledgeradapter: empty payload")
	}
	var resp Receipt
	if err := c.doJSON(ctx, http.MethodPost, "/api/reconciliations/confirm", json.RawMessage(payload), &resp); err != nil {
		return Receipt{}, err
	}
	return resp, nil
}

func toStatementDTO(statement recon.Statement) statementDTO {
	dto := statementDTO{
		ID:              statement.ID,
		AccountLabel:    statement.AccountLabel,
		Currency:        statement.Currency,
		PeriodStart:     statement.PeriodStart,
		PeriodEnd:       statement.PeriodEnd,
		DeclaredBalance: statement.DeclaredBalance,
	}
	for _, op := range statement.Operations {
		item := operationDTO{
			ID:        op.ID,
			Date:      op.Date,
			Label:     op.Label,
			Amount:    op.Amount,
			Reference: op.Reference,
			Category:  op.Category,
		}
		if op.Match != nil {
			item.Match = &matchDTO{
				TransactionID: op.Match.TransactionID,
				Score:         op.Match.Score,
				Status:        op.Match.Status,
			}
		}
		dto.Operations = append(dto.Operations, item)
	}
	return dto
}

func toDomainStatement(dto statementDTO) recon.Statement {
	statement := recon.Statement{
		ID:              dto.ID,
		AccountLabel:    dto.AccountLabel,
		Currency:        dto.Currency,
		PeriodStart:     dto.PeriodStart,
		PeriodEnd:       dto.PeriodEnd,
		DeclaredBalance: dto.DeclaredBalance,
	}
	for _, item := range dto.Operations {
		op := recon.Operation{
			ID:        item.ID,
			Date:      item.Date,
			Label:     item.Label,
			Amount:    item.Amount,
			Reference: item.Reference,
			Category:  item.Category,
		}
		if item.Match != nil {
			op.Match = &recon.MatchInfo{
				TransactionID: item.Match.TransactionID,
				Score:         item.Match.Score,
				Status:        item.Match.Status,
			}
		}
		statement.Operations = append(statement.Operations, op)
	}
	return statement
}

// ErrNotFound reports a missing remote resource.
var ErrNotFound = errors.New("ledgeradapter: not found")

func (c *Client) doJSON(ctx context.Context, method, path string, body any, out any) error {
	var reqBody *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewReader(payload)
	} else {
		reqBody = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("ledgeradapter: http %d", resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
