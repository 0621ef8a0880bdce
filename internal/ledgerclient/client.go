// Package ledgerclient talks to the ledger HTTP API. It mirrors the method set
// of the ledger service so the wallet can run against either.
package ledgerclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/fastprodman/tokenledger/internal/services/ledger"
	"github.com/google/uuid"
)

const (
	defaultTimeout     = 5 * time.Second
	defaultMaxAttempts = 3
	defaultBackoff     = 100 * time.Millisecond
	maxErrorBody       = 64 << 10
)

type Client struct {
	baseURL     string
	http        *http.Client
	maxAttempts int
	backoff     time.Duration
	log         *slog.Logger
}

type Option func(*Client)

// WithHTTPClient replaces the underlying client. Its Timeout is kept as is.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

func WithMaxAttempts(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxAttempts = n
		}
	}
}

func WithBackoff(d time.Duration) Option {
	return func(c *Client) { c.backoff = d }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		http:        &http.Client{Timeout: defaultTimeout},
		maxAttempts: defaultMaxAttempts,
		backoff:     defaultBackoff,
		log:         slog.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	c.log = c.log.With("component", "ledgerclient")

	return c
}

type earnBody struct {
	Amount          int64          `json:"amount"`
	Type            ledger.TxType  `json:"type,omitempty"`
	Action          string         `json:"action"`
	ReferenceID     string         `json:"referenceId"`
	Description     string         `json:"description,omitempty"`
	Metadata        map[string]any `json:"metadata,omitempty"`
	ExpectedVersion *int64         `json:"expectedVersion,omitempty"`
}

type spendBody struct {
	Amount          int64          `json:"amount"`
	Action          string         `json:"action"`
	RecipientID     string         `json:"recipientId,omitempty"`
	ReferenceID     string         `json:"referenceId"`
	Description     string         `json:"description,omitempty"`
	Metadata        map[string]any `json:"metadata,omitempty"`
	ExpectedVersion *int64         `json:"expectedVersion,omitempty"`
}

type transferBody struct {
	RecipientID string `json:"recipientId"`
	Amount      int64  `json:"amount"`
	Action      string `json:"action,omitempty"`
	ReferenceID string `json:"referenceId"`
	Description string `json:"description,omitempty"`
}

type recordBody struct {
	ID          uuid.UUID      `json:"id"`
	Type        ledger.TxType  `json:"type"`
	Amount      int64          `json:"amount"`
	Action      string         `json:"action"`
	RecipientID string         `json:"recipientId,omitempty"`
	ReferenceID string         `json:"referenceId"`
	Description string         `json:"description,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

type accessBody struct {
	HasAccess bool `json:"hasAccess"`
}

type listBody struct {
	Transactions []ledger.Transaction `json:"transactions"`
}

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func userPath(userID string, parts ...string) string {
	p := "/user/" + url.PathEscape(userID)
	for _, part := range parts {
		p += "/" + url.PathEscape(part)
	}

	return p
}

func (c *Client) Balance(ctx context.Context, userID string) (ledger.Account, error) {
	var acc ledger.Account

	err := c.do(ctx, http.MethodGet, userPath(userID, "balance"), nil, &acc)
	if err != nil {
		return ledger.Account{UserID: userID}, err
	}

	return acc, nil
}

func (c *Client) Transactions(ctx context.Context, userID string, limit, offset int) ([]ledger.Transaction, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}

	if offset > 0 {
		q.Set("offset", strconv.Itoa(offset))
	}

	path := userPath(userID, "transactions")
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var out listBody

	err := c.do(ctx, http.MethodGet, path, nil, &out)
	if err != nil {
		return nil, err
	}

	if out.Transactions == nil {
		out.Transactions = []ledger.Transaction{}
	}

	return out.Transactions, nil
}

// RecordTransaction appends a row without moving the balance. The id is fixed
// before the first attempt so a retried call cannot insert twice.
func (c *Client) RecordTransaction(ctx context.Context, t ledger.Transaction) (ledger.Transaction, error) {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}

	if t.ReferenceID == "" {
		t.ReferenceID = t.ID.String()
	}

	var out ledger.Transaction

	err := c.do(ctx, http.MethodPost, userPath(t.UserID, "transactions"), recordBody{
		ID:          t.ID,
		Type:        t.Type,
		Amount:      t.Amount,
		Action:      t.Action,
		RecipientID: t.RecipientID,
		ReferenceID: t.ReferenceID,
		Description: t.Description,
		Metadata:    t.Metadata,
	}, &out)

	return out, err
}

func (c *Client) Earn(ctx context.Context, req ledger.EarnRequest) (ledger.Result, error) {
	var out ledger.Result

	err := c.do(ctx, http.MethodPost, userPath(req.UserID, "earn"), earnBody{
		Amount:          req.Amount,
		Type:            req.Type,
		Action:          req.Action,
		ReferenceID:     referenceOrNew(req.ReferenceID),
		Description:     req.Description,
		Metadata:        req.Metadata,
		ExpectedVersion: req.ExpectedVersion,
	}, &out)

	return out, err
}

func (c *Client) Spend(ctx context.Context, req ledger.SpendRequest) (ledger.Result, error) {
	var out ledger.Result

	err := c.do(ctx, http.MethodPost, userPath(req.UserID, "spend"), spendBody{
		Amount:          req.Amount,
		Action:          req.Action,
		RecipientID:     req.RecipientID,
		ReferenceID:     referenceOrNew(req.ReferenceID),
		Description:     req.Description,
		Metadata:        req.Metadata,
		ExpectedVersion: req.ExpectedVersion,
	}, &out)

	return out, err
}

func (c *Client) Transfer(ctx context.Context, req ledger.TransferRequest) (ledger.Result, error) {
	var out ledger.Result

	err := c.do(ctx, http.MethodPost, userPath(req.FromUserID, "transfer"), transferBody{
		RecipientID: req.ToUserID,
		Amount:      req.Amount,
		Action:      req.Action,
		ReferenceID: referenceOrNew(req.ReferenceID),
		Description: req.Description,
	}, &out)

	return out, err
}

// UnlockPremium is naturally idempotent server side: a second unlock reports AlreadyUnlocked.
func (c *Client) UnlockPremium(ctx context.Context, userID, contentID string) (ledger.UnlockResult, error) {
	var out ledger.UnlockResult

	err := c.do(ctx, http.MethodPost, userPath(userID, "premium", contentID, "unlock"), nil, &out)

	return out, err
}

func (c *Client) HasAccess(ctx context.Context, userID, contentID string) (bool, error) {
	var out accessBody

	err := c.do(ctx, http.MethodGet, userPath(userID, "premium", contentID), nil, &out)

	return out.HasAccess, err
}

func referenceOrNew(ref string) string {
	if ref != "" {
		return ref
	}

	return uuid.NewString()
}

// do sends one logical call, retrying network failures, 429 and 5xx answers.
// The body is encoded once so every attempt carries the same reference id.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var payload []byte

	if in != nil {
		var err error

		payload, err = json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
	}

	var lastErr error

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		retryable, err := c.once(ctx, method, path, payload, out)
		if err == nil {
			return nil
		}

		lastErr = err

		if !retryable || attempt == c.maxAttempts || ctx.Err() != nil {
			break
		}

		c.log.Warn("ledger request failed, retrying", "method", method, "path", path, "attempt", attempt, "error", err)

		select {
		case <-ctx.Done():
			return errors.Join(lastErr, ctx.Err())
		case <-time.After(time.Duration(attempt) * c.backoff):
		}
	}

	return lastErr
}

func (c *Client) once(ctx context.Context, method, path string, payload []byte, out any) (retryable bool, err error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return false, fmt.Errorf("build request: %w", err)
	}

	req.Header.Set("Accept", "application/json")

	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return true, fmt.Errorf("%s %s: %w: %w", method, path, ledger.ErrRemoteFailure, err)
	}
	//nolint:errcheck
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil {
			return false, nil
		}

		err = json.NewDecoder(resp.Body).Decode(out)
		if err != nil {
			return false, fmt.Errorf("%s %s: %w: decode response: %w", method, path, ledger.ErrRemoteFailure, err)
		}

		return false, nil
	}

	var eb errorBody

	_ = json.NewDecoder(io.LimitReader(resp.Body, maxErrorBody)).Decode(&eb)

	retryable = resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500

	// A body without a code (proxy pages, unknown routes) maps to ErrRemoteFailure.
	sentinel := ledger.ErrorForCode(eb.Code)

	msg := eb.Error
	if msg == "" {
		msg = resp.Status
	}

	return retryable, fmt.Errorf("%s %s: %w: %s", method, path, sentinel, msg)
}
