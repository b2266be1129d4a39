package korona

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
	"time"

	"github.com/google/uuid"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"golang.org/x/time/rate"

	"github.com/moderoemello/korona-ftp-csv-sync/internal/config"
)

// ErrBusinessRejected marks an HTTP 200 response whose body carries an
// error status: the transport succeeded but the upstream rejected the
// payload. Callers treat it exactly like a transport failure.
var ErrBusinessRejected = errors.New("korona: request rejected by upstream")

// Inventory is the behavior the dispatch pipeline depends on.
type Inventory interface {
	// ListSuppliers returns the full upstream supplier list.
	ListSuppliers(ctx context.Context) ([]Supplier, error)
	// UpsertSupplier creates or replaces a supplier by name.
	UpsertSupplier(ctx context.Context, name string) error
	// CreateDispatchNotification creates the receipt header and returns the
	// identifier items are posted against.
	CreateDispatchNotification(ctx context.Context, dn DispatchNotification) (string, error)
	// PostItems posts the line items of a previously created receipt.
	PostItems(ctx context.Context, receiptID string, items []Item) error
}

// Client is the Korona cloud API client. All calls share one rate limiter
// that enforces the fixed inter-request delay the upstream requires.
type Client struct {
	baseURL       string
	username      string
	password      string
	http          *http.Client
	limiter       *rate.Limiter
	logger        *slog.Logger
	receiptSchema *jsonschema.Schema
	itemsSchema   *jsonschema.Schema
}

// NewClient builds a client for one account on one cluster.
func NewClient(cfg config.KoronaConfig, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}
	receiptSchema, err := compileSchema("dispatch_notification.json", buildReceiptSchema())
	if err != nil {
		return nil, err
	}
	itemsSchema, err := compileSchema("dispatch_items.json", buildItemsSchema())
	if err != nil {
		return nil, err
	}

	throttle := cfg.Throttle
	if throttle <= 0 {
		throttle = 500 * time.Millisecond
	}

	return &Client{
		baseURL:       fmt.Sprintf("https://%s.koronacloud.com/web/api/v3/accounts/%s", cfg.Cluster, cfg.AccountID),
		username:      cfg.Username,
		password:      cfg.Password,
		http:          &http.Client{Timeout: cfg.Timeout},
		limiter:       rate.NewLimiter(rate.Every(throttle), 1),
		logger:        logger,
		receiptSchema: receiptSchema,
		itemsSchema:   itemsSchema,
	}, nil
}

// ListSuppliers fetches the full supplier list for cache hydration.
func (c *Client) ListSuppliers(ctx context.Context) ([]Supplier, error) {
	raw, _, err := c.do(ctx, http.MethodGet, "/suppliers", nil, nil)
	if err != nil {
		return nil, fmt.Errorf("list suppliers: %w", err)
	}
	var list supplierList
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, fmt.Errorf("decode supplier list: %w", err)
	}
	return list.Results, nil
}

// UpsertSupplier creates the supplier, replacing any existing record of the
// same name. The operation is idempotent upstream.
func (c *Client) UpsertSupplier(ctx context.Context, name string) error {
	params := url.Values{"writeMode": {"ADD_OR_REPLACE"}}
	if _, _, err := c.do(ctx, http.MethodPost, "/suppliers", params, Supplier{Name: name}); err != nil {
		return fmt.Errorf("upsert supplier %q: %w", name, err)
	}
	return nil
}

// CreateDispatchNotification creates the receipt header. The notification
// number doubles as the upstream identifier, so it is returned as the join
// key for the item stage.
func (c *Client) CreateDispatchNotification(ctx context.Context, dn DispatchNotification) (string, error) {
	body, err := json.Marshal(dn)
	if err != nil {
		return "", fmt.Errorf("encode dispatch notification: %w", err)
	}
	if err := validatePayload(c.receiptSchema, body); err != nil {
		return "", fmt.Errorf("dispatch notification %q: %w", dn.Number, err)
	}
	if _, _, err := c.do(ctx, http.MethodPost, "/dispatchNotifications/", nil, json.RawMessage(body)); err != nil {
		return "", fmt.Errorf("create dispatch notification %q: %w", dn.Number, err)
	}
	return dn.Number, nil
}

// PostItems posts line items against a receipt. An HTTP 200 whose body is
// an array led by an ERROR status is a business rejection and returns
// ErrBusinessRejected.
func (c *Client) PostItems(ctx context.Context, receiptID string, items []Item) error {
	body, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encode items: %w", err)
	}
	if err := validatePayload(c.itemsSchema, body); err != nil {
		return fmt.Errorf("items for %q: %w", receiptID, err)
	}

	params := url.Values{
		"assignExistingProduct": {"true"},
		"writeMode":             {"ADD_OR_UPDATE"},
	}
	path := "/dispatchNotifications/" + url.PathEscape(receiptID) + "/items"
	raw, _, err := c.do(ctx, http.MethodPost, path, params, json.RawMessage(body))
	if err != nil {
		return fmt.Errorf("post items for %q: %w", receiptID, err)
	}

	var results []ItemResult
	if err := json.Unmarshal(raw, &results); err == nil && len(results) > 0 && results[0].Status == "ERROR" {
		c.logger.Error("korona.items.rejected",
			"receipt_id", receiptID,
			"status", results[0].Status,
			"description", results[0].Description,
		)
		return fmt.Errorf("post items for %q: %w", receiptID, ErrBusinessRejected)
	}
	return nil
}

// do sends one authenticated JSON request after waiting out the throttle.
func (c *Client) do(ctx context.Context, method, path string, params url.Values, body any) ([]byte, int, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, 0, err
	}

	reqID := uuid.New().String()
	start := time.Now()

	var reader io.Reader
	if body != nil {
		bs, err := json.Marshal(body)
		if err != nil {
			c.logger.Error("korona.http.encode_error", "req_id", reqID, "error", err)
			return nil, 0, fmt.Errorf("encode json: %w", err)
		}
		reader = bytes.NewReader(bs)
	}

	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		c.logger.Error("korona.http.build_request_error", "req_id", reqID, "error", err)
		return nil, 0, fmt.Errorf("build request: %w", err)
	}
	req.SetBasicAuth(c.username, c.password)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.logger.Info("korona.http.request", "req_id", reqID, "method", method, "path", path)

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Error("korona.http.send_error", "req_id", reqID, "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return nil, 0, err
	}
	defer func(rc io.ReadCloser) {
		if err := rc.Close(); err != nil {
			c.logger.Warn("korona.http.response_body_close_error", "req_id", reqID, "error", err)
		}
	}(resp.Body)

	raw, _ := io.ReadAll(resp.Body)

	c.logger.Info("korona.http.response",
		"req_id", reqID,
		"status", resp.StatusCode,
		"bytes", len(raw),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode/100 != 2 {
		return raw, resp.StatusCode, fmt.Errorf("non-2xx status: %d", resp.StatusCode)
	}
	return raw, resp.StatusCode, nil
}
