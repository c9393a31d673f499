package provisioning

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/maskia-arch/esimconnect/core"
)

const (
	orderPath = "/v1/open/package/order"
	queryPath = "/v1/open/esim/query"

	accessCodeHeader = "RT-AccessCode"

	defaultRequestTimeout  = 30 * time.Second
	maxResponseBodyBytes   = 1 << 20
	defaultBurstPolls      = 3
	defaultBurstInterval   = 2 * time.Second
	defaultPollInterval    = 15 * time.Second
	defaultMaxPollAttempts = 60
)

type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

type Config struct {
	AccessCode     string
	BaseURL        string
	BurstPolls     int
	BurstInterval  time.Duration
	PollInterval   time.Duration
	MaxAttempts    int
	RequestTimeout time.Duration
	HTTPClient     HTTPDoer
	Now            func() time.Time
	// RandRead is injectable for deterministic transaction ids in tests.
	RandRead func(p []byte) (int, error)
}

// Client places provider orders and polls them to completion.
type Client struct {
	config     Config
	httpClient HTTPDoer
}

func NewClient(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.AccessCode) == "" {
		return nil, fmt.Errorf("provisioning: provider access code is required")
	}
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("provisioning: provider base url is required")
	}
	if cfg.BurstPolls < 0 {
		cfg.BurstPolls = defaultBurstPolls
	}
	if cfg.BurstInterval < 0 {
		cfg.BurstInterval = defaultBurstInterval
	}
	if cfg.PollInterval < 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxPollAttempts
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultRequestTimeout
	}
	if cfg.Now == nil {
		cfg.Now = func() time.Time { return time.Now().UTC() }
	}
	if cfg.RandRead == nil {
		cfg.RandRead = rand.Read
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.RequestTimeout}
	}
	return &Client{
		config:     cfg,
		httpClient: httpClient,
	}, nil
}

type orderRequest struct {
	PackageCode   string `json:"packageCode"`
	Count         int    `json:"count"`
	TransactionID string `json:"transactionId"`
}

type orderResponse struct {
	Success   bool   `json:"success"`
	ErrorCode string `json:"errorCode"`
	ErrorMsg  string `json:"errorMsg"`
	Obj       struct {
		OrderNo string `json:"orderNo"`
	} `json:"obj"`
}

type queryRequest struct {
	OrderNo       string `json:"orderNo,omitempty"`
	TransactionID string `json:"transactionId,omitempty"`
}

type esimEntry struct {
	ICCID     string `json:"iccid"`
	ShortURL  string `json:"shortUrl"`
	QRCodeURL string `json:"qrcodeUrl"`
}

func (e esimEntry) accessURL() string {
	if url := strings.TrimSpace(e.ShortURL); url != "" {
		return url
	}
	return strings.TrimSpace(e.QRCodeURL)
}

type queryResponse struct {
	Success   bool   `json:"success"`
	ErrorCode string `json:"errorCode"`
	ErrorMsg  string `json:"errorMsg"`
	Obj       struct {
		EsimList []esimEntry `json:"esimList"`
		Cards    []esimEntry `json:"cards"`
	} `json:"obj"`
}

func (r *queryResponse) artifacts() []esimEntry {
	if r == nil {
		return nil
	}
	if len(r.Obj.EsimList) > 0 {
		return r.Obj.EsimList
	}
	return r.Obj.Cards
}

// Order places a provisioning order for quantity eSIMs of productCode and
// polls the provider until that many artifacts are ready. The returned slice
// has exactly quantity entries, each with a non-empty ICCID.
func (c *Client) Order(ctx context.Context, productCode string, quantity int) ([]core.Artifact, error) {
	if c == nil || c.httpClient == nil {
		return nil, fmt.Errorf("provisioning: client is not configured")
	}
	productCode = strings.TrimSpace(productCode)
	if productCode == "" {
		return nil, fmt.Errorf("provisioning: product code is required")
	}
	if quantity < 1 {
		return nil, fmt.Errorf("provisioning: quantity must be at least 1")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	transactionID := c.newTransactionID()
	orderNo, err := c.placeOrder(ctx, transactionID, productCode, quantity)
	if err != nil {
		return nil, err
	}
	return c.pollUntilReady(ctx, transactionID, orderNo, quantity)
}

func (c *Client) placeOrder(ctx context.Context, transactionID, productCode string, quantity int) (string, error) {
	statusCode, body, err := c.post(ctx, orderPath, orderRequest{
		PackageCode:   productCode,
		Count:         quantity,
		TransactionID: transactionID,
	})
	if err != nil {
		return "", &Error{
			Kind:          FailureNetwork,
			TransactionID: transactionID,
			Message:       "order placement request failed",
			Cause:         err,
		}
	}

	parsed := &orderResponse{}
	if decodeErr := json.Unmarshal(body, parsed); decodeErr != nil {
		parsed = nil
	}
	if statusCode < http.StatusOK || statusCode >= http.StatusMultipleChoices ||
		parsed == nil || !parsed.Success || strings.TrimSpace(parsed.ErrorCode) != "" {
		rejection := &Error{
			Kind:          FailureOrderRejected,
			TransactionID: transactionID,
			Message:       fmt.Sprintf("provider rejected order placement (http %d)", statusCode),
		}
		if parsed != nil {
			rejection.ProviderCode = strings.TrimSpace(parsed.ErrorCode)
			if msg := strings.TrimSpace(parsed.ErrorMsg); msg != "" {
				rejection.Message = msg
			}
		}
		return "", rejection
	}
	return strings.TrimSpace(parsed.Obj.OrderNo), nil
}

func (c *Client) pollUntilReady(
	ctx context.Context,
	transactionID string,
	orderNo string,
	quantity int,
) ([]core.Artifact, error) {
	startedAt := c.config.Now()

	for attempt := 1; attempt <= c.config.MaxAttempts; attempt++ {
		if err := waitWithContext(ctx, c.delayForAttempt(attempt)); err != nil {
			return nil, &Error{
				Kind:          FailureNetwork,
				TransactionID: transactionID,
				Message:       "poll wait interrupted",
				Cause:         err,
			}
		}

		request := queryRequest{OrderNo: orderNo}
		if orderNo == "" {
			request = queryRequest{TransactionID: transactionID}
		}
		statusCode, body, err := c.post(ctx, queryPath, request)
		if err != nil {
			if ctx.Err() != nil {
				return nil, &Error{
					Kind:          FailureNetwork,
					TransactionID: transactionID,
					Message:       "poll request interrupted",
					Cause:         ctx.Err(),
				}
			}
			// Transport hiccups are absorbed; the attempt budget still shrinks.
			continue
		}

		parsed := &queryResponse{}
		if decodeErr := json.Unmarshal(body, parsed); decodeErr != nil {
			parsed = nil
		}
		classification := classifyQuery(statusCode, parsed, quantity)
		switch classification.Outcome {
		case outcomeReady:
			return classification.Artifacts, nil
		case outcomeFatal:
			return nil, &Error{
				Kind:          FailureQueryRejected,
				ProviderCode:  classification.ProviderCode,
				TransactionID: transactionID,
				Message:       queryRejectionMessage(classification, statusCode),
			}
		case outcomePending, outcomeTransient, outcomeIncomplete:
			continue
		}
	}

	return nil, &Error{
		Kind:          FailureTimeout,
		TransactionID: transactionID,
		Message:       "provider did not finish provisioning",
		Attempts:      c.config.MaxAttempts,
		Elapsed:       c.config.Now().Sub(startedAt),
	}
}

func (c *Client) post(ctx context.Context, path string, payload any) (int, []byte, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return 0, nil, fmt.Errorf("provisioning: encode request: %w", err)
	}

	requestCtx := ctx
	cancel := func() {}
	if c.config.RequestTimeout > 0 {
		requestCtx, cancel = context.WithTimeout(ctx, c.config.RequestTimeout)
	}
	defer cancel()

	httpReq, err := http.NewRequestWithContext(
		requestCtx,
		http.MethodPost,
		strings.TrimRight(c.config.BaseURL, "/")+path,
		bytes.NewReader(encoded),
	)
	if err != nil {
		return 0, nil, fmt.Errorf("provisioning: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set(accessCodeHeader, c.config.AccessCode)

	response, err := c.httpClient.Do(httpReq)
	if err != nil {
		return 0, nil, err
	}
	defer response.Body.Close()

	body, readErr := io.ReadAll(io.LimitReader(response.Body, maxResponseBodyBytes+1))
	if readErr != nil {
		return 0, nil, readErr
	}
	if int64(len(body)) > maxResponseBodyBytes {
		return 0, nil, fmt.Errorf("provisioning: response exceeds %d bytes", maxResponseBodyBytes)
	}
	return response.StatusCode, body, nil
}

// delayForAttempt implements the backoff schedule: a burst of short fixed
// waits to catch fast-completing orders cheaply, then the steady interval.
func (c *Client) delayForAttempt(attempt int) time.Duration {
	if attempt <= c.config.BurstPolls {
		return c.config.BurstInterval
	}
	return c.config.PollInterval
}

// newTransactionID builds a diagnosable but non-guessable id, unique per
// attempt: SA_<unix-millis>_<8 random hex>.
func (c *Client) newTransactionID() string {
	suffix := make([]byte, 4)
	if _, err := c.config.RandRead(suffix); err != nil {
		// Fall back to the nanosecond clock; uniqueness per attempt is what
		// matters, not unpredictability.
		return fmt.Sprintf("SA_%d_%08x", c.config.Now().UnixMilli(), c.config.Now().UnixNano()&0xffffffff)
	}
	return fmt.Sprintf("SA_%d_%s", c.config.Now().UnixMilli(), hex.EncodeToString(suffix))
}

func queryRejectionMessage(classification queryClassification, statusCode int) string {
	if msg := strings.TrimSpace(classification.Message); msg != "" {
		return msg
	}
	return fmt.Sprintf("provider rejected status query (http %d)", statusCode)
}

func waitWithContext(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

var _ core.ProvisioningClient = (*Client)(nil)
