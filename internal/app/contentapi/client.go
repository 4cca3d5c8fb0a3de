package contentapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"francoggm/merchant-status-relay/internal/models"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/bytedance/sonic"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

const (
	DefaultBaseURL = "https://shoppingcontent.googleapis.com"
	apiVersionPath = "/content/v2.1"
	listPageSize   = 250
)

var ErrAuth = errors.New("upstream credentials unavailable")

// APIError is a non-2xx answer from the Content API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("content api returned status %d: %s", e.StatusCode, e.Message)
}

type Options struct {
	BaseURL     string
	Timeout     time.Duration
	MaxAttempts int
	RetryDelay  time.Duration
}

type Client struct {
	baseURL     string
	timeout     time.Duration
	maxAttempts int
	retryDelay  time.Duration
	tokens      oauth2.TokenSource
	client      *fasthttp.Client
	logger      *zap.Logger
}

type listPage struct {
	NextPageToken string            `json:"nextPageToken"`
	Resources     []json.RawMessage `json:"resources"`
}

func NewClient(tokens oauth2.TokenSource, opts Options, logger *zap.Logger) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 1
	}

	return &Client{
		baseURL:     opts.BaseURL,
		timeout:     opts.Timeout,
		maxAttempts: opts.MaxAttempts,
		retryDelay:  opts.RetryDelay,
		tokens:      tokens,
		client: &fasthttp.Client{
			Name:                "merchant-status-relay",
			MaxConnsPerHost:     32,
			MaxIdleConnDuration: 90 * time.Second,
		},
		logger: logger.Named("contentapi"),
	}
}

// GetAccountStatus fetches the status of accountID as seen from merchantID.
// Standalone accounts use the same id for both.
func (c *Client) GetAccountStatus(ctx context.Context, merchantID, accountID string) (json.RawMessage, error) {
	uri := fmt.Sprintf("%s%s/%s/accountstatuses/%s",
		c.baseURL, apiVersionPath, url.PathEscape(merchantID), url.PathEscape(accountID))

	body, err := c.do(ctx, uri)
	if err != nil {
		return nil, err
	}

	if !sonic.Valid(body) {
		return nil, fmt.Errorf("account status for %s is not valid JSON", accountID)
	}

	return json.RawMessage(body), nil
}

// ListAccountStatuses returns the statuses of every sub-account of an MCA in
// response order, following pagination until the last page.
func (c *Client) ListAccountStatuses(ctx context.Context, merchantID string) ([]models.AccountStatus, error) {
	base := fmt.Sprintf("%s%s/%s/accountstatuses", c.baseURL, apiVersionPath, url.PathEscape(merchantID))

	var (
		statuses  []models.AccountStatus
		pageToken string
	)
	for {
		query := url.Values{}
		query.Set("maxResults", strconv.Itoa(listPageSize))
		if pageToken != "" {
			query.Set("pageToken", pageToken)
		}

		body, err := c.do(ctx, base+"?"+query.Encode())
		if err != nil {
			return nil, err
		}

		var page listPage
		if err := sonic.Unmarshal(body, &page); err != nil {
			return nil, fmt.Errorf("failed to unmarshal account statuses: %w", err)
		}

		for _, resource := range page.Resources {
			statuses = append(statuses, models.AccountStatus{
				AccountID: resourceAccountID(resource),
				Payload:   resource,
			})
		}

		if page.NextPageToken == "" || page.NextPageToken == pageToken {
			break
		}
		pageToken = page.NextPageToken
	}

	return statuses, nil
}

func (c *Client) do(ctx context.Context, uri string) ([]byte, error) {
	token, err := FetchToken(ctx, c.tokens)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %v", ErrAuth, err)
	}
	authorization := token.Type() + " " + token.AccessToken

	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		body, err := c.doOnce(ctx, uri, authorization)
		if err == nil {
			return body, nil
		}

		lastErr = err
		if attempt == c.maxAttempts || !retryable(err) {
			break
		}

		c.logger.Warn("retrying content api request",
			zap.String("uri", uri),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.retryDelay):
		}
	}

	return nil, lastErr
}

func (c *Client) doOnce(ctx context.Context, uri, authorization string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	timeout := c.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}
	if timeout <= 0 {
		return nil, context.DeadlineExceeded
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()

	req.SetRequestURI(uri)
	req.Header.SetMethod(http.MethodGet)
	req.Header.Set("Authorization", authorization)
	req.Header.Set("Accept", "application/json")

	if err := c.client.DoTimeout(req, resp, timeout); err != nil {
		return nil, fmt.Errorf("failed to make content api request: %w", err)
	}

	// resp is released on return, keep our own copy of the body.
	body := append([]byte(nil), resp.Body()...)

	statusCode := resp.StatusCode()
	if statusCode < 200 || statusCode > 299 {
		return nil, &APIError{StatusCode: statusCode, Message: errorMessage(statusCode, body)}
	}

	return body, nil
}

func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode >= 500
	}

	return true
}

// Transient reports whether err may go away by asking again later: timeouts,
// throttling, server errors and network failures.
func Transient(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	if errors.Is(err, ErrAuth) {
		return false
	}

	return retryable(err)
}

// errorMessage reads error.message from a Google API error body.
func errorMessage(statusCode int, body []byte) string {
	node, err := sonic.Get(body, "error", "message")
	if err == nil {
		if msg, err := node.String(); err == nil && msg != "" {
			return msg
		}
	}

	return http.StatusText(statusCode)
}

func resourceAccountID(resource []byte) string {
	node, err := sonic.Get(resource, "accountId")
	if err != nil {
		return ""
	}

	id, err := node.String()
	if err != nil {
		return ""
	}

	return id
}
