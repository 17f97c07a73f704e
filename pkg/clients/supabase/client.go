package supabase

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/mamadbah2/stockroom/internal/config"
)

const (
	restPath = "/rest/v1"
	authPath = "/auth/v1"
)

// Client is a resty-backed client for a Supabase project: PostgREST tables,
// RPC functions and the GoTrue auth endpoints.
type Client struct {
	httpClient *resty.Client
	anonKey    string

	mu          sync.RWMutex
	accessToken string
}

// NewClient builds a client for the configured project.
func NewClient(cfg config.SupabaseConfig) *Client {
	restyClient := resty.New().
		SetBaseURL(strings.TrimSuffix(cfg.URL, "/")).
		SetHeader("apikey", cfg.AnonKey).
		SetHeader("Content-Type", "application/json").
		SetTimeout(15 * time.Second)

	return &Client{httpClient: restyClient, anonKey: cfg.AnonKey}
}

// SetAccessToken sets the bearer used for table and RPC requests. An empty
// token falls back to the anon key.
func (c *Client) SetAccessToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.accessToken = token
}

func (c *Client) bearer() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.accessToken != "" {
		return c.accessToken
	}
	return c.anonKey
}

// APIError is the error payload shared by PostgREST and GoTrue responses.
type APIError struct {
	Status           int    `json:"-"`
	Message          string `json:"message"`
	Msg              string `json:"msg"`
	Code             any    `json:"code"`
	Details          string `json:"details"`
	Hint             string `json:"hint"`
	ErrorCode        string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

func (e *APIError) Error() string {
	message := e.Message
	for _, alt := range []string{e.Msg, e.ErrorDescription, e.ErrorCode} {
		if message == "" {
			message = alt
		}
	}
	return fmt.Sprintf("supabase api error: status=%d, message=%s", e.Status, message)
}

func (c *Client) request(ctx context.Context) *resty.Request {
	return c.httpClient.R().
		SetContext(ctx).
		SetAuthToken(c.bearer()).
		SetError(&APIError{})
}

func check(resp *resty.Response, err error, op string) error {
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if resp.StatusCode() >= http.StatusBadRequest {
		apiErr, ok := resp.Error().(*APIError)
		if !ok || apiErr == nil {
			apiErr = &APIError{Message: resp.String()}
		}
		apiErr.Status = resp.StatusCode()
		return fmt.Errorf("%s: %w", op, apiErr)
	}
	return nil
}

// Select reads rows of table matching query into out (a pointer to a slice).
func (c *Client) Select(ctx context.Context, table string, query url.Values, out any) error {
	resp, err := c.request(ctx).
		SetQueryParamsFromValues(query).
		SetResult(out).
		Get(restPath + "/" + table)
	return check(resp, err, "select "+table)
}

// Insert writes body into table and decodes the inserted rows into out.
func (c *Client) Insert(ctx context.Context, table string, body, out any) error {
	resp, err := c.request(ctx).
		SetHeader("Prefer", "return=representation").
		SetBody(body).
		SetResult(out).
		Post(restPath + "/" + table)
	return check(resp, err, "insert "+table)
}

// Update patches rows of table matching filter and decodes them into out.
func (c *Client) Update(ctx context.Context, table string, filter url.Values, body, out any) error {
	resp, err := c.request(ctx).
		SetHeader("Prefer", "return=representation").
		SetQueryParamsFromValues(filter).
		SetBody(body).
		SetResult(out).
		Patch(restPath + "/" + table)
	return check(resp, err, "update "+table)
}

// Delete removes rows of table matching filter.
func (c *Client) Delete(ctx context.Context, table string, filter url.Values) error {
	resp, err := c.request(ctx).
		SetQueryParamsFromValues(filter).
		Delete(restPath + "/" + table)
	return check(resp, err, "delete "+table)
}

// RPC invokes a database function with named arguments.
func (c *Client) RPC(ctx context.Context, fn string, args any) error {
	resp, err := c.request(ctx).
		SetBody(args).
		Post(restPath + "/rpc/" + fn)
	return check(resp, err, "rpc "+fn)
}

// Eq builds a PostgREST equality filter.
func Eq(column, value string) url.Values {
	return url.Values{column: []string{"eq." + value}}
}
