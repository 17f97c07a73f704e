// Package whatsapp sends plain text alerts through the Meta WhatsApp Cloud
// API on behalf of one business phone number.
package whatsapp

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/mamadbah2/stockroom/internal/config"
)

// APIClient posts messages from the configured phone number.
type APIClient struct {
	httpClient    *resty.Client
	phoneNumberID string
}

// NewClient targets {BaseURL}/{APIVersion} with the configured access token.
func NewClient(cfg config.WhatsAppConfig) *APIClient {
	restyClient := resty.New().
		SetBaseURL(strings.TrimSuffix(cfg.BaseURL, "/") + "/" + cfg.APIVersion).
		SetAuthToken(cfg.AccessToken).
		SetHeader("Content-Type", "application/json").
		SetTimeout(15 * time.Second)

	return &APIClient{httpClient: restyClient, phoneNumberID: cfg.PhoneNumberID}
}

// TextMessage is an alert addressed to a single recipient.
type TextMessage struct {
	To   string
	Body string
}

type textPayload struct {
	MessagingProduct string   `json:"messaging_product"`
	To               string   `json:"to"`
	Type             string   `json:"type"`
	Text             textBody `json:"text"`
}

type textBody struct {
	Body       string `json:"body"`
	PreviewURL bool   `json:"preview_url"`
}

// Receipt lists the ids Meta assigned to the accepted messages.
type Receipt struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
}

// MessageID returns the id of the first accepted message, or "".
func (r *Receipt) MessageID() string {
	if r == nil || len(r.Messages) == 0 {
		return ""
	}
	return r.Messages[0].ID
}

// APIError is the error envelope returned by the Graph API.
type APIError struct {
	Status  int `json:"-"`
	Details struct {
		Message   string `json:"message"`
		Type      string `json:"type"`
		Code      int    `json:"code"`
		FBTraceID string `json:"fbtrace_id"`
	} `json:"error"`
}

func (e *APIError) Error() string {
	code := e.Status
	if e.Details.Code != 0 {
		code = e.Details.Code
	}
	return fmt.Sprintf("whatsapp api error: code=%d, message=%s", code, e.Details.Message)
}

// SendText delivers msg without link previews.
func (c *APIClient) SendText(ctx context.Context, msg TextMessage) (*Receipt, error) {
	receipt := new(Receipt)
	apiErr := new(APIError)

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(textPayload{
			MessagingProduct: "whatsapp",
			To:               msg.To,
			Type:             "text",
			Text:             textBody{Body: msg.Body},
		}).
		SetResult(receipt).
		SetError(apiErr).
		Post(c.phoneNumberID + "/messages")
	if err != nil {
		return nil, fmt.Errorf("send whatsapp text: %w", err)
	}
	if resp.StatusCode() >= http.StatusBadRequest {
		apiErr.Status = resp.StatusCode()
		return nil, apiErr
	}
	return receipt, nil
}
