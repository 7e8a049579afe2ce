package stripe

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/SecondList/EcommerceAPI/internal/apperr"
)

// Client talks to a Stripe-style charge API: tokenize the card, then create
// the charge. Everything the gateway does wrong (declines, timeouts, 5xx)
// is collapsed into apperr.ErrPaymentDeclined; callers never see
// provider-specific codes.
type Client struct {
	BaseURL string
	APIKey  string
	HTTP    *http.Client
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		HTTP:    &http.Client{Timeout: 30 * time.Second},
	}
}

type Card struct {
	Name     string `json:"card_name"`
	Number   string `json:"card_number"`
	ExpMonth int    `json:"exp_month"`
	ExpYear  int    `json:"exp_year"`
	CVC      string `json:"cvc"`
}

type ShippingAddress struct {
	RecipientName string `json:"recipient_name"`
	Phone         string `json:"phone"`
	Address1      string `json:"address1"`
	Address2      string `json:"address2"`
	City          string `json:"city"`
	State         string `json:"state"`
	PostalCode    string `json:"postal_code"`
	Country       string `json:"country"`
	Carrier       string `json:"carrier"`
}

type ChargeRequest struct {
	AmountMinorUnits int64
	Currency         string
	Card             Card
	Shipping         ShippingAddress
	ReceiptEmail     string
	Description      string
	IdempotencyKey   string
}

type ChargeResult struct {
	PaymentID string
	// Response keeps the gateway's body verbatim for audit.
	Response string
}

func (c *Client) Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error) {
	tokenID, err := c.createCardToken(ctx, req.Card)
	if err != nil {
		return nil, err
	}

	form := url.Values{}
	form.Set("amount", strconv.FormatInt(req.AmountMinorUnits, 10))
	form.Set("currency", req.Currency)
	form.Set("source", tokenID)
	form.Set("description", req.Description)
	form.Set("receipt_email", req.ReceiptEmail)
	form.Set("shipping[name]", req.Shipping.RecipientName)
	form.Set("shipping[phone]", req.Shipping.Phone)
	form.Set("shipping[carrier]", req.Shipping.Carrier)
	form.Set("shipping[address][line1]", req.Shipping.Address1)
	form.Set("shipping[address][line2]", req.Shipping.Address2)
	form.Set("shipping[address][city]", req.Shipping.City)
	form.Set("shipping[address][state]", req.Shipping.State)
	form.Set("shipping[address][postal_code]", req.Shipping.PostalCode)
	form.Set("shipping[address][country]", req.Shipping.Country)

	body, err := c.post(ctx, "/v1/charges", form, req.IdempotencyKey)
	if err != nil {
		return nil, err
	}

	var charge struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &charge); err != nil || charge.ID == "" {
		return nil, fmt.Errorf("%w: malformed charge response", apperr.ErrPaymentDeclined)
	}

	return &ChargeResult{PaymentID: charge.ID, Response: string(body)}, nil
}

func (c *Client) createCardToken(ctx context.Context, card Card) (string, error) {
	form := url.Values{}
	form.Set("card[name]", card.Name)
	form.Set("card[number]", card.Number)
	form.Set("card[exp_month]", strconv.Itoa(card.ExpMonth))
	form.Set("card[exp_year]", strconv.Itoa(card.ExpYear))
	form.Set("card[cvc]", card.CVC)

	body, err := c.post(ctx, "/v1/tokens", form, "")
	if err != nil {
		return "", err
	}

	var token struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &token); err != nil || token.ID == "" {
		return "", fmt.Errorf("%w: malformed token response", apperr.ErrPaymentDeclined)
	}
	return token.ID, nil
}

func (c *Client) post(ctx context.Context, path string, form url.Values, idempotencyKey string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path,
		strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build gateway request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %v", apperr.ErrPaymentDeclined, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: read gateway response: %v", apperr.ErrPaymentDeclined, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: gateway returned %d", apperr.ErrPaymentDeclined, resp.StatusCode)
	}

	return body, nil
}
