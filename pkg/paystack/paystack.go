package paystack

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const DefaultBaseURL = "https://api.paystack.co"

// ErrVerificationFailed means Paystack answered but the transaction is not
// a settled success (pending, failed, abandoned, or unknown reference).
var ErrVerificationFailed = errors.New("paystack verification failed")

// Client talks to the Paystack REST API with the account secret key.
type Client struct {
	baseURL   string
	secretKey string
	client    *http.Client
}

func NewClient(baseURL, secretKey string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		secretKey: secretKey,
		client:    &http.Client{Timeout: 30 * time.Second},
	}
}

// Transaction is the subset of a verify response the credit flow needs.
type Transaction struct {
	Reference        string
	Status           string
	AmountMinorUnits int64
	Currency         string
	CustomerEmail    string
}

// Succeeded reports whether the charge settled successfully.
func (t *Transaction) Succeeded() bool {
	return t.Status == "success"
}

type verifyResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
		Reference string `json:"reference"`
		Status    string `json:"status"`
		Amount    int64  `json:"amount"`
		Currency  string `json:"currency"`
		Customer  struct {
			Email string `json:"email"`
		} `json:"customer"`
	} `json:"data"`
}

// VerifyTransaction asks Paystack for the authoritative state of a charge.
// The returned amount is in minor units (kobo/cents) as Paystack reports it.
func (c *Client) VerifyTransaction(ctx context.Context, reference string) (*Transaction, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/transaction/verify/"+url.PathEscape(reference), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("paystack verify returned %d: %s", resp.StatusCode, string(body))
	}

	var out verifyResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("paystack verify response: %w", err)
	}
	if !out.Status {
		return nil, fmt.Errorf("%w: %s", ErrVerificationFailed, out.Message)
	}
	return &Transaction{
		Reference:        out.Data.Reference,
		Status:           out.Data.Status,
		AmountMinorUnits: out.Data.Amount,
		Currency:         out.Data.Currency,
		CustomerEmail:    out.Data.Customer.Email,
	}, nil
}
