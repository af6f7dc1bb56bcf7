package credit

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
)

// HTTPClient applies credits against a remote ledger service exposing the
// apply endpoint. Used when the webhook receiver and the ledger run as
// separate deployments; otherwise the in-process service is used directly.
type HTTPClient struct {
	baseURL string
	secret  string
	client  *http.Client
}

func NewHTTPClient(baseURL, secret string) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		secret:  secret,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

type applyResponse struct {
	Status           string `json:"status"`
	Message          string `json:"message"`
	CreditsApplied   int64  `json:"credits_applied"`
	NewBalance       int64  `json:"new_balance"`
	AlreadyProcessed bool   `json:"already_processed"`
}

func (c *HTTPClient) Apply(ctx context.Context, reference, email string, credits int64) (*Result, error) {
	params := url.Values{}
	params.Set("secret", c.secret)
	params.Set("email", email)
	params.Set("credits", strconv.FormatInt(credits, 10))
	params.Set("reference", reference)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/api/v1/credits/apply?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "Calevid-Webhook/1.0")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized:
		return nil, ErrUnauthorized
	case http.StatusNotFound:
		return nil, ErrNotFound
	case http.StatusBadRequest:
		return nil, ErrInvalidAmount
	default:
		return nil, fmt.Errorf("apply-credits returned %d: %s", resp.StatusCode, string(body))
	}

	var out applyResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("apply-credits response: %w", err)
	}
	return &Result{
		Reference:        reference,
		CreditsApplied:   out.CreditsApplied,
		NewBalance:       out.NewBalance,
		AlreadyProcessed: out.AlreadyProcessed,
	}, nil
}
