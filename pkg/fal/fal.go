package fal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	DefaultBaseURL = "https://queue.fal.run"
	DefaultModel   = "fal-ai/ovi"

	statusQueued     = "IN_QUEUE"
	statusInProgress = "IN_PROGRESS"
	statusCompleted  = "COMPLETED"
)

// ErrNoVideo means the request completed but the result carried no URL.
var ErrNoVideo = errors.New("fal result contains no video url")

// Client drives the fal.ai queue API: submit a request, poll its status,
// fetch the result.
type Client struct {
	baseURL      string
	model        string
	apiKey       string
	client       *http.Client
	pollInterval time.Duration
}

func NewClient(baseURL, apiKey, model string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if model == "" {
		model = DefaultModel
	}
	return &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		model:        model,
		apiKey:       apiKey,
		client:       &http.Client{Timeout: 30 * time.Second},
		pollInterval: 2 * time.Second,
	}
}

// QueueStatus is one polled snapshot of a queued request.
type QueueStatus struct {
	RequestID     string `json:"request_id"`
	Status        string `json:"status"`
	QueuePosition int    `json:"queue_position"`
}

// Result is a finished generation.
type Result struct {
	RequestID string
	VideoURL  string
}

type submitResponse struct {
	RequestID   string `json:"request_id"`
	StatusURL   string `json:"status_url"`
	ResponseURL string `json:"response_url"`
}

type resultResponse struct {
	Video struct {
		URL string `json:"url"`
	} `json:"video"`
}

// Generate submits a prompt and blocks until the video is ready or ctx
// expires. onStatus, when non-nil, receives each polled status update.
func (c *Client) Generate(ctx context.Context, prompt string, onStatus func(QueueStatus)) (*Result, error) {
	sub, err := c.submit(ctx, prompt)
	if err != nil {
		return nil, err
	}
	for {
		st, err := c.status(ctx, sub.StatusURL)
		if err != nil {
			return nil, err
		}
		if st.RequestID == "" {
			st.RequestID = sub.RequestID
		}
		if onStatus != nil {
			onStatus(*st)
		}
		switch st.Status {
		case statusCompleted:
			return c.result(ctx, sub.RequestID, sub.ResponseURL)
		case statusQueued, statusInProgress:
		default:
			return nil, fmt.Errorf("fal request %s ended with status %s", sub.RequestID, st.Status)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.pollInterval):
		}
	}
}

func (c *Client) submit(ctx context.Context, prompt string) (*submitResponse, error) {
	payload, _ := json.Marshal(map[string]string{"prompt": prompt})
	var out submitResponse
	if err := c.do(ctx, http.MethodPost, c.baseURL+"/"+c.model+"/requests", payload, &out); err != nil {
		return nil, err
	}
	if out.RequestID == "" || out.StatusURL == "" {
		return nil, errors.New("fal submit response missing request_id")
	}
	return &out, nil
}

func (c *Client) status(ctx context.Context, statusURL string) (*QueueStatus, error) {
	var out QueueStatus
	if err := c.do(ctx, http.MethodGet, statusURL, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) result(ctx context.Context, requestID, responseURL string) (*Result, error) {
	var out resultResponse
	if err := c.do(ctx, http.MethodGet, responseURL, nil, &out); err != nil {
		return nil, err
	}
	if out.Video.URL == "" {
		return nil, ErrNoVideo
	}
	return &Result{RequestID: requestID, VideoURL: out.Video.URL}, nil
}

func (c *Client) do(ctx context.Context, method, url string, payload []byte, out interface{}) error {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Key "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("fal %s %s returned %d: %s", method, url, resp.StatusCode, string(data))
	}
	return json.Unmarshal(data, out)
}
