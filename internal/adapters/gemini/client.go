package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/iolowookere217/xdulist/internal/domain"
	"github.com/iolowookere217/xdulist/internal/usecase"
)

// Client talks to the Gemini extraction endpoint. It implements
// usecase.ReceiptExtractor and stops at the HTTP boundary; prompt handling
// lives behind the API.
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func New(baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{baseURL: baseURL, apiKey: apiKey, client: &http.Client{Timeout: timeout}}
}

func (c *Client) ExtractReceipt(ctx context.Context, imageURL string) (*usecase.ExpenseDraft, error) {
	payload := map[string]string{"imageUrl": imageURL}
	draft := &usecase.ExpenseDraft{}
	if err := c.post(ctx, "/v1/extract-receipt", payload, draft); err != nil {
		return nil, err
	}
	return draft, nil
}

func (c *Client) ParseTranscript(ctx context.Context, transcript string) (*usecase.ExpenseDraft, error) {
	payload := map[string]string{"transcript": transcript}
	draft := &usecase.ExpenseDraft{}
	if err := c.post(ctx, "/v1/parse-transcript", payload, draft); err != nil {
		return nil, err
	}
	return draft, nil
}

type insightExpense struct {
	Amount      float64   `json:"amount"`
	Category    string    `json:"category"`
	Description string    `json:"description"`
	Date        time.Time `json:"date"`
}

func (c *Client) GenerateInsights(ctx context.Context, expenses []domain.Expense) ([]usecase.Insight, error) {
	summary := make([]insightExpense, 0, len(expenses))
	for _, e := range expenses {
		summary = append(summary, insightExpense{
			Amount:      e.Amount,
			Category:    e.Category,
			Description: e.Description,
			Date:        e.Date,
		})
	}
	var insights []usecase.Insight
	if err := c.post(ctx, "/v1/insights", map[string]interface{}{"expenses": summary}, &insights); err != nil {
		return nil, err
	}
	return insights, nil
}

func (c *Client) post(ctx context.Context, path string, payload interface{}, out interface{}) error {
	op := func() error {
		body, err := json.Marshal(payload)
		if err != nil {
			return backoff.Permanent(err)
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, fmt.Sprintf("%s%s", c.baseURL, path), bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		res, err := c.client.Do(req)
		if err != nil {
			return err
		}
		defer res.Body.Close()
		if res.StatusCode >= 500 {
			return fmt.Errorf("gemini error: %d", res.StatusCode)
		}
		if res.StatusCode >= 400 {
			return backoff.Permanent(fmt.Errorf("gemini rejected request: %d", res.StatusCode))
		}
		if out != nil {
			if err := json.NewDecoder(res.Body).Decode(out); err != nil {
				return backoff.Permanent(err)
			}
		}
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 200 * time.Millisecond
	bo.MaxElapsedTime = 10 * time.Second
	return backoff.Retry(op, backoff.WithContext(bo, ctx))
}
