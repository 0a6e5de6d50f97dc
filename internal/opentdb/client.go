package opentdb

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const (
	// DefaultBaseURL is the public Open Trivia DB endpoint.
	DefaultBaseURL = "https://opentdb.com/api.php"
	// DefaultAmount is the number of questions requested when none is given.
	DefaultAmount = 10
)

// RawQuestion mirrors one Open Trivia DB record. Text fields may contain
// HTML-entity-escaped characters; decoding is the adapter's job.
type RawQuestion struct {
	Type             string   `json:"type"`
	Difficulty       string   `json:"difficulty"`
	Category         string   `json:"category"`
	Question         string   `json:"question"`
	CorrectAnswer    string   `json:"correct_answer"`
	IncorrectAnswers []string `json:"incorrect_answers"`
}

type apiResponse struct {
	ResponseCode int           `json:"response_code"`
	Results      []RawQuestion `json:"results"`
}

// Client fetches question batches from an Open Trivia DB compatible endpoint.
type Client struct {
	baseURL    string
	difficulty string
	httpClient *http.Client
}

// NewClient builds a client. Empty baseURL falls back to the public API;
// difficulty applies only to category-filtered requests, matching the
// upstream contract. A nil httpClient gets a sane default timeout.
func NewClient(baseURL, difficulty string, httpClient *http.Client) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{
		baseURL:    baseURL,
		difficulty: difficulty,
		httpClient: httpClient,
	}
}

// Fetch requests amount raw questions, optionally restricted to a category.
// A categoryID <= 0 means "any category" and carries no difficulty filter.
func (c *Client) Fetch(ctx context.Context, categoryID, amount int) ([]RawQuestion, error) {
	if amount <= 0 {
		amount = DefaultAmount
	}

	params := url.Values{}
	params.Set("amount", strconv.Itoa(amount))
	if categoryID > 0 {
		params.Set("category", strconv.Itoa(categoryID))
		if c.difficulty != "" {
			params.Set("difficulty", c.difficulty)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("opentdb returned status %d", resp.StatusCode)
	}

	var payload apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, err
	}
	if payload.ResponseCode != 0 {
		return nil, fmt.Errorf("opentdb response_code=%d", payload.ResponseCode)
	}
	return payload.Results, nil
}
