package opentdb

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"testing"
)

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

func newTestClient(difficulty string, rt http.RoundTripper) *Client {
	return NewClient("https://example.test/api.php", difficulty, &http.Client{Transport: rt})
}

func okBody(body string) *http.Response {
	return &http.Response{
		StatusCode: http.StatusOK,
		Body:       io.NopCloser(bytes.NewReader([]byte(body))),
		Header:     make(http.Header),
	}
}

func TestFetchUsesDefaultAmountWhenNonPositive(t *testing.T) {
	var seenAmount string
	client := newTestClient("", roundTripperFunc(func(r *http.Request) (*http.Response, error) {
		seenAmount = r.URL.Query().Get("amount")
		return okBody(`{"response_code":0,"results":[]}`), nil
	}))

	questions, err := client.Fetch(context.Background(), 0, 0)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(questions) != 0 {
		t.Fatalf("expected no questions, got %d", len(questions))
	}
	if seenAmount != "10" {
		t.Fatalf("expected default amount 10, got %q", seenAmount)
	}
}

func TestFetchSendsCategoryAndDifficulty(t *testing.T) {
	var seen map[string]string
	client := newTestClient("medium", roundTripperFunc(func(r *http.Request) (*http.Response, error) {
		seen = map[string]string{
			"category":   r.URL.Query().Get("category"),
			"difficulty": r.URL.Query().Get("difficulty"),
		}
		return okBody(`{"response_code":0,"results":[]}`), nil
	}))

	if _, err := client.Fetch(context.Background(), 23, 10); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if seen["category"] != "23" || seen["difficulty"] != "medium" {
		t.Fatalf("unexpected params %v", seen)
	}
}

func TestFetchOmitsDifficultyWithoutCategory(t *testing.T) {
	var query string
	client := newTestClient("medium", roundTripperFunc(func(r *http.Request) (*http.Response, error) {
		query = r.URL.RawQuery
		return okBody(`{"response_code":0,"results":[]}`), nil
	}))

	if _, err := client.Fetch(context.Background(), -1, 10); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if query != "amount=10" {
		t.Fatalf("expected bare amount query, got %q", query)
	}
}

func TestFetchPropagatesNonOKStatus(t *testing.T) {
	client := newTestClient("", roundTripperFunc(func(r *http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: http.StatusBadGateway,
			Body:       io.NopCloser(bytes.NewReader(nil)),
			Header:     make(http.Header),
		}, nil
	}))

	if _, err := client.Fetch(context.Background(), 0, 5); err == nil {
		t.Fatalf("expected error for non-200 status")
	}
}

func TestFetchNonZeroResponseCode(t *testing.T) {
	client := newTestClient("", roundTripperFunc(func(r *http.Request) (*http.Response, error) {
		return okBody(`{"response_code":1,"results":[{"question":"ignored"}]}`), nil
	}))

	if _, err := client.Fetch(context.Background(), 0, 3); err == nil {
		t.Fatalf("expected error for non-zero response_code")
	}
}
