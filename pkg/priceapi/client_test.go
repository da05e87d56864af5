package priceapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearch(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		vintage    *int
		wantQuery  string
		wantStatus int
	}{
		{
			name:       "success",
			status:     http.StatusOK,
			body:       `{"results": [{"name": "Barolo", "price_average": 85.0}]}`,
			vintage:    intPtr(2016),
			wantStatus: http.StatusOK,
		},
		{
			name:       "rate_limited_passes_through",
			status:     http.StatusTooManyRequests,
			body:       `{"error": "quota exceeded"}`,
			wantStatus: http.StatusTooManyRequests,
		},
		{
			name:       "not_found_passes_through",
			status:     http.StatusNotFound,
			body:       `{"error": "no match"}`,
			wantStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodGet, r.Method)
				assert.Equal(t, "/wines/search", r.URL.Path)
				assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
				assert.Equal(t, "Barolo Monfortino", r.URL.Query().Get("q"))
				assert.Equal(t, "EUR", r.URL.Query().Get("currency"))
				if tt.vintage != nil {
					assert.Equal(t, "2016", r.URL.Query().Get("vintage"))
				} else {
					assert.Empty(t, r.URL.Query().Get("vintage"))
				}

				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			client := NewClient("test-key", WithBaseURL(srv.URL))

			resp, err := client.Search(context.Background(), SearchRequest{
				Query:    "Barolo Monfortino",
				Vintage:  tt.vintage,
				Currency: "EUR",
			})

			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, resp.HTTPStatus)
			assert.JSONEq(t, tt.body, string(resp.Body))
		})
	}
}

func TestSearchTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close() // connection refused from here on

	client := NewClient("test-key", WithBaseURL(srv.URL))
	_, err := client.Search(context.Background(), SearchRequest{Query: "anything"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "send request")
}

func TestSearchTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL), WithTimeout(10*time.Millisecond))
	_, err := client.Search(context.Background(), SearchRequest{Query: "anything"})
	assert.Error(t, err)
}

func intPtr(v int) *int { return &v }
