package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/mediashelf/internal/domain"
)

func TestAPIClient_Do(t *testing.T) {
	var gotMethod, gotPath, gotType string
	var gotBody map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod, gotPath, gotType = r.Method, r.URL.Path, r.Header.Get("Content-Type")
		data, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(data, &gotBody)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"abc","status":"starting"}`))
	}))
	defer srv.Close()

	client := newAPIClient(srv.URL + "/")
	var rec domain.DownloadRecord
	err := client.do(http.MethodPost, "/api/v1/downloads", map[string]string{"url": "https://example.com"}, &rec)
	require.NoError(t, err)

	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "/api/v1/downloads", gotPath)
	assert.Equal(t, "application/json", gotType)
	assert.Equal(t, "https://example.com", gotBody["url"])
	assert.Equal(t, "abc", rec.ID)
	assert.Equal(t, domain.StatusStarting, rec.Status)
}

func TestAPIClient_ErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/json":
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":"download not found"}`))
		default:
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte("upstream down\n"))
		}
	}))
	defer srv.Close()

	client := newAPIClient(srv.URL)

	err := client.do(http.MethodGet, "/json", nil, nil)
	var apiErr *apiError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
	assert.Equal(t, "download not found", apiErr.Message)

	err = client.do(http.MethodGet, "/text", nil, nil)
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "upstream down", apiErr.Message)
}

func TestPrintRecords(t *testing.T) {
	title := "A very long title that will certainly not fit in the column"
	records := []domain.DownloadRecord{
		{ID: "0123456789", Status: domain.StatusDownloading, Progress: 42.3, Speed: "1MiB/s", ETA: "00:10", Title: &title, Timestamp: time.Now()},
		{ID: "short", Status: domain.StatusQueued, Speed: "0", ETA: "0", URL: "https://example.com/v"},
	}

	var buf bytes.Buffer
	printRecords(&buf, records)
	out := buf.String()

	assert.Contains(t, out, "ID")
	assert.Contains(t, out, "01234...")
	assert.Contains(t, out, "42.3%")
	assert.Contains(t, out, "A very long title that will certainly...")
	assert.Contains(t, out, "https://example.com/v")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 8))
	assert.Equal(t, "abcde...", truncate("abcdefghijk", 8))
	assert.Equal(t, "ääääə...", truncate("ääääəəəəəəə", 8))
}
