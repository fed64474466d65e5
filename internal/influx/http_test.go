package influx

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/basekick-labs/fluxcopy/internal/config"
	"github.com/basekick-labs/fluxcopy/internal/flux"
	"github.com/basekick-labs/fluxcopy/pkg/models"
	"github.com/klauspost/compress/gzip"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(url string) *HTTPClient {
	return NewHTTPClient(&config.InfluxConfig{
		URL:       url,
		Org:       "my-org",
		Token:     "secret-token",
		TimeoutMS: 5000,
	}, zerolog.Nop())
}

func testQuerySpec() flux.QuerySpec {
	start, _ := time.Parse(time.RFC3339, "2025-01-01T00:00:00Z")
	return flux.QuerySpec{Bucket: "plant", Start: start, Stop: start.Add(6 * time.Hour)}
}

func TestQueryStreamRequest(t *testing.T) {
	var gotPath, gotAuth, gotAccept string
	var gotBody map[string]interface{}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path + "?" + r.URL.RawQuery
		gotAuth = r.Header.Get("Authorization")
		gotAccept = r.Header.Get("Accept")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusOK)
		io.WriteString(w, sampleCSV)
	}))
	defer server.Close()

	c := testClient(server.URL)
	defer c.Close()

	stream, err := c.QueryStream(context.Background(), testQuerySpec())
	require.NoError(t, err)
	defer stream.Close()

	assert.Equal(t, "/api/v2/query?org=my-org", gotPath)
	assert.Equal(t, "Token secret-token", gotAuth)
	assert.Equal(t, "application/csv", gotAccept)
	assert.Equal(t, "flux", gotBody["type"])
	assert.Contains(t, gotBody["query"], `from(bucket: "plant")`)

	var count int
	for stream.Next() {
		count++
	}
	require.NoError(t, stream.Err())
	assert.Equal(t, 2, count)
}

func TestQueryStreamHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		io.WriteString(w, `{"message":"unauthorized access"}`)
	}))
	defer server.Close()

	c := testClient(server.URL)
	defer c.Close()

	_, err := c.QueryStream(context.Background(), testQuerySpec())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unauthorized access")
}

func TestWritePointsGzipLineProtocol(t *testing.T) {
	var gotQuery, gotEncoding, body string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		gotEncoding = r.Header.Get("Content-Encoding")
		zr, err := gzip.NewReader(r.Body)
		require.NoError(t, err)
		data, err := io.ReadAll(zr)
		require.NoError(t, err)
		body = string(data)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	c := testClient(server.URL)
	defer c.Close()

	ts, _ := time.Parse(time.RFC3339, "2025-01-01T01:00:00Z")
	err := c.WritePoints(context.Background(), "plant", []*models.Point{
		{Measurement: "control", Field: "temp", Value: 21.5, Time: ts, Tags: map[string]string{"id": "control_LHT_1"}},
		{Measurement: "control", Field: "temp", Value: 22.1, Time: ts.Add(time.Minute), Tags: map[string]string{"id": "control_LHT_2"}},
	})
	require.NoError(t, err)

	assert.Equal(t, "org=my-org&bucket=plant&precision=ns", gotQuery)
	assert.Equal(t, "gzip", gotEncoding)

	lines := strings.Split(strings.TrimRight(body, "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "control,id=control_LHT_1 temp=21.5 1735693200000000000", lines[0])
}

func TestWritePointsEmptyBatchIsNoop(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer server.Close()

	c := testClient(server.URL)
	defer c.Close()

	require.NoError(t, c.WritePoints(context.Background(), "plant", nil))
	assert.False(t, called)
}

func TestWritePointsHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		io.WriteString(w, "bucket not found")
	}))
	defer server.Close()

	c := testClient(server.URL)
	defer c.Close()

	ts := time.Now()
	err := c.WritePoints(context.Background(), "missing", []*models.Point{
		{Measurement: "m", Field: "f", Value: 1.0, Time: ts},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bucket not found")
}

func TestBasicAuth(t *testing.T) {
	var user, pass string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, _ = r.BasicAuth()
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	c := NewHTTPClient(&config.InfluxConfig{
		URL:       server.URL,
		Org:       "my-org",
		Token:     "admin:hunter2",
		AuthBasic: true,
		TimeoutMS: 5000,
	}, zerolog.Nop())
	defer c.Close()

	stream, err := c.QueryStream(context.Background(), testQuerySpec())
	require.NoError(t, err)
	stream.Close()

	assert.Equal(t, "admin", user)
	assert.Equal(t, "hunter2", pass)
}
