package influx

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/basekick-labs/fluxcopy/internal/config"
	"github.com/basekick-labs/fluxcopy/internal/flux"
	"github.com/basekick-labs/fluxcopy/pkg/models"
	"github.com/klauspost/compress/gzip"
	"github.com/rs/zerolog"
)

// HTTPClient talks to one InfluxDB v2 instance over its HTTP API: Flux
// queries with an annotated CSV response, and gzip-compressed line protocol
// writes. One client per instance, held for the whole run.
type HTTPClient struct {
	baseURL    string
	org        string
	token      string
	authBasic  bool
	httpClient *http.Client
	logger     zerolog.Logger
}

// queryRequest is the /api/v2/query request body. The dialect asks for the
// annotations the CSV decoder needs to type values.
type queryRequest struct {
	Query   string       `json:"query"`
	Type    string       `json:"type"`
	Dialect queryDialect `json:"dialect"`
}

type queryDialect struct {
	Annotations []string `json:"annotations"`
	Header      bool     `json:"header"`
	Delimiter   string   `json:"delimiter"`
}

// NewHTTPClient builds a client from an .influx.toml config. The connection
// pool size and timeout knobs map onto the underlying http.Transport.
func NewHTTPClient(cfg *config.InfluxConfig, logger zerolog.Logger) *HTTPClient {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.ConnectionPoolMaxSize > 0 {
		transport.MaxIdleConnsPerHost = cfg.ConnectionPoolMaxSize
		transport.MaxConnsPerHost = cfg.ConnectionPoolMaxSize
	}

	return &HTTPClient{
		baseURL:   strings.TrimRight(cfg.URL, "/"),
		org:       cfg.Org,
		token:     cfg.Token,
		authBasic: cfg.AuthBasic,
		httpClient: &http.Client{
			Timeout:   time.Duration(cfg.TimeoutMS) * time.Millisecond,
			Transport: transport,
		},
		logger: logger.With().Str("component", "influx-client").Str("url", cfg.URL).Logger(),
	}
}

// QueryStream submits the window's Flux query and returns a lazy stream over
// the annotated CSV response.
func (c *HTTPClient) QueryStream(ctx context.Context, spec flux.QuerySpec) (RecordStream, error) {
	script := spec.Build()
	c.logger.Debug().Str("flux", script).Msg("Built flux query")

	body, err := json.Marshal(queryRequest{
		Query: script,
		Type:  "flux",
		Dialect: queryDialect{
			Annotations: []string{"datatype", "group", "default"},
			Header:      true,
			Delimiter:   ",",
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal query request: %w", err)
	}

	url := fmt.Sprintf("%s/api/v2/query?org=%s", c.baseURL, c.org)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create query request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/csv")
	c.setAuth(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("query request failed: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, fmt.Errorf("query failed: %s: %s", resp.Status, readErrorBody(resp.Body))
	}

	return newCSVStream(resp.Body), nil
}

// WritePoints sends one batch of points as gzip-compressed line protocol.
// There is no partial-batch recovery: any failure aborts the run.
func (c *HTTPClient) WritePoints(ctx context.Context, bucket string, points []*models.Point) error {
	if len(points) == 0 {
		return nil
	}

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	for _, p := range points {
		if _, err := io.WriteString(zw, p.LineProtocol()); err != nil {
			return fmt.Errorf("failed to encode points: %w", err)
		}
		if _, err := zw.Write([]byte{'\n'}); err != nil {
			return fmt.Errorf("failed to encode points: %w", err)
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("failed to compress points: %w", err)
	}

	url := fmt.Sprintf("%s/api/v2/write?org=%s&bucket=%s&precision=ns", c.baseURL, c.org, bucket)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &buf)
	if err != nil {
		return fmt.Errorf("failed to create write request: %w", err)
	}
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	req.Header.Set("Content-Encoding", "gzip")
	c.setAuth(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("write request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("write failed: %s: %s", resp.Status, readErrorBody(resp.Body))
	}

	c.logger.Debug().Int("points", len(points)).Str("bucket", bucket).Msg("Batch written")
	return nil
}

// setAuth attaches credentials. auth_basic configs carry user:password in
// the token field; everything else uses the standard Token scheme.
func (c *HTTPClient) setAuth(req *http.Request) {
	if c.authBasic {
		user, pass, _ := strings.Cut(c.token, ":")
		req.SetBasicAuth(user, pass)
		return
	}
	req.Header.Set("Authorization", "Token "+c.token)
}

// readErrorBody pulls a bounded chunk of an error response for diagnostics.
func readErrorBody(r io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(r, 512))
	if err != nil || len(data) == 0 {
		return "(no response body)"
	}
	return strings.TrimSpace(string(data))
}

// Close releases idle connections held by the transport.
func (c *HTTPClient) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}
