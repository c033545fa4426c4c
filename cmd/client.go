package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/vesperhq/vesper/internal/api"
	"github.com/vesperhq/vesper/internal/knowledge"
)

// defaultServerURL matches the config defaults for serve.
const defaultServerURL = "http://127.0.0.1:8080"

// clientTimeout bounds one API call from the status and remove commands.
const clientTimeout = 30 * time.Second

// apiClient is a small client for the vesper HTTP API. The status and
// remove commands use it to talk to a running serve process instead of
// booting an engine of their own.
type apiClient struct {
	base string
	http *http.Client
}

func newAPIClient(base string) *apiClient {
	return &apiClient{
		base: strings.TrimRight(base, "/"),
		http: &http.Client{Timeout: clientTimeout},
	}
}

// clientEnvelope mirrors the API response wrapper. Exactly one of Data
// and Error is set.
type clientEnvelope struct {
	Data  json.RawMessage `json:"data"`
	Error *api.Error      `json:"error"`
}

// documentSummary mirrors the document listing shape served by the API.
type documentSummary struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	Kind      knowledge.Kind    `json:"kind"`
	Bytes     int               `json:"bytes"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	CreatedAt string            `json:"created_at"`
	Status    knowledge.Status  `json:"status"`
}

type documentList struct {
	Items []documentSummary `json:"items"`
	Total int               `json:"total"`
}

func (c *apiClient) stats(ctx context.Context) (knowledge.Stats, error) {
	var s knowledge.Stats
	err := c.call(ctx, http.MethodGet, "/api/v1/stats", &s)
	return s, err
}

func (c *apiClient) documents(ctx context.Context) (documentList, error) {
	var list documentList
	err := c.call(ctx, http.MethodGet, "/api/v1/documents", &list)
	return list, err
}

func (c *apiClient) documentStatus(ctx context.Context, id string) (knowledge.Status, error) {
	var st knowledge.Status
	err := c.call(ctx, http.MethodGet, "/api/v1/documents/"+url.PathEscape(id)+"/status", &st)
	return st, err
}

func (c *apiClient) remove(ctx context.Context, id string) error {
	return c.call(ctx, http.MethodDelete, "/api/v1/documents/"+url.PathEscape(id), nil)
}

// call performs one request and decodes the enveloped response into out
// (which may be nil when only success matters).
func (c *apiClient) call(ctx context.Context, method, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, nil)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("calling %s: %w (is vesper serve running?)", c.base, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	var env clientEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return fmt.Errorf("decoding response (HTTP %d): %w", resp.StatusCode, err)
	}
	if env.Error != nil {
		return fmt.Errorf("server error %d (%s): %s", env.Error.Status, env.Error.Code, env.Error.Message)
	}
	if out != nil {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("decoding payload: %w", err)
		}
	}
	return nil
}
