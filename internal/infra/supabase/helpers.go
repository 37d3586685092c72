package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"
)

// ============================================================
// HTTP helpers for GET, POST, PATCH, DELETE
// ============================================================

const (
	preferRepresentation = "return=representation"
	preferMinimal        = "return=minimal"
)

// send executes an authenticated PostgREST request. A 404 or 204 answer
// yields a nil body and no error.
func (c *Client) send(ctx context.Context, method, path string, data any, prefer string) ([]byte, error) {
	endpoint := fmt.Sprintf("%s/rest/v1/%s", c.baseURL, path)

	var body *bytes.Reader
	if data != nil {
		jsonBody, err := json.Marshal(data)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(jsonBody)
	}

	var req *http.Request
	var err error
	if body != nil {
		req, err = http.NewRequestWithContext(ctx, method, endpoint, body)
	} else {
		req, err = http.NewRequestWithContext(ctx, method, endpoint, nil)
	}
	if err != nil {
		c.logger.Error("supabase: failed to create request",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err),
		)
		return nil, err
	}

	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.serviceRoleKey))
	req.Header.Set("Content-Type", "application/json")
	if prefer != "" {
		req.Header.Set("Prefer", prefer)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("supabase: request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err),
		)
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := readBody(resp)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusNoContent {
		return nil, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn("supabase: non-2xx response",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.String("body", string(respBody)),
		)
		apiErr := &apiError{Status: resp.StatusCode}
		_ = json.Unmarshal(respBody, apiErr)
		return nil, apiErr
	}

	c.logger.Debug("supabase: request OK",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
	)
	return respBody, nil
}

func (c *Client) doRequest(ctx context.Context, method, path string) ([]byte, error) {
	return c.send(ctx, method, path, nil, preferRepresentation)
}

func (c *Client) doPost(ctx context.Context, table string, data map[string]any) ([]byte, error) {
	return c.send(ctx, http.MethodPost, table, data, preferRepresentation)
}

func (c *Client) doPatch(ctx context.Context, path string, data map[string]any) ([]byte, error) {
	return c.send(ctx, http.MethodPatch, path, data, preferRepresentation)
}

func (c *Client) doDelete(ctx context.Context, path string) ([]byte, error) {
	return c.send(ctx, http.MethodDelete, path, nil, preferRepresentation)
}

func readBody(resp *http.Response) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// eq renders a PostgREST equality filter.
func eq(column, value string) string {
	return column + "=eq." + url.QueryEscape(value)
}

// in renders a PostgREST set filter; values are quoted so commas and
// parentheses inside ids cannot break the list.
func in(column string, values []string) string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = `"` + strings.ReplaceAll(v, `"`, `\"`) + `"`
	}
	return column + "=in.(" + url.QueryEscape(strings.Join(quoted, ",")) + ")"
}

// countRows returns the length of a JSON array body.
func countRows(body []byte) int {
	if len(body) == 0 {
		return 0
	}
	var rows []json.RawMessage
	if err := json.Unmarshal(body, &rows); err != nil {
		return 0
	}
	return len(rows)
}
