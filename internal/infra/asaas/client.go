// Package asaas is the HTTP adapter for the Asaas payment provider
// (customers and payments APIs).
package asaas

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/boddenberg/workshop-registration-go/internal/domain"
	"github.com/boddenberg/workshop-registration-go/internal/infra/observability"
	"github.com/boddenberg/workshop-registration-go/internal/infra/resilience"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("asaas")

const breakerOpenDetail = "provedor de pagamento temporariamente indisponível, tente novamente em instantes"

// Environments reported by Credentials.Resolve.
const (
	EnvProduction = "production"
	EnvSandbox    = "sandbox"
)

// Credentials holds both API keys and their base URLs.
type Credentials struct {
	SandboxKey    string
	ProductionKey string
	SandboxURL    string
	ProductionURL string
}

// Resolve picks the production key when set, otherwise the sandbox key.
func (c Credentials) Resolve() (baseURL, apiKey, env string, err error) {
	switch {
	case c.ProductionKey != "":
		return strings.TrimRight(c.ProductionURL, "/"), c.ProductionKey, EnvProduction, nil
	case c.SandboxKey != "":
		return strings.TrimRight(c.SandboxURL, "/"), c.SandboxKey, EnvSandbox, nil
	}
	return "", "", "", &domain.ErrConfiguration{
		Setting: "ASAAS_API_KEY",
		Message: "no Asaas API key configured (production or sandbox)",
	}
}

// Client wraps HTTP calls to the Asaas v3 API. It never retries: the
// caller (or the provider's own webhook redelivery) decides.
type Client struct {
	httpClient *http.Client
	creds      Credentials
	cb         *gobreaker.CircuitBreaker
	metrics    *observability.Metrics
	logger     *zap.Logger
}

// NewClient creates an Asaas client.
func NewClient(httpClient *http.Client, creds Credentials, cb *gobreaker.CircuitBreaker, metrics *observability.Metrics, logger *zap.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		creds:      creds,
		cb:         cb,
		metrics:    metrics,
		logger:     logger,
	}
}

// Environment returns which key is in use, or "" when none is configured.
func (c *Client) Environment() string {
	_, _, env, err := c.creds.Resolve()
	if err != nil {
		return ""
	}
	return env
}

// statusError is a non-2xx answer. Only 5xx counts against the breaker.
type statusError struct {
	status int
	body   []byte
}

func (e *statusError) Error() string {
	return fmt.Sprintf("asaas returned status %d", e.status)
}

// IsSuccessful is the breaker's failure classifier: provider-side 4xx
// answers are business rejections, not outages.
func IsSuccessful(err error) bool {
	if err == nil {
		return true
	}
	var se *statusError
	return errors.As(err, &se) && se.status < http.StatusInternalServerError
}

// do executes an authenticated request and decodes a 2xx body into out.
func (c *Client) do(ctx context.Context, operation, method, path string, in, out any) error {
	ctx, span := tracer.Start(ctx, "Asaas."+operation)
	defer span.End()
	span.SetAttributes(
		attribute.String("http.method", method),
		attribute.String("asaas.path", path),
	)

	baseURL, apiKey, env, err := c.creds.Resolve()
	if err != nil {
		span.SetStatus(codes.Error, "missing credentials")
		return err
	}
	span.SetAttributes(attribute.String("asaas.env", env))

	var payload []byte
	if in != nil {
		payload, err = json.Marshal(in)
		if err != nil {
			return &domain.ErrProvider{Operation: operation, Err: fmt.Errorf("encode request: %w", err)}
		}
	}

	result, err := c.cb.Execute(func() (any, error) {
		var body io.Reader
		if payload != nil {
			body = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, baseURL+path, body)
		if err != nil {
			return nil, err
		}
		req.Header.Set("access_token", apiKey)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", "workshop-registration")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("read response: %w", err)
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, &statusError{status: resp.StatusCode, body: respBody}
		}
		return respBody, nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if c.metrics != nil {
			c.metrics.IncrExternalError("asaas")
		}

		if resilience.IsBreakerOpen(err) {
			c.logger.Warn("asaas: circuit open, request not sent",
				zap.String("operation", operation),
				zap.String("path", path),
			)
			return &domain.ErrProvider{Operation: operation, Detail: breakerOpenDetail, Err: err}
		}

		var se *statusError
		if errors.As(err, &se) {
			detail := providerDetail(se.body)
			c.logger.Warn("asaas: non-2xx response",
				zap.String("operation", operation),
				zap.String("method", method),
				zap.String("path", path),
				zap.Int("status", se.status),
				zap.String("detail", detail),
			)
			if detail == "" {
				detail = se.Error()
			}
			return &domain.ErrProvider{Operation: operation, Detail: detail, Err: se}
		}

		c.logger.Error("asaas: request failed",
			zap.String("operation", operation),
			zap.String("path", path),
			zap.Error(err),
		)
		return &domain.ErrProvider{Operation: operation, Err: err}
	}

	body, _ := result.([]byte)
	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			return &domain.ErrProvider{Operation: operation, Err: fmt.Errorf("decode response: %w", err)}
		}
	}

	c.logger.Debug("asaas: request OK",
		zap.String("operation", operation),
		zap.String("path", path),
		zap.String("env", env),
	)
	return nil
}

// providerDetail joins errors[].description from an Asaas error body.
func providerDetail(body []byte) string {
	var er domain.AsaasErrorResponse
	if err := json.Unmarshal(body, &er); err != nil {
		return ""
	}
	parts := make([]string, 0, len(er.Errors))
	for _, e := range er.Errors {
		if e.Description != "" {
			parts = append(parts, e.Description)
		}
	}
	return strings.Join(parts, "; ")
}

// Ping reports whether credentials are configured. It does not call the
// provider, so readiness probes never consume API quota.
func (c *Client) Ping(_ context.Context) error {
	_, _, _, err := c.creds.Resolve()
	return err
}
