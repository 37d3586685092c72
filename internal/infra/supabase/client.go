// Package supabase provides a client for Supabase PostgREST.
// It is the default registrant store and holds the admin credentials.
package supabase

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/boddenberg/workshop-registration-go/internal/domain"
	"github.com/boddenberg/workshop-registration-go/internal/infra/observability"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("supabase")

const (
	tableRegistrants = "registrants"
	tableAdminUsers  = "admin_users"

	pgUniqueViolation = "23505"
)

// Client wraps HTTP calls to Supabase PostgREST API.
type Client struct {
	httpClient     *http.Client
	baseURL        string
	apiKey         string
	serviceRoleKey string
	cb             *gobreaker.CircuitBreaker
	metrics        *observability.Metrics
	logger         *zap.Logger
}

// NewClient creates a Supabase client.
func NewClient(httpClient *http.Client, baseURL, apiKey, serviceRoleKey string, cb *gobreaker.CircuitBreaker, metrics *observability.Metrics, logger *zap.Logger) *Client {
	if apiKey == "" {
		apiKey = serviceRoleKey
	}
	return &Client{
		httpClient:     httpClient,
		baseURL:        baseURL,
		apiKey:         apiKey,
		serviceRoleKey: serviceRoleKey,
		cb:             cb,
		metrics:        metrics,
		logger:         logger,
	}
}

// apiError is a non-2xx PostgREST answer.
type apiError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details"`
	Hint    string `json:"hint"`
}

func (e *apiError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("supabase returned status %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("supabase returned status %d", e.Status)
}

// IsSuccessful is the breaker's failure classifier: 4xx answers (constraint
// violations, bad filters) do not count as outages.
func IsSuccessful(err error) bool {
	if err == nil {
		return true
	}
	var ae *apiError
	return errors.As(err, &ae) && ae.Status < http.StatusInternalServerError
}

// execute runs fn through the breaker and maps failures to domain errors.
func (c *Client) execute(operation string, fn func() ([]byte, error)) ([]byte, error) {
	result, err := c.cb.Execute(func() (any, error) {
		return fn()
	})
	if err != nil {
		var ae *apiError
		if errors.As(err, &ae) && (ae.Code == pgUniqueViolation || ae.Status == http.StatusConflict) {
			return nil, domain.ConflictFromDetail(ae.Message + " " + ae.Details)
		}
		if c.metrics != nil {
			c.metrics.IncrExternalError("supabase")
		}
		return nil, &domain.ErrStore{Operation: operation, Err: err}
	}
	body, _ := result.([]byte)
	return body, nil
}

// Ping checks that the registrants table answers.
func (c *Client) Ping(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "Supabase.Ping")
	defer span.End()

	_, err := c.execute("ping", func() ([]byte, error) {
		return c.doRequest(ctx, http.MethodGet, tableRegistrants+"?select=id&limit=1")
	})
	return err
}
