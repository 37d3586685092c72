// Package mailer sends registrant emails over SMTP (go-mail). Delivery is
// fire-and-forget by default: sends run in background goroutines bounded by
// a bulkhead and retried with backoff. WithSyncDelivery sends inline for
// runtimes that freeze the process once the response is written.
package mailer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/boddenberg/workshop-registration-go/internal/domain"
	"github.com/boddenberg/workshop-registration-go/internal/infra/observability"
	"github.com/boddenberg/workshop-registration-go/internal/infra/resilience"

	"github.com/wneessen/go-mail"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("mailer")

const sendTimeout = 30 * time.Second

// Sender delivers one message.
type Sender interface {
	Send(ctx context.Context, msg *mail.Msg) error
}

// SMTPConfig holds the SMTP relay settings.
type SMTPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
}

type smtpSender struct {
	client *mail.Client
}

// NewSMTPSender builds a go-mail client. Authentication is enabled when a
// user is configured.
func NewSMTPSender(cfg SMTPConfig) (Sender, error) {
	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
		mail.WithTimeout(sendTimeout),
	}
	if cfg.User != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.User),
			mail.WithPassword(cfg.Password),
		)
	}
	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("create smtp client: %w", err)
	}
	return &smtpSender{client: client}, nil
}

func (s *smtpSender) Send(ctx context.Context, msg *mail.Msg) error {
	return s.client.DialAndSendWithContext(ctx, msg)
}

// Mailer implements port.Notifier.
type Mailer struct {
	sender   Sender
	from     string
	event    string
	bulkhead *resilience.Bulkhead
	retry    resilience.Config
	metrics  *observability.Metrics
	logger   *zap.Logger
	wg       sync.WaitGroup

	syncTimeout time.Duration
}

// Option configures a Mailer.
type Option func(*Mailer)

// WithSyncDelivery makes NotifyRegistration deliver before returning,
// bounded by timeout. Failures are still logged, never returned.
func WithSyncDelivery(timeout time.Duration) Option {
	return func(m *Mailer) {
		m.syncTimeout = timeout
	}
}

// New creates a Mailer. event names the workshop in subjects.
func New(sender Sender, from, event string, retry resilience.Config, metrics *observability.Metrics, logger *zap.Logger, opts ...Option) *Mailer {
	m := &Mailer{
		sender:   sender,
		from:     from,
		event:    event,
		bulkhead: resilience.NewBulkhead(retry.MaxConcurrency),
		retry:    retry,
		metrics:  metrics,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// BuildRegistrationMessage renders the confirmation email for r.
func BuildRegistrationMessage(from, event string, r *domain.Registrant) (*mail.Msg, error) {
	m := mail.NewMsg()
	if err := m.From(from); err != nil {
		return nil, fmt.Errorf("invalid sender: %w", err)
	}
	if err := m.To(r.Email); err != nil {
		return nil, fmt.Errorf("invalid recipient: %w", err)
	}
	m.Subject(fmt.Sprintf(registrationSubject, event))
	if err := m.SetBodyTextTemplate(registrationText, r); err != nil {
		return nil, fmt.Errorf("render text body: %w", err)
	}
	if err := m.AddAlternativeHTMLTemplate(registrationHTML, r); err != nil {
		return nil, fmt.Errorf("render html body: %w", err)
	}
	return m, nil
}

// NotifyRegistration queues the confirmation email and returns immediately.
// When every slot is busy the email is dropped and logged. With sync
// delivery it waits for a slot and the send instead.
func (m *Mailer) NotifyRegistration(ctx context.Context, r *domain.Registrant) {
	if m.syncTimeout > 0 {
		m.notifySync(ctx, r)
		return
	}

	if !m.bulkhead.TryAcquire() {
		m.logger.Warn("mailer: bulkhead full, confirmation email dropped",
			zap.String("registrant_id", r.ID),
		)
		m.record("dropped")
		return
	}

	reg := *r
	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sendTimeout*time.Duration(m.retry.MaxRetries+1))

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer m.bulkhead.Release()
		defer cancel()
		m.deliver(sendCtx, &reg)
	}()
}

func (m *Mailer) notifySync(ctx context.Context, r *domain.Registrant) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.syncTimeout)
	defer cancel()

	if err := m.bulkhead.Acquire(ctx); err != nil {
		m.logger.Warn("mailer: no slot before timeout, confirmation email dropped",
			zap.String("registrant_id", r.ID),
			zap.Error(err),
		)
		m.record("dropped")
		return
	}
	defer m.bulkhead.Release()
	m.deliver(ctx, r)
}

func (m *Mailer) deliver(ctx context.Context, r *domain.Registrant) {
	if err := m.sendRegistration(ctx, r); err != nil {
		m.logger.Error("mailer: confirmation email failed",
			zap.String("registrant_id", r.ID),
			zap.Error(err),
		)
		m.record("failed")
		return
	}
	m.logger.Info("mailer: confirmation email sent", zap.String("registrant_id", r.ID))
	m.record("sent")
}

func (m *Mailer) sendRegistration(ctx context.Context, r *domain.Registrant) error {
	ctx, span := tracer.Start(ctx, "Mailer.SendRegistration")
	defer span.End()
	span.SetAttributes(attribute.String("registrant.id", r.ID))

	msg, err := BuildRegistrationMessage(m.from, m.event, r)
	if err != nil {
		span.RecordError(err)
		return err
	}

	err = resilience.RetryWithBackoff(ctx, m.retry, func() error {
		err := m.sender.Send(ctx, msg)
		var sendErr *mail.SendError
		if errors.As(err, &sendErr) && !sendErr.IsTemp() {
			return resilience.Permanent(err)
		}
		return err
	})
	if err != nil {
		span.RecordError(err)
	}
	return err
}

// Wait blocks until queued sends finish or ctx ends.
func (m *Mailer) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Mailer) record(outcome string) {
	if m.metrics != nil {
		m.metrics.IncrEmail(outcome)
	}
}

// Noop discards notifications; used only when email is explicitly disabled.
type Noop struct {
	Logger *zap.Logger
}

// NotifyRegistration logs and drops the notification.
func (n Noop) NotifyRegistration(_ context.Context, r *domain.Registrant) {
	if n.Logger != nil {
		n.Logger.Debug("mailer: email disabled, skipping confirmation email",
			zap.String("registrant_id", r.ID),
		)
	}
}
