// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the domain/service
// layer from concrete implementations.
package port

import (
	"context"

	"github.com/boddenberg/workshop-registration-go/internal/domain"
)

// RegistrantStore persists registrants. Implemented by the Supabase
// (PostgREST) adapter and by the pgx adapter.
//
// Lookups return (nil, nil) when no row matches. Unique violations on
// email or CPF surface as *domain.ErrConflict.
type RegistrantStore interface {
	Insert(ctx context.Context, r *domain.Registrant) (*domain.Registrant, error)
	GetByID(ctx context.Context, id string) (*domain.Registrant, error)
	GetByField(ctx context.Context, field, value string) (*domain.Registrant, error)
	UpdateByID(ctx context.Context, id string, fields map[string]any) error
	UpdateByIDs(ctx context.Context, ids []string, fields map[string]any) (int, error)
	DeleteByIDs(ctx context.Context, ids []string) (int, error)
	ListAll(ctx context.Context, opts domain.ListOptions) ([]domain.Registrant, error)
	Pinger
}

// AdminStore reads admin credentials.
type AdminStore interface {
	GetAdminByEmail(ctx context.Context, email string) (*domain.AdminUser, error)
}

// PaymentProvider wraps the Asaas customer and payment APIs.
type PaymentProvider interface {
	FindCustomerByCPF(ctx context.Context, cpf string) (*domain.AsaasCustomer, error)
	CreateCustomer(ctx context.Context, c *domain.AsaasCustomer) (*domain.AsaasCustomer, error)
	UpdateCustomer(ctx context.Context, id string, c *domain.AsaasCustomer) (*domain.AsaasCustomer, error)
	GetCustomer(ctx context.Context, id string) (*domain.AsaasCustomer, error)
	CreatePayment(ctx context.Context, p *domain.AsaasPayment) (*domain.AsaasPayment, error)
}

// Notifier delivers registrant emails. Implementations must not block the
// caller on delivery; failures are logged, never returned.
type Notifier interface {
	NotifyRegistration(ctx context.Context, r *domain.Registrant)
}

// Pinger is implemented by dependencies that can report readiness.
type Pinger interface {
	Ping(ctx context.Context) error
}

// AttemptCounter counts events per key inside a time window.
type AttemptCounter interface {
	Get(key string) (int, bool)
	Update(key string, fn func(current int, found bool) int) int
	Delete(key string)
}
