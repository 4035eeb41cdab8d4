package repositories

import (
	"context"

	"github.com/brandforge/api/internal/domain"
)

// RepositoryError wraps low-level persistence failures with categorisation used by services.
type RepositoryError interface {
	error
	IsNotFound() bool
	IsConflict() bool
	IsUnavailable() bool
}

// AccountRepository persists per-user credit balances and brand profiles under brands/{uid}.
type AccountRepository interface {
	// DeductCredits atomically subtracts cost from the account balance,
	// provisioning a default account for first-time users inside the same
	// transaction. It returns InsufficientCreditsError when the balance
	// cannot cover the cost; in that case nothing is written, including the
	// staged first-time account.
	DeductCredits(ctx context.Context, uid string, cost int, profile domain.NewAccountProfile) (domain.Account, error)

	// RefundCredits returns cost to the balance after a failed generation.
	// Only called when the refund-on-failure policy is enabled.
	RefundCredits(ctx context.Context, uid string, cost int) error

	// GetBrandContext loads the brand personalisation fields for the uid.
	GetBrandContext(ctx context.Context, uid string) (domain.BrandContext, error)
}

// HealthRepository reports readiness of the backing document store.
type HealthRepository interface {
	Ping(ctx context.Context) error
}
