package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/brandforge/api/internal/domain"
	pfirestore "github.com/brandforge/api/internal/platform/firestore"
	"github.com/brandforge/api/internal/repositories"
)

const brandsCollection = "brands"

type brandDocument struct {
	Email       string    `firestore:"email,omitempty"`
	Name        string    `firestore:"name,omitempty"`
	Credits     int       `firestore:"credits"`
	CreditsUsed int       `firestore:"creditsUsed"`
	Plan        string    `firestore:"plan"`
	Onboarded   bool      `firestore:"onboarded"`
	CreatedAt   time.Time `firestore:"createdAt"`

	BrandName      string `firestore:"brandName,omitempty"`
	Industry       string `firestore:"industry,omitempty"`
	BrandTone      string `firestore:"brandTone,omitempty"`
	TargetAudience string `firestore:"targetAudience,omitempty"`
}

// AccountRepository implements repositories.AccountRepository backed by Firestore transactions.
type AccountRepository struct {
	provider      *pfirestore.Provider
	brands        *pfirestore.BaseRepository[brandDocument]
	startingGrant int
}

// Option customises AccountRepository behaviour.
type Option func(*AccountRepository)

// WithStartingGrant overrides the balance provisioned for first-time accounts.
func WithStartingGrant(credits int) Option {
	return func(r *AccountRepository) {
		if credits >= 0 {
			r.startingGrant = credits
		}
	}
}

// NewAccountRepository constructs a Firestore-backed account repository.
func NewAccountRepository(provider *pfirestore.Provider, opts ...Option) (*AccountRepository, error) {
	if provider == nil {
		return nil, errors.New("account repository requires firestore provider")
	}
	base := pfirestore.NewBaseRepository[brandDocument](provider, brandsCollection, nil)
	repo := &AccountRepository{
		provider:      provider,
		brands:        base,
		startingGrant: domain.DefaultStartingCredits,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(repo)
		}
	}
	return repo, nil
}

// DeductCredits atomically subtracts cost from the balance stored under
// brands/{uid}. A missing document is provisioned with the default grant
// inside the same transaction, so an aborted deduction leaves no account
// behind at all.
func (r *AccountRepository) DeductCredits(ctx context.Context, uid string, cost int, profile domain.NewAccountProfile) (domain.Account, error) {
	if r == nil || r.provider == nil {
		return domain.Account{}, errors.New("account repository not initialised")
	}
	id := strings.TrimSpace(uid)
	if id == "" {
		return domain.Account{}, repositories.NewAccountError(repositories.AccountErrorInvalidInput, "uid is required", nil)
	}
	if cost <= 0 {
		return domain.Account{}, repositories.NewAccountError(repositories.AccountErrorInvalidInput, fmt.Sprintf("cost must be positive, got %d", cost), nil)
	}

	now := time.Now().UTC()
	var account domain.Account

	err := r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		ref, err := r.brands.DocumentRef(ctx, id)
		if err != nil {
			return err
		}

		snapshot, err := tx.Get(ref)
		switch status.Code(err) {
		case codes.NotFound:
			if r.startingGrant < cost {
				return &repositories.InsufficientCreditsError{Required: cost, Available: r.startingGrant}
			}
			doc := brandDocument{
				Email:       strings.TrimSpace(profile.Email),
				Name:        strings.TrimSpace(profile.Name),
				Credits:     r.startingGrant - cost,
				CreditsUsed: cost,
				Plan:        "free",
				Onboarded:   false,
				CreatedAt:   now,
			}
			if err := tx.Create(ref, doc); err != nil {
				return err
			}
			account = accountFromDocument(id, doc)
			return nil
		case codes.OK:
			// proceed
		default:
			return err
		}

		var doc brandDocument
		if err := snapshot.DataTo(&doc); err != nil {
			return fmt.Errorf("firestore brands decode %s: %w", id, err)
		}

		if doc.Credits < cost {
			return &repositories.InsufficientCreditsError{Required: cost, Available: doc.Credits}
		}

		doc.Credits -= cost
		doc.CreditsUsed += cost

		updates := []firestore.Update{
			{Path: "credits", Value: doc.Credits},
			{Path: "creditsUsed", Value: doc.CreditsUsed},
		}
		if err := tx.Update(ref, updates); err != nil {
			return err
		}
		account = accountFromDocument(id, doc)
		return nil
	})
	if err != nil {
		var insufficient *repositories.InsufficientCreditsError
		if errors.As(err, &insufficient) {
			return domain.Account{}, insufficient
		}
		var accountErr *repositories.AccountError
		if errors.As(err, &accountErr) {
			return domain.Account{}, accountErr
		}
		return domain.Account{}, pfirestore.WrapError("brands.deduct", err)
	}
	return account, nil
}

// RefundCredits adds cost back to the balance after a failed generation.
// Only meaningful when the refund-on-failure policy is enabled.
func (r *AccountRepository) RefundCredits(ctx context.Context, uid string, cost int) error {
	if r == nil || r.provider == nil {
		return errors.New("account repository not initialised")
	}
	id := strings.TrimSpace(uid)
	if id == "" {
		return repositories.NewAccountError(repositories.AccountErrorInvalidInput, "uid is required", nil)
	}
	if cost <= 0 {
		return repositories.NewAccountError(repositories.AccountErrorInvalidInput, fmt.Sprintf("cost must be positive, got %d", cost), nil)
	}

	err := r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		ref, err := r.brands.DocumentRef(ctx, id)
		if err != nil {
			return err
		}

		snapshot, err := tx.Get(ref)
		if err != nil {
			return err
		}

		var doc brandDocument
		if err := snapshot.DataTo(&doc); err != nil {
			return fmt.Errorf("firestore brands decode %s: %w", id, err)
		}

		refunded := cost
		if refunded > doc.CreditsUsed {
			refunded = doc.CreditsUsed
		}

		updates := []firestore.Update{
			{Path: "credits", Value: doc.Credits + refunded},
			{Path: "creditsUsed", Value: doc.CreditsUsed - refunded},
		}
		return tx.Update(ref, updates)
	})
	if err != nil {
		return pfirestore.WrapError("brands.refund", err)
	}
	return nil
}

// GetBrandContext loads the brand personalisation fields for the uid.
func (r *AccountRepository) GetBrandContext(ctx context.Context, uid string) (domain.BrandContext, error) {
	if r == nil || r.provider == nil {
		return domain.BrandContext{}, errors.New("account repository not initialised")
	}
	id := strings.TrimSpace(uid)
	if id == "" {
		return domain.BrandContext{}, repositories.NewAccountError(repositories.AccountErrorInvalidInput, "uid is required", nil)
	}

	doc, err := r.brands.Get(ctx, id)
	if err != nil {
		return domain.BrandContext{}, err
	}

	return domain.BrandContext{
		Name:     doc.Data.BrandName,
		Industry: doc.Data.Industry,
		Tone:     doc.Data.BrandTone,
		Audience: doc.Data.TargetAudience,
	}, nil
}

func accountFromDocument(uid string, doc brandDocument) domain.Account {
	return domain.Account{
		UID:         uid,
		Email:       doc.Email,
		Name:        doc.Name,
		Credits:     doc.Credits,
		CreditsUsed: doc.CreditsUsed,
		Plan:        doc.Plan,
		Onboarded:   doc.Onboarded,
		CreatedAt:   doc.CreatedAt,
	}
}
