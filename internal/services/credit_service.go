package services

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"github.com/brandforge/api/internal/domain"
	"github.com/brandforge/api/internal/repositories"
)

// CreditServiceDeps bundles collaborators required to construct a credit service instance.
type CreditServiceDeps struct {
	Repository      repositories.AccountRepository
	RefundOnFailure bool
}

type creditService struct {
	repo            repositories.AccountRepository
	refundOnFailure bool
}

// NewCreditService constructs the service implementing the credit ledger on top of the repository.
func NewCreditService(deps CreditServiceDeps) (CreditService, error) {
	if deps.Repository == nil {
		return nil, errors.New("credit service: repository is required")
	}
	return &creditService{
		repo:            deps.Repository,
		refundOnFailure: deps.RefundOnFailure,
	}, nil
}

// Cost prices the request. Unknown and free types stay at zero so a mistyped
// type never deducts; the vision surcharge only applies on top of a positive base.
func (s *creditService) Cost(req domain.GenerationRequest) int {
	base := baseCost(req.Type, req.Payload.Options)
	if base > 0 && req.Payload.HasImage() {
		base++
	}
	return base
}

func (s *creditService) Deduct(ctx context.Context, uid string, cost int, profile domain.NewAccountProfile) error {
	if cost == 0 {
		return nil
	}
	_, err := s.repo.DeductCredits(ctx, uid, cost, profile)
	if err != nil {
		var insufficient *repositories.InsufficientCreditsError
		if errors.As(err, &insufficient) {
			return &InsufficientCreditsError{Required: insufficient.Required, Available: insufficient.Available}
		}
		return err
	}
	return nil
}

func (s *creditService) Refund(ctx context.Context, uid string, cost int) error {
	if cost == 0 {
		return nil
	}
	return s.repo.RefundCredits(ctx, uid, cost)
}

func (s *creditService) RefundOnFailure() bool {
	return s.refundOnFailure
}

func baseCost(contentType domain.ContentType, options map[string]any) int {
	switch contentType {
	case domain.ContentTypeCaption, domain.ContentTypeIdea, domain.ContentTypeTweet,
		domain.ContentTypeVideoScript, domain.ContentTypeSmartImage:
		return 1
	case domain.ContentTypePost:
		return numVariations(options)
	case domain.ContentTypeImage:
		return 2
	default:
		return 0
	}
}

func numVariations(options map[string]any) int {
	if n, ok := optionInt(options, "numVariations"); ok && n > 0 {
		return n
	}
	return 1
}

// optionInt reads a numeric option that may arrive as a JSON number, a Go int,
// or a numeric string.
func optionInt(options map[string]any, key string) (int, bool) {
	if options == nil {
		return 0, false
	}
	switch v := options[key].(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0, false
		}
		return int(n), true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}
