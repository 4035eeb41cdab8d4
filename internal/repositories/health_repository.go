package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

const defaultDependencyTimeout = 1500 * time.Millisecond

// DependencyCheck describes a dependency probe executed during readiness checks.
type DependencyCheck struct {
	Name    string
	Timeout time.Duration
	Check   func(context.Context) error
}

type dependencyHealthRepository struct {
	checks         []DependencyCheck
	defaultTimeout time.Duration
}

var _ HealthRepository = (*dependencyHealthRepository)(nil)

// NewDependencyHealthRepository constructs a HealthRepository that evaluates the provided check set.
func NewDependencyHealthRepository(checks []DependencyCheck) (HealthRepository, error) {
	if len(checks) == 0 {
		return nil, errors.New("health repository: at least one dependency check is required")
	}
	for _, check := range checks {
		if strings.TrimSpace(check.Name) == "" {
			return nil, errors.New("health repository: dependency check requires a name")
		}
		if check.Check == nil {
			return nil, fmt.Errorf("health repository: check %s missing probe function", check.Name)
		}
	}
	return &dependencyHealthRepository{
		checks:         checks,
		defaultTimeout: defaultDependencyTimeout,
	}, nil
}

// Ping runs every dependency probe and returns the first failure encountered.
func (r *dependencyHealthRepository) Ping(ctx context.Context) error {
	for _, check := range r.checks {
		timeout := check.Timeout
		if timeout <= 0 {
			timeout = r.defaultTimeout
		}
		probeCtx, cancel := context.WithTimeout(ctx, timeout)
		err := check.Check(probeCtx)
		cancel()
		if err != nil {
			return fmt.Errorf("health repository: %s: %w", check.Name, err)
		}
	}
	return nil
}
