package ai

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/mrz1836/inkwell/internal/domain"
	inkerrors "github.com/mrz1836/inkwell/internal/errors"
)

// Resolve selects a service for the required capabilities.
//
// The preferred service wins when it is available and covers the required
// set. Otherwise the first available service in registry order that covers
// the set is chosen. Resolve fails with ErrNoServiceAvailable when none qualifies.
func Resolve(services []domain.ServiceDescriptor, required domain.CapabilitySet, preferred string) (domain.ServiceDescriptor, error) {
	if preferred != "" {
		for _, svc := range services {
			if svc.Slug == preferred && svc.Supports(required) {
				return svc, nil
			}
		}
	}
	for _, svc := range services {
		if svc.Supports(required) {
			return svc, nil
		}
	}
	return domain.ServiceDescriptor{}, fmt.Errorf("%w: requires %s", inkerrors.ErrNoServiceAvailable, required)
}

// Resolver resolves services against a live provider registry, waiting for
// the registry to load first.
type Resolver struct {
	provider  Provider
	readiness ReadinessOptions
	logger    zerolog.Logger
}

// NewResolver creates a Resolver over provider.
func NewResolver(provider Provider, readiness ReadinessOptions, logger zerolog.Logger) *Resolver {
	return &Resolver{
		provider:  provider,
		readiness: readiness.withDefaults(),
		logger:    logger.With().Str("component", "resolver").Logger(),
	}
}

// Resolve waits for the provider, takes a fresh service snapshot, and selects
// a service. A fallback away from the preferred service is logged.
func (r *Resolver) Resolve(ctx context.Context, required domain.CapabilitySet, preferred string) (domain.ServiceDescriptor, error) {
	if err := WaitForProvider(ctx, r.provider, r.readiness); err != nil {
		return domain.ServiceDescriptor{}, err
	}

	services := r.provider.ListAvailableServices(ctx)
	svc, err := Resolve(services, required, preferred)
	if err != nil {
		r.logger.Warn().
			Str("required", required.String()).
			Str("preferred", preferred).
			Int("services", len(services)).
			Msg("no service available")
		return domain.ServiceDescriptor{}, err
	}

	if preferred != "" && svc.Slug != preferred {
		r.logger.Info().
			Str("preferred", preferred).
			Str("service", svc.Slug).
			Str("required", required.String()).
			Msg("preferred service unavailable, falling back")
	}
	return svc, nil
}

// Provider returns the registry the resolver reads from.
func (r *Resolver) Provider() Provider {
	return r.provider
}
