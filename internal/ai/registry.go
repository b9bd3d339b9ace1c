package ai

import (
	"context"
	"fmt"
	"sync"

	"github.com/mrz1836/inkwell/internal/domain"
	inkerrors "github.com/mrz1836/inkwell/internal/errors"
)

// Service is one registered AI service: its descriptor data, the models it
// offers, and the backend that talks to it.
type Service struct {
	Slug         string
	DisplayName  string
	Capabilities domain.CapabilitySet
	Models       []domain.ModelDescriptor
	Backend      Backend
}

// Provider is the provider registry seen by the resolver and client.
type Provider interface {
	// Loaded reports whether the registry has been populated.
	Loaded() bool

	// ListAvailableServices returns a descriptor for every registered service
	// in registration order, with availability queried fresh.
	ListAvailableServices(ctx context.Context) []domain.ServiceDescriptor

	// ServiceMetadata returns display metadata for a slug.
	ServiceMetadata(slug string) (domain.ServiceMetadata, error)

	// Lookup returns the registered service for a slug.
	Lookup(slug string) (Service, error)
}

// ServiceRegistry is an ordered, thread-safe registry of AI services.
// Registration order is the resolver's tie-break order.
type ServiceRegistry struct {
	mu       sync.RWMutex
	order    []string
	services map[string]Service
	loaded   bool
}

// NewServiceRegistry creates a new empty service registry.
func NewServiceRegistry() *ServiceRegistry {
	return &ServiceRegistry{
		services: make(map[string]Service),
	}
}

// Register adds a service. Registering an existing slug replaces the service
// but keeps its original position.
func (r *ServiceRegistry) Register(svc Service) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.services[svc.Slug]; !ok {
		r.order = append(r.order, svc.Slug)
	}
	r.services[svc.Slug] = svc
}

// MarkLoaded flags the registry as populated. Readiness waits block until
// this is called.
func (r *ServiceRegistry) MarkLoaded() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loaded = true
}

// Loaded reports whether MarkLoaded has been called.
func (r *ServiceRegistry) Loaded() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.loaded
}

// Lookup retrieves the service for a slug.
// Returns ErrServiceNotFound if no service is registered under it.
func (r *ServiceRegistry) Lookup(slug string) (Service, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	svc, ok := r.services[slug]
	if !ok {
		return Service{}, fmt.Errorf("%w: %s", inkerrors.ErrServiceNotFound, slug)
	}
	return svc, nil
}

// ServiceMetadata returns the display metadata for a slug.
func (r *ServiceRegistry) ServiceMetadata(slug string) (domain.ServiceMetadata, error) {
	svc, err := r.Lookup(slug)
	if err != nil {
		return domain.ServiceMetadata{}, err
	}
	name := svc.DisplayName
	if name == "" {
		name = svc.Slug
	}
	return domain.ServiceMetadata{DisplayName: name}, nil
}

// Slugs returns all registered slugs in registration order.
func (r *ServiceRegistry) Slugs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// ListAvailableServices returns descriptors in registration order. The lock
// is released before backends are asked for availability.
func (r *ServiceRegistry) ListAvailableServices(ctx context.Context) []domain.ServiceDescriptor {
	r.mu.RLock()
	services := make([]Service, 0, len(r.order))
	for _, slug := range r.order {
		services = append(services, r.services[slug])
	}
	r.mu.RUnlock()

	out := make([]domain.ServiceDescriptor, 0, len(services))
	for _, svc := range services {
		name := svc.DisplayName
		if name == "" {
			name = svc.Slug
		}
		out = append(out, domain.ServiceDescriptor{
			Slug:         svc.Slug,
			DisplayName:  name,
			Available:    available(ctx, svc.Backend),
			Capabilities: svc.Capabilities,
		})
	}
	return out
}

func available(ctx context.Context, b Backend) bool {
	if b == nil {
		return false
	}
	if ar, ok := b.(AvailabilityReporter); ok {
		return ar.Available(ctx)
	}
	return true
}

// Compile-time check that ServiceRegistry implements Provider.
var _ Provider = (*ServiceRegistry)(nil)
