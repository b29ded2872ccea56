// Package integration defines the small capability interfaces an
// integration can implement, and the registry that looks them up by name.
// Concrete integrations (weather, transit, media players, and the like) are
// external collaborators spec.md keeps out of core scope; this package only
// defines the contract the worker, webhook server, and cron registrar
// depend on.
package integration

import (
	"errors"
	"sync"

	"github.com/duskline/noteflap/pkg/noteflap/display"
	"github.com/duskline/noteflap/pkg/noteflap/message"
)

// ErrDataUnavailable is returned by a VariablesProvider when it has no
// current data to show — an expected empty state (nothing playing, no
// upcoming departures, auth pending). The worker skips the message silently
// rather than logging an error.
var ErrDataUnavailable = errors.New("integration: data unavailable")

// ErrMissingDependencies is returned when an integration is registered by
// name but its runtime prerequisites (an API key, a required package) are
// not available.
var ErrMissingDependencies = errors.New("integration: missing dependencies")

// VariablesProvider supplies the template variables for a message backed by
// an integration, re-evaluated at dispatch time and on every refresh tick.
type VariablesProvider interface {
	// GetVariables returns the fn-named provider function's variables. fn is
	// the content descriptor's integration_fn field, defaulting to
	// "GetVariables" when empty; an implementation with a single provider
	// function can ignore fn.
	GetVariables(fn string) (display.Variables, error)
}

// WebhookHandler lets an integration react to an inbound
// POST /webhook/<integration> request, returning a message to enqueue (or
// nil if the event produces no display update).
type WebhookHandler interface {
	HandleWebhook(body []byte, contentType string) (*message.WebhookMessage, error)
}

// Preflight lets an integration validate its own configuration (API keys,
// reachability). No command in this repository calls it: neither serve nor
// validate runs a preflight step.
type Preflight interface {
	Preflight() error
}

// Integration is the union of capabilities a concrete integration may
// implement; callers type-assert for the ones they need.
type Integration interface{}

// Factory lazily constructs an Integration the first time it is needed.
type Factory func() (Integration, error)

// Registry is an allowlist of known integration names mapped to lazily
// constructed, cached instances. The worker goroutine and every webhook
// request's own goroutine call Get concurrently, so the cache is guarded by
// a mutex, same discipline as message.Queue and boardstate.State.
type Registry struct {
	mu        sync.Mutex
	factories map[string]Factory
	cache     map[string]Integration
}

// NewRegistry returns a Registry allowing exactly the named integrations,
// each built on first use by the corresponding factory.
func NewRegistry(factories map[string]Factory) *Registry {
	return &Registry{
		factories: factories,
		cache:     make(map[string]Integration, len(factories)),
	}
}

// Known reports whether name is in the allowlist.
func (r *Registry) Known(name string) bool {
	_, ok := r.factories[name]
	return ok
}

// Get returns the named integration, constructing and caching it on first
// use. Returns an "unknown integration" error if name is not in the
// allowlist, and an error wrapping ErrMissingDependencies if construction
// fails.
func (r *Registry) Get(name string) (Integration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if inst, ok := r.cache[name]; ok {
		return inst, nil
	}
	factory, ok := r.factories[name]
	if !ok {
		return nil, errUnknown(name)
	}
	inst, err := factory()
	if err != nil {
		return nil, &missingDependenciesError{name: name, err: err}
	}
	r.cache[name] = inst
	return inst, nil
}

type missingDependenciesError struct {
	name string
	err  error
}

func (e *missingDependenciesError) Error() string {
	return "integration " + e.name + ": " + e.err.Error()
}

func (e *missingDependenciesError) Unwrap() error {
	return errors.Join(ErrMissingDependencies, e.err)
}

func errUnknown(name string) error {
	return &unknownIntegrationError{name: name}
}

type unknownIntegrationError struct {
	name string
}

func (e *unknownIntegrationError) Error() string {
	return "unknown integration: " + e.name
}
