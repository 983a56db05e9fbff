package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/dbglass/dbglass/dbcapabilities"
	"github.com/dbglass/dbglass/logger"
)

// FactoryFunc constructs an unconnected provider instance from a configuration.
type FactoryFunc func(cfg Config) (Provider, error)

// Registration is the static descriptor of a provider type.
type Registration struct {
	Type         dbcapabilities.DatabaseID
	Name         string
	Description  string
	Version      string
	Capabilities []dbcapabilities.CapabilityID
	Factory      FactoryFunc
}

// ProviderSummary is the registry's introspection view of one provider type,
// used by UI layers to decide what to offer.
type ProviderSummary struct {
	Type        dbcapabilities.DatabaseID     `json:"type"`
	Name        string                        `json:"name"`
	Description string                        `json:"description,omitempty"`
	Version     string                        `json:"version"`
	Supported   []dbcapabilities.CapabilityID `json:"supported"`
}

// Registry maps provider-type identifiers to factory registrations and caches
// live instances by connection identity. Construct one at process startup and
// inject it into whatever owns request handling.
//
// The maps are guarded by an RWMutex so concurrent registry calls are memory
// safe, but GetOrCreateProvider does not deduplicate concurrent creation for
// the same key: two racing callers may each create and connect an instance,
// with the last write winning the cache slot. Callers needing at-most-once
// connect semantics per key must serialize externally.
type Registry struct {
	mu            sync.RWMutex
	registrations map[dbcapabilities.DatabaseID]Registration
	instances     map[string]Provider
	log           *logger.Logger
}

// NewRegistry creates an empty registry. A nil log falls back to a default
// console logger.
func NewRegistry(log *logger.Logger) *Registry {
	if log == nil {
		log = logger.New("provider-registry", "1.0.0")
	}
	return &Registry{
		registrations: make(map[dbcapabilities.DatabaseID]Registration),
		instances:     make(map[string]Provider),
		log:           log,
	}
}

// Register inserts or overwrites a provider-type registration. Overwriting is
// allowed but logged as a warning; this supports hot-reloading provider
// definitions during development.
func (r *Registry) Register(reg Registration) error {
	if reg.Type == "" {
		return NewConfigurationError(reg.Type, "type", "registration type cannot be empty")
	}
	if reg.Factory == nil {
		return NewConfigurationError(reg.Type, "factory", "registration factory cannot be nil")
	}

	r.mu.Lock()
	_, overwrite := r.registrations[reg.Type]
	r.registrations[reg.Type] = reg
	r.mu.Unlock()

	if overwrite {
		r.log.Warnf("provider type %q re-registered (version %s); previous registration replaced", reg.Type, reg.Version)
	}
	return nil
}

// Unregister removes a registration and evicts all cached instances of that
// type, disconnecting each best-effort. Returns whether anything was removed.
func (r *Registry) Unregister(providerType dbcapabilities.DatabaseID) bool {
	r.mu.Lock()
	_, had := r.registrations[providerType]
	delete(r.registrations, providerType)

	var evicted []Provider
	for key, p := range r.instances {
		if p.Type() == providerType {
			evicted = append(evicted, p)
			delete(r.instances, key)
			had = true
		}
	}
	r.mu.Unlock()

	for _, p := range evicted {
		if err := p.Disconnect(context.Background()); err != nil {
			r.log.Warnf("disconnect during unregister of %q failed: %v", providerType, err)
		}
	}
	return had
}

// GetRegistration returns the registration for a provider type.
func (r *Registry) GetRegistration(providerType dbcapabilities.DatabaseID) (Registration, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	reg, ok := r.registrations[providerType]
	return reg, ok
}

// AllRegistrations returns every registration, ordered by type for
// deterministic iteration.
func (r *Registry) AllRegistrations() []Registration {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Registration, 0, len(r.registrations))
	for _, reg := range r.registrations {
		out = append(out, reg)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Type < out[j].Type })
	return out
}

// CreateProvider looks up the factory for a type and invokes it. This is a
// pure construction call; the returned provider is not connected.
func (r *Registry) CreateProvider(providerType dbcapabilities.DatabaseID, cfg Config) (Provider, error) {
	reg, ok := r.GetRegistration(providerType)
	if !ok {
		return nil, &ProviderError{
			Code:    CodeProviderNotFound,
			Message: fmt.Sprintf("no provider registered for type %q", providerType),
			Cause:   ErrProviderNotRegistered,
		}
	}
	return reg.Factory(cfg)
}

// CacheKey derives the default instance cache key: the provider type joined
// with the canonical JSON encoding of the normalized configuration. The
// struct is round-tripped through a map so key order cannot matter.
func CacheKey(providerType dbcapabilities.DatabaseID, cfg Config) string {
	raw, err := json.Marshal(cfg.Normalized())
	if err != nil {
		return string(providerType) + ":" + cfg.Host + ":" + cfg.DatabaseName + ":" + cfg.FilePath
	}
	var fields map[string]interface{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return string(providerType) + ":" + string(raw)
	}
	canonical, _ := json.Marshal(fields) // map keys marshal sorted
	return string(providerType) + ":" + string(canonical)
}

// GetOrCreateProvider returns a cached connected instance for the key if one
// exists, otherwise creates, connects, and caches a new one. An explicit
// cacheKey overrides the derived default. See the Registry doc for the
// accepted duplicate-creation race.
func (r *Registry) GetOrCreateProvider(ctx context.Context, providerType dbcapabilities.DatabaseID, cfg Config, cacheKey ...string) (Provider, error) {
	key := CacheKey(providerType, cfg)
	if len(cacheKey) > 0 && cacheKey[0] != "" {
		key = cacheKey[0]
	}

	r.mu.RLock()
	cached, ok := r.instances[key]
	r.mu.RUnlock()
	if ok && cached.IsConnected() {
		return cached, nil
	}
	if ok {
		// Stale entry; evict before creating a replacement.
		r.RemoveFromCache(key)
	}

	p, err := r.CreateProvider(providerType, cfg)
	if err != nil {
		return nil, err
	}
	if err := p.Connect(ctx); err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.instances[key] = p
	r.mu.Unlock()
	return p, nil
}

// RemoveFromCache disconnects and evicts one cached instance. Returns whether
// the key was present.
func (r *Registry) RemoveFromCache(key string) bool {
	r.mu.Lock()
	p, ok := r.instances[key]
	delete(r.instances, key)
	r.mu.Unlock()

	if !ok {
		return false
	}
	if err := p.Disconnect(context.Background()); err != nil {
		r.log.Warnf("disconnect during cache eviction of %q failed: %v", key, err)
	}
	return true
}

// ClearCache disconnects and evicts every cached instance. Disconnect
// failures are logged and skipped so one bad connection cannot block
// releasing the rest.
func (r *Registry) ClearCache() {
	r.mu.Lock()
	evicted := r.instances
	r.instances = make(map[string]Provider)
	r.mu.Unlock()

	for key, p := range evicted {
		if err := p.Disconnect(context.Background()); err != nil {
			r.log.Warnf("disconnect during cache clear of %q failed: %v", key, err)
		}
	}
}

// CachedKeys returns the keys of all cached instances, sorted.
func (r *Registry) CachedKeys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	keys := make([]string, 0, len(r.instances))
	for k := range r.instances {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// CapabilitySummary returns one summary per registered provider type, ordered
// by type.
func (r *Registry) CapabilitySummary() []ProviderSummary {
	regs := r.AllRegistrations()
	out := make([]ProviderSummary, 0, len(regs))
	for _, reg := range regs {
		m := dbcapabilities.BuildCapabilityMap(reg.Type, reg.Capabilities)
		out = append(out, ProviderSummary{
			Type:        reg.Type,
			Name:        reg.Name,
			Description: reg.Description,
			Version:     reg.Version,
			Supported:   m.Supported(),
		})
	}
	return out
}

// FindProvidersWithCapabilities returns the types whose declared capability
// set includes every requested capability.
func (r *Registry) FindProvidersWithCapabilities(caps []dbcapabilities.CapabilityID) []dbcapabilities.DatabaseID {
	var out []dbcapabilities.DatabaseID
	for _, reg := range r.AllRegistrations() {
		m := dbcapabilities.BuildCapabilityMap(reg.Type, reg.Capabilities)
		all := true
		for _, c := range caps {
			if !m.Has(c) {
				all = false
				break
			}
		}
		if all {
			out = append(out, reg.Type)
		}
	}
	return out
}

// CapabilityMaps returns the total capability map for every registered type.
func (r *Registry) CapabilityMaps() map[dbcapabilities.DatabaseID]dbcapabilities.CapabilityMap {
	out := make(map[dbcapabilities.DatabaseID]dbcapabilities.CapabilityMap)
	for _, reg := range r.AllRegistrations() {
		out[reg.Type] = dbcapabilities.BuildCapabilityMap(reg.Type, reg.Capabilities)
	}
	return out
}
