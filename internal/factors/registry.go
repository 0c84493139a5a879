package factors

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/wonny/factorpool/internal/contracts"
)

var (
	// ErrUnknownFactor is returned by Lookup for unregistered names
	ErrUnknownFactor = errors.New("unknown factor")

	// ErrDuplicateFactor is returned when a name is registered twice
	ErrDuplicateFactor = errors.New("factor already registered")
)

// Factor computes one cross-sectional value per instrument from its bar history
type Factor interface {
	// Window returns the number of trailing bars Compute needs
	Window() int

	// Compute returns the factor value for the last bar of history, or NaN
	// when history is shorter than Window
	Compute(history []contracts.Bar) float64
}

// Constructor builds a fresh factor instance
type Constructor func() Factor

// Registry maps factor names to constructors
// ⭐ SSOT: a factor is defined when it is registered here
type Registry struct {
	mu           sync.RWMutex
	constructors map[string]Constructor
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{constructors: make(map[string]Constructor)}
}

// Register adds a factor constructor under name
func (r *Registry) Register(name string, ctor Constructor) error {
	if name == "" {
		return fmt.Errorf("register factor: empty name")
	}
	if ctor == nil {
		return fmt.Errorf("register factor %s: nil constructor", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.constructors[name]; exists {
		return fmt.Errorf("register factor %s: %w", name, ErrDuplicateFactor)
	}
	r.constructors[name] = ctor
	return nil
}

// MustRegister is Register for startup wiring; it panics on error
func (r *Registry) MustRegister(name string, ctor Constructor) {
	if err := r.Register(name, ctor); err != nil {
		panic(err)
	}
}

// Lookup returns a new instance of the named factor
func (r *Registry) Lookup(name string) (Factor, error) {
	r.mu.RLock()
	ctor, ok := r.constructors[name]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%s: %w", name, ErrUnknownFactor)
	}
	return ctor(), nil
}

// Has reports whether name is registered
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.constructors[name]
	return ok
}

// Names returns the registered names in sorted order
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.constructors))
	for name := range r.constructors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Builtin returns a registry holding the built-in factors
func Builtin() *Registry {
	r := NewRegistry()
	r.MustRegister("momentum", func() Factor { return &Momentum{Lookback: 20} })
	r.MustRegister("reversal", func() Factor { return &Reversal{Lookback: 5} })
	r.MustRegister("volatility", func() Factor { return &Volatility{Lookback: 20} })
	r.MustRegister("volumeRatio", func() Factor { return &VolumeRatio{Lookback: 20} })
	r.MustRegister("maSpread", func() Factor { return &MASpread{Short: 5, Long: 20} })
	return r
}
