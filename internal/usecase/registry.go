package usecase

import (
	"fmt"
	"sort"
	"sync"

	"AutoOptimiser/internal/domain/models"
)

// Factory builds an optimiser variant.
type Factory func(deps OptimiserDeps, cfg OptimiserConfig) *Optimiser

var (
	variantsMu sync.RWMutex
	variants   = map[string]Factory{}
)

const (
	VariantWalkForward = "walkforward"
	VariantHistory     = "history"
)

func init() {
	RegisterVariant(VariantWalkForward, func(deps OptimiserDeps, cfg OptimiserConfig) *Optimiser {
		return newOptimiser(VariantWalkForward, true, deps, cfg)
	})
	RegisterVariant(VariantHistory, func(deps OptimiserDeps, cfg OptimiserConfig) *Optimiser {
		return newOptimiser(VariantHistory, false, deps, cfg)
	})
}

// RegisterVariant makes a variant available to NewVariant. Registering a
// name twice replaces the earlier factory.
func RegisterVariant(name string, f Factory) {
	variantsMu.Lock()
	defer variantsMu.Unlock()
	variants[name] = f
}

// NewVariant builds the optimiser registered under name.
func NewVariant(name string, deps OptimiserDeps, cfg OptimiserConfig) (*Optimiser, error) {
	variantsMu.RLock()
	f, ok := variants[name]
	variantsMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", models.ErrUnknownVariant, name)
	}
	return f(deps, cfg), nil
}

// Variants lists registered names in order.
func Variants() []string {
	variantsMu.RLock()
	defer variantsMu.RUnlock()
	out := make([]string, 0, len(variants))
	for name := range variants {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
