package strategy

import (
	"github.com/erp/bomengine/internal/domain/shared/strategy"
	"github.com/erp/bomengine/internal/infrastructure/strategy/allocation"
)

// NewRegistryWithDefaults creates a new registry with the built-in production
// allocation strategies registered. defaultName selects the strategy used when
// a plan names none; empty means priority.
func NewRegistryWithDefaults(defaultName string) (*StrategyRegistry, error) {
	r := NewStrategyRegistry()

	builtins := []strategy.ProductionAllocationStrategy{
		allocation.NewPriorityAllocationStrategy(),
		allocation.NewBalancedAllocationStrategy(),
		allocation.NewMaximizeAllocationStrategy(),
	}
	for _, s := range builtins {
		if err := r.RegisterProductionAllocationStrategy(s); err != nil {
			return nil, err
		}
	}

	if defaultName == "" {
		defaultName = strategy.AllocationPriority
	}
	if err := r.SetDefault(strategy.StrategyTypeAllocation, defaultName); err != nil {
		return nil, err
	}

	return r, nil
}
