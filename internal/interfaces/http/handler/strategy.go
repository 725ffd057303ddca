package handler

import (
	"github.com/erp/bomengine/internal/domain/shared/strategy"
	"github.com/gin-gonic/gin"
)

// StrategyRegistry lists the registered allocation strategies
type StrategyRegistry interface {
	ListProductionAllocationStrategies() []string
	GetProductionAllocationStrategy(name string) (strategy.ProductionAllocationStrategy, error)
	GetDefault(strategyType strategy.StrategyType) string
}

// StrategyHandler exposes the allocation strategies a plan can name
type StrategyHandler struct {
	BaseHandler
	registry StrategyRegistry
}

// NewStrategyHandler creates a new StrategyHandler
func NewStrategyHandler(registry StrategyRegistry) *StrategyHandler {
	return &StrategyHandler{registry: registry}
}

// StrategyInfo describes one allocation strategy
type StrategyInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	IsDefault   bool   `json:"is_default"`
}

// ListStrategies godoc
// @Summary  List allocation strategies
// @Tags     bom
// @Router   /bom/strategies [get]
func (h *StrategyHandler) ListStrategies(c *gin.Context) {
	def := h.registry.GetDefault(strategy.StrategyTypeAllocation)
	names := h.registry.ListProductionAllocationStrategies()

	out := make([]StrategyInfo, 0, len(names))
	for _, name := range names {
		s, err := h.registry.GetProductionAllocationStrategy(name)
		if err != nil {
			continue
		}
		out = append(out, StrategyInfo{
			Name:        name,
			Description: s.Description(),
			IsDefault:   name == def,
		})
	}
	h.Success(c, out)
}
