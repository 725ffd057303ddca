package allocation

import (
	"context"
	"testing"

	"github.com/erp/bomengine/internal/domain/shared/strategy"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func request(qty string, consumption map[uuid.UUID]string, materials ...uuid.UUID) strategy.ProductionRequest {
	r := strategy.ProductionRequest{
		ProductID:         uuid.New(),
		RequestedQuantity: d(qty),
		Materials:         materials,
		Consumption:       make(map[uuid.UUID]decimal.Decimal, len(consumption)),
	}
	for id, q := range consumption {
		r.Consumption[id] = d(q)
	}
	return r
}

func withCost(r strategy.ProductionRequest, cost string) strategy.ProductionRequest {
	r.EstimatedCost = d(cost)
	r.CostKnown = true
	return r
}

func buildContext(stock map[uuid.UUID]string, reqs ...strategy.ProductionRequest) strategy.AllocationContext {
	c := strategy.AllocationContext{
		TenantID:    uuid.New(),
		Stock:       make(map[uuid.UUID]decimal.Decimal, len(stock)),
		Demand:      make(map[uuid.UUID]decimal.Decimal),
		Bottlenecks: make(map[uuid.UUID]bool),
	}
	for id, q := range stock {
		c.Stock[id] = d(q)
	}
	for _, r := range reqs {
		for id, q := range r.Consumption {
			c.Demand[id] = c.Demand[id].Add(q)
		}
	}
	for id, q := range c.Demand {
		if q.GreaterThan(c.Stock[id]) {
			c.Bottlenecks[id] = true
		}
	}
	return c
}

func totalConsumed(t *testing.T, reqs []strategy.ProductionRequest, grants []strategy.ProductionGrant) map[uuid.UUID]decimal.Decimal {
	t.Helper()
	require.Len(t, grants, len(reqs))
	total := make(map[uuid.UUID]decimal.Decimal)
	for i, g := range grants {
		for id, q := range strategy.ConsumptionFor(reqs[i], g.AchievableQuantity) {
			total[id] = total[id].Add(q)
		}
	}
	return total
}

func TestPriorityAllocationStrategy(t *testing.T) {
	s := NewPriorityAllocationStrategy()
	assert.Equal(t, strategy.AllocationPriority, s.Name())
	assert.Equal(t, strategy.StrategyTypeAllocation, s.Type())

	m := uuid.New()

	t.Run("earlier requests are served first", func(t *testing.T) {
		a := request("80", map[uuid.UUID]string{m: "80"}, m)
		b := request("80", map[uuid.UUID]string{m: "80"}, m)
		reqs := []strategy.ProductionRequest{a, b}

		grants, err := s.Allocate(context.Background(), buildContext(map[uuid.UUID]string{m: "100"}, reqs...), reqs)
		require.NoError(t, err)

		assert.True(t, grants[0].AchievableQuantity.Equal(d("80")))
		assert.Empty(t, grants[0].LimitingMaterials)
		assert.True(t, grants[1].AchievableQuantity.Equal(d("20")))
		assert.Equal(t, []uuid.UUID{m}, grants[1].LimitingMaterials)
		assert.Equal(t, b.ProductID, grants[1].ProductID)
	})

	t.Run("exhausted pool grants zero", func(t *testing.T) {
		a := request("10", map[uuid.UUID]string{m: "100"}, m)
		b := request("5", map[uuid.UUID]string{m: "50"}, m)
		reqs := []strategy.ProductionRequest{a, b}

		grants, err := s.Allocate(context.Background(), buildContext(map[uuid.UUID]string{m: "100"}, reqs...), reqs)
		require.NoError(t, err)

		assert.True(t, grants[0].AchievableQuantity.Equal(d("10")))
		assert.True(t, grants[1].AchievableQuantity.IsZero())
		assert.Equal(t, []uuid.UUID{m}, grants[1].LimitingMaterials)
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		reqs := []strategy.ProductionRequest{request("1", map[uuid.UUID]string{m: "1"}, m)}
		_, err := s.Allocate(ctx, buildContext(map[uuid.UUID]string{m: "0"}, reqs...), reqs)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestBalancedAllocationStrategy(t *testing.T) {
	s := NewBalancedAllocationStrategy()
	assert.Equal(t, strategy.AllocationBalanced, s.Name())

	m := uuid.New()
	n := uuid.New()

	t.Run("equal demand splits evenly", func(t *testing.T) {
		a := request("80", map[uuid.UUID]string{m: "80"}, m)
		b := request("80", map[uuid.UUID]string{m: "80"}, m)
		reqs := []strategy.ProductionRequest{a, b}

		grants, err := s.Allocate(context.Background(), buildContext(map[uuid.UUID]string{m: "100"}, reqs...), reqs)
		require.NoError(t, err)

		for _, g := range grants {
			assert.True(t, g.AchievableQuantity.Equal(d("50")), "got %s", g.AchievableQuantity)
			assert.Equal(t, []uuid.UUID{m}, g.LimitingMaterials)
		}
		assert.True(t, totalConsumed(t, reqs, grants)[m].Equal(d("100")))
	})

	t.Run("only bottleneck materials limit", func(t *testing.T) {
		a := request("10", map[uuid.UUID]string{m: "60", n: "5"}, m, n)
		b := request("10", map[uuid.UUID]string{m: "40"}, m)
		reqs := []strategy.ProductionRequest{a, b}
		allocCtx := buildContext(map[uuid.UUID]string{m: "50", n: "1000"}, reqs...)

		grants, err := s.Allocate(context.Background(), allocCtx, reqs)
		require.NoError(t, err)

		assert.True(t, grants[0].AchievableQuantity.Equal(d("5")))
		assert.True(t, grants[1].AchievableQuantity.Equal(d("5")))
		assert.Equal(t, []uuid.UUID{m}, grants[0].LimitingMaterials)
	})

	t.Run("never exceeds stock with non-terminating shares", func(t *testing.T) {
		a := request("10", map[uuid.UUID]string{m: "30"}, m)
		b := request("7", map[uuid.UUID]string{m: "33"}, m)
		c := request("4", map[uuid.UUID]string{m: "47"}, m)
		reqs := []strategy.ProductionRequest{a, b, c}

		grants, err := s.Allocate(context.Background(), buildContext(map[uuid.UUID]string{m: "37"}, reqs...), reqs)
		require.NoError(t, err)

		used := totalConsumed(t, reqs, grants)[m]
		assert.True(t, used.LessThanOrEqual(d("37")), "used %s", used)
		for i, g := range grants {
			assert.True(t, g.AchievableQuantity.LessThanOrEqual(reqs[i].RequestedQuantity))
			assert.True(t, g.AchievableQuantity.Equal(g.AchievableQuantity.Floor()))
		}
	})
}

func TestMaximizeAllocationStrategy(t *testing.T) {
	s := NewMaximizeAllocationStrategy()
	assert.Equal(t, strategy.AllocationMaximize, s.Name())

	m := uuid.New()

	t.Run("cheapest request first when costs are known", func(t *testing.T) {
		expensive := withCost(request("80", map[uuid.UUID]string{m: "80"}, m), "10")
		cheap := withCost(request("80", map[uuid.UUID]string{m: "80"}, m), "5")
		reqs := []strategy.ProductionRequest{expensive, cheap}

		grants, err := s.Allocate(context.Background(), buildContext(map[uuid.UUID]string{m: "100"}, reqs...), reqs)
		require.NoError(t, err)

		assert.True(t, grants[0].AchievableQuantity.IsZero())
		assert.Equal(t, []uuid.UUID{m}, grants[0].LimitingMaterials)
		assert.True(t, grants[1].AchievableQuantity.Equal(d("80")))
		assert.Empty(t, grants[1].LimitingMaterials)
	})

	t.Run("smallest request first when any cost is unknown", func(t *testing.T) {
		large := withCost(request("30", map[uuid.UUID]string{m: "60"}, m), "1")
		small := request("10", map[uuid.UUID]string{m: "50"}, m)
		tiny := request("2", map[uuid.UUID]string{m: "40"}, m)
		reqs := []strategy.ProductionRequest{large, small, tiny}

		grants, err := s.Allocate(context.Background(), buildContext(map[uuid.UUID]string{m: "100"}, reqs...), reqs)
		require.NoError(t, err)

		assert.True(t, grants[2].AchievableQuantity.Equal(d("2")))
		assert.True(t, grants[1].AchievableQuantity.Equal(d("10")))
		assert.True(t, grants[0].AchievableQuantity.IsZero())
	})

	t.Run("grants are all or nothing", func(t *testing.T) {
		a := request("10", map[uuid.UUID]string{m: "101"}, m)
		reqs := []strategy.ProductionRequest{a}

		grants, err := s.Allocate(context.Background(), buildContext(map[uuid.UUID]string{m: "100"}, reqs...), reqs)
		require.NoError(t, err)
		assert.True(t, grants[0].AchievableQuantity.IsZero())
	})
}

func TestRank_StableOnTies(t *testing.T) {
	m := uuid.New()
	reqs := []strategy.ProductionRequest{
		request("5", map[uuid.UUID]string{m: "1"}, m),
		request("5", map[uuid.UUID]string{m: "1"}, m),
		request("1", map[uuid.UUID]string{m: "1"}, m),
	}
	assert.Equal(t, []int{2, 0, 1}, rank(reqs))
}
