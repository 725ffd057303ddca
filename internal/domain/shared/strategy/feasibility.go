package strategy

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var one = decimal.NewFromInt(1)

// MaxWholeQuantity returns the largest whole quantity q such that, for every
// material, need*q <= available*base, where need is the consumption for
// producing base units. bounded is false when nothing is consumed.
//
// The candidate comes from the smallest available/need ratio and is then
// corrected with exact multiplications, so a non-terminating ratio such as
// 110/33 never loses a whole unit to division rounding.
func MaxWholeQuantity(base decimal.Decimal, materials []uuid.UUID, consumption, available map[uuid.UUID]decimal.Decimal) (q decimal.Decimal, bounded bool) {
	var minRatio decimal.Decimal
	for _, id := range materials {
		need := consumption[id]
		if !need.IsPositive() {
			continue
		}
		ratio := decimal.Max(available[id], decimal.Zero).Div(need)
		if !bounded || ratio.LessThan(minRatio) {
			minRatio = ratio
			bounded = true
		}
	}
	if !bounded {
		return decimal.Zero, false
	}

	feasible := func(q decimal.Decimal) bool {
		for _, id := range materials {
			need := consumption[id]
			if !need.IsPositive() {
				continue
			}
			if need.Mul(q).GreaterThan(available[id].Mul(base)) {
				return false
			}
		}
		return true
	}

	candidate := base.Mul(minRatio).Floor()
	if candidate.IsNegative() {
		candidate = decimal.Zero
	}
	for feasible(candidate.Add(one)) {
		candidate = candidate.Add(one)
	}
	for candidate.IsPositive() && !feasible(candidate) {
		candidate = candidate.Sub(one)
	}
	return candidate, true
}

// Short returns the materials whose need exceeds what is available, in order
func Short(materials []uuid.UUID, need, available map[uuid.UUID]decimal.Decimal) []uuid.UUID {
	short := make([]uuid.UUID, 0)
	for _, id := range materials {
		if need[id].GreaterThan(available[id]) {
			short = append(short, id)
		}
	}
	return short
}

// GrantWithin returns the achievable quantity for a request given what is
// still available: the full request when it fits, otherwise the largest
// whole quantity that does.
func GrantWithin(req ProductionRequest, available map[uuid.UUID]decimal.Decimal) (decimal.Decimal, []uuid.UUID) {
	limiting := Short(req.Materials, req.Consumption, available)
	if len(limiting) == 0 {
		return req.RequestedQuantity, limiting
	}
	q, bounded := MaxWholeQuantity(req.RequestedQuantity, req.Materials, req.Consumption, available)
	if !bounded {
		return req.RequestedQuantity, limiting
	}
	return decimal.Min(q, req.RequestedQuantity), limiting
}

// ConsumptionFor scales a request's consumption to the achievable quantity
func ConsumptionFor(req ProductionRequest, achievable decimal.Decimal) map[uuid.UUID]decimal.Decimal {
	out := make(map[uuid.UUID]decimal.Decimal, len(req.Consumption))
	for _, id := range req.Materials {
		switch {
		case achievable.Equal(req.RequestedQuantity):
			out[id] = req.Consumption[id]
		case achievable.IsZero():
			out[id] = decimal.Zero
		default:
			out[id] = req.Consumption[id].Mul(achievable).Div(req.RequestedQuantity)
		}
	}
	return out
}

// Deduct subtracts consumption from available in place, never going below zero
func Deduct(available map[uuid.UUID]decimal.Decimal, consumption map[uuid.UUID]decimal.Decimal) {
	for id, used := range consumption {
		available[id] = decimal.Max(decimal.Zero, available[id].Sub(used))
	}
}

// CopyStock returns a mutable copy of a stock map
func CopyStock(stock map[uuid.UUID]decimal.Decimal) map[uuid.UUID]decimal.Decimal {
	out := make(map[uuid.UUID]decimal.Decimal, len(stock))
	for id, q := range stock {
		out[id] = q
	}
	return out
}
