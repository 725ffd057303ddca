package bom

import (
	"errors"
	"time"

	"github.com/erp/bomengine/internal/domain/production"
	"github.com/erp/bomengine/internal/domain/recipe"
	"github.com/erp/bomengine/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RequirementsQuery asks for the material requirements of one production run
type RequirementsQuery struct {
	TenantID     uuid.UUID
	ProductID    uuid.UUID
	Quantity     decimal.Decimal
	IncludeWaste bool
}

// RequirementResponse is one resolved material line
type RequirementResponse struct {
	MaterialID        uuid.UUID       `json:"material_id"`
	MaterialName      string          `json:"material_name"`
	Unit              string          `json:"unit"`
	WastePercentage   decimal.Decimal `json:"waste_percentage"`
	RequiredQuantity  decimal.Decimal `json:"required_quantity"`
	EffectiveQuantity decimal.Decimal `json:"effective_quantity"`
	EstimatedCost     decimal.Decimal `json:"estimated_cost"`
}

// RequirementsResponse is the expanded recipe for a production run
type RequirementsResponse struct {
	ProductID          uuid.UUID             `json:"product_id"`
	RecipeID           uuid.UUID             `json:"recipe_id"`
	RecipeName         string                `json:"recipe_name"`
	Quantity           decimal.Decimal       `json:"quantity"`
	IncludeWaste       bool                  `json:"include_waste"`
	Requirements       []RequirementResponse `json:"requirements"`
	TotalEstimatedCost decimal.Decimal       `json:"total_estimated_cost"`
	CostKnown          bool                  `json:"cost_known"`
}

// ToRequirementResponses converts resolved requirements
func ToRequirementResponses(reqs []recipe.Requirement) []RequirementResponse {
	out := make([]RequirementResponse, len(reqs))
	for i, r := range reqs {
		out[i] = RequirementResponse{
			MaterialID:        r.MaterialID,
			MaterialName:      r.MaterialName,
			Unit:              r.Unit.String(),
			WastePercentage:   r.WastePercentage,
			RequiredQuantity:  r.RequiredQuantity,
			EffectiveQuantity: r.EffectiveQuantity,
			EstimatedCost:     r.EstimatedCost,
		}
	}
	return out
}

// ToRequirementsResponse converts a resolution
func ToRequirementsResponse(productID uuid.UUID, res *recipe.Resolution) *RequirementsResponse {
	total, known := res.TotalEstimatedCost()
	return &RequirementsResponse{
		ProductID:          productID,
		RecipeID:           res.Recipe.ID,
		RecipeName:         res.Recipe.Name,
		Quantity:           res.Quantity,
		IncludeWaste:       res.IncludeWaste,
		Requirements:       ToRequirementResponses(res.Requirements),
		TotalEstimatedCost: total,
		CostKnown:          known,
	}
}

// AvailabilityQuery asks whether a quantity of one product can be produced
type AvailabilityQuery struct {
	TenantID  uuid.UUID
	ProductID uuid.UUID
	Quantity  decimal.Decimal
}

// ShortageResponse is a material that cannot cover its requirement
type ShortageResponse struct {
	MaterialID   uuid.UUID       `json:"material_id"`
	MaterialName string          `json:"material_name"`
	Unit         string          `json:"unit"`
	Required     decimal.Decimal `json:"required"`
	Available    decimal.Decimal `json:"available"`
	Shortfall    decimal.Decimal `json:"shortfall"`
}

// AvailabilityResponse is the availability verdict for one product
type AvailabilityResponse struct {
	ProductID             uuid.UUID             `json:"product_id"`
	RecipeID              uuid.UUID             `json:"recipe_id"`
	RequestedQuantity     decimal.Decimal       `json:"requested_quantity"`
	Status                string                `json:"status"`
	Producible            bool                  `json:"producible"`
	MaxProducibleQuantity decimal.Decimal       `json:"max_producible_quantity"`
	Shortages             []ShortageResponse    `json:"shortages"`
	Requirements          []RequirementResponse `json:"requirements"`
}

// ToAvailabilityResponse converts an availability verdict
func ToAvailabilityResponse(a *production.Availability) *AvailabilityResponse {
	shortages := make([]ShortageResponse, len(a.Shortages))
	for i, s := range a.Shortages {
		shortages[i] = ShortageResponse{
			MaterialID:   s.MaterialID,
			MaterialName: s.MaterialName,
			Unit:         s.Unit.String(),
			Required:     s.Required,
			Available:    s.Available,
			Shortfall:    s.Shortfall,
		}
	}
	return &AvailabilityResponse{
		ProductID:             a.ProductID,
		RecipeID:              a.RecipeID,
		RequestedQuantity:     a.RequestedQuantity,
		Status:                a.Status(),
		Producible:            a.Producible,
		MaxProducibleQuantity: a.MaxProducibleQuantity,
		Shortages:             shortages,
		Requirements:          ToRequirementResponses(a.Requirements),
	}
}

// BulkAvailabilityQuery checks several products at the same quantity
type BulkAvailabilityQuery struct {
	TenantID   uuid.UUID
	ProductIDs []uuid.UUID
	Quantity   decimal.Decimal
}

// ItemError describes why one item of a bulk request failed
type ItemError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// BulkAvailabilityItem is one product's entry in a bulk check
type BulkAvailabilityItem struct {
	ProductID    uuid.UUID             `json:"product_id"`
	Availability *AvailabilityResponse `json:"availability,omitempty"`
	Error        *ItemError            `json:"error,omitempty"`
}

// BulkAvailabilityResponse lists verdicts in request order
type BulkAvailabilityResponse struct {
	Results    []BulkAvailabilityItem `json:"results"`
	Producible int                    `json:"producible"`
	Partial    int                    `json:"partial"`
	Blocked    int                    `json:"blocked"`
	Failed     int                    `json:"failed"`
}

// ToBulkAvailabilityResponse converts bulk verdicts and tallies their status
func ToBulkAvailabilityResponse(verdicts []production.BulkVerdict) *BulkAvailabilityResponse {
	resp := &BulkAvailabilityResponse{Results: make([]BulkAvailabilityItem, len(verdicts))}
	for i, v := range verdicts {
		item := BulkAvailabilityItem{ProductID: v.ProductID}
		if v.Err != nil {
			item.Error = toItemError(v.Err)
			resp.Failed++
		} else {
			item.Availability = ToAvailabilityResponse(v.Availability)
			switch item.Availability.Status {
			case "producible":
				resp.Producible++
			case "partial":
				resp.Partial++
			default:
				resp.Blocked++
			}
		}
		resp.Results[i] = item
	}
	return resp
}

func toItemError(err error) *ItemError {
	var de *shared.DomainError
	if errors.As(err, &de) {
		return &ItemError{Code: de.Code, Message: de.Message}
	}
	return &ItemError{Code: "INTERNAL_ERROR", Message: "An internal error occurred"}
}

// PlanItem is one product competing for stock
type PlanItem struct {
	ProductID uuid.UUID
	Quantity  decimal.Decimal
}

// PlanCommand asks for an allocation of current stock across several products
type PlanCommand struct {
	TenantID uuid.UUID
	Requests []PlanItem
	Strategy string
}

// PlanLineResponse is the allocation for one request
type PlanLineResponse struct {
	ProductID          uuid.UUID       `json:"product_id"`
	RequestedQuantity  decimal.Decimal `json:"requested_quantity"`
	AchievableQuantity decimal.Decimal `json:"achievable_quantity"`
	FullySatisfied     bool            `json:"fully_satisfied"`
	LimitingMaterials  []uuid.UUID     `json:"limiting_materials"`
}

// BottleneckResponse is a material whose demand exceeds stock
type BottleneckResponse struct {
	MaterialID   uuid.UUID       `json:"material_id"`
	MaterialName string          `json:"material_name"`
	Unit         string          `json:"unit"`
	Available    decimal.Decimal `json:"available"`
	Demand       decimal.Decimal `json:"demand"`
	Allocated    decimal.Decimal `json:"allocated"`
}

// PlanResponse is a multi-product allocation plan
type PlanResponse struct {
	Strategy    string               `json:"strategy"`
	Lines       []PlanLineResponse   `json:"lines"`
	Bottlenecks []BottleneckResponse `json:"bottlenecks"`
}

// ToPlanResponse converts an allocation plan
func ToPlanResponse(p *production.Plan) *PlanResponse {
	resp := &PlanResponse{
		Strategy:    p.Strategy,
		Lines:       make([]PlanLineResponse, len(p.Lines)),
		Bottlenecks: make([]BottleneckResponse, len(p.Bottlenecks)),
	}
	for i, l := range p.Lines {
		resp.Lines[i] = PlanLineResponse{
			ProductID:          l.ProductID,
			RequestedQuantity:  l.RequestedQuantity,
			AchievableQuantity: l.AchievableQuantity,
			FullySatisfied:     l.FullySatisfied(),
			LimitingMaterials:  l.LimitingMaterials,
		}
	}
	for i, b := range p.Bottlenecks {
		resp.Bottlenecks[i] = BottleneckResponse{
			MaterialID:   b.MaterialID,
			MaterialName: b.MaterialName,
			Unit:         b.Unit.String(),
			Available:    b.Available,
			Demand:       b.Demand,
			Allocated:    b.Allocated,
		}
	}
	return resp
}

// ComponentInput is one material line of a new recipe
type ComponentInput struct {
	MaterialID       uuid.UUID
	QuantityRequired decimal.Decimal
	Unit             string
	WastePercentage  decimal.Decimal
	Notes            string
}

// CreateRecipeCommand creates an inactive recipe
type CreateRecipeCommand struct {
	TenantID      uuid.UUID
	ProductID     uuid.UUID
	Name          string
	YieldQuantity decimal.Decimal
	YieldUnit     string
	Notes         string
	Components    []ComponentInput
	// Activate makes the recipe the product's active recipe right away
	Activate bool
}

// ComponentResponse represents a recipe component in API responses
type ComponentResponse struct {
	ID               uuid.UUID       `json:"id"`
	MaterialID       uuid.UUID       `json:"material_id"`
	QuantityRequired decimal.Decimal `json:"quantity_required"`
	Unit             string          `json:"unit"`
	WastePercentage  decimal.Decimal `json:"waste_percentage"`
	Notes            string          `json:"notes,omitempty"`
	SortOrder        int             `json:"sort_order"`
}

// RecipeResponse represents a recipe in API responses
type RecipeResponse struct {
	ID            uuid.UUID           `json:"id"`
	TenantID      uuid.UUID           `json:"tenant_id"`
	ProductID     uuid.UUID           `json:"product_id"`
	Name          string              `json:"name"`
	YieldQuantity decimal.Decimal     `json:"yield_quantity"`
	YieldUnit     string              `json:"yield_unit"`
	IsActive      bool                `json:"is_active"`
	ActivatedAt   *time.Time          `json:"activated_at,omitempty"`
	Notes         string              `json:"notes,omitempty"`
	Components    []ComponentResponse `json:"components"`
	Version       int                 `json:"version"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
}

// ToRecipeResponse converts a domain Recipe to RecipeResponse
func ToRecipeResponse(r *recipe.Recipe) RecipeResponse {
	components := make([]ComponentResponse, len(r.Components))
	for i, c := range r.Components {
		components[i] = ComponentResponse{
			ID:               c.ID,
			MaterialID:       c.MaterialID,
			QuantityRequired: c.QuantityRequired,
			Unit:             c.Unit.String(),
			WastePercentage:  c.WastePercentage,
			Notes:            c.Notes,
			SortOrder:        c.SortOrder,
		}
	}
	return RecipeResponse{
		ID:            r.ID,
		TenantID:      r.TenantID,
		ProductID:     r.ProductID,
		Name:          r.Name,
		YieldQuantity: r.YieldQuantity,
		YieldUnit:     r.YieldUnit.String(),
		IsActive:      r.IsActive,
		ActivatedAt:   r.ActivatedAt,
		Notes:         r.Notes,
		Components:    components,
		Version:       r.Version,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}
