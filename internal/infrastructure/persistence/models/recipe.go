package models

import (
	"time"

	"github.com/erp/bomengine/internal/domain/recipe"
	"github.com/erp/bomengine/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RecipeModel is the persistence model for the Recipe aggregate root.
// A partial unique index keeps a single active recipe per product.
type RecipeModel struct {
	TenantAggregateModel
	ProductID     uuid.UUID       `gorm:"type:uuid;not null;index"`
	Name          string          `gorm:"type:varchar(200);not null"`
	YieldQuantity decimal.Decimal `gorm:"type:decimal(20,6);not null"`
	YieldUnit     string          `gorm:"type:varchar(16);not null"`
	IsActive      bool            `gorm:"not null;default:false"`
	ActivatedAt   *time.Time
	Notes         string                 `gorm:"type:text;not null;default:''"`
	Components    []RecipeComponentModel `gorm:"foreignKey:RecipeID;references:ID"`
}

// TableName returns the table name for GORM
func (RecipeModel) TableName() string {
	return "recipes"
}

// ToDomain converts the persistence model to a domain Recipe
func (m *RecipeModel) ToDomain() *recipe.Recipe {
	r := &recipe.Recipe{
		TenantAggregateRoot: m.ToTenantAggregateRoot(),
		ProductID:           m.ProductID,
		Name:                m.Name,
		YieldQuantity:       m.YieldQuantity,
		YieldUnit:           valueobject.MeasureUnit(m.YieldUnit),
		IsActive:            m.IsActive,
		ActivatedAt:         m.ActivatedAt,
		Notes:               m.Notes,
		Components:          make([]recipe.RecipeComponent, len(m.Components)),
	}
	for i := range m.Components {
		r.Components[i] = *m.Components[i].ToDomain()
	}
	return r
}

// FromDomain populates the persistence model from a domain Recipe
func (m *RecipeModel) FromDomain(r *recipe.Recipe) {
	m.FromDomainTenantAggregateRoot(r.TenantAggregateRoot)
	m.ProductID = r.ProductID
	m.Name = r.Name
	m.YieldQuantity = r.YieldQuantity
	m.YieldUnit = r.YieldUnit.String()
	m.IsActive = r.IsActive
	m.ActivatedAt = r.ActivatedAt
	m.Notes = r.Notes
	m.Components = make([]RecipeComponentModel, len(r.Components))
	for i := range r.Components {
		m.Components[i].FromDomain(&r.Components[i])
	}
}

// RecipeModelFromDomain creates a new persistence model from a domain Recipe
func RecipeModelFromDomain(r *recipe.Recipe) *RecipeModel {
	m := &RecipeModel{}
	m.FromDomain(r)
	return m
}

// RecipeComponentModel is the persistence model for one recipe line
type RecipeComponentModel struct {
	BaseModel
	RecipeID         uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_recipe_components_material,priority:1"`
	MaterialID       uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_recipe_components_material,priority:2;index"`
	QuantityRequired decimal.Decimal `gorm:"type:decimal(20,6);not null"`
	Unit             string          `gorm:"type:varchar(16);not null"`
	WastePercentage  decimal.Decimal `gorm:"type:decimal(5,2);not null;default:0"`
	Notes            string          `gorm:"type:varchar(500);not null;default:''"`
	SortOrder        int             `gorm:"not null;default:0"`
}

// TableName returns the table name for GORM
func (RecipeComponentModel) TableName() string {
	return "recipe_components"
}

// ToDomain converts the persistence model to a domain RecipeComponent
func (m *RecipeComponentModel) ToDomain() *recipe.RecipeComponent {
	return &recipe.RecipeComponent{
		BaseEntity:       m.BaseModel.ToDomain(),
		RecipeID:         m.RecipeID,
		MaterialID:       m.MaterialID,
		QuantityRequired: m.QuantityRequired,
		Unit:             valueobject.MeasureUnit(m.Unit),
		WastePercentage:  m.WastePercentage,
		Notes:            m.Notes,
		SortOrder:        m.SortOrder,
	}
}

// FromDomain populates the persistence model from a domain RecipeComponent
func (m *RecipeComponentModel) FromDomain(c *recipe.RecipeComponent) {
	m.FromDomainBaseEntity(c.BaseEntity)
	m.RecipeID = c.RecipeID
	m.MaterialID = c.MaterialID
	m.QuantityRequired = c.QuantityRequired
	m.Unit = c.Unit.String()
	m.WastePercentage = c.WastePercentage
	m.Notes = c.Notes
	m.SortOrder = c.SortOrder
}
