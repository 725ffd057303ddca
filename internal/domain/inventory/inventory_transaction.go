package inventory

import (
	"fmt"
	"strings"
	"time"

	"github.com/erp/bomengine/internal/domain/shared"
	"github.com/erp/bomengine/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MaxNotesLength caps ledger notes
const MaxNotesLength = 500

// TransactionType represents the kind of stock movement
type TransactionType string

const (
	// TransactionTypeAdjustment sets stock to an operator-counted absolute quantity
	TransactionTypeAdjustment TransactionType = "adjustment"
	// TransactionTypeDeduction removes stock
	TransactionTypeDeduction TransactionType = "deduction"
	// TransactionTypeRestock adds stock
	TransactionTypeRestock TransactionType = "restock"
)

// ParseTransactionType maps a wire value onto a TransactionType
func ParseTransactionType(s string) (TransactionType, error) {
	t := TransactionType(strings.ToLower(strings.TrimSpace(s)))
	if !t.IsValid() {
		return "", shared.ErrInvalidTransactionType.WithMessage(fmt.Sprintf("Unknown transaction type %q", s))
	}
	return t, nil
}

// String returns the string representation of TransactionType
func (t TransactionType) String() string {
	return string(t)
}

// IsValid returns true if the transaction type is valid
func (t TransactionType) IsValid() bool {
	switch t {
	case TransactionTypeAdjustment, TransactionTypeDeduction, TransactionTypeRestock:
		return true
	}
	return false
}

// Reason is the business cause of a stock movement
type Reason string

const (
	ReasonPurchase        Reason = "purchase"
	ReasonWaste           Reason = "waste"
	ReasonDamage          Reason = "damage"
	ReasonCountAdjustment Reason = "count_adjustment"
	ReasonProduction      Reason = "production"
	ReasonSale            Reason = "sale"
	ReasonOther           Reason = "other"
)

// AllReasons returns every valid reason
func AllReasons() []Reason {
	return []Reason{
		ReasonPurchase, ReasonWaste, ReasonDamage, ReasonCountAdjustment,
		ReasonProduction, ReasonSale, ReasonOther,
	}
}

// ParseReason maps a wire value onto a Reason
func ParseReason(s string) (Reason, error) {
	r := Reason(strings.ToLower(strings.TrimSpace(s)))
	if !r.IsValid() {
		return "", shared.ErrInvalidReason.WithMessage(fmt.Sprintf("Unknown transaction reason %q", s))
	}
	return r, nil
}

// String returns the string representation of Reason
func (r Reason) String() string {
	return string(r)
}

// IsValid returns true if the reason is one of the fixed reasons
func (r Reason) IsValid() bool {
	switch r {
	case ReasonPurchase, ReasonWaste, ReasonDamage, ReasonCountAdjustment,
		ReasonProduction, ReasonSale, ReasonOther:
		return true
	}
	return false
}

// Reference points at the document that caused a movement, e.g. an order or
// a production run.
type Reference struct {
	Type string
	ID   string
}

// IsZero reports whether the reference is empty
func (r Reference) IsZero() bool {
	return r.Type == "" && r.ID == ""
}

// Movement is a requested change to a material's stock
type Movement struct {
	Type      TransactionType
	Quantity  decimal.Decimal
	Reason    Reason
	Notes     string
	Reference *Reference
	ActorID   *uuid.UUID
}

// Validate checks the movement independently of any stock level
func (mv Movement) Validate() error {
	if !mv.Type.IsValid() {
		return shared.ErrInvalidTransactionType
	}
	if !mv.Quantity.IsPositive() {
		return shared.ErrInvalidQuantity
	}
	if !valueobject.FitsStorage(mv.Quantity) {
		return shared.ErrQuantityPrecision
	}
	if !mv.Reason.IsValid() {
		return shared.ErrInvalidReason
	}
	if len(mv.Notes) > MaxNotesLength {
		return shared.ErrValidation.WithMessage("Notes cannot exceed 500 characters")
	}
	if mv.Reference != nil && !mv.Reference.IsZero() && (mv.Reference.Type == "" || mv.Reference.ID == "") {
		return shared.ErrValidation.WithMessage("Reference requires both type and id")
	}
	return nil
}

// Change returns the signed stock delta this movement produces from the
// given starting stock. Adjustments carry the counted absolute quantity, so
// their delta is target minus current.
func (mv Movement) Change(before decimal.Decimal) decimal.Decimal {
	switch mv.Type {
	case TransactionTypeRestock:
		return mv.Quantity
	case TransactionTypeDeduction:
		return mv.Quantity.Neg()
	case TransactionTypeAdjustment:
		return mv.Quantity.Sub(before)
	default:
		return decimal.Zero
	}
}

// InventoryTransaction is an immutable ledger entry. Once created it is never
// updated or deleted; corrections are new entries.
type InventoryTransaction struct {
	shared.BaseEntity
	TenantID        uuid.UUID
	MaterialID      uuid.UUID
	TransactionType TransactionType
	Reason          Reason
	QuantityBefore  decimal.Decimal
	QuantityChange  decimal.Decimal
	QuantityAfter   decimal.Decimal
	Notes           string
	ReferenceType   string
	ReferenceID     string
	ActorID         *uuid.UUID
	// MaterialVersion is the material's version after this entry was applied.
	// It orders a material's ledger and is unique per material.
	MaterialVersion int
}

// NewInventoryTransaction creates the ledger entry for a movement on a material
func NewInventoryTransaction(m *Material, mv Movement, before, change decimal.Decimal) (*InventoryTransaction, error) {
	if m == nil || m.ID == uuid.Nil {
		return nil, shared.ErrMaterialNotFound
	}
	if err := mv.Validate(); err != nil {
		return nil, err
	}

	tx := &InventoryTransaction{
		BaseEntity:      shared.NewBaseEntity(),
		TenantID:        m.TenantID,
		MaterialID:      m.ID,
		TransactionType: mv.Type,
		Reason:          mv.Reason,
		QuantityBefore:  before,
		QuantityChange:  change,
		QuantityAfter:   before.Add(change),
		Notes:           strings.TrimSpace(mv.Notes),
		ActorID:         mv.ActorID,
	}
	if mv.Reference != nil {
		tx.ReferenceType = mv.Reference.Type
		tx.ReferenceID = mv.Reference.ID
	}
	return tx, nil
}

// MovementQuantity returns the quantity of the movement that produced this
// entry: the counted stock for an adjustment, the unsigned change otherwise.
func (t *InventoryTransaction) MovementQuantity() decimal.Decimal {
	if t.TransactionType == TransactionTypeAdjustment {
		return t.QuantityAfter
	}
	return t.QuantityChange.Abs()
}

// Matches reports whether mv, applied to this entry's material, describes
// the same movement as this entry
func (t *InventoryTransaction) Matches(materialID uuid.UUID, mv Movement) bool {
	return t.MaterialID == materialID &&
		t.TransactionType == mv.Type &&
		t.Reason == mv.Reason &&
		t.MovementQuantity().Equal(mv.Quantity)
}

// IsBalanced checks after = before + change
func (t *InventoryTransaction) IsBalanced() bool {
	return t.QuantityAfter.Equal(t.QuantityBefore.Add(t.QuantityChange))
}

// Reference returns the polymorphic reference, or nil when absent
func (t *InventoryTransaction) Reference() *Reference {
	if t.ReferenceType == "" && t.ReferenceID == "" {
		return nil
	}
	return &Reference{Type: t.ReferenceType, ID: t.ReferenceID}
}

// OccurredAt returns when the entry was written
func (t *InventoryTransaction) OccurredAt() time.Time {
	return t.CreatedAt
}
