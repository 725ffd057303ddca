package inventory

import (
	"context"
	"fmt"

	"github.com/erp/bomengine/internal/domain/inventory"
	"github.com/erp/bomengine/internal/domain/shared"
	"github.com/erp/bomengine/internal/infrastructure/logger"
	"github.com/erp/bomengine/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// Alert types
const (
	AlertTypeLowStock   = "low_stock"
	AlertTypeOutOfStock = "out_of_stock"
)

// ReorderAlert is sent when a material drops below its reorder threshold
type ReorderAlert struct {
	TenantID         string `json:"tenant_id"`
	MaterialID       string `json:"material_id"`
	MaterialName     string `json:"material_name"`
	SKU              string `json:"sku,omitempty"`
	SupplierRef      string `json:"supplier_ref,omitempty"`
	CurrentQuantity  string `json:"current_quantity"`
	ReorderThreshold string `json:"reorder_threshold"`
	Shortfall        string `json:"shortfall"`
	AlertType        string `json:"alert_type"`
}

// ReorderNotifier delivers reorder alerts, e.g. to purchasing
type ReorderNotifier interface {
	Notify(ctx context.Context, alert ReorderAlert) error
}

// ReorderAlertHandler reacts to MaterialBelowReorderThreshold events
type ReorderAlertHandler struct {
	logger   *zap.Logger
	notifier ReorderNotifier
	metrics  *telemetry.BOMMetrics
}

// NewReorderAlertHandler creates a new ReorderAlertHandler
func NewReorderAlertHandler(log *zap.Logger) *ReorderAlertHandler {
	return &ReorderAlertHandler{logger: log}
}

// WithNotifier sets the notifier alerts are forwarded to
func (h *ReorderAlertHandler) WithNotifier(n ReorderNotifier) *ReorderAlertHandler {
	h.notifier = n
	return h
}

// WithMetrics sets the metrics recorder
func (h *ReorderAlertHandler) WithMetrics(m *telemetry.BOMMetrics) *ReorderAlertHandler {
	h.metrics = m
	return h
}

// EventTypes returns the event types this handler is interested in
func (h *ReorderAlertHandler) EventTypes() []string {
	return []string{inventory.EventTypeMaterialBelowReorderThreshold}
}

// Handle turns the event into a ReorderAlert
func (h *ReorderAlertHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	e, ok := event.(*inventory.MaterialBelowReorderThresholdEvent)
	if !ok {
		return fmt.Errorf("unexpected event type: expected %s, got %s",
			inventory.EventTypeMaterialBelowReorderThreshold, event.EventType())
	}

	alertType := AlertTypeLowStock
	if e.CurrentQuantity.IsZero() {
		alertType = AlertTypeOutOfStock
	}
	alert := ReorderAlert{
		TenantID:         e.TenantID().String(),
		MaterialID:       e.MaterialID.String(),
		MaterialName:     e.MaterialName,
		SKU:              e.SKU,
		SupplierRef:      e.SupplierRef,
		CurrentQuantity:  e.CurrentQuantity.String(),
		ReorderThreshold: e.ReorderThreshold.String(),
		Shortfall:        e.Shortfall().String(),
		AlertType:        alertType,
	}

	log := logger.WithLogger(ctx, h.logger)
	log.Warn("Material below reorder threshold",
		zap.String("material_id", alert.MaterialID),
		zap.String("material_name", alert.MaterialName),
		zap.String("current_quantity", alert.CurrentQuantity),
		zap.String("reorder_threshold", alert.ReorderThreshold),
		zap.String("alert_type", alertType),
	)
	h.metrics.RecordReorderAlert(ctx, alert.TenantID)

	if h.notifier == nil {
		return nil
	}
	if err := h.notifier.Notify(ctx, alert); err != nil {
		return fmt.Errorf("notify reorder alert for material %s: %w", alert.MaterialID, err)
	}
	return nil
}

var _ shared.EventHandler = (*ReorderAlertHandler)(nil)
