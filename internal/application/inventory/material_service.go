package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/erp/bomengine/internal/domain/inventory"
	"github.com/erp/bomengine/internal/domain/shared"
	"github.com/erp/bomengine/internal/domain/shared/valueobject"
	"github.com/erp/bomengine/internal/infrastructure/logger"
	"github.com/erp/bomengine/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// DefaultMaxBulkCreate caps a single bulk create
const DefaultMaxBulkCreate = 100

// MaterialService handles material registration and read-side queries over
// materials and their ledgers
type MaterialService struct {
	materials     inventory.MaterialRepository
	transactions  inventory.InventoryTransactionRepository
	scope         TransactionScope
	logger        *zap.Logger
	publisher     shared.EventPublisher
	maxBulkCreate int
}

// NewMaterialService creates a new MaterialService
func NewMaterialService(
	materials inventory.MaterialRepository,
	transactions inventory.InventoryTransactionRepository,
	scope TransactionScope,
	maxBulkCreate int,
	log *zap.Logger,
) *MaterialService {
	if maxBulkCreate <= 0 {
		maxBulkCreate = DefaultMaxBulkCreate
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &MaterialService{
		materials:     materials,
		transactions:  transactions,
		scope:         scope,
		logger:        log,
		maxBulkCreate: maxBulkCreate,
	}
}

// SetEventPublisher sets the event publisher for publishing domain events
func (s *MaterialService) SetEventPublisher(publisher shared.EventPublisher) {
	s.publisher = publisher
}

// BulkCreate registers 1..maxBulkCreate materials in one transaction. Any
// invalid entry or SKU clash (within the batch or with live materials)
// rejects the whole batch. Opening stock is booked as a restock ledger entry.
func (s *MaterialService) BulkCreate(ctx context.Context, cmd BulkCreateMaterialsCommand) (resp []MaterialResponse, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "material", "bulk_create",
		attribute.String("tenant_id", cmd.TenantID.String()),
		attribute.Int("count", len(cmd.Materials)),
	)
	defer func() { telemetry.EndSpan(span, err) }()

	if cmd.TenantID == uuid.Nil {
		return nil, shared.ErrTenantRequired
	}
	if len(cmd.Materials) == 0 {
		return nil, shared.ErrValidation.WithMessage("At least one material is required")
	}
	if len(cmd.Materials) > s.maxBulkCreate {
		return nil, shared.ErrBatchTooLarge.WithMessage(
			fmt.Sprintf("At most %d materials can be created at once, got %d", s.maxBulkCreate, len(cmd.Materials)))
	}

	materials := make([]*inventory.Material, len(cmd.Materials))
	seen := make(map[string]int, len(cmd.Materials))
	skus := make([]string, 0, len(cmd.Materials))
	for i, in := range cmd.Materials {
		m, err := buildMaterial(cmd.TenantID, in)
		if err != nil {
			return nil, withItemIndex(err, i)
		}
		if m.HasSKU() {
			if first, dup := seen[m.SKU]; dup {
				return nil, shared.ErrAlreadyExists.WithMessage(
					fmt.Sprintf("materials[%d]: SKU %s repeats materials[%d]", i, m.SKU, first))
			}
			seen[m.SKU] = i
			skus = append(skus, m.SKU)
		}
		materials[i] = m
	}

	err = s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		taken, err := repos.MaterialRepo().FindExistingSKUs(ctx, cmd.TenantID, skus)
		if err != nil {
			return err
		}
		if len(taken) > 0 {
			return shared.ErrAlreadyExists.WithMessage("SKU already in use: " + strings.Join(taken, ", "))
		}

		// Opening stock is applied as a restock from zero before the insert,
		// so each row starts at its opening stock and its first ledger entry
		// has quantity_before = 0
		opening := make([]*inventory.InventoryTransaction, 0)
		for i, m := range materials {
			m.AddDomainEvent(inventory.NewMaterialCreatedEvent(m))
			if !cmd.Materials[i].OpeningStock.IsPositive() {
				continue
			}
			tx, err := m.RecordMovement(inventory.Movement{
				Type:     inventory.TransactionTypeRestock,
				Quantity: cmd.Materials[i].OpeningStock,
				Reason:   inventory.ReasonPurchase,
				Notes:    "Opening stock",
				ActorID:  cmd.ActorID,
			})
			if err != nil {
				return withItemIndex(err, i)
			}
			opening = append(opening, tx)
		}

		if err := repos.MaterialRepo().CreateBatch(ctx, materials); err != nil {
			return err
		}
		for _, tx := range opening {
			if err := repos.TransactionRepo().Create(ctx, tx); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.WithLogger(ctx, s.logger).Info("Materials created",
		zap.String("tenant_id", cmd.TenantID.String()),
		zap.Int("count", len(materials)),
	)

	resp = make([]MaterialResponse, len(materials))
	for i, m := range materials {
		resp[i] = ToMaterialResponse(m)
		s.publishDomainEvents(ctx, m)
	}
	return resp, nil
}

func buildMaterial(tenantID uuid.UUID, in CreateMaterialInput) (*inventory.Material, error) {
	unit, err := valueobject.ParseMeasureUnit(in.Unit)
	if err != nil {
		return nil, shared.ErrInvalidUnit.WithMessage(err.Error())
	}
	m, err := inventory.NewMaterial(tenantID, in.Name, unit)
	if err != nil {
		return nil, err
	}
	if err := m.SetSKU(in.SKU); err != nil {
		return nil, err
	}
	if err := m.SetCategory(in.Category); err != nil {
		return nil, err
	}
	if err := m.SetReorderThreshold(in.ReorderThreshold); err != nil {
		return nil, err
	}
	if err := m.SetUnitCost(in.UnitCost); err != nil {
		return nil, err
	}
	if err := m.SetSupplierRef(in.SupplierRef); err != nil {
		return nil, err
	}
	if in.OpeningStock.IsNegative() {
		return nil, shared.ErrInvalidQuantity.WithMessage("Opening stock cannot be negative")
	}
	return m, nil
}

// withItemIndex prefixes a domain error message with the batch position
func withItemIndex(err error, i int) error {
	var de *shared.DomainError
	if errors.As(err, &de) {
		return de.WithMessage(fmt.Sprintf("materials[%d]: %s", i, de.Message))
	}
	return fmt.Errorf("materials[%d]: %w", i, err)
}

// Get returns one live material
func (s *MaterialService) Get(ctx context.Context, tenantID, id uuid.UUID) (*MaterialResponse, error) {
	m, err := s.materials.FindByIDForTenant(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	resp := ToMaterialResponse(m)
	return &resp, nil
}

// List returns a page of live materials
func (s *MaterialService) List(ctx context.Context, tenantID uuid.UUID, filter MaterialListFilter) ([]MaterialResponse, int64, error) {
	f := filter.ToFilter()
	materials, err := s.materials.FindAllForTenant(ctx, tenantID, f)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.materials.CountForTenant(ctx, tenantID, f)
	if err != nil {
		return nil, 0, err
	}
	return ToMaterialResponses(materials), total, nil
}

// Delete soft-deletes a material. Its ledger is kept.
func (s *MaterialService) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	return s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		m, err := repos.MaterialRepo().FindByIDForUpdate(ctx, tenantID, id)
		if err != nil {
			return err
		}
		if err := m.SoftDelete(); err != nil {
			return err
		}
		return repos.MaterialRepo().SaveWithLock(ctx, m)
	})
}

// History lists a material's ledger, newest first
func (s *MaterialService) History(ctx context.Context, tenantID, materialID uuid.UUID, page, pageSize int) ([]TransactionResponse, int64, error) {
	if _, err := s.materials.FindByIDForTenant(ctx, tenantID, materialID); err != nil {
		return nil, 0, err
	}
	filter := shared.Filter{Page: page, PageSize: pageSize}.Normalize()
	entries, err := s.transactions.FindByMaterial(ctx, tenantID, materialID, filter)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.transactions.CountByMaterial(ctx, tenantID, materialID)
	if err != nil {
		return nil, 0, err
	}
	return ToTransactionResponses(entries), total, nil
}

// VerifyLedger replays a material's ledger and compares the result with the
// stored stock. Material and chain are read in one transaction so a
// concurrent mutation cannot show up as a false break.
func (s *MaterialService) VerifyLedger(ctx context.Context, tenantID, materialID uuid.UUID) (*inventory.LedgerReport, error) {
	var report inventory.LedgerReport
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		m, err := repos.MaterialRepo().FindByIDForUpdate(ctx, tenantID, materialID)
		if err != nil {
			return err
		}
		chain, err := repos.TransactionRepo().FindChain(ctx, tenantID, materialID)
		if err != nil {
			return err
		}
		report = inventory.VerifyLedger(m, chain)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !report.Consistent {
		logger.WithLogger(ctx, s.logger).Error("Ledger verification failed",
			zap.String("material_id", materialID.String()),
			zap.String("stored_quantity", report.StoredQuantity.String()),
			zap.String("replayed_quantity", report.ReplayedQuantity.String()),
		)
	}
	return &report, nil
}

func (s *MaterialService) publishDomainEvents(ctx context.Context, m *inventory.Material) {
	events := m.GetDomainEvents()
	m.ClearDomainEvents()
	if s.publisher == nil || len(events) == 0 {
		return
	}
	_ = s.publisher.Publish(ctx, events...)
}
