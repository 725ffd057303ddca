package inventory

import (
	"context"

	"github.com/erp/bomengine/internal/domain/inventory"
	"github.com/erp/bomengine/internal/domain/recipe"
)

// TransactionScope runs a unit of work inside one database transaction.
// The transaction commits when fn returns nil and rolls back otherwise.
type TransactionScope interface {
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories gives access to repositories that all share the
// scope's transaction.
//
// A stock mutation must load the material with MaterialRepo().FindByIDForUpdate
// and write both the ledger entry and the new stock through the same
// TransactionalRepositories, otherwise the entry's quantity_before can race
// with another writer.
type TransactionalRepositories interface {
	MaterialRepo() inventory.MaterialRepository
	TransactionRepo() inventory.InventoryTransactionRepository
	RecipeRepo() recipe.RecipeRepository
}

// NoOpTransactionScope runs fn directly against the given repositories.
// Tests use it with in-memory fakes.
type NoOpTransactionScope struct {
	materials    inventory.MaterialRepository
	transactions inventory.InventoryTransactionRepository
	recipes      recipe.RecipeRepository
}

// NewNoOpTransactionScope creates a NoOpTransactionScope
func NewNoOpTransactionScope(
	materials inventory.MaterialRepository,
	transactions inventory.InventoryTransactionRepository,
	recipes recipe.RecipeRepository,
) *NoOpTransactionScope {
	return &NoOpTransactionScope{materials: materials, transactions: transactions, recipes: recipes}
}

// Execute runs fn without a transaction
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

func (s *NoOpTransactionScope) MaterialRepo() inventory.MaterialRepository { return s.materials }

func (s *NoOpTransactionScope) TransactionRepo() inventory.InventoryTransactionRepository {
	return s.transactions
}

func (s *NoOpTransactionScope) RecipeRepo() recipe.RecipeRepository { return s.recipes }

var _ TransactionScope = (*NoOpTransactionScope)(nil)
var _ TransactionalRepositories = (*NoOpTransactionScope)(nil)
