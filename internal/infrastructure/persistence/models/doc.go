// Package models contains GORM persistence models for the BOM engine tables.
// They are kept apart from the domain aggregates so the domain stays free of
// ORM tags; each model converts with ToDomain and FromDomain.
//
//   - material.go: materials
//   - recipe.go: recipes and recipe_components
//   - inventory_transaction.go: the append-only stock ledger
package models
