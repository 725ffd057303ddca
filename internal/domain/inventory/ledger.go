package inventory

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LedgerBreak describes the first entry that does not follow its predecessor
type LedgerBreak struct {
	Index         int             `json:"index"`
	TransactionID uuid.UUID       `json:"transaction_id"`
	Expected      decimal.Decimal `json:"expected"`
	Actual        decimal.Decimal `json:"actual"`
	Problem       string          `json:"problem"`
}

// LedgerReport is the outcome of replaying a material's ledger
type LedgerReport struct {
	MaterialID       uuid.UUID       `json:"material_id"`
	Entries          int             `json:"entries"`
	ReplayedQuantity decimal.Decimal `json:"replayed_quantity"`
	StoredQuantity   decimal.Decimal `json:"stored_quantity"`
	Consistent       bool            `json:"consistent"`
	Break            *LedgerBreak    `json:"break,omitempty"`
}

// VerifyLedger replays entries (oldest first) from zero stock and checks
// that every entry balances, that each entry starts where the previous one
// ended, and that the material's stored stock equals the final balance.
func VerifyLedger(m *Material, entries []InventoryTransaction) LedgerReport {
	report := LedgerReport{
		MaterialID:     m.ID,
		Entries:        len(entries),
		StoredQuantity: m.StockQuantity,
	}

	running := decimal.Zero
	for i := range entries {
		e := &entries[i]
		if !e.QuantityBefore.Equal(running) {
			report.Break = &LedgerBreak{
				Index: i, TransactionID: e.ID,
				Expected: running, Actual: e.QuantityBefore,
				Problem: "quantity_before does not match previous quantity_after",
			}
			break
		}
		if !e.IsBalanced() {
			report.Break = &LedgerBreak{
				Index: i, TransactionID: e.ID,
				Expected: e.QuantityBefore.Add(e.QuantityChange), Actual: e.QuantityAfter,
				Problem: "quantity_after does not equal quantity_before plus quantity_change",
			}
			break
		}
		if e.QuantityAfter.IsNegative() {
			report.Break = &LedgerBreak{
				Index: i, TransactionID: e.ID,
				Expected: decimal.Zero, Actual: e.QuantityAfter,
				Problem: "negative balance",
			}
			break
		}
		running = e.QuantityAfter
	}

	report.ReplayedQuantity = running
	report.Consistent = report.Break == nil && running.Equal(m.StockQuantity)
	return report
}
