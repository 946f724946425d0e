package service

import (
	"github.com/tntan04/quan-ly-mua-sam/internal/model"
)

// Stock is the derived position of one good.
//
//	Opening  = Σ IMPORT
//	Exported = Σ TRANSFER COMPLETED
//	Pending  = Σ TRANSFER PENDING
//	Closing  = Opening − Exported − Pending
//
// EXPORT entries do not move stock.
type Stock struct {
	Opening  int
	Exported int
	Pending  int
	Closing  int
}

// ComputeStock folds a good's ledger entries into its stock position.
func ComputeStock(txns []model.InventoryTransaction) Stock {
	var st Stock
	for _, t := range txns {
		switch {
		case t.Type == model.TxnImport:
			st.Opening += t.Quantity
		case t.Type == model.TxnTransfer && t.Status == model.TxnCompleted:
			st.Exported += t.Quantity
		case t.Type == model.TxnTransfer && t.Status == model.TxnPending:
			st.Pending += t.Quantity
		}
	}
	st.Closing = st.Opening - st.Exported - st.Pending
	return st
}
