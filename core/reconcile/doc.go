// Package reconcile keeps the ledger and the completion index coherent.
//
// The ledger is written first and committed before the index is touched. A
// crash between the two leaves the index stale: an entry may be missing after
// an import or linger after a retirement. Re-importing the plate heals the
// first case; retiring a plate whose ledger record is already retired heals
// the second.
//
// Completion times are fixed at import. Refreshing a vehicle advances its
// stored charge and accrual clock but never moves its prediction, and status
// lookups read the index only.
package reconcile
