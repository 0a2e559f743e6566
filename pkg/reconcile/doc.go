// Package reconcile runs the weekly run lifecycle: scan, cross-reference,
// classify, propose deletion and execute deletion.
//
// A cycle always scans and classifies. On the propose weekday the
// FlagDelete set replaces the intent store and the digests are posted.
// On the execute weekday every stored record is revalidated against the
// ticketing system before its directory is removed:
//
//	Idle -> Proposed (propose day) -> Executed (execute day) -> Idle
//
// A filesystem error during execution halts the batch, clears the store
// and alerts. Notification failures are alerted but never undo deletions.
package reconcile
