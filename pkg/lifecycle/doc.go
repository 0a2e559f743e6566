// Package lifecycle defines the domain model for sequencing run retirement.
//
// A run directory on local disk is only removed after three independent
// systems of record agree that its data is safe to delete:
//
//  1. Local filesystem - the run directory exists and has an upload log
//  2. Remote platform - raw data reached the staging area and a processed
//     project exists
//  3. Ticketing system - the run's ticket is in a terminal release state
//
// # Reconciliation Flow
//
//	Scanner → {Remote Gateway, Ticket Gateway} → Classifier
//	     ↓
//	Propose day: Intent Store (replace batch) + digests
//	     ↓
//	Execute day: Intent Store → Ticket re-check → delete → audit → ack ticket
//
// This package only holds shared types and error classes. The behaviour
// lives in the scanner, classify, gateway, ticket, intent and reconcile
// packages.
//
// # Dispositions
//
// Every monitored run is classified once per cycle into one of:
//   - TooYoung: younger than the retention threshold
//   - FlagDelete: all corroborating signals agree
//   - FlagManualReview: old enough but the signals are inconclusive
//   - Ignored: not a monitored assay and not in a terminal state
package lifecycle
