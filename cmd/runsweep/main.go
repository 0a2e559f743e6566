// Runsweep reconciles sequencer run directories against the processing
// platform and the ticketing system, and deletes runs whose data has been
// released.
//
// Usage:
//
//	# Run one cycle for today
//	runsweep run --config /etc/runsweep/runsweep.yaml
//
//	# Show what the classifier would decide, without writing anything
//	runsweep scan --output csv
//
//	# Run cycles on a cron schedule and serve health and metrics
//	runsweep serve
//
//	# Inspect or discard the pending deletion batch
//	runsweep intents show
//	runsweep intents clear
package main

func main() {
	Execute()
}
