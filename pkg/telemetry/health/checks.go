package health

import (
	"context"
	"fmt"
	"time"

	"labops/runsweep/pkg/lifecycle/scanner"
)

// DirectoriesCheck fails when any of the run or log roots is missing.
func DirectoriesCheck(paths ...string) CheckFunc {
	return func(context.Context) error {
		return scanner.CheckDirectories(paths...)
	}
}

// FreshnessCheck fails when the last successful cycle is older than maxAge.
// A zero last time is reported as "no successful cycle yet".
func FreshnessCheck(last func() time.Time, maxAge time.Duration) CheckFunc {
	return func(context.Context) error {
		at := last()
		if at.IsZero() {
			return fmt.Errorf("no successful cycle yet")
		}
		if age := time.Since(at); age > maxAge {
			return fmt.Errorf("last successful cycle %s ago (limit %s)", age.Round(time.Second), maxAge)
		}
		return nil
	}
}
