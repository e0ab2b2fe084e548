// Package monitorrunner sweeps all live credits through the post-issuance
// monitor on a fixed interval.
package monitorrunner

import (
	"context"
	"log"
	"time"

	"carbonchain/internal/ports"
)

// Run blocks until ctx is cancelled, invoking one monitoring sweep per
// interval. Callers start it in its own goroutine.
func Run(ctx context.Context, monitor ports.Monitor, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := monitor.RunDue(ctx); err != nil && ctx.Err() == nil {
				log.Printf("monitorrunner: sweep: %v", err)
			}
		}
	}
}
