// Package verifyrunner drains the MRV analysis queue in the background.
// A dispatcher claims pending claims one at a time and hands them to a
// fixed pool of workers.
package verifyrunner

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"carbonchain/internal/ports"
)

// Run starts the dispatcher and worker goroutines. It returns immediately;
// everything stops when ctx is cancelled.
func Run(ctx context.Context, claims ports.ClaimRepository, verifier ports.Verifier, concurrency int, pollInterval time.Duration) {
	if concurrency < 1 {
		return
	}
	queue := make(chan uuid.UUID, concurrency)

	go func() {
		ticker := time.NewTicker(pollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				close(queue)
				return
			case <-ticker.C:
				for {
					claim, found, err := claims.NextPendingVerification(ctx)
					if err != nil {
						log.Printf("verifyrunner: claim next: %v", err)
						break
					}
					if !found {
						break
					}
					queue <- claim.ID
				}
			}
		}
	}()

	for i := 0; i < concurrency; i++ {
		go func(idx int) {
			for claimID := range queue {
				if _, err := verifier.Verify(ctx, claimID); err != nil {
					// The claim stays in progress; an operator retries it
					// through the verify endpoint once the cause is fixed.
					log.Printf("verifyrunner: worker %d: claim %s: %v", idx, claimID, err)
				}
			}
		}(i)
	}
}
