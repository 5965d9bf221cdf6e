// Package stage defines the contract between the workflow manager and the
// pipeline stages.
package stage

import (
	"context"

	"blogcast/internal/queue"
)

// Handler describes the contract the workflow manager needs from each
// stage. Prepare records the stage's progress and step label before work
// begins; Execute reads the fields earlier stages persisted on the task
// and writes its own through the store.
type Handler interface {
	Prepare(context.Context, *queue.Task) error
	Execute(context.Context, *queue.Task) error
	HealthCheck(context.Context) Health
}
