package stats

import (
	"context"

	"prosreg/pkg/domain"
)

// Worker consumes refresh requests from a channel and applies them. It keeps
// in-process background refreshes testable without wiring the queue.
type Worker struct {
	refresher *Refresher
	inbox     <-chan domain.OffenderID
}

func NewWorker(refresher *Refresher, inbox <-chan domain.OffenderID) *Worker {
	return &Worker{refresher: refresher, inbox: inbox}
}

func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case id := <-w.inbox:
			if err := w.refresher.Refresh(ctx, id); err != nil {
				return err
			}
		}
	}
}
