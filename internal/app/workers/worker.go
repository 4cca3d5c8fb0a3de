package workers

import (
	"context"
	"francoggm/merchant-status-relay/internal/app/workers/processors"

	"go.uber.org/zap"
)

type worker struct {
	id              int
	eventsCh        chan any
	eventsProcessor processors.Processor
	logger          *zap.Logger
}

func newWorker(id int, eventsCh chan any, eventsProcessor processors.Processor, logger *zap.Logger) *worker {
	return &worker{
		id:              id,
		eventsCh:        eventsCh,
		eventsProcessor: eventsProcessor,
		logger:          logger,
	}
}

// start drains the channel even after ctx is done. Processors see the
// cancelled context and fail fast, so every event still gets an outcome.
func (w *worker) start(ctx context.Context) {
	for event := range w.eventsCh {
		if err := w.eventsProcessor.ProcessEvent(ctx, event); err != nil {
			w.logger.Debug("error processing event", zap.Int("worker", w.id), zap.Error(err))
		}
	}
}
