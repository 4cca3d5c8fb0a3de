package workers

import (
	"context"
	"francoggm/merchant-status-relay/internal/app/workers/processors"
	"sync"

	"go.uber.org/zap"
)

// Orchestrator runs a fixed number of workers over one events channel. The
// workers stop once the channel is closed and drained.
type Orchestrator struct {
	workers  []*worker
	eventsCh chan any
	wg       sync.WaitGroup
}

func NewOrchestrator(workersCount int, eventsCh chan any, eventsProcessor processors.Processor, logger *zap.Logger) *Orchestrator {
	if workersCount < 1 {
		workersCount = 1
	}

	var workers []*worker
	for id := range workersCount {
		worker := newWorker(id, eventsCh, eventsProcessor, logger)
		workers = append(workers, worker)
	}

	return &Orchestrator{
		workers:  workers,
		eventsCh: eventsCh,
	}
}

func (o *Orchestrator) StartWorkers(ctx context.Context) {
	for _, worker := range o.workers {
		o.wg.Add(1)
		go func() {
			defer o.wg.Done()
			worker.start(ctx)
		}()
	}
}

// Wait blocks until every worker has returned.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}
