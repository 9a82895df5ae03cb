package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/VasquezCodes/CineMatch-sub000/internal/repository"
)

// Poller is the safety net under the trigger chain: it ticks on a fixed
// interval and kicks the import runner whenever pending work exists, so a
// dropped wake-up call or a crashed invocation chain only delays processing
// by at most one interval instead of stranding the queue.
type Poller struct {
	queue    repository.QueueRepository
	runner   *Runner
	interval time.Duration
	logger   *zap.Logger
}

func NewPoller(
	queue repository.QueueRepository,
	runner *Runner,
	interval time.Duration,
	logger *zap.Logger,
) *Poller {
	return &Poller{queue: queue, runner: runner, interval: interval, logger: logger}
}

// Run ticks every interval until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.logger.Info("import poller started", zap.Duration("interval", p.interval))

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("import poller stopping")
			return
		case <-ticker.C:
			p.poll(ctx)
		}
	}
}

func (p *Poller) poll(ctx context.Context) {
	pending, err := p.queue.CountPending(ctx)
	if err != nil {
		p.logger.Error("poller count error", zap.Error(err))
		return
	}
	if pending == 0 {
		return
	}

	p.logger.Info("poller found pending work", zap.Int("pending", pending))
	if _, err := p.runner.Run(ctx); err != nil {
		p.logger.Error("poller run error", zap.Error(err))
	}
}
