package service

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

const defaultSweepInterval = 5 * time.Minute

// SweeperService evicts idle sessions from the registry on a periodic
// schedule.
type SweeperService struct {
	registry *SessionRegistry
	logger   *zap.Logger

	interval time.Duration
	maxIdle  time.Duration
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

func NewSweeperService(registry *SessionRegistry, maxIdle time.Duration, logger *zap.Logger) *SweeperService {
	return &SweeperService{
		registry: registry,
		logger:   logger,
		interval: defaultSweepInterval,
		maxIdle:  maxIdle,
		stopCh:   make(chan struct{}),
	}
}

func (s *SweeperService) SetInterval(d time.Duration) {
	s.interval = d
}

// Start runs the sweeper in a background goroutine.
func (s *SweeperService) Start() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.logger.Info("session sweeper started",
			zap.Duration("interval", s.interval),
			zap.Duration("max_idle", s.maxIdle))

		for {
			select {
			case <-ticker.C:
				s.registry.SweepIdle(s.maxIdle)
			case <-s.stopCh:
				s.logger.Info("session sweeper stopped")
				return
			}
		}
	}()
}

// Stop gracefully stops the sweeper.
func (s *SweeperService) Stop() {
	close(s.stopCh)
	s.wg.Wait()
}
