package services

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/scorably/scorably/repository"
)

const (
	DefaultSweepInterval  = 30 * time.Second
	DefaultSweepBatchSize = 20
	DefaultMaxConcurrent  = 4
)

// AnalysisSweeper periodically picks up calls still pending auto-analysis
// and runs Stage 2 on them. Runs for different calls proceed concurrently
// up to a cap; the in-flight set plus the analyzing lease in the database
// guarantee at most one run per call id.
type AnalysisSweeper struct {
	repo     *repository.GORMRepository
	pipeline *AnalysisPipeline

	interval      time.Duration
	batchSize     int
	maxConcurrent int

	inFlight map[string]bool
	mutex    sync.Mutex
	slots    chan struct{}
	stop     chan struct{}
	stopOnce sync.Once
}

func NewAnalysisSweeper(repo *repository.GORMRepository, pipeline *AnalysisPipeline, cfg PipelineConfig) *AnalysisSweeper {
	interval := cfg.SweepInterval
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	batchSize := cfg.SweepBatchSize
	if batchSize <= 0 {
		batchSize = DefaultSweepBatchSize
	}
	maxConcurrent := cfg.MaxConcurrentRuns
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrent
	}

	return &AnalysisSweeper{
		repo:          repo,
		pipeline:      pipeline,
		interval:      interval,
		batchSize:     batchSize,
		maxConcurrent: maxConcurrent,
		inFlight:      make(map[string]bool),
		slots:         make(chan struct{}, maxConcurrent),
		stop:          make(chan struct{}),
	}
}

// Start launches the sweep loop. It returns immediately.
func (s *AnalysisSweeper) Start() {
	go s.run()
	slog.Info("Analysis sweeper started", "interval", s.interval, "batch_size", s.batchSize, "max_concurrent", s.maxConcurrent)
}

// Stop halts the sweep loop. In-flight runs finish on their own.
func (s *AnalysisSweeper) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
}

func (s *AnalysisSweeper) run() {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.Sweep(context.Background())
		}
	}
}

// Sweep runs one pass over calls pending analysis. Exported so a manual
// trigger or test can drive a pass without the ticker.
func (s *AnalysisSweeper) Sweep(ctx context.Context) {
	calls, err := s.repo.ListCallsPendingAnalysis(ctx, s.batchSize)
	if err != nil {
		slog.Error("Sweep failed to list pending calls", "error", err)
		return
	}
	if len(calls) == 0 {
		return
	}
	slog.Info("Sweeping pending calls", "count", len(calls))

	var wg sync.WaitGroup
	for _, call := range calls {
		if !s.tryAcquire(call.ID) {
			continue
		}

		s.slots <- struct{}{}
		wg.Add(1)
		go func(callID string) {
			defer wg.Done()
			defer func() { <-s.slots }()
			defer s.release(callID)

			result, err := s.pipeline.Analyze(ctx, callID)
			if err != nil {
				if errors.Is(err, ErrAnalysisInFlight) {
					slog.Debug("Call already being analyzed elsewhere", "call_id", callID)
					return
				}
				slog.Error("Sweep analysis failed", "call_id", callID, "error", err)
				return
			}
			if !result.Success {
				slog.Warn("Sweep analysis ended in failure state", "call_id", callID, "error", result.Error)
			}
		}(call.ID)
	}
	wg.Wait()
}

// tryAcquire marks a call as in flight in this process. The database
// lease still protects against other processes.
func (s *AnalysisSweeper) tryAcquire(callID string) bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.inFlight[callID] {
		return false
	}
	s.inFlight[callID] = true
	return true
}

func (s *AnalysisSweeper) release(callID string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	delete(s.inFlight, callID)
}
