package app

import (
	"context"
	"fmt"
	"time"

	"github.com/arcanalyse/encounter-builder/internal/config"
	"github.com/arcanalyse/encounter-builder/internal/domain"
	"github.com/arcanalyse/encounter-builder/internal/logger"
	"github.com/arcanalyse/encounter-builder/internal/monitor"
	"github.com/arcanalyse/encounter-builder/pkg/publishers"
	"github.com/arcanalyse/encounter-builder/pkg/targets"
)

// Monitor is the polling runtime. It checks every target on an interval and
// fans status transitions out to the configured publishers.
type Monitor struct {
	cfg      *config.Config
	targets  []targets.Target
	fanout   *publishers.Fanout
	service  *monitor.Service
	interval time.Duration
	log      logger.Logger
}

// NewMonitor builds a monitor runtime from config files.
func NewMonitor(ctx context.Context, cfg *config.Config, log logger.Logger) (*Monitor, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	log = logger.Ensure(log)
	if ctx == nil {
		ctx = context.Background()
	}

	targetReg, err := loadTargets(cfg)
	if err != nil {
		return nil, err
	}
	tgts := targetReg.All()
	ids := make([]string, 0, len(tgts))
	for _, t := range tgts {
		ids = append(ids, t.ID)
	}
	log.InfoObj("targets registry loaded", "targets_meta", map[string]any{
		"count": len(ids),
		"ids":   ids,
	})

	fanout, err := buildFanout(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	// A nil *Fanout must not reach the service as a non-nil interface.
	var pub monitor.EventPublisher
	if fanout != nil {
		pub = fanout
	}
	svc := monitor.NewService(pub, log, monitor.Options{
		RequestTimeout: cfg.RequestTimeout,
		UserAgent:      cfg.AppName,
	})

	return &Monitor{
		cfg:      cfg,
		targets:  tgts,
		fanout:   fanout,
		service:  svc,
		interval: cfg.PollInterval,
		log:      log,
	}, nil
}

func loadTargets(cfg *config.Config) (*targets.Registry, error) {
	if cfg.TargetsFile == "" {
		reg, err := targets.DefaultRegistry(cfg.APIBase)
		if err != nil {
			return nil, fmt.Errorf("build default target: %w", err)
		}
		return reg, nil
	}
	reg, err := targets.LoadRegistry(cfg.TargetsFile)
	if err != nil {
		return nil, fmt.Errorf("load targets registry: %w", err)
	}
	return reg, nil
}

// buildFanout returns nil when no publishers are configured.
func buildFanout(ctx context.Context, cfg *config.Config, log logger.Logger) (*publishers.Fanout, error) {
	if cfg.PublishersFile == "" {
		log.InfoObj("no publishers file configured; transitions are only logged", "publishers_file", "")
		return nil, nil
	}

	publisherReg, err := publishers.LoadRegistry(cfg.PublishersFile)
	if err != nil {
		return nil, fmt.Errorf("load publishers registry: %w", err)
	}
	enabled := publisherReg.Enabled()
	if len(enabled) == 0 {
		log.WarnObj("no enabled publishers; transitions are only logged", "publishers_file", cfg.PublishersFile)
		return nil, nil
	}

	clients, err := publishers.BuildAll(ctx, publishers.DefaultRegistry(), enabled, log)
	if err != nil {
		return nil, fmt.Errorf("build publishers: %w", err)
	}
	summaries := make([]map[string]string, 0, len(enabled))
	for _, pubCfg := range enabled {
		summaries = append(summaries, map[string]string{
			"id":   pubCfg.ID,
			"type": pubCfg.Type,
		})
	}
	log.InfoObj("publishers registry loaded", "publishers_meta", map[string]any{
		"count":      len(summaries),
		"publishers": summaries,
	})
	return publishers.NewFanout(clients), nil
}

// Run checks immediately and then on every tick until ctx is cancelled.
func (m *Monitor) Run(ctx context.Context) error {
	if m == nil || m.service == nil {
		return fmt.Errorf("monitor is not initialized")
	}
	defer m.closePublishers()

	m.log.InfoObj("monitor loop starting", "monitor_state", map[string]any{
		"targets_count":    len(m.targets),
		"publishers_count": m.fanout.Size(),
		"poll_interval":    m.interval.String(),
	})

	if _, err := m.RunOnce(ctx); err != nil {
		m.log.ErrorObj("initial check pass failed", "error", err)
	}

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.log.InfoObj("monitor loop exiting", "reason", ctx.Err())
			return nil
		case <-ticker.C:
			if _, err := m.RunOnce(ctx); err != nil {
				m.log.ErrorObj("scheduled check pass failed", "error", err)
			}
		}
	}
}

// RunOnce performs a single check pass across all targets.
func (m *Monitor) RunOnce(ctx context.Context) ([]domain.Snapshot, error) {
	start := time.Now()
	m.log.InfoObj("check pass started", "pass_meta", map[string]any{
		"targets_count": len(m.targets),
		"started_at":    start.UTC(),
	})
	snaps, err := m.service.Run(ctx, m.targets)
	healthy := 0
	for _, s := range snaps {
		if s.Healthy() {
			healthy++
		}
	}
	m.log.InfoObj("check pass completed", "pass_meta", map[string]any{
		"targets_count": len(snaps),
		"healthy":       healthy,
		"elapsed_ms":    time.Since(start).Milliseconds(),
	})
	return snaps, err
}

func (m *Monitor) closePublishers() {
	if err := m.fanout.Close(); err != nil {
		m.log.ErrorObj("publisher close failed", "error", err)
	}
}
