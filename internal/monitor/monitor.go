package monitor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/arcanalyse/encounter-builder/internal/domain"
	"github.com/arcanalyse/encounter-builder/internal/logger"
	"github.com/arcanalyse/encounter-builder/pkg/apiclient"
	"github.com/arcanalyse/encounter-builder/pkg/publishers"
	"github.com/arcanalyse/encounter-builder/pkg/query"
	"github.com/arcanalyse/encounter-builder/pkg/targets"
)

// Service checks targets and publishes status transitions.
type Service struct {
	publisher EventPublisher
	log       logger.Logger
	timeout   time.Duration
	userAgent string
	now       func() time.Time

	mu      sync.Mutex
	last    map[string]string
	clients map[string]*apiclient.Client
}

// Options tunes the per-target request clients.
type Options struct {
	RequestTimeout time.Duration
	UserAgent      string
}

// NewService wires a monitor. publisher may be nil, in which case
// transitions are only logged.
func NewService(publisher EventPublisher, log logger.Logger, opts Options) *Service {
	return &Service{
		publisher: publisher,
		log:       logger.Ensure(log),
		timeout:   opts.RequestTimeout,
		userAgent: opts.UserAgent,
		now:       time.Now,
		last:      make(map[string]string),
		clients:   make(map[string]*apiclient.Client),
	}
}

// Run checks every target once and publishes transitions. It stops early
// when ctx is cancelled; a check interrupted that way is dropped rather
// than recorded.
func (s *Service) Run(ctx context.Context, tgts []targets.Target) ([]domain.Snapshot, error) {
	if s == nil {
		return nil, fmt.Errorf("monitor service is not initialized")
	}
	if len(tgts) == 0 {
		return nil, fmt.Errorf("no targets configured for monitoring")
	}

	snaps := make([]domain.Snapshot, 0, len(tgts))
	var errs []error
	for _, t := range tgts {
		if ctx.Err() != nil {
			break
		}
		snap := s.Check(ctx, t)
		if ctx.Err() != nil {
			// A check cut short by cancellation says nothing about the target.
			s.log.DebugObj("check abandoned", "check_abandoned", map[string]any{
				"target_id": t.ID,
				"reason":    ctx.Err().Error(),
			})
			break
		}
		snaps = append(snaps, snap)
		if err := s.observe(ctx, snap); err != nil {
			errs = append(errs, err)
		}
	}
	return snaps, errors.Join(errs...)
}

// Check queries health, version and, when configured, the front-end title
// of a single target.
func (s *Service) Check(ctx context.Context, t targets.Target) domain.Snapshot {
	snap := domain.Snapshot{
		TargetID:   t.ID,
		TargetName: t.Name,
		CheckedAt:  s.now().UTC(),
	}

	sys := query.NewSystem(s.clientFor(t.BaseURL), nil, 0).WithHeaders(t.Headers)

	health, err := sys.Health(ctx)
	if err != nil {
		classify(&snap, err)
		return snap
	}
	snap.Status = health.Status

	version, err := sys.Version(ctx)
	if err != nil {
		snap.HTTPStatus = apiclient.StatusCode(err)
		snap.Error = "version: " + err.Error()
	} else {
		snap.Version = &version
	}

	if t.FrontendURL != "" {
		title, err := s.frontendTitle(ctx, t.FrontendURL, t.Headers)
		if err != nil {
			s.log.WarnObj("frontend title fetch failed", "frontend_error", map[string]any{
				"target_id": t.ID,
				"url":       t.FrontendURL,
				"error":     err.Error(),
			})
		} else {
			snap.FrontendTitle = title
		}
	}
	return snap
}

// LastStatus returns the last observed status of a target.
func (s *Service) LastStatus(id string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.last[id]
	return st, ok
}

// observe records the snapshot and publishes an event when the status
// differs from the previous observation.
func (s *Service) observe(ctx context.Context, snap domain.Snapshot) error {
	s.mu.Lock()
	previous, seen := s.last[snap.TargetID]
	changed := !seen || previous != snap.Status
	s.last[snap.TargetID] = snap.Status
	s.mu.Unlock()

	if !changed {
		s.log.DebugObj("target status unchanged", "target_status", map[string]any{
			"target_id": snap.TargetID,
			"status":    snap.Status,
		})
		return nil
	}

	evt := publishers.NewEvent(previous, snap)
	s.log.InfoObj("target status changed", "status_event", evt)

	if s.publisher == nil {
		return nil
	}
	if _, err := s.publisher.Publish(ctx, evt); err != nil {
		s.log.ErrorObj("status event publish failed", "publish_error", map[string]any{
			"target_id": snap.TargetID,
			"error":     err.Error(),
		})
		return fmt.Errorf("publish status of target %s: %w", snap.TargetID, err)
	}
	return nil
}

func (s *Service) clientFor(base string) *apiclient.Client {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := apiclient.NormalizeBase(base)
	if c, ok := s.clients[key]; ok {
		return c
	}
	c := apiclient.New(apiclient.Config{BaseURL: key, Timeout: s.timeout, UserAgent: s.userAgent})
	s.clients[key] = c
	return c
}

// classify maps a failed health query onto the snapshot.
func classify(snap *domain.Snapshot, err error) {
	snap.Error = err.Error()
	if re, ok := apiclient.AsResponseError(err); ok {
		snap.Status = domain.StatusError
		snap.HTTPStatus = re.Status
		return
	}
	snap.Status = domain.StatusUnreachable
}
