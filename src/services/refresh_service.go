package services

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/username/cashflow/src/logger"
	"github.com/username/cashflow/src/models"
	"go.uber.org/atomic"
	"golang.org/x/sync/singleflight"
)

// ViewListener receives each view published for owner.
type ViewListener func(owner string, view *models.View)

// viewSlot is the view state of one owner.
type viewSlot struct {
	generation atomic.Int64
	params     models.ViewParams
	latest     *models.View
}

// RefreshService coordinates projector runs and view reloads. Overlapping
// projector runs share one execution. Each owner (a token subject) has its own
// current view; reloads are last-write-wins per owner, so a reload that
// finishes after a newer one for the same owner started never replaces it.
type RefreshService struct {
	projector   ProjectionService
	views       ViewService
	notifier    NotificationService
	horizonDays int

	group singleflight.Group

	mu        sync.RWMutex
	slots     map[string]*viewSlot
	listeners []ViewListener
}

func NewRefreshService(projector ProjectionService, views ViewService, notifier NotificationService, horizonDays int) *RefreshService {
	return &RefreshService{
		projector:   projector,
		views:       views,
		notifier:    notifier,
		horizonDays: horizonDays,
		slots:       make(map[string]*viewSlot),
	}
}

// HorizonDays is the horizon used when callers do not pass one.
func (s *RefreshService) HorizonDays() int {
	return s.horizonDays
}

// Project runs the projector, joining an identical run already in flight.
// The run is detached from ctx cancellation: once started, its writes complete.
func (s *RefreshService) Project(ctx context.Context, horizonDays int) (*models.ProjectionReport, error) {
	key := "project_" + strconv.Itoa(horizonDays)
	runCtx := context.WithoutCancel(ctx)

	v, err, shared := s.group.Do(key, func() (interface{}, error) {
		report, err := s.projector.Project(runCtx, horizonDays)
		if report != nil && len(report.Inserted) > 0 {
			s.views.Invalidate()
			s.notifyAsync(report.Inserted)
		}
		return report, err
	})
	if shared {
		logger.FromContext(ctx).Debug("Joined in-flight projection", "horizonDays", horizonDays)
	}
	report, _ := v.(*models.ProjectionReport)
	return report, err
}

func (s *RefreshService) notifyAsync(inserted []models.Transaction) {
	if s.notifier == nil {
		return
	}
	occurrences := make([]models.Transaction, len(inserted))
	copy(occurrences, inserted)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := s.notifier.SendUpcomingDigest(ctx, occurrences); err != nil {
			logger.L.Error("Failed to send upcoming digest", "error", err, "occurrences", len(occurrences))
		}
	}()
}

// Refresh loads the view for params and makes params owner's current view.
// In FUTURE mode the projector runs first. If a newer Refresh for the same
// owner started meanwhile, the loaded view is returned with ErrSuperseded and
// is not published.
func (s *RefreshService) Refresh(ctx context.Context, owner string, params models.ViewParams) (*models.View, error) {
	params = NormalizeViewParams(params)

	s.mu.Lock()
	slot, ok := s.slots[owner]
	if !ok {
		slot = &viewSlot{}
		s.slots[owner] = slot
	}
	gen := slot.generation.Inc()
	slot.params = params
	s.mu.Unlock()

	if params.Mode == models.ViewFuture {
		if _, err := s.Project(ctx, s.horizonDays); err != nil {
			// The view still shows whatever was projected.
			logger.FromContext(ctx).Warn("Projection before future view failed", "error", err)
		}
	}

	view, err := s.views.LoadView(ctx, params)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if slot.generation.Load() != gen {
		s.mu.Unlock()
		return view, ErrSuperseded
	}
	slot.latest = view
	listeners := append([]ViewListener{}, s.listeners...)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(owner, view)
	}
	return view, nil
}

// Latest returns the most recently published view of owner, or nil.
func (s *RefreshService) Latest(owner string) *models.View {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if slot, ok := s.slots[owner]; ok {
		return slot.latest
	}
	return nil
}

// OnView registers fn to receive every published view.
func (s *RefreshService) OnView(fn ViewListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// HandleEvent reloads every owner's current view after a store change.
// Per-occurrence projection events are covered by the projection_completed
// event that follows them.
func (s *RefreshService) HandleEvent(ev models.Event) {
	if ev.Kind == models.EventOccurrenceProjected {
		return
	}
	s.mu.RLock()
	current := make(map[string]models.ViewParams, len(s.slots))
	for owner, slot := range s.slots {
		current[owner] = slot.params
	}
	s.mu.RUnlock()

	for owner, params := range current {
		go func() {
			if _, err := s.Refresh(context.Background(), owner, params); err != nil && !errors.Is(err, ErrSuperseded) {
				logger.L.Error("Failed to refresh view after store change", "event", ev.Kind, "owner", owner, "error", err)
			}
		}()
	}
}

// Run projects immediately and then every interval until ctx is done.
func (s *RefreshService) Run(ctx context.Context, interval time.Duration) {
	logger.L.Info("Background projection started", "interval", interval, "horizonDays", s.horizonDays)
	tick := func() {
		if _, err := s.Project(ctx, s.horizonDays); err != nil {
			logger.L.Error("Background projection failed", "error", err)
		}
	}
	tick()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			logger.L.Info("Background projection stopped")
			return
		case <-ticker.C:
			tick()
		}
	}
}
