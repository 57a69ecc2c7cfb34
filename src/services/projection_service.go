package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/username/cashflow/src/logger"
	"github.com/username/cashflow/src/models"
	"github.com/username/cashflow/src/processors"
	"github.com/username/cashflow/src/utils"
	"golang.org/x/sync/errgroup"
)

type projectionServiceImpl struct {
	store      TransactionStore
	recurrence processors.RecurrenceProcessor
	views      ViewInvalidator
	publisher  EventPublisher
	clock      func() time.Time
	workers    int
}

func NewProjectionService(
	store TransactionStore,
	recurrence processors.RecurrenceProcessor,
	views ViewInvalidator,
	publisher EventPublisher,
	clock func() time.Time,
	workers int,
) ProjectionService {
	if clock == nil {
		clock = time.Now
	}
	if workers < 1 {
		workers = 1
	}
	return &projectionServiceImpl{
		store:      store,
		recurrence: recurrence,
		views:      views,
		publisher:  publisher,
		clock:      clock,
		workers:    workers,
	}
}

// templateResult is the outcome of reconciling one template.
type templateResult struct {
	inserted  []models.Transaction
	skipped   int
	truncated bool
}

// Project materialises every missing occurrence of every live recurring row up
// to today+horizonDays. Rows that already exist for an occurrence date, live or
// tombstoned, are left alone. A failing template is reported and does not stop
// the others; the returned error aggregates those failures and the report is
// always returned unless the template list itself cannot be read.
func (s *projectionServiceImpl) Project(ctx context.Context, horizonDays int) (*models.ProjectionReport, error) {
	if horizonDays < 0 {
		return nil, fmt.Errorf("horizon must not be negative, got %d", horizonDays)
	}
	start := time.Now()
	log := logger.FromContext(ctx)

	today := utils.Today(s.clock)
	limit := utils.AddDays(today, horizonDays)

	rows, err := s.store.QueryRecurring(ctx)
	if err != nil {
		return nil, fmt.Errorf("error loading recurring templates: %w", err)
	}

	// Templates of one family share an anchor, so they run in order on one
	// worker; distinct families run concurrently.
	var families [][]models.Transaction
	familyIndex := make(map[string]int)
	templates := 0
	for _, tpl := range rows {
		if tpl.IsDeletedByUser || !tpl.Frequency.IsRecurring() {
			continue
		}
		templates++
		key := tpl.FamilyKey()
		i, ok := familyIndex[key]
		if !ok {
			i = len(families)
			familyIndex[key] = i
			families = append(families, nil)
		}
		families[i] = append(families[i], tpl)
	}

	report := &models.ProjectionReport{
		Today:     utils.FormatDate(today),
		Horizon:   utils.FormatDate(limit),
		Templates: templates,
		Inserted:  []models.Transaction{},
	}

	var (
		mu   sync.Mutex
		merr *multierror.Error
	)
	g := new(errgroup.Group)
	g.SetLimit(s.workers)
	for _, family := range families {
		g.Go(func() error {
			for _, tpl := range family {
				if err := ctx.Err(); err != nil {
					return err
				}
				res, err := s.projectTemplate(ctx, tpl, limit)

				mu.Lock()
				report.Inserted = append(report.Inserted, res.inserted...)
				report.Skipped += res.skipped
				if res.truncated {
					report.Truncated++
				}
				if err != nil {
					merr = multierror.Append(merr, fmt.Errorf("template %d (%s %s): %w", tpl.ID, tpl.Frequency, tpl.Title, err))
					report.Errors = append(report.Errors, models.TemplateError{
						TemplateID: tpl.ID,
						Title:      tpl.Title,
						Frequency:  tpl.Frequency,
						Message:    err.Error(),
					})
				}
				mu.Unlock()

				if err != nil {
					log.Warn("Projection failed for template", "templateID", tpl.ID, "title", tpl.Title, "frequency", tpl.Frequency, "error", err)
				}
				if res.truncated {
					log.Warn("Projection hit the iteration cap", "templateID", tpl.ID, "title", tpl.Title, "maxIterations", processors.MaxIterations)
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return report, fmt.Errorf("projection interrupted: %w", err)
	}

	report.DurationMS = time.Since(start).Milliseconds()
	if len(report.Inserted) > 0 && s.views != nil {
		// Subscribers reload views as soon as the events below arrive.
		s.views.Invalidate()
	}
	for _, occ := range report.Inserted {
		s.publish(models.Event{Kind: models.EventOccurrenceProjected, TransactionID: occ.ID, Title: occ.Title, Date: occ.Date})
	}
	if len(report.Inserted) > 0 {
		s.publish(models.Event{Kind: models.EventProjectionCompleted, Count: len(report.Inserted)})
	}

	log.Info("Projection finished",
		"templates", report.Templates,
		"inserted", len(report.Inserted),
		"skipped", report.Skipped,
		"failed", len(report.Errors),
		"horizon", report.Horizon,
		"duration", time.Since(start))
	return report, merr.ErrorOrNil()
}

// projectTemplate walks the candidate dates after the family's anchor and
// inserts a generated clone of tpl for every date that has no row yet.
func (s *projectionServiceImpl) projectTemplate(ctx context.Context, tpl models.Transaction, limit time.Time) (templateResult, error) {
	var res templateResult

	anchorDate := tpl.Date
	latest, err := s.store.LatestGenerated(ctx, tpl.Title, tpl.Frequency)
	if err != nil {
		return res, fmt.Errorf("error finding latest occurrence: %w", err)
	}
	if latest != nil {
		anchorDate = latest.Date
	}
	anchor, err := utils.ParseDate(anchorDate)
	if err != nil {
		return res, err
	}

	dates, truncated, err := s.recurrence.Candidates(anchor, tpl.Frequency, limit)
	res.truncated = truncated
	if err != nil {
		return res, err
	}

	for _, d := range dates {
		date := utils.FormatDate(d)
		existing, err := s.store.FindExact(ctx, date, tpl.Title, tpl.Frequency, true)
		if err != nil {
			return res, fmt.Errorf("error checking occurrence on %s: %w", date, err)
		}
		if existing != nil {
			res.skipped++
			continue
		}

		occ := tpl.Clone()
		occ.ID = 0
		occ.Date = date
		occ.IsGenerated = true
		occ.IsDeletedByUser = false

		id, err := s.store.Insert(ctx, occ)
		if errors.Is(err, ErrDuplicateOccurrence) {
			// Another pass inserted it between our check and insert.
			res.skipped++
			continue
		}
		if err != nil {
			return res, fmt.Errorf("error inserting occurrence on %s: %w", date, err)
		}
		occ.ID = id
		res.inserted = append(res.inserted, occ)
	}
	return res, nil
}

func (s *projectionServiceImpl) publish(ev models.Event) {
	if s.publisher == nil {
		return
	}
	ev.At = s.clock()
	s.publisher.Publish(ev)
}
