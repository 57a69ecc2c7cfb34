package services

import (
	"context"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/username/cashflow/src/logger"
	"github.com/username/cashflow/src/models"
	"github.com/username/cashflow/src/processors"
	"github.com/username/cashflow/src/utils"
)

const (
	DefaultViewCacheExpiration = 5 * time.Minute
	ViewCacheCleanupInterval   = 10 * time.Minute
)

type viewServiceImpl struct {
	store   TransactionStore
	views   processors.ViewProcessor
	summary processors.SummaryProcessor
	cache   *cache.Cache
	clock   func() time.Time
}

func NewViewService(
	store TransactionStore,
	views processors.ViewProcessor,
	summary processors.SummaryProcessor,
	viewCache *cache.Cache,
	clock func() time.Time,
) ViewService {
	if clock == nil {
		clock = time.Now
	}
	if viewCache == nil {
		viewCache = cache.New(DefaultViewCacheExpiration, ViewCacheCleanupInterval)
	}
	return &viewServiceImpl{
		store:   store,
		views:   views,
		summary: summary,
		cache:   viewCache,
		clock:   clock,
	}
}

// NormalizeViewParams fills defaults: PAST_RANGE mode, a two-week range and no frequency filter.
func NormalizeViewParams(p models.ViewParams) models.ViewParams {
	if p.Mode == "" {
		p.Mode = models.ViewPastRange
	}
	if p.Frequency == "" {
		p.Frequency = models.FrequencyAll
	}
	if p.Mode == models.ViewFuture {
		p.RangeLabel = ""
	} else if p.RangeLabel == "" {
		p.RangeLabel = models.RangeLast2Weeks
	}
	return p
}

// LoadView assembles the non-deleted rows selected by params, newest first,
// with aggregates computed over the whole filtered set.
func (s *viewServiceImpl) LoadView(ctx context.Context, params models.ViewParams) (*models.View, error) {
	params = NormalizeViewParams(params)
	today := utils.Today(s.clock)
	todayStr := utils.FormatDate(today)

	cacheKey := params.CacheKey(todayStr)
	if cached, found := s.cache.Get(cacheKey); found {
		if view, ok := cached.(*models.View); ok {
			logger.FromContext(ctx).Debug("View cache hit", "key", cacheKey)
			return copyView(view), nil
		}
	}

	view := &models.View{Params: params, Today: todayStr}
	var (
		rows []models.Transaction
		err  error
	)
	switch params.Mode {
	case models.ViewPastRange:
		view.Start = utils.FormatDate(s.views.RangeStart(params.RangeLabel, today))
		rows, err = s.store.QueryRange(ctx, view.Start, todayStr, true)
	case models.ViewFuture:
		rows, err = s.store.QueryFuture(ctx, todayStr, true)
	default:
		return nil, fmt.Errorf("unknown view mode %q", params.Mode)
	}
	if err != nil {
		return nil, fmt.Errorf("error loading %s view: %w", params.Mode, err)
	}

	rows = s.views.FilterByFrequency(rows, params.Frequency)
	s.views.SortByDateDesc(rows)
	if rows == nil {
		rows = []models.Transaction{}
	}
	summary := s.summary.Summarize(rows, today)

	view.Transactions = rows
	view.TotalIncome = summary.TotalIncome
	view.TotalExpenses = summary.TotalExpenses
	view.Balance = summary.Balance

	s.cache.Set(cacheKey, view, cache.DefaultExpiration)
	return copyView(view), nil
}

// Invalidate drops every cached view. Called after any store mutation.
func (s *viewServiceImpl) Invalidate() {
	s.cache.Flush()
	logger.L.Debug("Invalidated view cache")
}

func copyView(v *models.View) *models.View {
	c := *v
	c.Transactions = make([]models.Transaction, len(v.Transactions))
	for i, tx := range v.Transactions {
		c.Transactions[i] = tx.Clone()
	}
	return &c
}
