package cmd

import (
	"context"
	"time"

	"github.com/qaforum/engagement/internal/cache"
	"github.com/qaforum/engagement/internal/config"
	"github.com/qaforum/engagement/internal/database"
	"github.com/qaforum/engagement/internal/engagement"
	"github.com/qaforum/engagement/internal/events"
	"github.com/qaforum/engagement/internal/feed"
	"github.com/qaforum/engagement/internal/handlers"
	"github.com/qaforum/engagement/internal/logger"
	"github.com/qaforum/engagement/internal/models"
	"github.com/qaforum/engagement/internal/ranking"
	"github.com/qaforum/engagement/internal/repository"
	"github.com/qaforum/engagement/internal/trending"
	"github.com/qaforum/engagement/internal/users"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// app is every core component wired over one database
type app struct {
	cfg   *config.Config
	db    *gorm.DB
	redis *cache.RedisClient

	store       events.Store
	recorder    *events.Recorder
	reader      *events.Reader
	aggregator  *engagement.Aggregator
	accumulator *engagement.Accumulator
	content     repository.ContentRepository
	trending    *trending.Service
	feed        *feed.Builder
	activity    *users.ActivityService
	profiles    *users.ProfileService
}

type appOptions struct {
	migrate  bool
	useRedis bool
}

// newApp opens the database (and Redis when enabled) and builds the
// services on top of it
func newApp(cfg *config.Config, opts appOptions) (*app, error) {
	db, err := database.Open(cfg.Database, verbose)
	if err != nil {
		return nil, err
	}
	if opts.migrate {
		if err := database.Migrate(db); err != nil {
			_ = database.Close()
			return nil, err
		}
	}

	weights, err := cfg.ScoreWeights()
	if err != nil {
		_ = database.Close()
		return nil, err
	}

	a := &app{cfg: cfg, db: db}
	a.store = events.NewGormStore(db)
	a.recorder = events.NewRecorder(a.store, nil, cfg.StoreTimeout)
	a.reader = events.NewReader(a.store, cfg.StoreTimeout)
	a.aggregator = engagement.NewAggregator(a.reader,
		engagement.WithWeights(weights),
		engagement.WithDecayHours(cfg.Scoring.DecayHours),
		engagement.WithWorkers(cfg.Workers),
	)
	a.accumulator = engagement.NewAccumulator(weights, cfg.Scoring.DecayHours, nil)
	a.recorder.Subscribe(a.accumulator)
	a.content = repository.NewContentRepository(db)

	var resultCache cache.Cache
	if opts.useRedis && cfg.Redis.Enabled {
		rc, err := cache.NewRedisClient(cache.RedisOptions{
			Addr:      cfg.Redis.Addr(),
			Password:  cfg.Redis.Password,
			DB:        cfg.Redis.DB,
			KeyPrefix: cfg.Redis.KeyPrefix,
		})
		if err != nil {
			// Trending still works uncached
			logger.Log.Warn("Redis unavailable, falling back to in-process cache", zap.Error(err))
		} else {
			a.redis = rc
			resultCache = rc
		}
	}
	if resultCache == nil {
		resultCache = cache.NewMemoryCache(nil)
	}
	a.trending = trending.NewService(a.content, a.aggregator, resultCache, cfg.Trending.CacheTTL)

	ranker := ranking.NewEngine(cfg.RankingConfig(), nil)
	a.feed = feed.NewBuilder(a.content, a.aggregator, ranker, cfg.Workers)
	a.activity = users.NewActivityService(a.reader, nil)
	a.profiles = users.NewProfileService(a.activity, a.aggregator)

	return a, nil
}

func (a *app) services() handlers.Services {
	return handlers.Services{
		Recorder:    a.recorder,
		Reader:      a.reader,
		Aggregator:  a.aggregator,
		Trending:    a.trending,
		Feed:        a.feed,
		Activity:    a.activity,
		Profiles:    a.profiles,
		Accumulator: a.accumulator,
	}
}

// health reports the database and, when connected, Redis
func (a *app) health() error {
	if err := database.Health(); err != nil {
		return err
	}
	if a.redis != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return a.redis.Ping(ctx)
	}
	return nil
}

// warm replays the log of every known target type into the accumulator
func (a *app) warm(ctx context.Context) (int, error) {
	replayed := 0
	for _, tt := range models.KnownTargetTypes {
		evs, err := a.reader.GetEvents(ctx, events.Query{
			Filter:    events.Filter{TargetType: tt},
			Ascending: true,
		})
		if err != nil {
			return replayed, err
		}
		for _, e := range evs {
			a.accumulator.Observe(e)
		}
		replayed += len(evs)
	}
	return replayed, nil
}

// reconcile recomputes the live scores of the given target types from
// the whole log
func (a *app) reconcile(ctx context.Context, targetTypes ...models.TargetType) ([]*engagement.ReconcileReport, error) {
	reports := make([]*engagement.ReconcileReport, 0, len(targetTypes))
	for _, tt := range targetTypes {
		report, err := a.accumulator.Reconcile(ctx, a.aggregator, tt, nil)
		if err != nil {
			return reports, err
		}
		reports = append(reports, report)
	}
	return reports, nil
}

func (a *app) close() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			logger.Log.Warn("Failed to close Redis", zap.Error(err))
		}
	}
	if err := database.Close(); err != nil {
		logger.Log.Warn("Failed to close database", zap.Error(err))
	}
}
