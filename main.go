package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"portfolio-views/batcher"
	"portfolio-views/cache"
	"portfolio-views/config"
	"portfolio-views/content"
	"portfolio-views/handlers"
	"portfolio-views/middlewares"
	"portfolio-views/pubsub"
	"portfolio-views/queue"
	"portfolio-views/store"
	"portfolio-views/utils"
	"portfolio-views/viewcounter"

	"github.com/getsentry/sentry-go"
	sentryhttp "github.com/getsentry/sentry-go/http"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// incrementTimeout bounds a single fire-and-forget increment.
const incrementTimeout = 5 * time.Second

func main() {
	settings, err := config.Load(os.Getenv("VIEWS_CONFIG"))
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := middlewares.InitLoggers(settings.LogDir, settings.Debug); err != nil {
		log.Fatalf("Failed to initialize loggers: %v", err)
	}
	defer middlewares.Log.Sync()

	if settings.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              settings.SentryDSN,
			TracesSampleRate: 0.2,
		}); err != nil {
			middlewares.Log.Warn("Sentry initialization failed", zap.Error(err))
		}
		defer sentry.Flush(2 * time.Second)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, settings); err != nil {
		middlewares.Log.Error("server stopped", zap.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, s config.Settings) error {
	var db *gorm.DB
	err := utils.RetryWithExponentialBackoff(ctx, func() error {
		var err error
		db, err = config.InitDB(s.Database.Driver, s.Database.Path)
		return err
	}, 3, 200*time.Millisecond)
	if err != nil {
		return fmt.Errorf("initialize the database: %w", err)
	}

	var redisStore *cache.RedisStore
	if s.Redis.URL != "" {
		err := utils.RetryWithExponentialBackoff(ctx, func() error {
			var err error
			redisStore, err = cache.NewRedisStore(ctx, s.Redis.URL, s.Redis.Password, s.Redis.DB, s.Cache.TTL)
			return err
		}, 5, 200*time.Millisecond)
		if err != nil {
			return fmt.Errorf("connect to redis: %w", err)
		}
		defer redisStore.Close()
		middlewares.RateLimitRedisStore = redisStore
	}

	viewCache, err := newViewCache(s, redisStore)
	if err != nil {
		return fmt.Errorf("initialize cache: %w", err)
	}
	defer viewCache.Close()
	views := store.NewCachedStore(store.NewGormStore(db), viewCache)

	var ps *pubsub.PubSub
	if redisStore != nil {
		ps = pubsub.NewPubSub(redisStore.Client)
	}
	flush := batcher.WriteTo(views, func(ctx context.Context, slugs []string) {
		if ps == nil {
			return
		}
		if err := ps.PublishFlushed(ctx, slugs); err != nil {
			middlewares.ErrorLogger.Printf("publish flush: %v", err)
		}
	})

	g, gctx := errgroup.WithContext(ctx)

	var (
		inc          viewcounter.Incrementer
		drain        func(context.Context) error
		stopBatching = func() {}
	)
	switch s.Batch.Mode {
	case "time":
		tb := batcher.NewTimeBatcher(s.Batch.Interval, flush)
		tb.Start(gctx)
		inc, drain, stopBatching = tb, tb.Flush, tb.Stop
	case "count":
		cb := batcher.NewCountBatcher(s.Batch.Threshold, flush)
		inc, drain = cb, cb.Flush
	default:
		inc = incrementFunc(func(ctx context.Context, slug string) error {
			return flush(ctx, batcher.AggregatedCount{slug: 1})
		})
	}

	worker := queue.NewWorker(s.QueueSize)
	worker.Start(s.Workers)

	handlers.Views = views
	handlers.Tracker = viewcounter.NewTracker(inc, worker, incrementTimeout)

	if s.BotList != "" {
		if err := middlewares.LoadBotList(s.BotList); err != nil {
			return fmt.Errorf("load bot list: %w", err)
		}
	}

	posts, err := content.Load(s.ContentDir)
	if err != nil {
		return fmt.Errorf("load content: %w", err)
	}
	handlers.Posts = posts
	g.Go(func() error {
		if err := posts.Watch(gctx); err != nil {
			middlewares.Log.Warn("content watcher stopped", zap.Error(err))
		}
		return nil
	})

	if ps != nil {
		err := ps.Subscribe(gctx, pubsub.EventViewsFlushed, func(map[string]interface{}) {
			views.Invalidate(context.Background())
		})
		if err != nil {
			return fmt.Errorf("subscribe to %s: %w", pubsub.EventViewsFlushed, err)
		}
	}

	srv := &http.Server{
		Addr:              ":" + s.Port,
		Handler:           newRouter(s),
		ReadHeaderTimeout: 5 * time.Second,
	}
	g.Go(func() error {
		middlewares.Log.Info("Server is running", zap.String("addr", "http://localhost:"+s.Port))
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	err = g.Wait()

	// Queued increments reach the batcher before its last flush.
	worker.Stop()
	stopBatching()
	if drain != nil {
		flushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if ferr := drain(flushCtx); ferr != nil {
			middlewares.ErrorLogger.Printf("final flush: %v", ferr)
		}
	}
	return err
}

func newViewCache(s config.Settings, redisStore *cache.RedisStore) (cache.ViewCache, error) {
	switch s.Cache.Backend {
	case "redis":
		return redisStore, nil
	case "lru":
		return cache.NewLRUStore(s.Cache.Size, s.Cache.TTL), nil
	default:
		return cache.NewBigCacheStore(s.Cache.TTL)
	}
}

func newRouter(s config.Settings) http.Handler {
	r := mux.NewRouter()

	r.Use(middlewares.LoggingMiddleware)
	r.Use(sentryhttp.New(sentryhttp.Options{Repanic: true}).Handle)
	r.Use(middlewares.SentryAlertMiddleware)
	r.Use(middlewares.ResponseTimeMiddleware)
	r.Use(middlewares.BotFilterMiddleware)

	limit := middlewares.RateLimitMiddleware(s.RateLimit.Algorithm, s.RateLimit.Requests, s.RateLimit.Window)

	r.HandleFunc("/views", handlers.ListViewsHandler).Methods("GET")
	r.HandleFunc("/views/{slug}", handlers.GetViewsHandler).Methods("GET")
	r.Handle("/views/{slug}", limit(http.HandlerFunc(handlers.IncrementHandler))).Methods("POST")
	r.HandleFunc("/posts", handlers.PostsHandler).Methods("GET")
	r.HandleFunc("/health", handlers.HealthHandler).Methods("GET")

	// static path
	r.PathPrefix("/").Handler(http.FileServer(http.Dir(s.StaticDir)))
	return r
}

type incrementFunc func(ctx context.Context, slug string) error

func (f incrementFunc) Increment(ctx context.Context, slug string) error {
	return f(ctx, slug)
}
