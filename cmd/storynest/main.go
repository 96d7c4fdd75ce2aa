package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	"golang.org/x/sync/errgroup"

	"github.com/storynest/storynest/client"
	"github.com/storynest/storynest/internal/config"
	"github.com/storynest/storynest/internal/imagery"
	"github.com/storynest/storynest/internal/infra/blob"
	"github.com/storynest/storynest/internal/infra/cache"
	"github.com/storynest/storynest/internal/infra/database"
	"github.com/storynest/storynest/internal/infra/gateway"
	"github.com/storynest/storynest/internal/infra/store"
	"github.com/storynest/storynest/internal/logging"
	"github.com/storynest/storynest/internal/present/rest"
	restmiddleware "github.com/storynest/storynest/internal/present/rest/middleware"
	"github.com/storynest/storynest/internal/service"
	"github.com/storynest/storynest/internal/telemetry"
	"github.com/storynest/storynest/internal/usecase"
)

var version = "dev"

func main() {
	// container health check: storynest healthcheck
	if len(os.Args) > 1 && os.Args[1] == "healthcheck" {
		if err := healthcheck(); err != nil {
			fmt.Fprintf(os.Stderr, "healthcheck failed: %v\n", err)
			os.Exit(1)
		}
		return
	}

	configPath := flag.String("config", "/etc/storynest/config.yaml", "path to the config file")
	devToken := flag.String("dev-token", "", "print a 24h token for this user id and exit")
	devRole := flag.String("dev-role", "parent", "role claim for -dev-token")
	flag.Parse()

	conf, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	auth := service.NewAuthService(conf.Auth.JWTSecret, conf.Auth.Audience)
	if *devToken != "" {
		token, err := auth.IssueToken(*devToken, *devRole, 24*time.Hour)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to issue token: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(token)
		return
	}

	if err := run(conf, auth); err != nil {
		slog.Error("server exited with error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(conf config.Config, auth *service.AuthService) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	logger := logging.New(os.Stdout, logging.ParseLevel(conf.Server.LogLevel), conf.Server.EnableTrace)
	slog.SetDefault(logger)

	shutdownTracing := telemetry.ShutdownFunc(func(context.Context) error { return nil })
	if conf.Server.EnableTrace {
		shutdown, err := telemetry.SetupTracing(ctx, "storynest", version, conf.Server.TraceEndpoint)
		if err != nil {
			logger.WarnContext(ctx, "tracing disabled", slog.String("error", err.Error()))
		} else {
			shutdownTracing = shutdown
		}
	}

	metrics := telemetry.NewMetrics()

	records, err := openStore(ctx, conf.Store)
	if err != nil {
		return err
	}
	logger.InfoContext(ctx, "store ready", slog.String("driver", conf.Store.Driver))

	rdb := database.NewRedis(conf.Server.RedisAddr, conf.Server.RedisPassword, conf.Server.RedisDB)
	defer rdb.Close()
	signalService := service.NewSignalService(rdb)

	var audioCache usecase.AudioCache
	if conf.Server.MemcachedAddr != "" {
		audioCache = cache.NewAudioCache(database.NewMemcached(conf.Server.MemcachedAddr))
	}

	blobs, err := blob.NewS3(ctx, blob.Config{
		Bucket:          conf.Storage.Bucket,
		Region:          conf.Storage.Region,
		Endpoint:        conf.Storage.Endpoint,
		PathStyle:       conf.Storage.PathStyle,
		AccessKeyID:     conf.Storage.AccessKeyID,
		SecretAccessKey: conf.Storage.SecretAccessKey,
		PublicBaseURL:   conf.Storage.PublicBaseURL,
		PublicRead:      conf.Storage.PublicRead,
	})
	if err != nil {
		return fmt.Errorf("storage: %w", err)
	}

	llm, err := openCompletion(ctx, conf.Generation)
	if err != nil {
		return err
	}
	speech := gateway.NewGoogleTTS(conf.Narration.APIKey, conf.Narration.Endpoint, nil)

	fetcher := usecase.NewReconcilingFetcher(records, logger, metrics)
	handler := rest.NewHandler(
		usecase.NewStoryUsecase(records, fetcher, signalService, logger),
		usecase.NewProfileUsecase(records, blobs, logger),
		usecase.NewGenerationUsecase(llm, logger),
		usecase.NewNarrationUsecase(speech, audioCache, blobs, records, conf.Narration.TTL(), logger),
		usecase.NewContactUsecase(records, logger),
		imagery.NewIllustrator(0),
		signalService,
		metrics,
		restmiddleware.NewAuthMiddleware(auth),
		restmiddleware.NewRateLimiter(conf.Generation.RateLimit, conf.Generation.Burst, metrics.RateLimited),
	)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	if conf.Server.EnableTrace {
		e.Use(otelecho.Middleware("storynest"))
	}
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	handler.RegisterRoutes(e)

	logger.InfoContext(ctx, "starting storynest", slog.String("listen", conf.Server.Listen), slog.String("version", version))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := e.Start(conf.Server.Listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		logger.Info("shutting down")
		serverErr := e.Shutdown(shutdownCtx)
		return errors.Join(serverErr, shutdownTracing(shutdownCtx))
	})
	return g.Wait()
}

func healthcheck() error {
	addr := os.Getenv("STORYNEST_HEALTH_URL")
	if addr == "" {
		addr = "http://127.0.0.1:8000"
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	return client.New(addr).Health(ctx)
}

func openStore(ctx context.Context, conf config.Store) (usecase.RecordStore, error) {
	switch conf.Driver {
	case config.DriverPostgres:
		db, err := database.NewPostgres(conf.PostgresDsn)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		if err := database.MigratePostgres(db); err != nil {
			return nil, fmt.Errorf("migrate postgres: %w", err)
		}
		return store.NewPostgres(db), nil
	case config.DriverFirestore:
		fs, err := database.NewFirestore(ctx, conf.ProjectID)
		if err != nil {
			return nil, fmt.Errorf("connect firestore: %w", err)
		}
		return store.NewFirestore(fs), nil
	default:
		return store.NewMemory(), nil
	}
}

func openCompletion(ctx context.Context, conf config.Generation) (usecase.CompletionGateway, error) {
	if conf.Provider == config.ProviderGemini {
		return gateway.NewGemini(ctx, conf.GeminiAPIKey, conf.Model)
	}
	return gateway.NewGroq(conf.GroqAPIKey, conf.Model, conf.Endpoint, nil), nil
}
