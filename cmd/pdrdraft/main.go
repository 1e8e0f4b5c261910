package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/usnistgov/oar-pdr-sub001/internal/config"
	"github.com/usnistgov/oar-pdr-sub001/internal/infra/database"
	"github.com/usnistgov/oar-pdr-sub001/internal/infra/repository"
	"github.com/usnistgov/oar-pdr-sub001/internal/interface/rest"
	"github.com/usnistgov/oar-pdr-sub001/internal/interface/rest/middleware"
	"github.com/usnistgov/oar-pdr-sub001/internal/service"
	"github.com/usnistgov/oar-pdr-sub001/internal/usecase"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the service configuration")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	db, err := database.NewPostgres(cfg.Service.PostgresDsn)
	if err != nil {
		slog.Error("failed to connect database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if err := database.MigratePostgres(db); err != nil {
		slog.Error("failed to migrate database", slog.String("error", err.Error()))
		os.Exit(1)
	}

	rdb := database.NewRedis(cfg.Service.RedisAddr, "", cfg.Service.RedisDB)
	mc := database.NewMemcached(cfg.Service.MemcachedAddr)

	draftRepo := repository.NewDraftRepository(db)
	permRepo := repository.NewPermissionRepository(db, mc)

	authService := service.NewAuthService(cfg.Service.TokenSecret, cfg.Service.TokenTTL())
	signalService := service.NewSignalService(rdb)

	draftUsecase := usecase.NewDraftUsecase(draftRepo, signalService)
	permUsecase := usecase.NewPermissionUsecase(draftRepo, permRepo, authService)

	handler := rest.NewHandler(cfg, draftUsecase, permUsecase, authService, signalService)

	e := echo.New()
	e.Use(echomw.Logger())
	e.Use(echomw.Recover())
	e.Use(echomw.CORS())

	if cfg.Service.EnableTrace {
		shutdown, err := setupTracer(cfg.Service.TraceEndpoint)
		if err != nil {
			slog.Error("failed to set up tracing", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer shutdown(context.Background())
		e.Use(otelecho.Middleware("pdr-draft"))
	}

	e.Use(middleware.NewIdentityMiddleware().IdentifyRequester)
	handler.RegisterRoutes(e)

	e.Logger.Fatal(e.Start(cfg.Service.ListenAddr))
}

func setupTracer(endpoint string) (func(context.Context) error, error) {
	exporter, err := otlptracehttp.New(
		context.Background(),
		otlptracehttp.WithEndpoint(endpoint),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		return nil, err
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
	)
	otel.SetTracerProvider(provider)
	return provider.Shutdown, nil
}
