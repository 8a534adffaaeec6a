package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"

	_ "github.com/jhoicas/Facturacion-api/docs"
	"github.com/jhoicas/Facturacion-api/internal/application/billing"
	domainsri "github.com/jhoicas/Facturacion-api/internal/domain/sri"
	"github.com/jhoicas/Facturacion-api/internal/infrastructure/observability"
	infrapdf "github.com/jhoicas/Facturacion-api/internal/infrastructure/pdf"
	"github.com/jhoicas/Facturacion-api/internal/infrastructure/persistence"
	infrasri "github.com/jhoicas/Facturacion-api/internal/infrastructure/sri"
	"github.com/jhoicas/Facturacion-api/internal/infrastructure/sri/signer"
	"github.com/jhoicas/Facturacion-api/internal/infrastructure/storage"
	httpRouter "github.com/jhoicas/Facturacion-api/internal/interfaces/http"
	"github.com/jhoicas/Facturacion-api/pkg/config"
	"github.com/jhoicas/Facturacion-api/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:     cfg.App.Env,
		Level:   cfg.App.LogLevel,
		Service: cfg.App.Name,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("version", cfg.App.Version).
		Str("db_driver", cfg.DB.Driver).
		Str("sri_mode", cfg.SRI.Mode).
		Str("storage", cfg.Storage.Driver).
		Msg("iniciando aplicación")

	if cfg.JWT.Secret == "" {
		log.Fatal().Msg("JWT_SECRET es obligatorio")
	}

	ctx := context.Background()
	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, cfg.App.Version)
	if err != nil {
		log.Fatal().Err(err).Msg("configurar OpenTelemetry")
	}

	store, err := persistence.Open(ctx, cfg.DB, log.Component("persistence"))
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a la base de datos")
	}
	defer store.Close()

	artifacts, err := newArtifactStore(ctx, cfg.Storage)
	if err != nil {
		log.Fatal().Err(err).Msg("almacenamiento de artefactos")
	}

	// Cliente SRI: "dev" autoriza todo sin salir a la red; "live" usa los web services offline.
	var sriClient billing.SRIWebServiceClient
	if cfg.SRI.Mode == "live" {
		sriClient = infrasri.NewSOAPClient(cfg.SRI)
	} else {
		sriClient = infrasri.NewDevClient()
		log.Warn().Msg("SRI_MODE=dev: los comprobantes se autorizan con un cliente simulado")
	}

	metrics := observability.NewMetrics(prometheus.DefaultRegisterer)

	// Orquestador: XML → XAdES-BES → recepción → autorización → RIDE
	orchestrator := billing.NewSRIOrchestrator(
		store.Documents, store.Configurations, store.EmissionPoints, store.Establishments, store.ErrorLogs,
		store.TxRunner,
		infrasri.NewXMLBuilderService(domainsri.NewAccessKeyGenerator()),
		signer.NewDigitalSignatureService(),
		sriClient,
		infrapdf.NewRideGenerator(),
		artifacts,
		metrics,
		log.Component("orchestrator"),
	)
	documentUC := billing.NewDocumentUseCase(store.TxRunner, store.Documents, store.Configurations, store.EmissionPoints, artifacts)
	sequenceUC := billing.NewSequenceUseCase(store.EmissionPoints)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: cfg.SRI.Timeout + 10*time.Second,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())
	app.Use(metrics.HTTPMiddleware())

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "Facturación electrónica SRI",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name, "version": cfg.App.Version})
	})
	app.Get("/metrics", observability.Handler(prometheus.DefaultGatherer))

	httpRouter.Router(app, httpRouter.RouterDeps{
		Documents: documentUC,
		SRI:       orchestrator,
		Sequences: sequenceUC,
		JWTSecret: cfg.JWT.Secret,
		Log:       log.Component("http"),
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}
	if err := shutdownOTel(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("cierre de OpenTelemetry")
	}

	log.Info().Msg("aplicación detenida")
}

func newArtifactStore(ctx context.Context, cfg config.StorageConfig) (billing.ArtifactStore, error) {
	if cfg.Driver == "s3" {
		return storage.NewS3Store(ctx, cfg)
	}
	return storage.NewLocalStore(nil, cfg.LocalDir)
}
