package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"plate-registry/internal/config"
	"plate-registry/internal/db"
	httpapi "plate-registry/internal/http"
	"plate-registry/internal/notify"
	"plate-registry/internal/ocr"
	"plate-registry/internal/repository"
	"plate-registry/internal/service"
)

func main() {
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if level, err := zerolog.ParseLevel(cfg.Log.Level); err == nil {
		log = log.Level(level)
	}

	gdb, err := db.Open(cfg.DB.DSN())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open database")
	}
	log.Info().Str("db", cfg.DB.Name).Msg("database ready")

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(cfg.OCR.AWSRegion))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load AWS config")
	}
	engine := ocr.NewRekognitionEngine(rekognition.NewFromConfig(awsCfg), log.With().Str("component", "ocr").Logger())

	dispatcher := notify.NewSendGridDispatcher(
		cfg.Mail.SendGridAPIKey,
		cfg.Mail.FromAddress,
		cfg.Mail.FromName,
		log.With().Str("component", "notify").Logger(),
	)

	personRepo := repository.NewPersonRepository(gdb)
	vehicleRepo := repository.NewVehicleRepository(gdb)
	profileRepo := repository.NewProfileRepository(gdb)
	incidentRepo := repository.NewIncidentRepository(gdb)

	registrySvc := service.NewRegistryService(personRepo, vehicleRepo, profileRepo, log.With().Str("component", "registry").Logger())
	recognitionSvc := service.NewRecognitionService(engine, vehicleRepo, cfg.OCR.MinConfidence, cfg.OCR.Timeout, log.With().Str("component", "recognition").Logger())
	incidentSvc := service.NewIncidentService(incidentRepo, personRepo, vehicleRepo, dispatcher, cfg.Mail.Timeout, log.With().Str("component", "incidents").Logger())

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(httpapi.RequestLogger(log.With().Str("component", "http").Logger()))
	router.Use(cors.New(cors.Config{
		AllowOrigins: cfg.Server.CORSOrigins,
		AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE"},
		AllowHeaders: []string{"Origin", "Content-Type"},
	}))

	handler := httpapi.NewHandler(registrySvc, recognitionSvc, incidentSvc, log)
	handler.Register(router)

	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: router,
	}

	go func() {
		log.Info().Str("addr", cfg.Server.Addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("shutdown failed")
	}
}
