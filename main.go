package main

import (
	"context"
	"fmt"

	"github.com/cppla/sharelink/config"
	"github.com/cppla/sharelink/jobs"
	"github.com/cppla/sharelink/models"
	"github.com/cppla/sharelink/routes"
	"github.com/cppla/sharelink/services"
	"github.com/cppla/sharelink/storage"
	"github.com/cppla/sharelink/utils"
)

func main() {
	cfg := config.Load()

	// Initialize logger early
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}
	defer func() { _ = utils.Logger.Sync() }()

	db := config.InitDatabase(&models.User{}, &models.Resource{})

	blobs, err := newBlobStore(cfg)
	if err != nil {
		utils.Sugar.Fatalf("blob storage: %v", err)
	}

	authService := services.NewAuthService(db, cfg.JWTExpiresIn)
	resourceService := services.NewResourceService(db, blobs, cfg.DefaultExpiry())

	schedule := cfg.SweepSchedule
	if schedule == "" {
		schedule = jobs.ScheduleFor(cfg.IsProduction())
	}
	expiryJob, err := jobs.NewExpiryJob(resourceService, schedule, utils.Logger)
	if err != nil {
		utils.Sugar.Fatalf("expiry job: %v", err)
	}
	expiryJob.Start()

	r := routes.SetupRouter(cfg, authService, resourceService)

	srv := utils.NewServer(":"+cfg.AppPort, r, utils.DefaultReadTimeout, utils.DefaultWriteTimeout)
	srv.OnShutdown(expiryJob.Stop)

	utils.Sugar.Infof("Starting server on port %s (graceful)", cfg.AppPort)
	if err := srv.ListenAndServe(); err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}

func newBlobStore(cfg config.AppConfig) (storage.Store, error) {
	switch cfg.StorageDriver {
	case "s3":
		return storage.NewS3Store(context.Background(), storage.S3Options{
			Bucket:       cfg.S3Bucket,
			Region:       cfg.S3Region,
			BaseEndpoint: cfg.S3BaseEndpoint,
			AccessKey:    cfg.S3AccessKey,
			SecretKey:    cfg.S3SecretKey,
		})
	case "local":
		return storage.NewLocalStore(cfg.UploadDir)
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.StorageDriver)
	}
}
