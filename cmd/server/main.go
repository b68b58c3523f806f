package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"grocery-store/internal/auth"
	"grocery-store/internal/backup"
	"grocery-store/internal/cache"
	"grocery-store/internal/config"
	apphttp "grocery-store/internal/http"
	"grocery-store/internal/repository"
	"grocery-store/internal/repository/csvstore"
	"grocery-store/internal/repository/sqlite"
	"grocery-store/internal/service"
	"grocery-store/internal/storage"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}

	if strings.TrimSpace(cfg.Auth.JWTSecret) == "" {
		logger.Fatalf("auth jwt secret is required")
	}

	hasher, err := auth.NewHasher(cfg.Auth.Scheme)
	if err != nil {
		logger.Fatalf("credential scheme: %v", err)
	}
	if cfg.Auth.Scheme == auth.SchemeRailFence {
		logger.Warn("rail-fence credentials are obfuscation only, use bcrypt for new accounts")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	orderRepo, db, err := buildOrders(cfg, logger)
	if err != nil {
		logger.Fatalf("setup orders: %v", err)
	}
	if db != nil {
		defer db.Close()
	}
	if err := orderRepo.Init(ctx); err != nil {
		logger.Fatalf("init order repository: %v", err)
	}

	orderCache := cache.New(cfg.Cache.Addr, cfg.Cache.Password, cfg.Cache.DB)
	defer orderCache.Close()

	store := service.NewStorefront(service.Config{
		Products: csvstore.NewProductStore(cfg.Store.ProductsPath, logger),
		Users:    csvstore.NewUserStore(cfg.Store.UsersPath, logger),
		Orders:   orderRepo,
		Hasher:   hasher,
		Cache:    orderCache,
		Logger:   logger,
	})
	if err := store.Load(ctx); err != nil {
		logger.Fatalf("load stores: %v", err)
	}

	var backups backup.Manager
	if cfg.Storage.Bucket != "" {
		storageSvc, err := buildStorage(ctx, cfg, logger)
		if err != nil {
			logger.Fatalf("setup storage: %v", err)
		}
		backups = newBackupManager(cfg, store, storageSvc, logger)
		if err := backups.Start(ctx); err != nil {
			logger.Fatalf("start backups: %v", err)
		}
	} else {
		logger.Info("storage bucket not set, backups disabled")
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	handler := apphttp.NewHandler(
		store,
		auth.NewTokenService(cfg.Auth.JWTSecret, time.Duration(cfg.Auth.TokenTTLMinutes)*time.Minute),
		backups,
		logger,
	)
	handler.RegisterRoutes(router)

	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: router,
	}

	go func() {
		logger.Infof("listening on %s", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("http server: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("http shutdown: %v", err)
	}
	finish(shutdownCtx, store, backups, logger)

	logger.Info("bye")
}

// finish saves the stores and, when backups are enabled, stops the schedule
// and uploads one last copy of the saved files.
func finish(ctx context.Context, store service.Storefront, backups backup.Manager, logger *logrus.Logger) {
	if err := store.Save(ctx); err != nil {
		logger.Errorf("save stores: %v", err)
	}
	if backups == nil {
		return
	}
	backups.Shutdown()
	if _, err := backups.Run(ctx); err != nil {
		logger.Warnf("final backup: %v", err)
	}
}

func newBackupManager(cfg config.Config, store service.Storefront, storageSvc storage.Service, logger *logrus.Logger) backup.Manager {
	return backup.NewManager(backup.Config{
		Files:    cfg.StoreFiles(),
		Interval: cfg.Backup.Interval,
		UploadOptions: storage.UploadOptions{
			Bucket:    cfg.Storage.Bucket,
			KeyPrefix: cfg.Storage.KeyPrefix,
		},
		Flush:  store.Save,
		Logger: logger,
	}, storageSvc)
}

func buildOrders(cfg config.Config, logger *logrus.Logger) (repository.OrderRepository, *sql.DB, error) {
	if cfg.Orders.Backend != "sqlite" {
		return csvstore.NewOrderStore(cfg.Store.OrdersPath, logger), nil, nil
	}

	db, err := sqlite.Open(cfg.Database.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	logger.Infof("order history in sqlite database %s", cfg.Database.Path)
	return sqlite.NewOrderRepository(db), db, nil
}

func buildStorage(ctx context.Context, cfg config.Config, logger *logrus.Logger) (storage.Service, error) {
	loadOpts := []func(*awscfg.LoadOptions) error{
		awscfg.WithRegion(cfg.Storage.Region),
	}
	if cfg.AWS.Profile != "" {
		loadOpts = append(loadOpts, awscfg.WithSharedConfigProfile(cfg.AWS.Profile))
	}

	awsCfg, err := awscfg.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Storage.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Storage.Endpoint)
			o.UsePathStyle = true
		}
	})
	logger.Infof("backing up to s3 bucket %s (region %s)", cfg.Storage.Bucket, cfg.Storage.Region)
	return storage.NewS3Service(client), nil
}
