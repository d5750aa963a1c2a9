// cmd/container.go
//
// Root composition root. Owns infrastructure (DB, Redis, object storage)
// and wires every bounded context's service layer together, following the
// teacher's Container pattern.
package main

import (
	"context"
	"fmt"
	"time"

	"github.com/giro-sh/license-server/internal/admin"
	"github.com/giro-sh/license-server/internal/admin/adminifra"
	"github.com/giro-sh/license-server/internal/audit"
	"github.com/giro-sh/license-server/internal/audit/auditinfra"
	"github.com/giro-sh/license-server/internal/blobstore"
	"github.com/giro-sh/license-server/internal/blobstore/blobstorelocal"
	"github.com/giro-sh/license-server/internal/config"
	"github.com/giro-sh/license-server/internal/gate"
	"github.com/giro-sh/license-server/internal/hardware"
	"github.com/giro-sh/license-server/internal/hardware/hardwareinfra"
	"github.com/giro-sh/license-server/internal/httpapi"
	"github.com/giro-sh/license-server/internal/jobx"
	"github.com/giro-sh/license-server/internal/jobx/jobxredis"
	"github.com/giro-sh/license-server/internal/kernel"
	"github.com/giro-sh/license-server/internal/license"
	"github.com/giro-sh/license-server/internal/license/licenseinfra"
	"github.com/giro-sh/license-server/internal/logx"
	"github.com/giro-sh/license-server/internal/notify"
	"github.com/giro-sh/license-server/internal/payment"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
)

// Container holds shared infrastructure and every wired service.
type Container struct {
	Config *config.Config

	DB        *sqlx.DB
	Redis     *redis.Client
	BlobStore blobstore.Store

	TxManager *kernel.TxManager

	Admins   *admin.Service
	Licenses *license.Service
	Hardware *hardware.Service
	Audit    *audit.Service
	Gate     *gate.Middleware
	Sweeper  *admin.Sweeper
	Notifier notify.Sender
	Jobs     *jobx.Client

	Services *httpapi.Services
}

func NewContainer(cfg *config.Config) *Container {
	logx.Info("initializing application container")

	c := &Container{Config: cfg}
	c.initInfrastructure()
	c.initServices()

	logx.Info("application container initialized")
	return c
}

// ---------------------------------------------------------------------------
// Infrastructure — DB, Redis, blob storage
// ---------------------------------------------------------------------------

func (c *Container) initInfrastructure() {
	logx.Info("initializing infrastructure")

	db, err := sqlx.Connect("postgres", c.Config.Database.DSN())
	if err != nil {
		logx.Fatalf("failed to connect to database: %v", err)
	}
	db.SetMaxOpenConns(c.Config.Database.MaxOpenConns)
	db.SetMaxIdleConns(c.Config.Database.MaxIdleConns)
	db.SetConnMaxLifetime(c.Config.Database.ConnMaxLifetime)
	c.DB = db
	logx.Info("database connected")

	c.Redis = redis.NewClient(&redis.Options{Addr: c.Config.Redis.Address()})
	if _, err := c.Redis.Ping(context.Background()).Result(); err != nil {
		logx.Fatalf("failed to connect to redis: %v (redis is required)", err)
	}
	logx.Info("redis connected")

	// The object-store endpoint/region/credentials are validated at startup
	// (§6) but otherwise unused; only the bucket name reaches this local
	// store. No S3/Azure client is wired, per the dropped-dependency
	// decision in DESIGN.md.
	store, err := blobstorelocal.NewLocalStore(fmt.Sprintf("./blobstore-data/%s", c.Config.ObjectStore.Bucket))
	if err != nil {
		logx.Fatalf("failed to initialize blob store: %v", err)
	}
	c.BlobStore = store

	c.TxManager = kernel.NewTxManager(db)

	logx.Info("infrastructure initialized")
}

// ---------------------------------------------------------------------------
// Services
// ---------------------------------------------------------------------------

func (c *Container) initServices() {
	logx.Info("initializing services")

	auditRepo := auditinfra.NewPostgresRepository(c.DB)
	c.Audit = audit.NewService(auditRepo)

	c.Notifier = notify.NewConsoleSender()
	c.Jobs = jobx.NewClient(jobxredis.NewRedisQueue(c.Redis), jobx.WithQueues("default", "notify"))
	c.Jobs.Register(jobTypeNotifyEmail, newNotifyEmailHandler(c.Notifier))

	adminRepo := adminifra.NewPostgresAdminRepository(c.DB)
	refreshRepo := adminifra.NewPostgresRefreshTokenRepository(c.DB)
	apiKeyRepo := adminifra.NewPostgresApiKeyRepository(c.DB)
	blacklist := adminifra.NewRedisBlacklist(c.Redis)
	jwtService := admin.NewJWTService(c.Config.Auth.JWTSecret, c.Config.Auth.AccessTokenTTL, "giro-license-server", blacklist)
	c.Admins = admin.NewService(adminRepo, refreshRepo, apiKeyRepo, jwtService, c.Audit, newJobxEmailNotifier(c.Jobs), c.Config.Auth.RefreshTokenTTL)
	c.Sweeper = admin.NewSweeper(refreshRepo, apiKeyRepo, time.Hour, 30*24*time.Hour)

	hardwareRepo := hardwareinfra.NewPostgresRepository(c.DB)
	c.Hardware = hardware.NewService(hardwareRepo)

	licenseRepo := licenseinfra.NewPostgresRepository(c.DB)
	c.Licenses = license.NewService(licenseRepo, c.TxManager, c.Hardware, c.Audit)

	limiter := gate.NewRateLimiter(c.Redis, c.Config.RateLimit.Window, c.Config.RateLimit.GeneralCeiling, c.Config.RateLimit.AuthCeiling)
	c.Gate = gate.NewMiddleware(limiter, jwtService, c.Admins, c.Config.Drift.Tolerance)

	verifier := payment.NewHMACVerifier(c.Config.Payment.ProviderToken)
	paymentHandler := newLicensePaymentHandler(c.Licenses, c.Audit)

	c.Services = &httpapi.Services{
		Auth:     httpapi.NewAuthHandlers(c.Admins),
		Profile:  httpapi.NewProfileHandlers(c.Admins),
		Licenses: httpapi.NewLicenseHandlers(c.Licenses),
		Hardware: httpapi.NewHardwareHandlers(c.Hardware),
		APIKeys:  httpapi.NewAPIKeyHandlers(c.Admins),
		Health:   httpapi.NewHealthHandlers(c.DB, c.Redis, getEnv("APP_VERSION", "1.0.0")),
		Gate:     c.Gate,
		Payment:  httpapi.NewPaymentHandlers(verifier, paymentHandler),
	}

	logx.Info("services initialized")
}

// ---------------------------------------------------------------------------
// Lifecycle
// ---------------------------------------------------------------------------

func (c *Container) StartBackgroundServices(ctx context.Context) {
	logx.Info("starting background services")
	go c.Sweeper.Start(ctx)
	go func() {
		if err := c.Jobs.Start(ctx); err != nil {
			logx.WithError(err).Error("jobx worker stopped unexpectedly")
		}
	}()
}

func (c *Container) Cleanup() {
	logx.Info("cleaning up resources")

	if c.DB != nil {
		if err := c.DB.Close(); err != nil {
			logx.Errorf("error closing database: %v", err)
		} else {
			logx.Info("database connection closed")
		}
	}

	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			logx.Errorf("error closing redis: %v", err)
		} else {
			logx.Info("redis connection closed")
		}
	}

	logx.Info("cleanup complete")
}
