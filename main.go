package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/pos-sync/cache"
	"github.com/yeremiapane/pos-sync/config"
	"github.com/yeremiapane/pos-sync/database"
	"github.com/yeremiapane/pos-sync/gateway"
	"github.com/yeremiapane/pos-sync/kds"
	"github.com/yeremiapane/pos-sync/router"
	"github.com/yeremiapane/pos-sync/services"
	"github.com/yeremiapane/pos-sync/state"
	"github.com/yeremiapane/pos-sync/syncengine"
	"github.com/yeremiapane/pos-sync/utils"
	"gorm.io/gorm"
)

// App is the assembled terminal agent.
type App struct {
	Engine  *syncengine.Engine
	Monitor *services.ConnectivityMonitor
	Hub     *kds.KDSHub
	Router  *gin.Engine

	stop   chan struct{}
	cancel func()
}

func newApp(cfg config.Config, remote, local *gorm.DB) *App {
	gw := gateway.NewGormGateway(remote)
	cacheStore := cache.NewStore(cache.NewGormBackend(local), cache.WithTTL(cfg.CacheTTL))
	store := state.NewStore()
	monitor := services.NewConnectivityMonitor(gw, cfg.ProbeEvery)

	engine := syncengine.New(gw, cacheStore, store, monitor, syncengine.Config{
		SyncInterval: cfg.SyncEvery,
		Cooldown:     cfg.SyncCooldown,
	})

	hub := kds.NewHub()
	hub.SetAudience(engine.SessionUser)
	engine.OnStatusChange(func(st syncengine.Status) { hub.BroadcastStatus(st) })

	return &App{
		Engine:  engine,
		Monitor: monitor,
		Hub:     hub,
		Router:  router.SetupRouter(remote, engine, hub, router.Options{CORSOrigin: cfg.CORSOrigin, RateLimit: 50}),
		stop:    make(chan struct{}),
	}
}

// Start launches the background loops: connectivity probing, the engine's
// triggers, and the change feed pump.
func (a *App) Start(ctx context.Context) {
	ctx, a.cancel = context.WithCancel(ctx)
	transitions := a.Monitor.Subscribe()
	a.Monitor.Start()
	a.Engine.Start(ctx, transitions)

	events, unsubscribe := a.Engine.Store().Subscribe()
	go func() {
		defer unsubscribe()
		a.Hub.Pump(a.Engine.Store(), events, a.stop)
	}()
}

func (a *App) Stop() {
	close(a.stop)
	a.Monitor.Stop()
	a.Engine.Stop()
	if a.cancel != nil {
		a.cancel()
	}
}

func main() {
	cfg := config.Load()
	utils.InitLogger()
	utils.SetLogLevel(cfg.LogLevel)
	utils.SetJWTSecret(cfg.JWTSecret)

	if cfg.GinMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	remote, err := config.InitDB(cfg)
	if err != nil {
		utils.ErrorLogger.Fatalf("Failed to connect to database: %v", err)
	}
	if err := database.Migrate(remote); err != nil {
		utils.ErrorLogger.Fatalf("Failed to AutoMigrate: %v", err)
	}

	local, err := config.InitCacheDB(cfg)
	if err != nil {
		utils.ErrorLogger.Fatalf("Failed to open cache database: %v", err)
	}
	if err := database.MigrateCache(local); err != nil {
		utils.ErrorLogger.Fatalf("Failed to migrate cache database: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app := newApp(cfg, remote, local)
	app.Start(ctx)
	defer app.Stop()

	go func() {
		utils.InfoLogger.Printf("Listening on port %s", cfg.Port)
		if err := app.Router.Run(":" + cfg.Port); err != nil {
			utils.ErrorLogger.Fatal(err)
		}
	}()

	<-ctx.Done()
	utils.InfoLogger.Println("Shutting down")
}
