package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/viper"

	"github.com/nabbi/ha-honeywell/internal/handlers"
	"github.com/nabbi/ha-honeywell/internal/logger"
	"github.com/nabbi/ha-honeywell/internal/repository"
	"github.com/nabbi/ha-honeywell/internal/server"
	"github.com/nabbi/ha-honeywell/internal/service"
	"github.com/nabbi/ha-honeywell/internal/somecomfort"
)

const setupTimeout = 2 * time.Minute

func main() {
	if err := loadConfig(); err != nil {
		logger.Get(logger.InfoLevel).Fatalw("error reading config", "err", err)
	}
	log := logger.Get(viper.GetString("log.level"))

	db, err := openDB(log)
	if err != nil {
		log.Fatalw("failed to init sqlite", "err", err)
	}
	defer func() {
		if cerr := db.Close(); cerr != nil {
			log.Errorw("failed to close sqlite", "err", cerr)
		}
	}()

	// context for background goroutines
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client, devices, err := setupSession(ctx, log)
	if err != nil {
		log.Fatalw("portal setup failed", "err", err)
	}
	log.Infow("portal session established", "devices", len(devices))

	repos := repository.NewRepository(db)
	services := service.NewService(repos, client, devices, service.Config{
		AwayHeatSetpoint: viper.GetFloat64("honeywell.away_heat"),
		AwayCoolSetpoint: viper.GetFloat64("honeywell.away_cool"),
		SigningKey:       viper.GetString("auth.signing_key"),
		// Discovery just refreshed every device; the first scheduled
		// poll is redundant.
		SkipInitialRefresh: true,
	}, log)
	apiHandler := handlers.NewHandler(services, log)

	go services.Coordinator.Run(ctx, service.ScanInterval)

	srv := &server.Server{}
	runHTTPServer(srv, viper.GetString("port"), apiHandler, log)

	waitForShutdown(cancel, srv, log)
}

func loadConfig() error {
	viper.AddConfigPath("configs") // configs/config.yml
	viper.SetConfigName("config")
	viper.SetEnvPrefix("tcc")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv() // TCC_HONEYWELL_PASSWORD overrides honeywell.password
	return viper.ReadInConfig()
}

// openDB initializes the SQLite database using configuration.
func openDB(log *logger.Logger) (*sql.DB, error) {
	dbPath := viper.GetString("db.path")
	if dbPath == "" {
		log.Infow("db.path not set in config; using default file", "default", "tccd.db")
		dbPath = "tccd.db"
	}
	return repository.InitDB(dbPath)
}

// setupSession logs in to the portal and discovers devices. A credential
// rejection here is fatal and needs operator action; transient portal
// trouble is also fatal but resolves itself on the next start.
func setupSession(ctx context.Context, log *logger.Logger) (*somecomfort.Client, map[int64]service.Device, error) {
	client, err := somecomfort.NewClient(somecomfort.Config{
		Username: viper.GetString("honeywell.username"),
		Password: viper.GetString("honeywell.password"),
	})
	if err != nil {
		return nil, nil, err
	}

	setupCtx, cancel := context.WithTimeout(ctx, setupTimeout)
	defer cancel()

	if err := client.Login(setupCtx); err != nil {
		if somecomfort.IsAuthError(err) && !somecomfort.IsSiteDown(err) {
			log.Errorw("portal rejected credentials, check honeywell.username/password", "err", err)
		}
		return nil, nil, err
	}
	if err := client.Discover(setupCtx); err != nil {
		return nil, nil, err
	}

	devices := make(map[int64]service.Device)
	for id, d := range client.Devices() {
		devices[id] = d
	}
	return client, devices, nil
}

// runHTTPServer runs the HTTP server in a separate goroutine.
func runHTTPServer(srv *server.Server, port string, handler *handlers.Handler, log *logger.Logger) {
	go func() {
		if port == "" {
			port = "8080"
		}
		if err := srv.Run(port, handler.InitRoutes()); err != nil {
			log.Fatalw("error starting server", "err", err)
		}
	}()
}

// waitForShutdown listens for termination signals and performs graceful shutdown.
func waitForShutdown(cancel context.CancelFunc, srv *server.Server, log *logger.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Infow("shutting down server...")

	// stop the poller
	cancel()

	ctx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalw("server forced to shutdown", "err", err)
	}
}
