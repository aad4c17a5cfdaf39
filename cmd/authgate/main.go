package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/collectr-app/authgate/internal/api/http/router"
	"github.com/collectr-app/authgate/internal/config"
	"github.com/collectr-app/authgate/internal/keystore"
	"github.com/collectr-app/authgate/internal/logger"
	"github.com/collectr-app/authgate/internal/model"
	"github.com/collectr-app/authgate/internal/provider"
	"github.com/collectr-app/authgate/internal/repository/sqlite"
	"github.com/collectr-app/authgate/internal/server"
	"github.com/collectr-app/authgate/internal/service"
	"github.com/collectr-app/authgate/internal/token"
)

var (
	buildVersion = "N/A" // set by ldflags
	buildDate    = "N/A" // set by ldflags
	buildCommit  = "N/A" // set by ldflags
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT, os.Interrupt)
	defer stop()

	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("failed to parse config: %v", err)
	}
	logger := logger.New(cfg.LogLevel)

	db, err := sqlite.NewConnection(ctx, cfg.Database.Path)
	if err != nil {
		logger.Fatal("failed to initialize attempt database", "error", err)
	}
	defer db.Close()

	secrets, err := keystore.New(cfg.Keystore.Path, cfg.Keystore.Passphrase, logger)
	if err != nil {
		logger.Fatal("failed to open keystore", "error", err)
	}

	identity := newIdentityProvider(cfg, logger)

	attemptRepo := sqlite.NewAttemptRepository(db)
	limiter := service.NewRateLimiter(attemptRepo, cfg.RateLimit.Threshold, cfg.RateLimit.BackoffCap, logger)
	mfa := service.NewMFAOrchestrator(identity, secrets, logger)
	controller := service.NewAuthSessionController(limiter, mfa, identity, secrets, logger)
	prefs := service.NewPreferencesService(secrets)

	controller.Subscribe(func(change model.StateChange) {
		logger.Debug("auth state changed",
			"from", string(change.From),
			"to", string(change.To))
	})

	if restored, err := controller.Restore(ctx); err != nil {
		logger.Error("failed to restore session", "error", err)
	} else if restored {
		logger.Info("previous session restored")
	}

	r := router.New(controller, mfa, limiter, prefs, logger)
	httpServer := server.NewHTTPServer(r.Register(), fmt.Sprintf(":%s", cfg.HTTP.Port))

	var sl model.SecurityLayer
	if cfg.HTTP.EnableHTTPS {
		sl = server.NewTLSListener(cfg.HTTP.CertFileName, cfg.HTTP.PrivateKeyFileName)
	} else {
		sl = server.NewPlainListener()
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func(s model.Server) {
		defer wg.Done()
		logger.Info("Starting server on", "address", s.Address())
		err := s.Start(sl)
		if err != nil {
			logger.Error("failed to start server", "error", err)
		}
	}(httpServer)

	logAppVersion()

	<-ctx.Done()
	logger.Info("received interruption signal, shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Stop(shutdownCtx); err != nil {
		logger.Error("error during server shutdown", "error", err, "address", httpServer.Address())
	}

	wg.Wait()
	logger.Info("shutdown complete")
}

func newIdentityProvider(cfg *config.Config, logger *logger.Logger) model.IdentityProvider {
	if cfg.Provider.Mode == "local" {
		local := provider.NewLocal(token.NewJWT(cfg.JWT.Secret), cfg.Provider.Issuer, logger)
		userID := local.Register("dev@collectr.app", "devpassword")
		logger.Info("local identity provider active",
			"identifier", "dev@collectr.app",
			"user_id", userID.String())
		return local
	}
	return provider.NewHTTPProvider(cfg.Provider.BaseURL, cfg.Provider.APIKey, cfg.Provider.Timeout, logger)
}

func logAppVersion() {
	tmpl := `
Build version: %s
Build date: %s
Build commit: %s
`

	fmt.Printf(tmpl, buildVersion, buildDate, buildCommit)
}
