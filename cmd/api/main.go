package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ovaphlow/pitchfork/service-portfolio-go/internal/auth"
	"github.com/ovaphlow/pitchfork/service-portfolio-go/internal/config"
	"github.com/ovaphlow/pitchfork/service-portfolio-go/internal/router"
	"github.com/ovaphlow/pitchfork/service-portfolio-go/internal/token"
	"github.com/ovaphlow/pitchfork/service-portfolio-go/internal/user"
	"github.com/ovaphlow/pitchfork/service-portfolio-go/internal/user/repo"
	"github.com/ovaphlow/pitchfork/service-portfolio-go/pkg/database"
	"github.com/ovaphlow/pitchfork/service-portfolio-go/pkg/utilities"
)

func main() {
	// load .env file if present so os.Getenv picks values from it
	config.LoadDotenv()

	lg, err := utilities.Init(utilities.ConfigFromEnv())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer lg.Sync()

	sugar := lg.Sugar()
	sugar.Info("starting portfolio api")

	cfg, err := config.Load()
	if err != nil {
		sugar.Fatalw("invalid configuration", "err", err)
	}

	db, err := database.Connect(database.ConfigFromEnv())
	if err != nil {
		sugar.Fatalf("db connect: %v", err)
	}
	defer db.Close()

	// graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	users := repo.NewUserRepo(db)
	if err := users.EnsureTable(ctx); err != nil {
		sugar.Fatalw("ensure users table", "err", err)
	}

	tokens, err := token.NewService([]byte(cfg.JWTSecret), cfg.TokenTTL)
	if err != nil {
		sugar.Fatalw("token service", "err", err)
	}
	svc := user.NewUserService(users, user.BcryptHasher{Cost: cfg.BcryptCost}, tokens)

	handler := router.RegisterRoutes(sugar, router.Deps{
		Users:        user.NewHandler(svc, tokens, user.CookieOptions{Secure: cfg.CookieSecure, MaxAge: tokens.TTL()}, sugar),
		Resolver:     auth.NewResolver(tokens),
		CORSOrigins:  cfg.CORSOrigins,
		MaxBodyBytes: cfg.MaxBodyBytes,
	})
	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		sugar.Infow("http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			sugar.Fatalf("http server failed: %v", err)
		}
	}()

	<-ctx.Done()

	sugar.Info("shutting down")

	doneCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(doneCtx); err != nil {
		sugar.Warnf("http server shutdown failed: %v", err)
	}

	sugar.Info("goodbye")
}
