package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/wichananm65/auth-api/internal/auth"
	"github.com/wichananm65/auth-api/internal/config"
	"github.com/wichananm65/auth-api/internal/database"
	"github.com/wichananm65/auth-api/internal/logging"
	"github.com/wichananm65/auth-api/internal/server"
	"github.com/wichananm65/auth-api/internal/user"
)

const (
	startupTimeout  = 15 * time.Second
	shutdownTimeout = 10 * time.Second
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log := logging.New(os.Stdout, cfg.LogLevel)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tokens, err := auth.NewTokenManager(cfg.Secret, cfg.TokenTTL)
	if err != nil {
		return err
	}

	repo, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	app := server.New(server.Deps{
		Users:            user.NewHandler(user.NewService(repo, tokens), log),
		Tokens:           tokens,
		Log:              log,
		CORSAllowOrigins: cfg.CORSAllow,
		AccessLog:        os.Stdout,
	})

	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, "listening", "addr", cfg.Addr, "store", cfg.Store, "token_ttl", tokens.TTL().String())
		errCh <- app.Listen(cfg.Addr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info(context.Background(), "shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return app.ShutdownWithContext(shutdownCtx)
}

// openStore connects the configured user store. The returned func releases
// its connection.
func openStore(ctx context.Context, cfg *config.Config, log logging.Logger) (user.Repository, func(), error) {
	ctx, cancel := context.WithTimeout(ctx, startupTimeout)
	defer cancel()

	switch cfg.Store {
	case config.StorePostgres:
		db, err := database.OpenPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		if err := database.Migrate(ctx, db); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		return user.NewPostgresRepository(db), func() { _ = db.Close() }, nil

	case config.StoreMemory:
		log.Warn(ctx, "using in-memory user store; accounts are lost on restart")
		return user.NewInMemoryRepository(nil), func() {}, nil

	default:
		client, err := database.ConnectMongo(ctx, cfg.MongoURI)
		if err != nil {
			return nil, nil, err
		}
		repo := user.NewMongoRepository(client.Database(cfg.MongoDatabase).Collection(user.CollectionName))
		if err := repo.EnsureIndexes(ctx); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, nil, err
		}
		return repo, func() { _ = client.Disconnect(context.Background()) }, nil
	}
}
