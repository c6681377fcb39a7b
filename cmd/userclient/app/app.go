package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"syscall"

	"go.uber.org/zap"

	"user-mvi/cmd/userclient/console"
	"user-mvi/internal/adapter/cache"
	"user-mvi/internal/adapter/remote"
	"user-mvi/internal/adapter/repository/cached"
	"user-mvi/internal/adapter/repository/stream"
	"user-mvi/internal/config"
	usecase "user-mvi/internal/usecase/user"
	"user-mvi/pkg/logger"
	redisclient "user-mvi/pkg/redis"
)

// App is the console client of the user service.
type App struct {
	Config  *config.Config
	Logger  *zap.Logger
	Console *console.Console

	redis *redisclient.Client
}

// New wires config, logger, remote client, optional cache and the screens.
func New(ctx context.Context, out io.Writer) (*App, error) {
	cfg, err := config.LoadConfig(getConfigPath())
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	l, err := initLogger(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return Wire(ctx, cfg, l, out)
}

// Wire builds the client from an already loaded config.
func Wire(ctx context.Context, cfg *config.Config, l *zap.Logger, out io.Writer) (*App, error) {
	client, err := remote.NewClient(remote.Config{
		BaseURL: cfg.Remote.BaseURL,
		Timeout: cfg.Remote.Timeout,
	}, l)
	if err != nil {
		return nil, fmt.Errorf("failed to create remote client: %w", err)
	}

	a := &App{Config: cfg, Logger: l}

	var api remote.API = client
	if cfg.Redis.CacheEnable {
		a.redis, err = redisclient.NewClient(ctx, redisclient.Config{
			Addr:        cfg.Redis.Addr(),
			Password:    cfg.Redis.Password,
			DB:          cfg.Redis.DB,
			MaxRetries:  cfg.Redis.MaxRetries,
			PoolSize:    cfg.Redis.PoolSize,
			MinIdleConn: cfg.Redis.MinIdleConn,
		}, l)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Redis: %w", err)
		}
		usersCache := cache.NewRedisUsersCache(a.redis.Client, cfg.Redis.CacheTTL, l)
		api = cached.NewCachedUserAPI(client, usersCache, l)
	}

	repo := stream.NewUserRepository(api, l)
	uc := usecase.New(repo, l)
	a.Console = console.New(uc, cfg.Search.Debounce, out, l)

	return a, nil
}

// Run drives the console from in until quit, EOF or ctx is done.
func (a *App) Run(ctx context.Context, in io.Reader) error {
	a.Logger.Info("starting client",
		zap.String("remote", a.Config.Remote.BaseURL),
		zap.Bool("cache", a.Config.Redis.CacheEnable),
	)

	err := a.Console.Run(ctx, in)

	if a.redis != nil {
		if cerr := a.redis.Close(); cerr != nil {
			err = errors.Join(err, fmt.Errorf("redis close: %w", cerr))
		}
	}
	if serr := a.Logger.Sync(); serr != nil && !errors.Is(serr, syscall.EINVAL) && !errors.Is(serr, syscall.ENOTTY) {
		err = errors.Join(err, fmt.Errorf("logger sync: %w", serr))
	}
	return err
}

// initLogger keeps logs off stdout, which belongs to the console.
func initLogger(cfg *config.Config) (*zap.Logger, error) {
	output := cfg.Logger.OutputPath
	if output == "stdout" {
		output = "stderr"
	}

	return logger.NewWithConfig(logger.Config{
		Level:          cfg.Logger.Level,
		Format:         cfg.Logger.Format,
		OutputPath:     output,
		EnableSampling: cfg.Logger.EnableSampling,
		ServiceName:    "user-mvi-client",
		ServiceVersion: cfg.Logger.ServiceVersion,
		Environment:    cfg.App.Env,
		MaxSizeMB:      cfg.Logger.MaxSizeMB,
		MaxBackups:     cfg.Logger.MaxBackups,
		MaxAgeDays:     cfg.Logger.MaxAgeDays,
	})
}

// getConfigPath returns the configuration path
func getConfigPath() string {
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		return path
	}
	return "."
}
