package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
	"gorm.io/gorm"

	"fz-restaurant/config"
	"fz-restaurant/internal/cart"
	"fz-restaurant/internal/database"
	"fz-restaurant/internal/gateway"
	"fz-restaurant/internal/gateway/handlers"
	"fz-restaurant/internal/health"
	"fz-restaurant/internal/logging"
	"fz-restaurant/internal/ordering"
	"fz-restaurant/internal/realtime"
	"fz-restaurant/internal/repository"
	"fz-restaurant/internal/settings"
	"fz-restaurant/internal/tables"
	"fz-restaurant/internal/utils"
)

const healthInterval = 15 * time.Second

func main() {
	var cfg config.Config

	app := &cli.App{
		Name:  "restaurant",
		Usage: "FZ restaurant ordering backend",
		Before: func(*cli.Context) error {
			var err error
			if cfg, err = config.LoadConfig(); err != nil {
				return err
			}
			return logging.Setup(cfg.Log.Level, cfg.Log.Format, os.Stdout)
		},
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "run the HTTP API, websocket hub and gRPC health server",
				Action: func(c *cli.Context) error {
					return serve(c.Context, cfg)
				},
			},
			{
				Name:  "migrate",
				Usage: "apply the schema and seed defaults",
				Action: func(*cli.Context) error {
					db, err := connect(cfg)
					if err != nil {
						return err
					}
					if err := database.Migrate(db); err != nil {
						return err
					}
					log.Info("Migration complete")
					return seed(db, cfg)
				},
			},
			{
				Name:  "seed",
				Usage: "insert default settings and delivery zones on an empty database",
				Action: func(*cli.Context) error {
					db, err := connect(cfg)
					if err != nil {
						return err
					}
					return seed(db, cfg)
				},
			},
			{
				Name:      "hash-password",
				Usage:     "print a bcrypt hash usable as FZ_AUTH_ADMIN_PASSWORD",
				ArgsUsage: "<password>",
				Action: func(c *cli.Context) error {
					if c.NArg() != 1 {
						return cli.Exit("exactly one password argument is required", 2)
					}
					hash, err := utils.HashPassword(c.Args().First())
					if err != nil {
						return err
					}
					fmt.Println(hash)
					return nil
				},
			},
		},
		DefaultCommand: "serve",
	}

	if err := app.Run(os.Args); err != nil {
		log.WithError(err).Fatal("restaurant exited")
	}
}

func connect(cfg config.Config) (*gorm.DB, error) {
	return database.NewConnection(cfg.DB.DSN, database.PoolConfig{
		MaxOpenConns: cfg.DB.MaxOpenConns,
		MaxIdleConns: cfg.DB.MaxIdleConns,
	})
}

func seed(db *gorm.DB, cfg config.Config) error {
	return database.Seed(db, database.Defaults{
		RestaurantName: cfg.Restaurant.Name,
		Latitude:       cfg.Restaurant.Latitude,
		Longitude:      cfg.Restaurant.Longitude,
		TotalTables:    cfg.Restaurant.TotalTables,
	})
}

func serve(parent context.Context, cfg config.Config) error {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := connect(cfg)
	if err != nil {
		return err
	}
	if err := database.Migrate(db); err != nil {
		return err
	}
	if err := seed(db, cfg); err != nil {
		return err
	}

	var rdb *redis.Client
	if cfg.Redis.Enabled {
		rdb, err = config.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		defer rdb.Close()
	}

	hub := realtime.NewHub(nil)
	defer hub.Close()

	var publisher realtime.Publisher = hub
	if rdb != nil {
		publisher = realtime.Multi(hub, realtime.NewRedisPublisher(rdb, realtime.DefaultChannelPrefix))
	}

	cartStore, err := newCartStore(ctx, cfg.Cart, rdb)
	if err != nil {
		return err
	}

	loc, err := cfg.Restaurant.Location()
	if err != nil {
		return err
	}

	store := repository.New(db)
	carts := cart.NewService(cartStore, cfg.Cart.TTL)
	orders := ordering.NewService(store, publisher, ordering.Config{
		AdminPassword:  cfg.Auth.AdminPassword,
		Location:       loc,
		NumberAttempts: cfg.Restaurant.OrderNumberAttempts,
	})
	tableSvc := tables.NewService(store, publisher, carts)
	settingsSvc := settings.NewService(store, publisher)

	h := handlers.NewRestaurantHTTPHandler(orders, tableSvc, carts, settingsSvc, handlers.Options{
		RequestTimeout: cfg.HTTP.RequestTimeout,
		JWTSecret:      []byte(cfg.Auth.JWTSecret),
		TokenTTL:       cfg.Auth.TokenTTL,
	})

	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}
	router, err := gateway.NewRouter(h, hub, gateway.RouterConfig{
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
		OrderRateLimit: cfg.HTTP.OrderRateLimit,
		JWTSecret:      []byte(cfg.Auth.JWTSecret),
	})
	if err != nil {
		return fmt.Errorf("failed to build router: %w", err)
	}

	checker := health.NewChecker(store.DB(), rdb)
	registerHealthRoutes(router, checker, hub)

	healthSrv := health.NewServer(checker)
	go healthSrv.Watch(ctx, healthInterval)

	lis, err := net.Listen("tcp", cfg.GRPC.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", cfg.GRPC.Addr, err)
	}
	go func() {
		log.WithField("addr", cfg.GRPC.Addr).Info("gRPC health server listening")
		if err := healthSrv.Serve(lis); err != nil {
			log.WithError(err).Error("gRPC health server stopped")
		}
	}()

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", cfg.HTTP.Addr).Info("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		log.Info("Shutting down")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("HTTP shutdown incomplete")
	}
	healthSrv.Stop()
	return nil
}

// newCartStore picks the draft backend. The memory store is swept until ctx
// is cancelled.
func newCartStore(ctx context.Context, cfg config.CartConfig, rdb *redis.Client) (cart.Store, error) {
	switch cfg.Backend {
	case "redis":
		if rdb == nil {
			return nil, errors.New("FZ_CART_BACKEND=redis requires FZ_REDIS_ENABLED=true")
		}
		return cart.NewRedisStore(rdb), nil
	case "", "memory":
		store := cart.NewMemoryStore()
		go store.Run(ctx, cfg.SweepInterval)
		return store, nil
	default:
		return nil, fmt.Errorf("unknown cart backend %q", cfg.Backend)
	}
}
