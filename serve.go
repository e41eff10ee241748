package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	firebase "firebase.google.com/go"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/cors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/dcode-github/property_rentals/backend/config"
	"github.com/dcode-github/property_rentals/backend/images"
	"github.com/dcode-github/property_rentals/backend/middleware"
	"github.com/dcode-github/property_rentals/backend/routes"
	"github.com/dcode-github/property_rentals/backend/store"
	"github.com/dcode-github/property_rentals/backend/utils"
)

func serveCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the listings HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(opts)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, logger)
		},
	}
}

// backends are the stores and verifier selected by configuration, plus the
// hooks that release them.
type backends struct {
	properties store.PropertyStore
	users      store.UserStore
	verifier   middleware.TokenVerifier
	closers    []func()
}

func (b *backends) close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}

func openBackends(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*backends, error) {
	b := &backends{}
	var app *firebase.App
	firebaseApp := func() (*firebase.App, error) {
		if app != nil {
			return app, nil
		}
		var err error
		app, err = config.NewFirebaseApp(ctx, cfg.Firebase)
		return app, err
	}

	switch cfg.Store.Driver {
	case config.DriverMongo:
		client, err := config.ConnectDB(ctx, cfg.Mongo)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to the database: %w", err)
		}
		b.closers = append(b.closers, func() { config.CloseDBConnection(context.Background(), client) })
		db := client.Database(cfg.Mongo.Database)
		b.properties = store.NewMongoStore(db, logger)
		b.users = store.NewMongoUserStore(db)
	case config.DriverFirestore:
		fa, err := firebaseApp()
		if err != nil {
			return nil, err
		}
		fs, err := fa.Firestore(ctx)
		if err != nil {
			return nil, fmt.Errorf("open firestore: %w", err)
		}
		b.closers = append(b.closers, func() { _ = fs.Close() })
		b.properties = store.NewFirestoreStore(fs, logger)
		b.users = store.NewFirestoreUserStore(fs)
	default:
		mem := store.NewMemoryStore()
		b.properties = mem
		b.users = mem
	}

	if cfg.Redis.Enabled() {
		rc, err := config.NewRedis(ctx, cfg.Redis)
		if err != nil {
			b.close()
			return nil, err
		}
		b.closers = append(b.closers, func() { _ = rc.Close() })
		b.properties = store.NewCachedStore(b.properties, rc, cfg.Redis.TTL, logger)
	}

	switch cfg.Auth.Provider {
	case config.ProviderFirebase:
		fa, err := firebaseApp()
		if err != nil {
			b.close()
			return nil, err
		}
		authClient, err := fa.Auth(ctx)
		if err != nil {
			b.close()
			return nil, fmt.Errorf("open firebase auth: %w", err)
		}
		b.verifier = middleware.NewFirebaseVerifier(authClient)
	default:
		b.verifier = middleware.NewJWTVerifier(utils.NewTokenIssuer(cfg.Auth.JWTKey, cfg.Auth.TokenTTL))
	}
	return b, nil
}

func serve(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	b, err := openBackends(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer b.close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	deps := routes.Dependencies{
		Properties:     b.properties,
		Roles:          middleware.NewRoleResolver(b.users, cfg.Auth.RoleCacheTTL, logger),
		Verifier:       b.verifier,
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
		Metrics:        middleware.NewMetrics(reg),
		Gatherer:       reg,
		Logger:         logger,
	}
	if cfg.S3.Enabled() {
		uploader, err := images.NewS3Uploader(cfg.S3)
		if err != nil {
			return err
		}
		deps.Uploader = uploader
	}

	router := mux.NewRouter()
	routes.Routes(router, deps)

	corsOptions := cors.New(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", middleware.RequestIDHeader},
		AllowCredentials: true,
	})

	server := &http.Server{
		Addr:           ":" + cfg.Server.Port,
		Handler:        corsOptions.Handler(router),
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		MaxHeaderBytes: 1 << 20,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Server running", slog.String("port", cfg.Server.Port), slog.String("store", cfg.Store.Driver))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("error starting server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("error during server shutdown: %w", err)
		}
		logger.Info("Server gracefully stopped")
		return nil
	})
	return g.Wait()
}
