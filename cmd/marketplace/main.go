package main

import (
	"context"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/example/marketplace/internal/accounts"
	acchandlers "github.com/example/marketplace/internal/accounts/handlers"
	accstore "github.com/example/marketplace/internal/accounts/store"
	"github.com/example/marketplace/internal/accounts/tokens"
	"github.com/example/marketplace/internal/catalog"
	cathandlers "github.com/example/marketplace/internal/catalog/handlers"
	catstore "github.com/example/marketplace/internal/catalog/store"
	"github.com/example/marketplace/internal/platform/auth"
	"github.com/example/marketplace/internal/platform/config"
	"github.com/example/marketplace/internal/platform/db"
	"github.com/example/marketplace/internal/platform/events"
	"github.com/example/marketplace/internal/platform/httpserver"
	"github.com/example/marketplace/internal/platform/logging"
	"github.com/example/marketplace/internal/platform/natsconn"
	"github.com/example/marketplace/internal/platform/run"
	"github.com/example/marketplace/internal/profile"
	"github.com/example/marketplace/internal/ratings/engine"
	rathandlers "github.com/example/marketplace/internal/ratings/handlers"
	ratstore "github.com/example/marketplace/internal/ratings/store"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	authCfg, err := config.LoadAuth()
	if err != nil {
		panic(err)
	}
	log, err := logging.New(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	users, cats, ratings, pool := initStores(cfg, log)
	if pool != nil {
		defer pool.Close()
	}

	verifier := auth.JWTVerifier{Secret: authCfg.JWTSecret}
	tokenSvc := tokens.Service{Secret: authCfg.JWTSecret, AccessTokenTTL: authCfg.AccessTokenTTL}

	// Event publishing is best-effort; the API works without NATS.
	var pub *events.Publisher
	if nc, err := natsconn.Connect(natsconn.Options{}); err != nil {
		log.Warn("nats unavailable, events disabled", zap.Error(err))
	} else {
		defer nc.Close()
		if js, err := nc.JetStream(); err != nil {
			log.Warn("jetstream unavailable, events disabled", zap.Error(err))
		} else {
			pub = events.New(js, log)
		}
	}

	listingDir := catalog.Directory{Store: cats}
	userDir := accounts.Directory{Users: users}
	eng := engine.New(ratings, listingDir, userDir, pub, log)
	profiles := profile.Assembler{Users: users, Stats: eng}

	r := chi.NewRouter()
	httpserver.SetupRouter(r, httpserver.RouterConfig{ReadyFunc: func() error {
		if pool == nil {
			return nil
		}
		return pool.Ping(context.Background())
	}})

	// Public surface.
	r.Post("/v1/auth/register", acchandlers.Register(users, tokenSvc, pub, log))
	r.Post("/v1/auth/login", acchandlers.Login(users, tokenSvc, log))
	r.Get("/v1/users/{username}/profile", profile.Handler(profiles, log))

	r.Get("/v1/categories", cathandlers.ListCategories(cats, log))
	r.Get("/v1/products", cathandlers.ListProducts(cats, log))
	r.Get("/v1/products/{product_id}", cathandlers.GetProduct(cats, log))
	r.Get("/v1/services", cathandlers.ListServices(cats, log))
	r.Get("/v1/services/{service_id}", cathandlers.GetService(cats, log))

	r.Get("/v1/ratings/product/{product_id}", rathandlers.ListProductRatings(eng))
	r.Get("/v1/ratings/service/{service_id}", rathandlers.ListServiceRatings(eng))

	// Authenticated surface.
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireUser(verifier))

		r.Post("/v1/products", cathandlers.CreateProduct(cats, pub, log))
		r.Delete("/v1/products/{product_id}", cathandlers.DeleteProduct(cats, log))
		r.Post("/v1/services", cathandlers.CreateService(cats, pub, log))
		r.Delete("/v1/services/{service_id}", cathandlers.DeleteService(cats, log))

		r.Post("/v1/ratings", rathandlers.CreateRating(eng))
		r.Delete("/v1/ratings/{rating_id}", rathandlers.DeleteRating(eng))
		r.Get("/v1/ratings/user/{rater_id}", rathandlers.ListRaterRatings(eng))
	})

	// Admin surface.
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireUser(verifier))
		r.Use(auth.RequireAdmin)

		r.Get("/v1/users", acchandlers.ListUsers(users, log))
		r.Put("/v1/users/{username}/roles", acchandlers.UpdateRoles(users, log))
		r.Post("/v1/categories", cathandlers.CreateCategory(cats, log))
	})

	srv := httpserver.New(httpserver.Options{
		Addr:        cfg.HTTP.Addr,
		ServiceName: cfg.ServiceName,
		Logger:      log,
		Router:      r,
	})

	runner := run.New(log)
	code := runner.WithSignals(func(ctx context.Context) error {
		go func() {
			<-ctx.Done()
			_ = srv.Shutdown(context.Background())
		}()
		return srv.Start(log)
	})

	log.Info("exit", zap.Int("code", code))
	run.Exit(code)
}

// initStores selects the persistence backend. In production a working
// Postgres connection is required and the process terminates otherwise; in
// development a missing or unreachable database falls back to the in-memory
// stores.
func initStores(cfg config.AppConfig, log *zap.Logger) (accstore.UserStore, catstore.CatalogStore, ratstore.RatingStore, *pgxpool.Pool) {
	pool, err := db.Open(context.Background())
	if err != nil {
		if cfg.IsProduction() {
			log.Error("postgres is required in production", zap.Error(err))
			_ = log.Sync()
			run.Exit(1)
		}
		log.Warn("postgres unavailable, using in-memory stores (development only)", zap.Error(err))
		cats := catstore.NewInMemoryCatalogStore()
		ratings := ratstore.NewInMemoryRatingStore(catalog.Directory{Store: cats})
		return accstore.NewInMemoryUserStore(), cats, ratings, nil
	}

	log.Info("stores: postgres")
	return accstore.NewPostgresUserStore(pool),
		catstore.NewPostgresCatalogStore(pool),
		ratstore.NewPostgresRatingStore(pool),
		pool
}
