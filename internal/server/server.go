package server

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/fittrack/apiserver/config"
	"github.com/fittrack/apiserver/internal/db"
	"github.com/fittrack/apiserver/internal/handlers"
	"github.com/fittrack/apiserver/internal/mq"
	"github.com/fittrack/apiserver/internal/services"
	"github.com/fittrack/apiserver/internal/storage"
	"github.com/fittrack/apiserver/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.mongodb.org/mongo-driver/mongo"
)

// Server wraps the HTTP server, router and backend clients.
type Server struct {
	httpServer  *http.Server
	router      *chi.Mux
	sqlDB       *sql.DB
	mongoClient *mongo.Client
	events      *mq.MQ
}

// New constructs a Server, wiring the configured store, broker and
// object storage backends into the services.
func New(ctx context.Context, cfg config.Config) (*Server, error) {
	srv := &Server{}

	userRepo, exerciseRepo, err := srv.openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	events, err := srv.openEvents(ctx, cfg)
	if err != nil {
		srv.closeClients()
		return nil, err
	}

	exportStorage, err := openStorage(ctx, cfg)
	if err != nil {
		srv.closeClients()
		return nil, err
	}

	// A nil *mq.MQ must not become a non-nil interface value.
	var publisher services.EventPublisher
	if events != nil {
		publisher = events
	}

	userService := services.NewUserService(userRepo)
	exerciseService := services.NewExerciseService(userRepo, exerciseRepo, publisher)
	var exportService *services.ExportService
	if exportStorage != nil {
		exportService = services.NewExportService(exerciseService, exportStorage)
	}

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Logger,
		middleware.Timeout(60*time.Second),
	)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"*"},
	}))

	router.Get("/healthz", handlers.Healthz)
	router.Handle("/metrics", promhttp.Handler())
	router.Get("/", landingPage(cfg.PublicDir))
	router.Route("/api/users", func(r chi.Router) {
		handlers.UserRouter(r, userService, exerciseService, exportService)
	})

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	srv.router = router
	srv.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return srv, nil
}

// openStore connects the configured persistence backend and returns
// the user and exercise repositories built on it.
func (s *Server) openStore(ctx context.Context, cfg config.Config) (services.UserRepository, services.ExerciseRepository, error) {
	switch cfg.StoreBackend {
	case config.StorePostgres:
		sqlDB, err := db.Open(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		s.sqlDB = sqlDB
		return store.NewPGUserRepository(sqlDB), store.NewPGExerciseRepository(sqlDB), nil
	case config.StoreMongo, "":
		client, err := db.Connect(ctx, cfg.Mongo)
		if err != nil {
			return nil, nil, err
		}
		s.mongoClient = client
		database := client.Database(cfg.Mongo.DBName)
		return store.NewMongoUserRepository(database), store.NewMongoExerciseRepository(database), nil
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}

// openEvents connects the configured broker, if any.
func (s *Server) openEvents(ctx context.Context, cfg config.Config) (*mq.MQ, error) {
	switch cfg.MQBackend {
	case "":
		return nil, nil
	case config.MQRabbitMQ:
		client, err := mq.NewRabbitMQClient(cfg.RabbitMQ)
		if err != nil {
			return nil, err
		}
		s.events = mq.New(client)
		return s.events, nil
	case config.MQPubSub:
		client, err := mq.NewPubSubClient(ctx, cfg.PubSub)
		if err != nil {
			return nil, err
		}
		s.events = mq.New(client)
		return s.events, nil
	default:
		return nil, fmt.Errorf("unknown mq backend %q", cfg.MQBackend)
	}
}

// openStorage connects the configured object storage, if any.
func openStorage(ctx context.Context, cfg config.Config) (*storage.Storage, error) {
	var backend storage.ObjectStorage
	switch cfg.StorageBackend {
	case "":
		return nil, nil
	case config.StorageMinio:
		client, err := storage.NewMinioClient(cfg.Minio)
		if err != nil {
			return nil, err
		}
		backend = client
	case config.StorageGCS:
		client, err := storage.NewGCSClient(ctx, cfg.GCS)
		if err != nil {
			return nil, err
		}
		backend = client
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}

	wrapped := storage.NewStorage(backend)
	if err := wrapped.EnsureBucket(ctx); err != nil {
		return nil, err
	}
	return wrapped, nil
}

func landingPage(publicDir string) http.HandlerFunc {
	index := filepath.Join(publicDir, "index.html")
	return func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, index)
	}
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server.
func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown closes backend clients and stops the HTTP server.
func (s *Server) Shutdown() error {
	s.closeClients()
	return s.httpServer.Close()
}

func (s *Server) closeClients() {
	if s.events != nil {
		_ = s.events.Close()
	}
	if s.sqlDB != nil {
		_ = s.sqlDB.Close()
	}
	if s.mongoClient != nil {
		_ = s.mongoClient.Disconnect(context.Background())
	}
}
