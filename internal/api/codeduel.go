package api

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/npezzotti/go-codeduel/internal/config"
	"github.com/npezzotti/go-codeduel/internal/database"
	"github.com/npezzotti/go-codeduel/internal/questions"
	"github.com/npezzotti/go-codeduel/internal/sandbox"
	"github.com/npezzotti/go-codeduel/internal/server"
	"github.com/teris-io/shortid"
)

type CodeDuelApp struct {
	log             *log.Logger
	db              database.BattleRepository
	srv             *http.Server
	bs              *server.BattleServer
	catalog         questions.Catalog
	executor        sandbox.Executor
	signingKey      []byte
	now             func() time.Time
	generateShortId func() (string, error)
}

// NewCodeDuelApp registers the API routes on mux. The stats updater mounts
// /metrics on the same mux.
func NewCodeDuelApp(mux *http.ServeMux, logger *log.Logger, bs *server.BattleServer, db database.BattleRepository,
	catalog questions.Catalog, executor sandbox.Executor, cfg *config.Config) *CodeDuelApp {
	s := &CodeDuelApp{
		log:             logger,
		db:              db,
		bs:              bs,
		catalog:         catalog,
		executor:        executor,
		signingKey:      cfg.SigningKey,
		now:             time.Now,
		generateShortId: shortid.Generate,
	}

	mux.HandleFunc("GET /healthz", s.healthCheck)
	mux.HandleFunc("POST /api/rooms", s.authMiddleware(s.createRoom))
	mux.HandleFunc("GET /api/rooms", s.authMiddleware(s.listRooms))
	mux.HandleFunc("POST /api/rooms/join", s.authMiddleware(s.joinRoom))
	mux.HandleFunc("GET /api/rooms/{code}", s.authMiddleware(s.getRoom))
	mux.HandleFunc("POST /api/rooms/{code}/leave", s.authMiddleware(s.leaveRoom))
	mux.HandleFunc("POST /api/rooms/{code}/start", s.authMiddleware(s.startBattle))
	mux.HandleFunc("POST /api/rooms/{code}/submit", s.authMiddleware(s.submitSolution))
	mux.HandleFunc("POST /api/queue/join", s.authMiddleware(s.joinQueue))
	mux.HandleFunc("POST /api/queue/leave", s.authMiddleware(s.leaveQueue))
	mux.HandleFunc("GET /api/queue/status", s.authMiddleware(s.queueStatus))
	mux.HandleFunc("GET /api/queue/stats", s.authMiddleware(s.queueStats))
	mux.HandleFunc("GET /api/leaderboard", s.authMiddleware(s.leaderboard))
	mux.HandleFunc("GET /api/questions/{id}", s.authMiddleware(s.getQuestion))
	mux.HandleFunc("POST /api/execute", s.authMiddleware(s.execute))

	h := handlers.CORS(
		handlers.MaxAge(3600),
		handlers.AllowedOrigins(cfg.AllowedOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Origin", "Content-Type", "Accept", "Authorization"}),
		handlers.ExposedHeaders([]string{requestIdHeader}),
		handlers.AllowCredentials(),
	)(mux)

	h = s.requestIdMiddleware(h)
	h = s.errorHandler(h)

	s.srv = &http.Server{
		Addr:              cfg.ServerAddr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s
}

func (s *CodeDuelApp) Start() error {
	s.log.Printf("starting server on %s\n", s.srv.Addr)
	return s.srv.ListenAndServe()
}

func (s *CodeDuelApp) Shutdown(ctx context.Context) error {
	s.log.Println("shutting down HTTP server...")
	if err := s.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	return nil
}
