package api

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/Haru-Log/harulog-server-ops/internal/chat"
	"github.com/Haru-Log/harulog-server-ops/internal/config"
	"github.com/Haru-Log/harulog-server-ops/internal/database"
	"github.com/Haru-Log/harulog-server-ops/internal/gateway"
	"github.com/Haru-Log/harulog-server-ops/internal/stats"
	"github.com/gorilla/handlers"
	"github.com/teris-io/shortid"
)

type HarulogApp struct {
	log             *log.Logger
	db              database.ChatRepository
	coordinator     *chat.Coordinator
	gw              *gateway.Gateway
	stats           stats.StatsProvider
	mux             *http.Server
	signingKey      []byte
	allowedOrigins  []string
	generateShortId func() (string, error)
}

func NewHarulogApp(mux *http.ServeMux, logger *log.Logger, coordinator *chat.Coordinator, gw *gateway.Gateway, db database.ChatRepository, sp stats.StatsProvider, cfg *config.Config) *HarulogApp {
	s := &HarulogApp{
		log:             logger,
		db:              db,
		coordinator:     coordinator,
		gw:              gw,
		stats:           sp,
		signingKey:      cfg.SigningKey,
		allowedOrigins:  cfg.AllowedOrigins,
		generateShortId: shortid.Generate,
	}

	mux.HandleFunc("GET /healthz", s.healthCheck)
	mux.HandleFunc("POST /api/auth/register", s.createAccount)
	mux.HandleFunc("POST /api/auth/login", s.login)
	mux.HandleFunc("GET /api/auth/session", s.authMiddleware(s.session))
	mux.Handle("GET /api/auth/logout", s.authMiddleware(s.logout))
	mux.Handle("/api/account", s.authMiddleware(s.account))
	mux.Handle("POST /api/rooms", s.authMiddleware(s.createRoom))
	mux.Handle("DELETE /api/rooms", s.authMiddleware(s.deleteRoom))
	mux.Handle("GET /api/rooms", s.authMiddleware(s.getRoom))
	mux.Handle("POST /api/rooms/members", s.authMiddleware(s.addMembers))
	mux.Handle("DELETE /api/rooms/members", s.authMiddleware(s.removeMember))
	mux.Handle("GET /api/rooms/members", s.authMiddleware(s.listMembers))
	mux.Handle("GET /api/subscriptions", s.authMiddleware(s.listRooms))
	mux.Handle("GET /api/messages", s.authMiddleware(s.getMessages))
	mux.Handle("GET /ws", s.authMiddleware(s.serveWs))

	h := handlers.CORS(
		handlers.MaxAge(3600),
		handlers.AllowedOrigins(cfg.AllowedOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Origin", "Content-Type", "Accept"}),
		handlers.AllowCredentials(),
	)(mux)

	h = s.errorHandler(h)

	srv := &http.Server{
		Addr:    cfg.ServerAddr,
		Handler: h,
	}

	s.mux = srv
	return s
}

func (s *HarulogApp) Start() error {
	s.log.Printf("starting server on %s\n", s.mux.Addr)
	return s.mux.ListenAndServe()
}

func (s *HarulogApp) Shutdown(ctx context.Context) error {
	s.log.Println("shutting down HTTP server...")
	if err := s.mux.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	return nil
}
