// Package ops поднимает сервисный HTTP-эндпоинт: проверка живости для
// оркестратора и немного цифр для наблюдения без захода в Telegram.
package ops

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Snapshot — моментальный срез состояния бота для /stats.
type Snapshot struct {
	Users          int  `json:"users"`
	PostsPublished int  `json:"posts_published"`
	Pending        int  `json:"pending"`
	Accepting      bool `json:"accepting"`
}

// Server — HTTP-сервер сервисных эндпоинтов.
type Server struct {
	httpServer *http.Server
}

// New создает сервер на указанном порту. snapshot вызывается на каждый
// запрос /stats.
func New(port int, snapshot func() Snapshot) *Server {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})

	r.Get("/stats", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(snapshot())
	})

	return &Server{
		httpServer: &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           r,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// ListenAndServe запускает сервер и блокируется до его остановки.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown корректно останавливает сервер.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
