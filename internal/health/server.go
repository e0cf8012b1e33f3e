// Package health поднимает служебный HTTP-эндпоинт /health
// для проверок живости из docker-compose и мониторинга.
package health

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
	"github.com/valyala/fasthttp"
)

// Server — HTTP-сервер проверок живости.
type Server struct {
	addr string
	pool *pgxpool.Pool
	srv  *fasthttp.Server
}

// NewServer создаёт сервер /health на указанном адресе.
func NewServer(addr string, pool *pgxpool.Pool) *Server {
	s := &Server{addr: addr, pool: pool}
	s.srv = &fasthttp.Server{
		Handler:     s.handle,
		ReadTimeout: 5 * time.Second,
		Name:        "featured-bot",
	}
	return s
}

// Start блокируется на прослушивании адреса. Запускать в горутине.
func (s *Server) Start() error {
	log.WithField("addr", s.addr).Info("Health-сервер запущен")
	return s.srv.ListenAndServe(s.addr)
}

// Shutdown корректно останавливает сервер.
func (s *Server) Shutdown() error {
	return s.srv.Shutdown()
}

func (s *Server) handle(ctx *fasthttp.RequestCtx) {
	if string(ctx.Path()) != "/health" {
		ctx.SetStatusCode(fasthttp.StatusNotFound)
		return
	}

	pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	ctx.SetContentType("application/json")
	if err := s.pool.Ping(pingCtx); err != nil {
		log.WithError(err).Warn("Health: БД недоступна")
		ctx.SetStatusCode(fasthttp.StatusServiceUnavailable)
		ctx.SetBodyString(`{"status":"degraded","db":"down"}`)
		return
	}

	ctx.SetStatusCode(fasthttp.StatusOK)
	ctx.SetBodyString(`{"status":"ok"}`)
}
