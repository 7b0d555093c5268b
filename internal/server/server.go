package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/berfenger/solaredge2mqtt/internal/config"
	"github.com/berfenger/solaredge2mqtt/internal/metrics"

	"github.com/asynkron/protoactor-go/actor"
	_ "github.com/joho/godotenv/autoload"
)

type Server struct {
	port           uint
	httpLog        bool
	requestTimeout time.Duration
	rootContext    *actor.RootContext
	masterActor    *actor.PID
	metrics        *metrics.Metrics
}

func NewServer(cfg config.Config, rootContext *actor.RootContext, masterActor *actor.PID, m *metrics.Metrics) *http.Server {
	NewServer := &Server{
		port:           cfg.Port,
		rootContext:    rootContext,
		masterActor:    masterActor,
		httpLog:        cfg.HttpLog,
		requestTimeout: 10 * time.Second,
		metrics:        m,
	}

	// Declare Server config
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", NewServer.port),
		Handler:      NewServer.RegisterRoutes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	return server
}
