package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/berfenger/receiptpanel/internal/config"

	"github.com/asynkron/protoactor-go/actor"
	"go.uber.org/zap"
)

const DEFAULT_REQUEST_TIMEOUT = 10 * time.Second

type Server struct {
	port           uint
	httpLog        bool
	rootContext    *actor.RootContext
	masterActor    *actor.PID
	requestTimeout time.Duration
	logger         *zap.Logger
}

func New(cfg config.Config, rootContext *actor.RootContext, masterActor *actor.PID, logger *zap.Logger) *Server {
	timeout := 2 * cfg.HomeAssistantTimeout()
	if timeout < DEFAULT_REQUEST_TIMEOUT {
		timeout = DEFAULT_REQUEST_TIMEOUT
	}
	return &Server{
		port:           cfg.Port,
		rootContext:    rootContext,
		masterActor:    masterActor,
		httpLog:        cfg.HttpLog,
		requestTimeout: timeout,
		logger:         logger,
	}
}

func NewServer(cfg config.Config, rootContext *actor.RootContext, masterActor *actor.PID, logger *zap.Logger) *http.Server {
	s := New(cfg, rootContext, masterActor, logger)

	// Declare Server config
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.port),
		Handler:      s.RegisterRoutes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	return server
}
