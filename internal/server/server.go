package server

import (
	"fmt"
	"net/http"
	"time"

	"vmeter2mqtt/internal/config"
	"vmeter2mqtt/internal/poll"

	_ "github.com/joho/godotenv/autoload"
)

type Server struct {
	port    uint
	httpLog bool
	poller  *poll.Poller
}

func NewServer(cfg config.Config, poller *poll.Poller) *http.Server {
	NewServer := &Server{
		port:    cfg.Port,
		poller:  poller,
		httpLog: cfg.HttpLog,
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
