package handler

import (
	"fmt"
	"net/http"
	"sync"

	"shopcsv/internal/api"
	"shopcsv/internal/config"
	"shopcsv/internal/logger"
)

var (
	once      sync.Once
	server    *api.Server
	bootError error
)

// initServer builds the router once per serverless instance. Connections
// stay open for the lifetime of the instance.
func initServer() {
	cfg, err := config.Load()
	if err != nil {
		bootError = err
		return
	}
	cfg.Env = "production"

	server, _, bootError = api.Bootstrap(cfg, logger.NewForEnvironment(cfg.LogLevel, cfg.Env))
}

// Handler is the serverless entry point.
func Handler(w http.ResponseWriter, r *http.Request) {
	once.Do(initServer)
	if bootError != nil {
		http.Error(w, fmt.Sprintf("Server initialization failed: %v", bootError), http.StatusInternalServerError)
		return
	}
	server.Router().ServeHTTP(w, r)
}
