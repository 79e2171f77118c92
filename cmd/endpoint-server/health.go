package main

import (
	"net/http"
	"sync/atomic"

	"github.com/AltairaLabs/promptarena-sagemaker/internal/sagemaker"
)

// healthHandler serves /health. It reports draining once shutdown begins so
// load balancers stop routing new deploys here.
type healthHandler struct {
	draining atomic.Bool
}

type healthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

func newHealthHandler() *healthHandler {
	return &healthHandler{}
}

func (h *healthHandler) setDraining() {
	h.draining.Store(true)
}

func (h *healthHandler) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	if h.draining.Load() {
		writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "draining", Version: sagemaker.Version})
		return
	}
	writeJSON(w, http.StatusOK, healthResponse{Status: "healthy", Version: sagemaker.Version})
}
