package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"maps"
	"net/http"
	"slices"
	"strconv"

	"github.com/gorilla/handlers"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/AltairaLabs/promptarena-sagemaker/internal/config"
	"github.com/AltairaLabs/promptarena-sagemaker/internal/generation"
	"github.com/AltairaLabs/promptarena-sagemaker/internal/sagemaker"
)

// maxBodyBytes bounds JSON request bodies. API specifications sent to the
// generation routes can be large.
const maxBodyBytes = 4 << 20

// lifecycle deploys and removes endpoints.
type lifecycle interface {
	Deploy(ctx context.Context, name string) error
	Remove(ctx context.Context, endpointName string) (string, error)
}

// catalog lists endpoint configs and live endpoints.
type catalog interface {
	ListConfigs(ctx context.Context) (map[string]*sagemaker.DeployableConfig, error)
	ListLiveInstances(ctx context.Context) ([]sagemaker.ResourceState, error)
}

// streamer runs one websocket status session.
type streamer interface {
	Stream(ctx context.Context, name string, sink sagemaker.StatusSink) error
}

// generator runs the inference-backed generation tasks.
type generator interface {
	GenerateTestCases(ctx context.Context, req generation.TestCaseRequest) (string, error)
	GenerateStepDefinition(ctx context.Context, req generation.StepDefinitionRequest) (string, error)
}

// server holds the HTTP handlers of the endpoint manager.
type server struct {
	lifecycle lifecycle
	catalog   catalog
	streamer  streamer
	generator generator
	health    *healthHandler
	log       *slog.Logger

	upgrader *websocket.Upgrader
}

// endpointRequest is the body of create and remove requests, and the single
// message a websocket client sends.
type endpointRequest struct {
	EndpointName string `json:"endpoint_name"`
}

// errorResponse is the uniform failure body.
type errorResponse struct {
	Detail string `json:"detail"`
}

// routes registers every route on a ServeMux.
func (s *server) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /model/create-endpoint", s.handleCreateEndpoint)
	mux.HandleFunc("GET /model/deployed-endpoints", s.handleDeployedEndpoints)
	mux.HandleFunc("POST /model/status", s.handleStatus)
	mux.HandleFunc("DELETE /model/remove-endpoint", s.handleRemoveEndpoint)
	mux.HandleFunc("GET /model/configs", s.handleConfigs)
	mux.HandleFunc("GET /ws/model/create-endpoint", s.handleStatusStream)
	mux.HandleFunc("POST /inference/testcases", s.handleTestCases)
	mux.HandleFunc("POST /inference/step-definition", s.handleStepDefinition)
	mux.HandleFunc("GET /healthcheck", handleHealthcheck)
	mux.Handle("GET /health", s.health)
	mux.Handle("GET /metrics", promhttp.Handler())
	return mux
}

// handler wraps the routes in request ID, logging, metrics, and CORS
// middleware. The websocket route checks origins against the same list.
func (s *server) handler(cfg config.ServerConfig) http.Handler {
	s.upgrader = newUpgrader(cfg.AllowedOrigins)
	cors := handlers.CORS(
		handlers.AllowedOrigins(cfg.AllowedOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization", requestIDHeader}),
		handlers.AllowCredentials(),
		handlers.MaxAge(cfg.CORSMaxAge),
	)
	return withRequestID(withLogging(s.log, withMetrics(cors(s.routes()))))
}

func (s *server) handleCreateEndpoint(w http.ResponseWriter, r *http.Request) {
	var req endpointRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.EndpointName == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Detail: "endpoint_name is required"})
		return
	}

	// The wait runs to completion even if the client disconnects, so that
	// timeouts still roll back.
	ctx := context.WithoutCancel(r.Context())
	if err := s.lifecycle.Deploy(ctx, req.EndpointName); err != nil {
		s.writeLifecycleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, "Model "+req.EndpointName+" has been successfully deployed.")
}

func (s *server) handleDeployedEndpoints(w http.ResponseWriter, r *http.Request) {
	live, err := s.catalog.ListLiveInstances(r.Context())
	if err != nil {
		s.writeLifecycleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sagemaker.StatusOf(live))
}

func (s *server) handleStatus(w http.ResponseWriter, r *http.Request) {
	var names []string
	if !s.decode(w, r, &names) {
		return
	}
	live, err := s.catalog.ListLiveInstances(r.Context())
	if err != nil {
		s.writeLifecycleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sagemaker.Reconcile(names, live))
}

func (s *server) handleRemoveEndpoint(w http.ResponseWriter, r *http.Request) {
	var req endpointRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.EndpointName == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Detail: "endpoint_name is required"})
		return
	}
	msg, err := s.lifecycle.Remove(r.Context(), req.EndpointName)
	if err != nil {
		s.writeLifecycleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, msg)
}

func (s *server) handleConfigs(w http.ResponseWriter, r *http.Request) {
	configs, err := s.catalog.ListConfigs(r.Context())
	if err != nil {
		s.writeLifecycleError(w, r, err)
		return
	}
	active := r.URL.Query().Get("active")
	out := make([]sagemaker.ConfigSummary, 0, len(configs))
	for _, name := range sortedKeys(configs) {
		sum := configs[name].Summary()
		if active != "" && strconv.FormatBool(sum.IsActive) != active {
			continue
		}
		out = append(out, sum)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *server) handleTestCases(w http.ResponseWriter, r *http.Request) {
	req := generation.NewTestCaseRequest()
	if !s.decode(w, r, &req) {
		return
	}
	out, err := s.generator.GenerateTestCases(r.Context(), req)
	if err != nil {
		s.writeGenerationError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *server) handleStepDefinition(w http.ResponseWriter, r *http.Request) {
	req := generation.NewStepDefinitionRequest()
	if !s.decode(w, r, &req) {
		return
	}
	out, err := s.generator.GenerateStepDefinition(r.Context(), req)
	if err != nil {
		s.writeGenerationError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// handleHealthcheck keeps the monitor route of earlier deployments: 200 with
// a null body.
func handleHealthcheck(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, nil)
}

// decode reads a JSON body into v, writing a 400 on failure.
func (s *server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		detail := "invalid JSON body"
		if errors.Is(err, io.EOF) {
			detail = "request body is required"
		}
		writeJSON(w, http.StatusBadRequest, errorResponse{Detail: detail})
		return false
	}
	return true
}

// writeLifecycleError maps a lifecycle error to a response. Invalid names are
// client errors; everything else is a 500 with the error text as detail.
func (s *server) writeLifecycleError(w http.ResponseWriter, r *http.Request, err error) {
	code := http.StatusInternalServerError
	if errors.Is(err, sagemaker.ErrInvalidName) {
		code = http.StatusBadRequest
	}
	attrs := []any{"path", r.URL.Path, "request_id", requestIDFromContext(r.Context()), "error", err}
	if le := sagemaker.AsLifecycleError(err); le != nil && len(le.Stack) > 0 {
		attrs = append(attrs, "stack", string(le.Stack))
	}
	s.log.Error("request failed", attrs...)
	writeJSON(w, code, errorResponse{Detail: err.Error()})
}

func (s *server) writeGenerationError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, generation.ErrEmptyInput) {
		writeJSON(w, http.StatusBadRequest, errorResponse{Detail: err.Error()})
		return
	}
	s.writeLifecycleError(w, r, err)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func sortedKeys(m map[string]*sagemaker.DeployableConfig) []string {
	return slices.Sorted(maps.Keys(m))
}
