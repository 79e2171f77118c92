package sagemaker

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/AltairaLabs/promptarena-sagemaker/internal/metrics"
)

// contentTypeJSON is the content type of every invocation payload.
const contentTypeJSON = "application/json"

// jumpStartEULA is the custom attribute JumpStart models require before they
// serve requests.
const jumpStartEULA = "accept_eula=true"

// Handle is bound to one InService endpoint of a config.
type Handle struct {
	invoker  runtimeInvoker
	config   *DeployableConfig
	endpoint ResourceState
	log      *slog.Logger
}

func newHandle(inv runtimeInvoker, cfg *DeployableConfig, endpoint ResourceState, log *slog.Logger) *Handle {
	return &Handle{invoker: inv, config: cfg, endpoint: endpoint, log: log}
}

// EndpointName returns the name of the bound endpoint.
func (h *Handle) EndpointName() string { return h.endpoint.Name }

// Config returns the config snapshot the handle was resolved from.
func (h *Handle) Config() *DeployableConfig { return h.config }

// InvokeOption customizes a single invocation.
type InvokeOption func(*InvokeRequest)

// WithJumpStartEULA accepts the JumpStart model EULA on the request.
func WithJumpStartEULA() InvokeOption {
	return func(r *InvokeRequest) { r.CustomAttributes = jumpStartEULA }
}

// Invoke posts payload as JSON to the bound endpoint and returns the JSON
// response body. Payloads of type []byte or json.RawMessage are sent as is.
func (h *Handle) Invoke(ctx context.Context, payload any, opts ...InvokeOption) (json.RawMessage, error) {
	body, err := encodePayload(payload)
	if err != nil {
		return nil, backendError("encode payload for", h.endpoint.Name, err)
	}
	req := InvokeRequest{
		EndpointName: h.endpoint.Name,
		Body:         body,
		ContentType:  contentTypeJSON,
	}
	for _, opt := range opts {
		opt(&req)
	}

	start := time.Now()
	out, err := h.invoker.InvokeEndpoint(ctx, req)
	metrics.InvocationDuration.WithLabelValues(h.endpoint.Name).Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, backendError("predict with", h.endpoint.Name, err)
	}
	if !json.Valid(out) {
		return nil, backendError("predict with", h.endpoint.Name, errors.New("response body is not valid JSON"))
	}
	h.log.Debug("endpoint invoked", "endpoint", h.endpoint.Name, "bytes", len(out))
	return json.RawMessage(out), nil
}

func encodePayload(payload any) ([]byte, error) {
	switch p := payload.(type) {
	case json.RawMessage:
		return p, nil
	case []byte:
		return p, nil
	default:
		return json.Marshal(payload)
	}
}
