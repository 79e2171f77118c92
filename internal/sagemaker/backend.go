package sagemaker

import "context"

// backend abstracts the SageMaker control-plane calls used by the catalog and
// controller so tests can substitute a fake.
type backend interface {
	// ListEndpointConfigs returns every endpoint config whose name contains
	// nameContains, with production variants resolved.
	ListEndpointConfigs(ctx context.Context, nameContains string) ([]EndpointConfig, error)
	// ListEndpoints returns all live endpoints sorted by name.
	ListEndpoints(ctx context.Context) ([]ResourceState, error)
	// DescribeEndpoint returns the current state of a single endpoint.
	DescribeEndpoint(ctx context.Context, name string) (ResourceState, error)
	// CreateEndpoint starts creation of an endpoint from a config. It
	// returns once the request is accepted, not when the endpoint is ready.
	CreateEndpoint(ctx context.Context, endpointName, configName string, tags map[string]string) error
	// DeleteEndpoint requests deletion of an endpoint.
	DeleteEndpoint(ctx context.Context, name string) error
}

// runtimeInvoker abstracts the SageMaker runtime invoke call.
type runtimeInvoker interface {
	InvokeEndpoint(ctx context.Context, req InvokeRequest) ([]byte, error)
}

// InvokeRequest is a single model invocation against a ready endpoint.
type InvokeRequest struct {
	EndpointName     string
	Body             []byte
	ContentType      string
	CustomAttributes string
}
