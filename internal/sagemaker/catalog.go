package sagemaker

import (
	"context"
	"log/slog"
)

// Catalog lists deployable endpoint configs and the live endpoints backing
// them. Every call queries the backend; nothing is cached.
type Catalog struct {
	backend      backend
	nameContains string
	log          *slog.Logger
}

// NewCatalog returns a catalog backed by the given clients.
func NewCatalog(clients *Clients, settings Settings, log *slog.Logger) *Catalog {
	return newCatalog(clients.backend, settings.ConfigNameFilter, log)
}

func newCatalog(b backend, nameContains string, log *slog.Logger) *Catalog {
	if log == nil {
		log = slog.Default()
	}
	return &Catalog{backend: b, nameContains: nameContains, log: log}
}

// ListConfigs returns every deployable config keyed by name, each joined with
// the live endpoints whose name starts with the config name. A backend error
// fails the whole listing; no partial map is returned.
func (c *Catalog) ListConfigs(ctx context.Context) (map[string]*DeployableConfig, error) {
	configs, err := c.backend.ListEndpointConfigs(ctx, c.nameContains)
	if err != nil {
		return nil, backendError("list endpoint configs", "", err)
	}
	live, err := c.ListLiveInstances(ctx)
	if err != nil {
		return nil, err
	}

	out := make(map[string]*DeployableConfig, len(configs))
	for _, cfg := range configs {
		out[cfg.Name] = newDeployableConfig(cfg, live)
	}
	c.log.Debug("listed endpoint configs", "configs", len(out), "live", len(live))
	return out, nil
}

// ListLiveInstances returns all live endpoints sorted by name.
func (c *Catalog) ListLiveInstances(ctx context.Context) ([]ResourceState, error) {
	live, err := c.backend.ListEndpoints(ctx)
	if err != nil {
		return nil, backendError("list endpoints", "", err)
	}
	return live, nil
}

// lookup returns the named config from a fresh listing, or ErrNotFound.
func (c *Catalog) lookup(ctx context.Context, name string) (*DeployableConfig, error) {
	configs, err := c.ListConfigs(ctx)
	if err != nil {
		return nil, err
	}
	cfg, ok := configs[name]
	if !ok {
		return nil, notFoundError(name)
	}
	return cfg, nil
}
