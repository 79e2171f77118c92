package sagemaker

import (
	"fmt"
	"time"
)

// Endpoint status values. Creating and InService are reported by SageMaker;
// Nonexistent is synthesized for requested names with no live endpoint. Any
// other backend status is passed through verbatim.
const (
	StatusCreating    = "Creating"
	StatusInService   = "InService"
	StatusNonexistent = "Nonexistent"

	StatusOutOfService         = "OutOfService"
	StatusUpdating             = "Updating"
	StatusSystemUpdating       = "SystemUpdating"
	StatusRollingBack          = "RollingBack"
	StatusDeleting             = "Deleting"
	StatusFailed               = "Failed"
	StatusUpdateRollbackFailed = "UpdateRollbackFailed"
)

// Known logical model names deployed by the frontend.
const (
	ModelLlama2_7B          = "Models-LlaMa-2-7b"
	ModelLlama2_13B         = "Models-LlaMa-2-13b"
	ModelLlama2_13B4096     = "Models-LlaMa-2-13b-4096"
	ModelLlama2_70B         = "Models-LlaMa-2-70b"
	ModelLlama2_7BJumpStart = "JumpStart-Model-LLaMa-2-7B"
)

// ResourceState describes a single live endpoint as reported by the backend.
type ResourceState struct {
	Name           string    `json:"name"`
	Status         string    `json:"status"`
	ARN            string    `json:"arn,omitempty"`
	CreatedAt      time.Time `json:"created_at,omitempty"`
	LastModifiedAt time.Time `json:"last_modified_at,omitempty"`
	// FailureReason is only populated by DescribeEndpoint.
	FailureReason string `json:"failure_reason,omitempty"`
}

// ProductionVariant is the subset of an endpoint config variant surfaced to
// callers. The controller never inspects it.
type ProductionVariant struct {
	VariantName          string `json:"variant_name"`
	ModelName            string `json:"model_name,omitempty"`
	InstanceType         string `json:"instance_type,omitempty"`
	InitialInstanceCount int32  `json:"initial_instance_count,omitempty"`
}

// EndpointConfig is a deployable configuration as listed by the backend,
// before it is joined with the live endpoints.
type EndpointConfig struct {
	Name               string
	ARN                string
	CreationTime       time.Time
	ProductionVariants []ProductionVariant
}

// DeployableConfig is an endpoint config joined with the live endpoints that
// belong to it. It is rebuilt on every catalog listing and never mutated.
type DeployableConfig struct {
	Name               string              `json:"name"`
	ARN                string              `json:"arn"`
	ProductionVariants []ProductionVariant `json:"production_variants"`
	CreationTime       time.Time           `json:"creation_time"`
	LiveInstances      []ResourceState     `json:"live_instances"`
}

// newDeployableConfig joins cfg with every live endpoint whose name starts
// with the config name.
func newDeployableConfig(cfg EndpointConfig, live []ResourceState) *DeployableConfig {
	dc := &DeployableConfig{
		Name:               cfg.Name,
		ARN:                cfg.ARN,
		ProductionVariants: cfg.ProductionVariants,
		CreationTime:       cfg.CreationTime,
	}
	for _, r := range live {
		if ownsEndpoint(cfg.Name, r.Name) {
			dc.LiveInstances = append(dc.LiveInstances, r)
		}
	}
	return dc
}

// IsActive reports whether at least one live instance is InService.
func (c *DeployableConfig) IsActive() bool {
	return c.NumEndpoints() > 0
}

// NumEndpoints counts the InService live instances.
func (c *DeployableConfig) NumEndpoints() int {
	n := 0
	for _, r := range c.LiveInstances {
		if r.Status == StatusInService {
			n++
		}
	}
	return n
}

// firstInService returns the first InService live instance in listing order.
func (c *DeployableConfig) firstInService() (ResourceState, bool) {
	for _, r := range c.LiveInstances {
		if r.Status == StatusInService {
			return r, true
		}
	}
	return ResourceState{}, false
}

func (c *DeployableConfig) String() string {
	if c.IsActive() {
		return fmt.Sprintf("DeployableConfig: %s (%s): %d Active", c.Name, c.ARN, c.NumEndpoints())
	}
	return fmt.Sprintf("DeployableConfig: %s (%s): Inactive", c.Name, c.ARN)
}

// EndpointStatus is the wire shape of a reconciled endpoint status.
type EndpointStatus struct {
	Name   string `json:"name"`
	Status string `json:"status"`
}

// ConfigSummary is a flattened view of a DeployableConfig for listings.
type ConfigSummary struct {
	Name               string              `json:"name"`
	ARN                string              `json:"arn"`
	CreationTime       time.Time           `json:"creation_time"`
	IsActive           bool                `json:"is_active"`
	NumEndpoints       int                 `json:"num_endpoints"`
	ProductionVariants []ProductionVariant `json:"production_variants"`
}

// Summary flattens the config for JSON listings.
func (c *DeployableConfig) Summary() ConfigSummary {
	return ConfigSummary{
		Name:               c.Name,
		ARN:                c.ARN,
		CreationTime:       c.CreationTime,
		IsActive:           c.IsActive(),
		NumEndpoints:       c.NumEndpoints(),
		ProductionVariants: c.ProductionVariants,
	}
}
