package sagemaker

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	sm "github.com/aws/aws-sdk-go-v2/service/sagemaker"
	"github.com/aws/aws-sdk-go-v2/service/sagemaker/types"
	"github.com/aws/aws-sdk-go-v2/service/sagemakerruntime"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

// listPageSize is the MaxResults value used when listing SageMaker resources.
const listPageSize = 100

// Clients bundles the long-lived SageMaker control-plane and runtime clients.
// It is constructed once at startup and shared read-only by every caller.
type Clients struct {
	backend backend
	invoker runtimeInvoker
}

// realBackend implements backend and runtimeInvoker with the AWS SDK.
type realBackend struct {
	client  *sm.Client
	runtime *sagemakerruntime.Client
}

// NewClients loads AWS credentials for the configured profile and region and
// builds the SageMaker clients. When settings.VerifyIdentity is set, the
// caller identity is checked with STS before any SageMaker call is made.
func NewClients(ctx context.Context, settings Settings, log *slog.Logger) (*Clients, error) {
	if log == nil {
		log = slog.Default()
	}
	opts := []func(*awscfg.LoadOptions) error{
		awscfg.WithRegion(settings.Region),
		awscfg.WithAppID(appID()),
	}
	if settings.Profile != "" {
		opts = append(opts, awscfg.WithSharedConfigProfile(settings.Profile))
	}
	awsCfg, err := awscfg.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	if settings.VerifyIdentity {
		identity, err := sts.NewFromConfig(awsCfg).GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
		if err != nil {
			return nil, fmt.Errorf("STS GetCallerIdentity: %w", err)
		}
		log.Info("aws identity verified",
			"account", aws.ToString(identity.Account),
			"arn", aws.ToString(identity.Arn),
			"profile", settings.Profile,
			"region", settings.Region)
	}

	smOpts := func(o *sm.Options) {
		if settings.EndpointURL != "" {
			o.BaseEndpoint = aws.String(settings.EndpointURL)
		}
	}
	rtOpts := func(o *sagemakerruntime.Options) {
		if settings.EndpointURL != "" {
			o.BaseEndpoint = aws.String(settings.EndpointURL)
		}
	}
	rb := &realBackend{
		client:  sm.NewFromConfig(awsCfg, smOpts),
		runtime: sagemakerruntime.NewFromConfig(awsCfg, rtOpts),
	}
	return &Clients{backend: rb, invoker: rb}, nil
}

// ---------- backend implementation ----------

// ListEndpointConfigs pages through endpoint configs and describes each one
// to resolve its production variants.
func (b *realBackend) ListEndpointConfigs(ctx context.Context, nameContains string) ([]EndpointConfig, error) {
	input := &sm.ListEndpointConfigsInput{MaxResults: aws.Int32(listPageSize)}
	if nameContains != "" {
		input.NameContains = aws.String(nameContains)
	}

	var names []string
	p := sm.NewListEndpointConfigsPaginator(b.client, input)
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("ListEndpointConfigs: %w", err)
		}
		for _, s := range page.EndpointConfigs {
			names = append(names, aws.ToString(s.EndpointConfigName))
		}
	}

	configs := make([]EndpointConfig, 0, len(names))
	for _, name := range names {
		out, err := b.client.DescribeEndpointConfig(ctx, &sm.DescribeEndpointConfigInput{
			EndpointConfigName: aws.String(name),
		})
		if err != nil {
			return nil, fmt.Errorf("DescribeEndpointConfig %q: %w", name, err)
		}
		configs = append(configs, EndpointConfig{
			Name:               aws.ToString(out.EndpointConfigName),
			ARN:                aws.ToString(out.EndpointConfigArn),
			CreationTime:       aws.ToTime(out.CreationTime),
			ProductionVariants: convertVariants(out.ProductionVariants),
		})
	}
	return configs, nil
}

// ListEndpoints pages through all endpoints sorted by name.
func (b *realBackend) ListEndpoints(ctx context.Context) ([]ResourceState, error) {
	p := sm.NewListEndpointsPaginator(b.client, &sm.ListEndpointsInput{
		MaxResults: aws.Int32(listPageSize),
		SortBy:     types.EndpointSortKeyName,
		SortOrder:  types.OrderKeyAscending,
	})
	var endpoints []ResourceState
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("ListEndpoints: %w", err)
		}
		for _, e := range page.Endpoints {
			endpoints = append(endpoints, ResourceState{
				Name:           aws.ToString(e.EndpointName),
				Status:         string(e.EndpointStatus),
				ARN:            aws.ToString(e.EndpointArn),
				CreatedAt:      aws.ToTime(e.CreationTime),
				LastModifiedAt: aws.ToTime(e.LastModifiedTime),
			})
		}
	}
	sort.SliceStable(endpoints, func(i, j int) bool { return endpoints[i].Name < endpoints[j].Name })
	return endpoints, nil
}

// DescribeEndpoint returns the state of a single endpoint.
func (b *realBackend) DescribeEndpoint(ctx context.Context, name string) (ResourceState, error) {
	out, err := b.client.DescribeEndpoint(ctx, &sm.DescribeEndpointInput{
		EndpointName: aws.String(name),
	})
	if err != nil {
		return ResourceState{}, fmt.Errorf("DescribeEndpoint %q: %w", name, err)
	}
	return ResourceState{
		Name:           aws.ToString(out.EndpointName),
		Status:         string(out.EndpointStatus),
		ARN:            aws.ToString(out.EndpointArn),
		CreatedAt:      aws.ToTime(out.CreationTime),
		LastModifiedAt: aws.ToTime(out.LastModifiedTime),
		FailureReason:  aws.ToString(out.FailureReason),
	}, nil
}

// CreateEndpoint requests a new endpoint from an existing config.
func (b *realBackend) CreateEndpoint(
	ctx context.Context, endpointName, configName string, tags map[string]string,
) error {
	_, err := b.client.CreateEndpoint(ctx, &sm.CreateEndpointInput{
		EndpointName:       aws.String(endpointName),
		EndpointConfigName: aws.String(configName),
		Tags:               convertTags(tags),
	})
	if err != nil {
		return fmt.Errorf("CreateEndpoint %q: %w", endpointName, err)
	}
	return nil
}

// DeleteEndpoint requests deletion of an endpoint.
func (b *realBackend) DeleteEndpoint(ctx context.Context, name string) error {
	_, err := b.client.DeleteEndpoint(ctx, &sm.DeleteEndpointInput{
		EndpointName: aws.String(name),
	})
	if err != nil {
		return fmt.Errorf("DeleteEndpoint %q: %w", name, err)
	}
	return nil
}

// ---------- runtimeInvoker implementation ----------

// InvokeEndpoint posts the request body to a ready endpoint and returns the
// raw response body.
func (b *realBackend) InvokeEndpoint(ctx context.Context, req InvokeRequest) ([]byte, error) {
	input := &sagemakerruntime.InvokeEndpointInput{
		EndpointName: aws.String(req.EndpointName),
		Body:         req.Body,
		ContentType:  aws.String(req.ContentType),
	}
	if req.CustomAttributes != "" {
		input.CustomAttributes = aws.String(req.CustomAttributes)
	}
	out, err := b.runtime.InvokeEndpoint(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("InvokeEndpoint %q: %w", req.EndpointName, err)
	}
	return out.Body, nil
}

// convertVariants maps SDK production variants to the package type.
func convertVariants(in []types.ProductionVariant) []ProductionVariant {
	out := make([]ProductionVariant, 0, len(in))
	for _, v := range in {
		out = append(out, ProductionVariant{
			VariantName:          aws.ToString(v.VariantName),
			ModelName:            aws.ToString(v.ModelName),
			InstanceType:         string(v.InstanceType),
			InitialInstanceCount: aws.ToInt32(v.InitialInstanceCount),
		})
	}
	return out
}

// convertTags maps a tag map to SDK tags sorted by key.
func convertTags(tags map[string]string) []types.Tag {
	if len(tags) == 0 {
		return nil
	}
	keys := make([]string, 0, len(tags))
	for k := range tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]types.Tag, 0, len(keys))
	for _, k := range keys {
		out = append(out, types.Tag{Key: aws.String(k), Value: aws.String(tags[k])})
	}
	return out
}
