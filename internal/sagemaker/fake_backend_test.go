package sagemaker

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"
)

// fakeBackend is an in-memory SageMaker with call counters.
type fakeBackend struct {
	mu sync.Mutex

	configs   []EndpointConfig
	endpoints []ResourceState

	// describeScript pops one status per DescribeEndpoint call for a name;
	// the last entry sticks.
	describeScript map[string][]string
	// createStatus is the status of endpoints right after CreateEndpoint.
	createStatus string

	listConfigsErr error
	listErr        error
	describeErr    error
	createErr      error
	deleteErr      error

	listConfigsCalls int
	listCalls        int
	describeCalls    int
	createCalls      int
	deleteCalls      int

	createdTags map[string]map[string]string
	deleted     []string
	invokes     []InvokeRequest
	invokeResp  []byte
	invokeErr   error
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		describeScript: make(map[string][]string),
		createStatus:   StatusCreating,
		createdTags:    make(map[string]map[string]string),
		invokeResp:     []byte(`[{"generation":{"role":"assistant","content":"ok"}}]`),
	}
}

func (f *fakeBackend) withConfig(names ...string) *fakeBackend {
	for _, n := range names {
		f.configs = append(f.configs, EndpointConfig{
			Name: n,
			ARN:  "arn:aws:sagemaker:us-east-1:123456789012:endpoint-config/" + n,
			ProductionVariants: []ProductionVariant{{
				VariantName:          "AllTraffic",
				ModelName:            n + "-model",
				InstanceType:         "ml.g5.2xlarge",
				InitialInstanceCount: 1,
			}},
		})
	}
	return f
}

func (f *fakeBackend) withEndpoint(name, status string) *fakeBackend {
	f.endpoints = append(f.endpoints, ResourceState{
		Name:   name,
		Status: status,
		ARN:    "arn:aws:sagemaker:us-east-1:123456789012:endpoint/" + name,
	})
	return f
}

func (f *fakeBackend) script(name string, statuses ...string) *fakeBackend {
	f.describeScript[name] = statuses
	return f
}

func (f *fakeBackend) ListEndpointConfigs(_ context.Context, nameContains string) ([]EndpointConfig, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listConfigsCalls++
	if f.listConfigsErr != nil {
		return nil, f.listConfigsErr
	}
	var out []EndpointConfig
	for _, c := range f.configs {
		if nameContains == "" || strings.Contains(c.Name, nameContains) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeBackend) ListEndpoints(context.Context) ([]ResourceState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := append([]ResourceState(nil), f.endpoints...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (f *fakeBackend) DescribeEndpoint(_ context.Context, name string) (ResourceState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.describeCalls++
	if f.describeErr != nil {
		return ResourceState{}, f.describeErr
	}
	i := f.indexOf(name)
	if i < 0 {
		return ResourceState{}, fmt.Errorf("ValidationException: Could not find endpoint %q", name)
	}
	if script := f.describeScript[name]; len(script) > 0 {
		f.endpoints[i].Status = script[0]
		if len(script) > 1 {
			f.describeScript[name] = script[1:]
		}
	}
	return f.endpoints[i], nil
}

func (f *fakeBackend) CreateEndpoint(_ context.Context, endpointName, _ string, tags map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	if f.createErr != nil {
		return f.createErr
	}
	f.createdTags[endpointName] = tags
	f.endpoints = append(f.endpoints, ResourceState{Name: endpointName, Status: f.createStatus})
	return nil
}

func (f *fakeBackend) DeleteEndpoint(_ context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleteCalls++
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, name)
	if i := f.indexOf(name); i >= 0 {
		f.endpoints = append(f.endpoints[:i], f.endpoints[i+1:]...)
	}
	return nil
}

func (f *fakeBackend) InvokeEndpoint(_ context.Context, req InvokeRequest) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invokes = append(f.invokes, req)
	if f.invokeErr != nil {
		return nil, f.invokeErr
	}
	return f.invokeResp, nil
}

func (f *fakeBackend) indexOf(name string) int {
	for i, e := range f.endpoints {
		if e.Name == name {
			return i
		}
	}
	return -1
}

func (f *fakeBackend) counts() (creates, deletes, describes int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.createCalls, f.deleteCalls, f.describeCalls
}

// fakeClock advances only when the controller sleeps.
type fakeClock struct {
	mu  sync.Mutex
	t   time.Time
	slp []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)}
}

func (c *fakeClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
	c.slp = append(c.slp, d)
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testSettings() Settings {
	s := DefaultSettings()
	s.MaxWait = 60 * time.Second
	s.DescribeInterval = 5 * time.Second
	return s
}

func newTestController(f *fakeBackend, clock *fakeClock, settings Settings) *Controller {
	return newController(f, f, settings,
		WithClock(clock.now, clock.sleep),
		WithLogger(discardLogger()),
	)
}
