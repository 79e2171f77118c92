package sagemaker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// recordingSink collects frames and runs onSend after each status frame.
type recordingSink struct {
	mu      sync.Mutex
	frames  [][]EndpointStatus
	errs    []string
	onSend  func(n int)
	sendErr error
}

func (s *recordingSink) Send(_ context.Context, statuses []EndpointStatus) error {
	if s.sendErr != nil {
		return s.sendErr
	}
	s.mu.Lock()
	s.frames = append(s.frames, statuses)
	n := len(s.frames)
	s.mu.Unlock()
	if s.onSend != nil {
		s.onSend(n)
	}
	return nil
}

func (s *recordingSink) SendError(_ context.Context, detail string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errs = append(s.errs, detail)
	return nil
}

// deployFunc adapts a function to the deployer interface.
type deployFunc func(ctx context.Context, name string) error

func (f deployFunc) DeployAs(ctx context.Context, name, _ string) error { return f(ctx, name) }

// blockingDeployer never finishes until the test ends.
func blockingDeployer(t *testing.T) deployFunc {
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })
	return func(context.Context, string) error {
		<-release
		return nil
	}
}

func newTestStreamer(f *fakeBackend, d deployer, poll time.Duration, maxProbes int) *StatusStreamer {
	log := discardLogger()
	return &StatusStreamer{
		catalog:      newCatalog(f, "-", log),
		pool:         newDeployPool(context.Background(), d, 0, log),
		pollInterval: poll,
		maxProbes:    maxProbes,
		log:          log,
	}
}

func (f *fakeBackend) setStatus(name, status string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if i := f.indexOf(name); i >= 0 {
		f.endpoints[i].Status = status
	}
}

func TestStream_ProbeBudgetExhausted(t *testing.T) {
	f := newFakeBackend()
	s := newTestStreamer(f, blockingDeployer(t), time.Millisecond, 2)
	sink := &recordingSink{}

	err := s.Stream(context.Background(), "m1-a", sink)
	if !errors.Is(err, ErrProbeBudgetExhausted) {
		t.Fatalf("expected ErrProbeBudgetExhausted, got %v", err)
	}
	if len(sink.frames) != 2 {
		t.Fatalf("frames = %d, want 2", len(sink.frames))
	}
	for i, frame := range sink.frames {
		if len(frame) != 1 || frame[0].Status != StatusNonexistent {
			t.Errorf("frame %d = %v, want Nonexistent", i, frame)
		}
		if frame[0].Status == StatusInService {
			t.Errorf("frame %d reports InService", i)
		}
	}
	if len(sink.errs) != 0 {
		t.Errorf("unexpected error frames %v", sink.errs)
	}
	if f.listCalls != 2 {
		t.Errorf("listings = %d, want 2", f.listCalls)
	}
}

func TestStream_CreatingThenInService(t *testing.T) {
	f := newFakeBackend().withEndpoint("m1-a", StatusCreating)
	s := newTestStreamer(f, blockingDeployer(t), time.Millisecond, 2)
	sink := &recordingSink{onSend: func(n int) {
		if n == 2 {
			f.setStatus("m1-a", StatusInService)
		}
	}}

	if err := s.Stream(context.Background(), "m1-a", sink); err != nil {
		t.Fatalf("Stream: %v", err)
	}
	// Creating stays within the budget; only Nonexistent is limited.
	if len(sink.frames) != 3 {
		t.Fatalf("frames = %v, want 3", sink.frames)
	}
	if sink.frames[0][0].Status != StatusCreating || sink.frames[1][0].Status != StatusCreating {
		t.Errorf("first frames = %v", sink.frames[:2])
	}
	if final := sink.frames[2]; final[0] != (EndpointStatus{Name: "m1-a", Status: StatusInService}) {
		t.Errorf("final frame = %v", final)
	}
}

func TestStream_FinalFramePassesStatusThrough(t *testing.T) {
	f := newFakeBackend().withEndpoint("m1-a", StatusFailed)
	s := newTestStreamer(f, blockingDeployer(t), time.Millisecond, 2)
	sink := &recordingSink{}

	if err := s.Stream(context.Background(), "m1-a", sink); err != nil {
		t.Fatalf("Stream: %v", err)
	}
	if len(sink.frames) != 1 || sink.frames[0][0].Status != StatusFailed {
		t.Errorf("frames = %v, want single Failed frame", sink.frames)
	}
}

func TestStream_DeployFailureSendsErrorFrame(t *testing.T) {
	f := newFakeBackend()
	failing := deployFunc(func(_ context.Context, name string) error {
		return notFoundError(name)
	})
	s := newTestStreamer(f, failing, time.Hour, 2)
	sink := &recordingSink{}

	err := s.Stream(context.Background(), "m9-a", sink)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if len(sink.errs) != 1 || sink.errs[0] != "Model m9-a not found" {
		t.Errorf("error frames = %v", sink.errs)
	}
	if len(sink.frames) != 1 {
		t.Errorf("status frames = %d, want 1", len(sink.frames))
	}
}

func TestStream_AlreadyActiveWakesLoop(t *testing.T) {
	f := newFakeBackend().withEndpoint("m1-a", StatusCreating)
	started := make(chan struct{})
	active := deployFunc(func(_ context.Context, name string) error {
		<-started
		return alreadyActiveError(name)
	})
	s := newTestStreamer(f, active, time.Hour, 2)
	sink := &recordingSink{onSend: func(n int) {
		if n == 1 {
			f.setStatus("m1-a", StatusInService)
			close(started)
		}
	}}

	if err := s.Stream(context.Background(), "m1-a", sink); err != nil {
		t.Fatalf("Stream: %v", err)
	}
	if len(sink.errs) != 0 {
		t.Errorf("AlreadyActive should not produce an error frame, got %v", sink.errs)
	}
	if len(sink.frames) != 2 || sink.frames[1][0].Status != StatusInService {
		t.Errorf("frames = %v", sink.frames)
	}
}

func TestStream_ContextCanceled(t *testing.T) {
	f := newFakeBackend().withEndpoint("m1-a", StatusCreating)
	s := newTestStreamer(f, blockingDeployer(t), time.Hour, 2)
	ctx, cancel := context.WithCancel(context.Background())
	sink := &recordingSink{onSend: func(int) { cancel() }}

	err := s.Stream(ctx, "m1-a", sink)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestStream_ListingErrorSendsErrorFrame(t *testing.T) {
	f := newFakeBackend()
	f.listErr = errors.New("connection refused")
	s := newTestStreamer(f, blockingDeployer(t), time.Millisecond, 2)
	sink := &recordingSink{}

	err := s.Stream(context.Background(), "m1-a", sink)
	if !errors.Is(err, ErrBackendUnavailable) {
		t.Fatalf("expected ErrBackendUnavailable, got %v", err)
	}
	if len(sink.errs) != 1 {
		t.Errorf("error frames = %v", sink.errs)
	}
}

func TestStream_SendError(t *testing.T) {
	f := newFakeBackend()
	s := newTestStreamer(f, blockingDeployer(t), time.Millisecond, 2)
	sendErr := errors.New("websocket: close sent")
	sink := &recordingSink{sendErr: sendErr}

	err := s.Stream(context.Background(), "m1-a", sink)
	if !errors.Is(err, sendErr) {
		t.Fatalf("expected send error, got %v", err)
	}
}

func TestStream_EndToEndWithController(t *testing.T) {
	f := newFakeBackend().withConfig("m1-a").
		script("m1-a", StatusCreating, StatusInService)
	clock := newFakeClock()
	ctrl := newTestController(f, clock, testSettings())
	s := newTestStreamer(f, ctrl, time.Hour, 2)
	sink := &recordingSink{}

	if err := s.Stream(context.Background(), "m1-a", sink); err != nil {
		t.Fatalf("Stream: %v", err)
	}
	final := sink.frames[len(sink.frames)-1]
	if final[0] != (EndpointStatus{Name: "m1-a", Status: StatusInService}) {
		t.Errorf("final frame = %v", final)
	}
	if creates, _, _ := f.counts(); creates != 1 {
		t.Errorf("create calls = %d, want 1", creates)
	}
}

func TestStream_FollowsSuffixedEndpoint(t *testing.T) {
	f := newFakeBackend().withConfig("m1-a").
		script("m1-a-20240102030405", StatusCreating, StatusInService)
	clock := newFakeClock()
	ctrl := newController(f, f, testSettings(),
		WithClock(clock.now, clock.sleep),
		WithLogger(discardLogger()),
		WithNameSuffix(TimestampSuffix(clock.now)),
	)
	s := newTestStreamer(f, ctrl, time.Hour, 2)
	s.endpointName = ctrl.EndpointName
	sink := &recordingSink{}

	if err := s.Stream(context.Background(), "m1-a", sink); err != nil {
		t.Fatalf("Stream: %v", err)
	}
	final := sink.frames[len(sink.frames)-1]
	want := EndpointStatus{Name: "m1-a-20240102030405", Status: StatusInService}
	if final[0] != want {
		t.Errorf("final frame = %v, want %v", final, want)
	}
	for i, frame := range sink.frames {
		if frame[0].Name != want.Name {
			t.Errorf("frame %d follows %q, want %q", i, frame[0].Name, want.Name)
		}
	}
	if creates, _, _ := f.counts(); creates != 1 {
		t.Errorf("create calls = %d, want 1", creates)
	}
	if _, ok := f.createdTags[want.Name]; !ok {
		t.Errorf("created endpoints = %v, want %s", f.createdTags, want.Name)
	}
}
