package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/AltairaLabs/promptarena-sagemaker/internal/sagemaker"
)

// fakeStreamer pushes scripted frames, then returns err.
type fakeStreamer struct {
	frames [][]sagemaker.EndpointStatus
	detail string
	err    error
	// block makes Stream wait for ctx to end after pushing its frames.
	block bool

	mu     sync.Mutex
	names  []string
	ctxErr error
}

func (f *fakeStreamer) Stream(ctx context.Context, name string, sink sagemaker.StatusSink) error {
	f.mu.Lock()
	f.names = append(f.names, name)
	f.mu.Unlock()

	for _, frame := range f.frames {
		if err := sink.Send(ctx, frame); err != nil {
			return err
		}
	}
	if f.detail != "" {
		_ = sink.SendError(ctx, f.detail)
	}
	if f.block {
		<-ctx.Done()
		f.mu.Lock()
		f.ctxErr = ctx.Err()
		f.mu.Unlock()
		return ctx.Err()
	}
	return f.err
}

func (f *fakeStreamer) streamed() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.names...)
}

func streamURL(t *testing.T, st streamer) string {
	t.Helper()
	s := newTestServer(nil, nil, st, nil)
	srv := httptest.NewServer(s.handler(testServerConfig()))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/model/create-endpoint"
}

func dialStream(t *testing.T, st streamer) *websocket.Conn {
	t.Helper()
	conn, resp, err := websocket.DefaultDialer.Dial(streamURL(t, st), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	if resp.Header.Get(requestIDHeader) == "" {
		t.Error("upgrade response should carry a request ID")
	}
	t.Cleanup(func() { _ = conn.Close() })
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	return conn
}

// readUntilClose collects text frames until the server closes.
func readUntilClose(t *testing.T, conn *websocket.Conn) ([]json.RawMessage, *websocket.CloseError) {
	t.Helper()
	var frames []json.RawMessage
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			var ce *websocket.CloseError
			if errors.As(err, &ce) {
				return frames, ce
			}
			t.Fatalf("read: %v", err)
		}
		frames = append(frames, msg)
	}
}

func TestStatusStream_FramesThenNormalClose(t *testing.T) {
	st := &fakeStreamer{frames: [][]sagemaker.EndpointStatus{
		{{Name: "m1", Status: "Nonexistent"}},
		{{Name: "m1", Status: "Creating"}},
		{{Name: "m1", Status: "InService"}},
	}}
	conn := dialStream(t, st)

	if err := conn.WriteJSON(endpointRequest{EndpointName: "m1"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	frames, ce := readUntilClose(t, conn)

	if ce.Code != websocket.CloseNormalClosure {
		t.Errorf("close code = %d", ce.Code)
	}
	if len(frames) != 3 {
		t.Fatalf("frames = %d, want 3", len(frames))
	}
	for i, want := range []string{"Nonexistent", "Creating", "InService"} {
		var got []sagemaker.EndpointStatus
		if err := json.Unmarshal(frames[i], &got); err != nil {
			t.Fatalf("frame %d is not an array: %s", i, frames[i])
		}
		if len(got) != 1 || got[0].Name != "m1" || got[0].Status != want {
			t.Errorf("frame %d = %+v, want m1/%s", i, got, want)
		}
	}
	if names := st.streamed(); len(names) != 1 || names[0] != "m1" {
		t.Errorf("streamed names = %v", names)
	}
}

func TestStatusStream_ErrorFrame(t *testing.T) {
	st := &fakeStreamer{
		frames: [][]sagemaker.EndpointStatus{{{Name: "m9", Status: "Nonexistent"}}},
		detail: "Model m9 not found",
		err:    &sagemaker.LifecycleError{Kind: sagemaker.ErrNotFound, Message: "Model m9 not found"},
	}
	conn := dialStream(t, st)
	_ = conn.WriteJSON(endpointRequest{EndpointName: "m9"})

	frames, ce := readUntilClose(t, conn)
	if len(frames) != 2 {
		t.Fatalf("frames = %d, want 2", len(frames))
	}
	var detail errorResponse
	if err := json.Unmarshal(frames[1], &detail); err != nil || detail.Detail != "Model m9 not found" {
		t.Errorf("error frame = %s", frames[1])
	}
	if ce.Code != websocket.CloseInternalServerErr {
		t.Errorf("close code = %d, want %d", ce.Code, websocket.CloseInternalServerErr)
	}
}

func TestStatusStream_ProbeBudgetClosesNormally(t *testing.T) {
	st := &fakeStreamer{
		frames: [][]sagemaker.EndpointStatus{
			{{Name: "m1", Status: "Nonexistent"}},
			{{Name: "m1", Status: "Nonexistent"}},
		},
		err: &sagemaker.LifecycleError{Kind: sagemaker.ErrProbeBudgetExhausted, Message: "Endpoint m1 did not appear after 2 probes"},
	}
	conn := dialStream(t, st)
	_ = conn.WriteJSON(endpointRequest{EndpointName: "m1"})

	frames, ce := readUntilClose(t, conn)
	if len(frames) != 2 {
		t.Errorf("frames = %d, want 2", len(frames))
	}
	if ce.Code != websocket.CloseNormalClosure || !strings.Contains(ce.Text, "did not appear") {
		t.Errorf("close = %d %q", ce.Code, ce.Text)
	}
}

func TestStatusStream_BadRequest(t *testing.T) {
	tests := []struct {
		name   string
		msg    string
		detail string
	}{
		{"not json", "hello", "invalid JSON"},
		{"missing name", `{}`, "endpoint_name is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := &fakeStreamer{}
			conn := dialStream(t, st)
			if err := conn.WriteMessage(websocket.TextMessage, []byte(tt.msg)); err != nil {
				t.Fatalf("write: %v", err)
			}
			frames, ce := readUntilClose(t, conn)
			if len(frames) != 1 || !strings.Contains(string(frames[0]), tt.detail) {
				t.Errorf("frames = %s", frames)
			}
			if ce.Code != websocket.ClosePolicyViolation {
				t.Errorf("close code = %d", ce.Code)
			}
			if names := st.streamed(); len(names) != 0 {
				t.Errorf("streamer should not run, got %v", names)
			}
		})
	}
}

func TestStatusStream_ClientCloseCancelsSession(t *testing.T) {
	st := &fakeStreamer{
		frames: [][]sagemaker.EndpointStatus{{{Name: "m1", Status: "Creating"}}},
		block:  true,
	}
	conn := dialStream(t, st)
	_ = conn.WriteJSON(endpointRequest{EndpointName: "m1"})

	if _, _, err := conn.ReadMessage(); err != nil {
		t.Fatalf("read first frame: %v", err)
	}
	_ = conn.Close()

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		st.mu.Lock()
		done := st.ctxErr != nil
		st.mu.Unlock()
		if done {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("session context was not cancelled after the client left")
}

func TestStatusStream_Origin(t *testing.T) {
	tests := []struct {
		name   string
		origin string
		ok     bool
	}{
		{"no origin", "", true},
		{"allowed origin", "http://localhost:3000", true},
		{"allowed origin any case", "HTTP://LOCALHOST:3000", true},
		{"foreign origin", "http://evil.example", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := &fakeStreamer{}
			header := http.Header{}
			if tt.origin != "" {
				header.Set("Origin", tt.origin)
			}
			conn, resp, err := websocket.DefaultDialer.Dial(streamURL(t, st), header)
			if tt.ok {
				if err != nil {
					t.Fatalf("dial: %v", err)
				}
				_ = conn.Close()
				return
			}
			if err == nil {
				_ = conn.Close()
				t.Fatal("handshake from a foreign origin should fail")
			}
			if resp == nil || resp.StatusCode != http.StatusForbidden {
				t.Errorf("response = %v, want 403", resp)
			}
			if names := st.streamed(); len(names) != 0 {
				t.Errorf("streamer should not run, got %v", names)
			}
		})
	}
}

func TestNewUpgrader_Wildcard(t *testing.T) {
	u := newUpgrader([]string{"*"})
	r := httptest.NewRequest(http.MethodGet, "/ws/model/create-endpoint", nil)
	r.Header.Set("Origin", "http://anywhere.example")
	if !u.CheckOrigin(r) {
		t.Error("wildcard should admit every origin")
	}
}
