package api

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/kbukum/reactivekit/generator"
	"github.com/kbukum/reactivekit/logger"
	"github.com/kbukum/reactivekit/observability"
	"github.com/kbukum/reactivekit/pipeline"
	"github.com/kbukum/reactivekit/sse"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestRouter(t *testing.T, cfg Config, opts ...Option) (*gin.Engine, *Handler) {
	t.Helper()
	h, err := NewHandler(cfg, opts...)
	if err != nil {
		t.Fatalf("NewHandler failed: %v", err)
	}
	r := gin.New()
	h.Register(r)
	return r, h
}

func get(r http.Handler, path, accept string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, http.NoBody)
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

type errorBody struct {
	Error struct {
		Code    string         `json:"code"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

func decodeError(t *testing.T, body string) errorBody {
	t.Helper()
	var eb errorBody
	if err := json.Unmarshal([]byte(body), &eb); err != nil {
		t.Fatalf("body is not an error response: %v (%s)", err, body)
	}
	return eb
}

func failingFlux() *pipeline.Pipeline[int] {
	return pipeline.Map(pipeline.Just(1, 2, 3), func(_ context.Context, v int) (int, error) {
		if v == 3 {
			return 0, errors.New("boom")
		}
		return v, nil
	})
}

func TestConfigDefaults(t *testing.T) {
	var cfg Config
	cfg.ApplyDefaults()
	if len(cfg.FluxValues) != 5 || cfg.MonoMessage != "Hello, Reactor!" || cfg.StreamPeriod != time.Second {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestNewHandlerRejectsInvalidConfig(t *testing.T) {
	if _, err := NewHandler(Config{KeepAlive: -time.Second}); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestFlux(t *testing.T) {
	r, _ := newTestRouter(t, Config{})

	tests := []struct {
		name        string
		accept      string
		status      int
		contentType string
		body        string
	}{
		{"no accept header", "", http.StatusOK, "application/json", "[1,2,3,4,5]"},
		{"json", "application/json", http.StatusOK, "application/json", "[1,2,3,4,5]"},
		{"wildcard", "*/*", http.StatusOK, "application/json", "[1,2,3,4,5]"},
		{"ndjson", MIMENDJSON, http.StatusOK, MIMENDJSON, "1\n2\n3\n4\n5\n"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := get(r, "/flux", tc.accept)
			if w.Code != tc.status {
				t.Fatalf("expected %d, got %d", tc.status, w.Code)
			}
			if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, tc.contentType) {
				t.Errorf("expected content type %s, got %s", tc.contentType, ct)
			}
			if w.Body.String() != tc.body {
				t.Errorf("expected body %q, got %q", tc.body, w.Body.String())
			}
		})
	}
}

func TestFlux_NotAcceptable(t *testing.T) {
	r, _ := newTestRouter(t, Config{})
	w := get(r, "/flux", "text/html")
	if w.Code != http.StatusNotAcceptable {
		t.Fatalf("expected 406, got %d", w.Code)
	}
	if eb := decodeError(t, w.Body.String()); eb.Error.Code != "NOT_ACCEPTABLE" {
		t.Errorf("expected NOT_ACCEPTABLE, got %s", eb.Error.Code)
	}
}

func TestFlux_TransformError(t *testing.T) {
	r, h := newTestRouter(t, Config{})
	h.flux = failingFlux

	w := get(r, "/flux", "")
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	eb := decodeError(t, w.Body.String())
	if eb.Error.Code != "TRANSFORM_FAILED" {
		t.Errorf("expected TRANSFORM_FAILED, got %s", eb.Error.Code)
	}
	if eb.Error.Details["stage"] != "map" || eb.Error.Details["index"] != float64(2) {
		t.Errorf("unexpected details: %v", eb.Error.Details)
	}
}

func TestFlux_NDJSONErrorAfterItems(t *testing.T) {
	r, h := newTestRouter(t, Config{})
	h.flux = failingFlux

	w := get(r, "/flux", MIMENDJSON)
	if w.Code != http.StatusOK {
		t.Fatalf("headers were already sent, expected 200, got %d", w.Code)
	}
	lines := strings.Split(strings.TrimSpace(w.Body.String()), "\n")
	if len(lines) != 3 || lines[0] != "1" || lines[1] != "2" {
		t.Fatalf("unexpected lines: %q", lines)
	}
	if eb := decodeError(t, lines[2]); eb.Error.Code != "TRANSFORM_FAILED" {
		t.Errorf("expected trailing TRANSFORM_FAILED line, got %s", lines[2])
	}
}

func TestFlux_ClientGone(t *testing.T) {
	r, _ := newTestRouter(t, Config{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodGet, "/flux", http.NoBody).WithContext(ctx)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != 499 {
		t.Fatalf("expected 499, got %d", w.Code)
	}
	if eb := decodeError(t, w.Body.String()); eb.Error.Code != "STREAM_CANCELLED" {
		t.Errorf("expected STREAM_CANCELLED, got %s", eb.Error.Code)
	}
}

func TestMono(t *testing.T) {
	r, _ := newTestRouter(t, Config{})

	w := get(r, "/mono", "")
	if w.Code != http.StatusOK || w.Body.String() != "Hello, Reactor!" {
		t.Errorf("plain: got %d %q", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("expected text/plain, got %s", ct)
	}

	w = get(r, "/mono", "application/json")
	if w.Code != http.StatusOK || w.Body.String() != `"Hello, Reactor!"` {
		t.Errorf("json: got %d %q", w.Code, w.Body.String())
	}

	w = get(r, "/mono", "image/png")
	if w.Code != http.StatusNotAcceptable {
		t.Errorf("expected 406, got %d", w.Code)
	}
}

func TestMono_Empty(t *testing.T) {
	r, h := newTestRouter(t, Config{})
	h.mono = pipeline.Empty[string]
	if w := get(r, "/mono", ""); w.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", w.Code)
	}
}

func TestStream_Limit(t *testing.T) {
	tracker := sse.NewTracker()
	r, _ := newTestRouter(t, Config{}, WithTracker(tracker))

	w := get(r, "/stream?period=10ms&limit=3", "text/event-stream")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("expected text/event-stream, got %s", ct)
	}
	body := w.Body.String()
	for i, want := range []string{"data: 0\n", "data: 1\n", "data: 2\n"} {
		if !strings.Contains(body, want) {
			t.Errorf("event %d missing from %q", i, body)
		}
	}
	if strings.Contains(body, "data: 3\n") {
		t.Errorf("limit not honoured: %q", body)
	}
	if tracker.Count() != 0 {
		t.Errorf("stream should be released, %d still tracked", tracker.Count())
	}
}

func TestMonoAndStream_LogSignals(t *testing.T) {
	r, h := newTestRouter(t, Config{})
	var buf bytes.Buffer
	h.log = logger.NewWithWriter(&logger.Config{Level: "debug", Format: logger.FormatJSON, Output: "stdout"}, "api", &buf)

	tests := []struct {
		path     string
		accept   string
		sequence string
	}{
		{"/mono", "", "mono"},
		{"/stream?period=10ms&limit=2", "text/event-stream", "stream"},
	}
	for _, tc := range tests {
		buf.Reset()
		if w := get(r, tc.path, tc.accept); w.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", tc.path, w.Code)
		}
		out := buf.String()
		if !strings.Contains(out, `"sequence":"`+tc.sequence+`"`) || !strings.Contains(out, `"onSubscribe"`) {
			t.Errorf("%s: signals not logged: %q", tc.path, out)
		}
	}
}

func TestStream_InvalidQuery(t *testing.T) {
	r, _ := newTestRouter(t, Config{})
	tests := []string{
		"/stream?period=soon",
		"/stream?period=1ms",
		"/stream?limit=-1",
		"/stream?limit=many",
	}
	for _, path := range tests {
		w := get(r, path, "")
		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", path, w.Code)
		}
	}
}

func TestStream_DisconnectReleasesDrive(t *testing.T) {
	tracker := sse.NewTracker()
	r, _ := newTestRouter(t, Config{StreamPeriod: 20 * time.Millisecond}, WithTracker(tracker))
	srv := httptest.NewServer(r)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/stream", http.NoBody)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var got []string
	scanner := bufio.NewScanner(resp.Body)
	for len(got) < 3 && scanner.Scan() {
		if line := scanner.Text(); strings.HasPrefix(line, "data: ") {
			got = append(got, strings.TrimPrefix(line, "data: "))
		}
	}
	if strings.Join(got, ",") != "0,1,2" {
		t.Fatalf("expected ticks 0,1,2, got %v", got)
	}
	if tracker.Count() != 1 {
		t.Errorf("expected one tracked stream, got %d", tracker.Count())
	}

	cancel()
	deadline := time.Now().Add(2 * time.Second)
	for tracker.Count() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("stream was not released after the client disconnected")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

type metricsSource struct{ m *observability.Metrics }

func (s metricsSource) Metrics() *observability.Metrics { return s.m }

func recordSpans(t *testing.T) *tracetest.InMemoryExporter {
	t.Helper()
	exp := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exp))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(context.Background())
	})
	return exp
}

func TestDriveSpans(t *testing.T) {
	exp := recordSpans(t)

	m, err := observability.NewMetrics(observability.Meter())
	if err != nil {
		t.Fatal(err)
	}
	r, _ := newTestRouter(t, Config{}, WithMetrics(metricsSource{m}))
	if w := get(r, "/flux", ""); w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	spans := exp.GetSpans()
	if len(spans) != 1 || spans[0].Name != observability.SpanDrive {
		t.Fatalf("expected one %s span, got %d", observability.SpanDrive, len(spans))
	}
	attrs := map[attribute.Key]attribute.Value{}
	for _, kv := range spans[0].Attributes {
		attrs[kv.Key] = kv.Value
	}
	if attrs[observability.AttrSequence].AsString() != "flux" {
		t.Errorf("unexpected sequence attribute: %v", attrs[observability.AttrSequence])
	}
	if attrs[observability.AttrItems].AsInt64() != 5 {
		t.Errorf("expected 5 items, got %v", attrs[observability.AttrItems])
	}
	if attrs[observability.AttrTerminal].AsString() != "complete" {
		t.Errorf("expected complete terminal, got %v", attrs[observability.AttrTerminal])
	}
}

func TestStream_FailureMarksSpan(t *testing.T) {
	exp := recordSpans(t)

	r, h := newTestRouter(t, Config{})
	h.ticks = func(time.Duration) *pipeline.Pipeline[int64] {
		return pipeline.Concat(pipeline.Just[int64](0), pipeline.Fail[int64](errors.New("tick failed")))
	}
	w := get(r, "/stream", "text/event-stream")
	if !strings.Contains(w.Body.String(), "event: error\n") {
		t.Fatalf("expected an error event, got %q", w.Body.String())
	}

	spans := exp.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("expected one span, got %d", len(spans))
	}
	if spans[0].Status.Code != codes.Error || !strings.Contains(spans[0].Status.Description, "tick failed") {
		t.Errorf("span should carry the failure, got %+v", spans[0].Status)
	}
	if len(spans[0].Events) == 0 || spans[0].Events[0].Name != "exception" {
		t.Errorf("expected a recorded error event, got %v", spans[0].Events)
	}
}

func newNamesRouter(t *testing.T) (*gin.Engine, *sse.Tracker) {
	t.Helper()
	svc, err := generator.New(generator.Config{MaxDelay: 5 * time.Millisecond})
	if err != nil {
		t.Fatal(err)
	}
	tracker := sse.NewTracker()
	r, _ := newTestRouter(t, Config{}, WithGenerator(svc), WithTracker(tracker))
	return r, tracker
}

func TestNames(t *testing.T) {
	r, _ := newNamesRouter(t)

	w := get(r, "/names", "")
	var list struct {
		Operations []string `json:"operations"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil || len(list.Operations) != len(generator.OperationNames()) {
		t.Fatalf("unexpected operation list: %s", w.Body.String())
	}

	w = get(r, "/names/namesFluxWithFilter?n=4", "")
	if w.Code != http.StatusOK || w.Body.String() != `["5-ALICE","7-CHARLIE","5-DAVID"]` {
		t.Errorf("got %d %s", w.Code, w.Body.String())
	}

	w = get(r, "/names/namesFluxWithConcatMapAsync?n=6", "text/event-stream")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	body := w.Body.String()
	if strings.Count(body, "event: namesFluxWithConcatMapAsync\n") != 7 {
		t.Errorf("expected 7 named events, got %q", body)
	}
	if !strings.Contains(body, "data: \"C\"\n") || !strings.Contains(body, "data: \"E\"\n") {
		t.Errorf("letters missing from %q", body)
	}
}

func TestNames_Errors(t *testing.T) {
	r, _ := newNamesRouter(t)
	tests := []struct {
		path   string
		accept string
		status int
	}{
		{"/names/unknown", "", http.StatusNotFound},
		{"/names/namesFlux?n=-1", "", http.StatusBadRequest},
		{"/names/namesFlux?n=1000", "", http.StatusBadRequest},
		{"/names/namesFlux", "text/html", http.StatusNotAcceptable},
	}
	for _, tc := range tests {
		if w := get(r, tc.path, tc.accept); w.Code != tc.status {
			t.Errorf("%s: expected %d, got %d", tc.path, tc.status, w.Code)
		}
	}
}

func TestStreamsAdmin(t *testing.T) {
	r, tracker := newNamesRouter(t)
	srv := httptest.NewServer(r)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/stream?period=20ms", http.NoBody)
	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		if strings.HasPrefix(scanner.Text(), "data: ") {
			break
		}
	}

	w := get(r, "/streams", "")
	var list struct {
		Streams []sse.StreamInfo `json:"streams"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil || len(list.Streams) != 1 {
		t.Fatalf("expected one open stream, got %s", w.Body.String())
	}

	del := httptest.NewRequest(http.MethodDelete, "/streams?match=*", http.NoBody)
	dw := httptest.NewRecorder()
	r.ServeHTTP(dw, del)
	if dw.Code != http.StatusOK || dw.Body.String() != `{"cancelled":1}` {
		t.Fatalf("unexpected cancel response: %d %s", dw.Code, dw.Body.String())
	}

	deadline := time.Now().Add(2 * time.Second)
	for tracker.Count() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("cancelled stream was not released")
		}
		time.Sleep(10 * time.Millisecond)
	}

	for _, path := range []string{"/streams", "/streams?match=%5B"} {
		req := httptest.NewRequest(http.MethodDelete, path, http.NoBody)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", path, w.Code)
		}
	}
}

func TestNames_EmptySequenceIsEmptyArray(t *testing.T) {
	r, _ := newNamesRouter(t)
	w := get(r, "/names/nameMonoWithFilter?n=4", "")
	if w.Code != http.StatusOK || w.Body.String() != "[]" {
		t.Errorf("got %d %s", w.Code, w.Body.String())
	}
}
