package sse

import (
	"context"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kbukum/reactivekit/logger"
)

// Tracker keeps a record of the open streams so they can be counted for
// health reporting and cancelled together on shutdown. An unbounded stream
// otherwise keeps http.Server.Shutdown waiting until its deadline.
type Tracker struct {
	mu      sync.Mutex
	streams map[string]*trackedStream
	closed  bool
	log     *logger.Logger
}

type trackedStream struct {
	id      string
	path    string
	started time.Time
	sent    atomic.Int64
	cancel  context.CancelFunc
}

// StreamInfo describes one open stream.
type StreamInfo struct {
	ID      string    `json:"id"`
	Path    string    `json:"path"`
	Started time.Time `json:"started"`
	Sent    int64     `json:"sent"`
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{
		streams: make(map[string]*trackedStream),
		log:     logger.Get("sse"),
	}
}

// attach registers a stream and returns a context cancelled when the stream
// is released, cancelled through the tracker or the tracker is closed.
func (t *Tracker) attach(ctx context.Context, id, path string) (context.Context, *trackedStream, func()) {
	ctx, cancel := context.WithCancel(ctx)
	s := &trackedStream{id: id, path: path, started: time.Now(), cancel: cancel}

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		cancel()
		return ctx, s, func() {}
	}
	t.streams[id] = s
	total := len(t.streams)
	t.mu.Unlock()

	t.log.Debug("Stream attached", logger.Fields("stream_id", id, "path", path, "open", total))

	release := func() {
		cancel()
		t.mu.Lock()
		if cur, ok := t.streams[id]; ok && cur == s {
			delete(t.streams, id)
		}
		t.mu.Unlock()
		t.log.Debug("Stream released", logger.Fields("stream_id", id, "sent", s.sent.Load()))
	}
	return ctx, s, release
}

// Count returns the number of open streams.
func (t *Tracker) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.streams)
}

// Streams returns the open streams ordered by start time.
func (t *Tracker) Streams() []StreamInfo {
	t.mu.Lock()
	out := make([]StreamInfo, 0, len(t.streams))
	for _, s := range t.streams {
		out = append(out, StreamInfo{ID: s.id, Path: s.path, Started: s.started, Sent: s.sent.Load()})
	}
	t.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Started.Before(out[j].Started) })
	return out
}

// CancelMatching cancels every stream whose id matches the glob pattern and
// returns how many were cancelled.
func (t *Tracker) CancelMatching(pattern string) (int, error) {
	if _, err := filepath.Match(pattern, ""); err != nil {
		return 0, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for id, s := range t.streams {
		if ok, _ := filepath.Match(pattern, id); ok {
			s.cancel()
			n++
		}
	}
	return n, nil
}

// Close cancels every open stream and rejects new ones. Safe to call more
// than once.
func (t *Tracker) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	t.closed = true
	for _, s := range t.streams {
		s.cancel()
	}
	t.log.Debug("Tracker closed", logger.Fields("cancelled", len(t.streams)))
}

// Closed reports whether Close was called.
func (t *Tracker) Closed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}
