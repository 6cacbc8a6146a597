package sse

import (
	"bytes"
	"fmt"
	"io"
	"strings"
)

// Event names written by Serve.
const (
	EventTypeMessage = "message"
	EventTypeError   = "error"
)

// Event is one server-sent event.
type Event struct {
	ID    string
	Event string
	Data  []byte
	Retry int // milliseconds, 0 omits the field
}

// WriteTo writes the event in text/event-stream framing. Data containing
// newlines is split over several data lines.
func (e Event) WriteTo(w io.Writer) (int64, error) {
	var buf bytes.Buffer
	if e.ID != "" {
		fmt.Fprintf(&buf, "id: %s\n", sanitize(e.ID))
	}
	if e.Event != "" && e.Event != EventTypeMessage {
		fmt.Fprintf(&buf, "event: %s\n", sanitize(e.Event))
	}
	if e.Retry > 0 {
		fmt.Fprintf(&buf, "retry: %d\n", e.Retry)
	}
	for _, line := range strings.Split(string(e.Data), "\n") {
		fmt.Fprintf(&buf, "data: %s\n", strings.TrimSuffix(line, "\r"))
	}
	buf.WriteByte('\n')
	n, err := w.Write(buf.Bytes())
	return int64(n), err
}

// writeComment writes a comment line, which clients ignore. Used for
// keepalives.
func writeComment(w io.Writer, text string) error {
	_, err := fmt.Fprintf(w, ": %s\n\n", sanitize(text))
	return err
}

func sanitize(s string) string {
	return strings.NewReplacer("\r", "", "\n", "").Replace(s)
}
