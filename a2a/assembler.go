package a2a

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"time"

	"github.com/c360studio/agentconsole/client"
	"github.com/c360studio/agentconsole/metrics"
)

const (
	dataPrefix   = "data:"
	doneSentinel = "[DONE]"

	// readChunkSize is the per-read buffer for stream consumption.
	readChunkSize = 4096
)

// Result is the final outcome of one streamed chat exchange.
type Result struct {
	Message   string
	SessionID string
	Timestamp time.Time
}

// statusEvent is the decoded shape of one streamed frame payload, after the
// optional "result" envelope has been unwrapped.
type statusEvent struct {
	Kind   string `json:"kind"`
	Final  bool   `json:"final,omitempty"`
	Status struct {
		State   string   `json:"state,omitempty"`
		Message *Message `json:"message,omitempty"`
	} `json:"status"`
}

// Assembler incrementally reassembles a chat push stream into the final
// agent message. Chunks are appended to a byte buffer and complete frames
// (delimited by a blank line) are extracted as they become available, so a
// frame or multi-byte rune split across reads is never lost: the unconsumed
// tail simply stays buffered until the next append.
type Assembler struct {
	buf    bytes.Buffer
	final  string
	found  bool
	done   bool
	logger *slog.Logger
}

// AssemblerOption configures an Assembler.
type AssemblerOption func(*Assembler)

// WithLogger sets the logger used for skipped-frame diagnostics.
func WithLogger(logger *slog.Logger) AssemblerOption {
	return func(a *Assembler) {
		a.logger = logger
	}
}

// NewAssembler creates an empty assembler.
func NewAssembler(opts ...AssemblerOption) *Assembler {
	a := &Assembler{logger: slog.Default()}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Feed appends one read's worth of bytes and processes every complete frame
// now present in the buffer.
func (a *Assembler) Feed(p []byte) {
	if a.done {
		return
	}
	a.buf.Write(p)

	for !a.done {
		raw := a.buf.Bytes()
		idx, skip := frameBoundary(raw)
		if idx < 0 {
			return
		}
		frame := string(raw[:idx])
		a.buf.Next(idx + skip)
		a.handleFrame(frame)
	}
}

// Finish drains any trailing frame and returns the captured final agent
// message, or NotFoundError when the stream never produced one.
func (a *Assembler) Finish(sessionID string) (*Result, error) {
	if !a.done && a.buf.Len() > 0 {
		a.handleFrame(a.buf.String())
		a.buf.Reset()
	}
	if !a.found {
		return nil, client.NewNotFoundError("no agent message found")
	}
	return &Result{Message: a.final, SessionID: sessionID, Timestamp: time.Now()}, nil
}

// handleFrame scans a frame's lines for data payloads. Frames carrying no
// data line (stray delimiter runs, comment-only keepalives) do not count
// toward the frame metric.
func (a *Assembler) handleFrame(frame string) {
	counted := false
	for _, line := range bytes.Split([]byte(frame), []byte("\n")) {
		line = bytes.TrimSuffix(line, []byte("\r"))
		if !bytes.HasPrefix(line, []byte(dataPrefix)) {
			continue
		}
		if !counted {
			metrics.StreamFrames.Inc()
			counted = true
		}
		payload := string(bytes.TrimSpace(line[len(dataPrefix):]))
		if payload == doneSentinel {
			a.done = true
			return
		}
		a.handlePayload(payload)
	}
}

// handlePayload decodes one data payload. Malformed payloads are skipped
// without aborting the stream; a later agent-role frame overwrites any
// earlier capture, so the last agent message wins.
func (a *Assembler) handlePayload(payload string) {
	data := []byte(payload)

	var envelope struct {
		Result json.RawMessage `json:"result"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		a.skip(payload, err)
		return
	}
	if len(envelope.Result) > 0 {
		data = envelope.Result
	}

	var ev statusEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		a.skip(payload, err)
		return
	}
	if ev.Kind != "" && ev.Kind != KindStatusUpdate {
		return
	}
	msg := ev.Status.Message
	if msg == nil || msg.Role != RoleAgent {
		return
	}
	for _, part := range msg.Parts {
		if part.Kind == KindText {
			a.final = part.Text
			a.found = true
			break
		}
	}
}

func (a *Assembler) skip(payload string, err error) {
	metrics.StreamDecodeFailures.Inc()
	a.logger.Debug("skipping malformed stream payload",
		"error", client.NewDecodeError(err),
		"payload_len", len(payload))
}

// ReadStream consumes the whole push stream through the assembler.
func ReadStream(r io.Reader, sessionID string, opts ...AssemblerOption) (*Result, error) {
	a := NewAssembler(opts...)
	chunk := make([]byte, readChunkSize)
	for {
		n, err := r.Read(chunk)
		if n > 0 {
			a.Feed(chunk[:n])
		}
		if err == io.EOF {
			return a.Finish(sessionID)
		}
		if err != nil {
			return nil, client.NewTransportError(err)
		}
	}
}

// frameBoundary finds the earliest blank-line frame delimiter, handling
// both LF and CRLF streams. It returns the frame end index and the
// delimiter width, or -1 when no complete frame is buffered.
func frameBoundary(raw []byte) (idx, skip int) {
	lf := bytes.Index(raw, []byte("\n\n"))
	crlf := bytes.Index(raw, []byte("\r\n\r\n"))
	switch {
	case lf < 0 && crlf < 0:
		return -1, 0
	case crlf < 0 || (lf >= 0 && lf < crlf):
		return lf, 2
	default:
		return crlf, 4
	}
}
