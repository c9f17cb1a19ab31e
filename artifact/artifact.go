// Package artifact persists the outcome of a run for later inspection: the
// raw transcript, the decoded events and a YAML summary that ties them
// together with a content digest.
//
// Files are named after the run ID inside the output directory:
//
//	output-<id>.json      raw transcript (output-<id>.json.zst when compressed)
//	events-<id>.jsonl     one JSON event per line (events-<id>.cbor for CBOR)
//	summary-<id>.yaml     run metadata, event counts and blake3 digest
package artifact

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/zeebo/blake3"

	"github.com/dmora/agentprobe"
)

// Format selects the encoding of the events file.
type Format string

const (
	// FormatJSONL writes one JSON object per line.
	FormatJSONL Format = "jsonl"

	// FormatCBOR writes a sequence of CBOR data items.
	FormatCBOR Format = "cbor"
)

// ErrUnknownFormat is returned for an events format other than jsonl or cbor.
var ErrUnknownFormat = errors.New("artifact: unknown events format")

// ParseFormat validates s as an events format. Empty means FormatJSONL.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case "", FormatJSONL:
		return FormatJSONL, nil
	case FormatCBOR:
		return FormatCBOR, nil
	default:
		return "", fmt.Errorf("%w %q; valid: jsonl, cbor", ErrUnknownFormat, s)
	}
}

// Paths are the files written for one run.
type Paths struct {
	Transcript string
	Events     string
	Summary    string
}

// Writer saves run artifacts under a directory.
type Writer struct {
	dir      string
	compress bool
	format   Format
}

// Option configures a Writer.
type Option func(*Writer)

// WithCompression stores the transcript zstd-compressed.
func WithCompression(enabled bool) Option {
	return func(w *Writer) {
		w.compress = enabled
	}
}

// WithEventsFormat selects the events file encoding. Unknown formats are
// ignored; use ParseFormat to validate user input.
func WithEventsFormat(f Format) Option {
	return func(w *Writer) {
		if f == FormatJSONL || f == FormatCBOR {
			w.format = f
		}
	}
}

// NewWriter returns a Writer rooted at dir. The directory is created on the
// first Write.
func NewWriter(dir string, opts ...Option) *Writer {
	w := &Writer{dir: dir, format: FormatJSONL}
	for _, opt := range opts {
		if opt != nil {
			opt(w)
		}
	}
	return w
}

// Dir returns the output directory.
func (w *Writer) Dir() string { return w.dir }

// Write saves the transcript, events and summary of res. A Result without
// an ID gets a fresh one for naming.
func (w *Writer) Write(res *agentprobe.Result) (Paths, error) {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return Paths{}, fmt.Errorf("artifact: create output dir: %w", err)
	}
	id := res.ID
	if id == "" {
		id = uuid.New().String()
	}

	paths := Paths{
		Transcript: filepath.Join(w.dir, "output-"+id+".json"),
		Events:     filepath.Join(w.dir, "events-"+id+"."+string(w.format)),
		Summary:    filepath.Join(w.dir, "summary-"+id+".yaml"),
	}
	if w.compress {
		paths.Transcript += zstdExt
	}

	text := res.Transcript()
	if err := writeTranscript(paths.Transcript, text, w.compress); err != nil {
		return Paths{}, err
	}
	events := res.Events()
	if err := writeEvents(paths.Events, events, w.format); err != nil {
		return Paths{}, err
	}

	sum := newSummary(id, res, text, events, paths)
	if err := writeSummary(paths.Summary, sum); err != nil {
		return Paths{}, err
	}
	return paths, nil
}

// Digest returns the hex blake3-256 digest of text.
func Digest(text string) string {
	sum := blake3.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// Verify checks that the transcript referenced by the summary at path
// matches the recorded digest and length.
func Verify(summaryPath string) error {
	sum, err := ReadSummary(summaryPath)
	if err != nil {
		return err
	}
	text, err := ReadTranscript(filepath.Join(filepath.Dir(summaryPath), sum.Transcript))
	if err != nil {
		return err
	}
	if len(text) != sum.Bytes {
		return fmt.Errorf("artifact: transcript is %d bytes, summary records %d", len(text), sum.Bytes)
	}
	if d := Digest(text); d != sum.Digest {
		return fmt.Errorf("artifact: transcript digest %s does not match summary %s", d, sum.Digest)
	}
	return nil
}

func newSummary(id string, res *agentprobe.Result, text string, events []agentprobe.Event, paths Paths) Summary {
	s := Summary{
		ID:         id,
		Command:    res.Command,
		Dir:        res.Dir,
		PID:        res.PID,
		State:      res.State,
		ExitCode:   res.ExitCode,
		Signal:     res.Signal,
		StartedAt:  res.StartedAt.UTC().Truncate(time.Millisecond),
		Elapsed:    res.Elapsed.Round(time.Millisecond).String(),
		Bytes:      len(text),
		Digest:     Digest(text),
		Transcript: filepath.Base(paths.Transcript),
		Events:     filepath.Base(paths.Events),
		Agents:     res.Agents(),
		Tools:      res.Tools(),
	}
	if res.Err != nil {
		s.Error = res.Err.Error()
	}
	for _, ev := range events {
		switch ev.Kind {
		case agentprobe.EventToolCall:
			s.ToolCalls++
		case agentprobe.EventAgentDelegation:
			s.Delegations++
		}
	}
	return s
}
