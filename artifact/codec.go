package artifact

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/klauspost/compress/zstd"
	"gopkg.in/yaml.v3"

	"github.com/dmora/agentprobe"
)

const zstdExt = ".zst"

// Encoders are reused across writes; both are safe for concurrent use.
var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder

	cborEnc cbor.EncMode
	cborDec cbor.DecMode
)

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("artifact: zstd encoder initialization failed: " + err.Error())
	}
	zstdDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic("artifact: zstd decoder initialization failed: " + err.Error())
	}

	encOptions := cbor.CoreDetEncOptions()
	encOptions.Time = cbor.TimeRFC3339Nano
	cborEnc, err = encOptions.EncMode()
	if err != nil {
		panic("artifact: CBOR encoder initialization failed: " + err.Error())
	}
	cborDec, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic("artifact: CBOR decoder initialization failed: " + err.Error())
	}
}

// Summary is the YAML document describing one saved run.
type Summary struct {
	ID          string           `yaml:"id"`
	Command     []string         `yaml:"command"`
	Dir         string           `yaml:"dir,omitempty"`
	PID         int              `yaml:"pid,omitempty"`
	State       agentprobe.State `yaml:"state"`
	ExitCode    int              `yaml:"exit_code"`
	Signal      string           `yaml:"signal,omitempty"`
	Error       string           `yaml:"error,omitempty"`
	StartedAt   time.Time        `yaml:"started_at"`
	Elapsed     string           `yaml:"elapsed"`
	Bytes       int              `yaml:"bytes"`
	Digest      string           `yaml:"blake3"`
	Transcript  string           `yaml:"transcript"`
	Events      string           `yaml:"events"`
	ToolCalls   int              `yaml:"tool_calls"`
	Delegations int              `yaml:"delegations"`
	Tools       []string         `yaml:"tools,omitempty"`
	Agents      []string         `yaml:"agents,omitempty"`
}

// ElapsedDuration parses Elapsed.
func (s Summary) ElapsedDuration() (time.Duration, error) {
	return time.ParseDuration(s.Elapsed)
}

func writeTranscript(path, text string, compress bool) error {
	data := []byte(text)
	if compress {
		data = zstdEncoder.EncodeAll(data, nil)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("artifact: write transcript: %w", err)
	}
	return nil
}

// ReadTranscript loads a transcript written by Writer, decompressing it when
// the name ends in .zst.
func ReadTranscript(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("artifact: read transcript: %w", err)
	}
	if strings.HasSuffix(path, zstdExt) {
		data, err = zstdDecoder.DecodeAll(data, nil)
		if err != nil {
			return "", fmt.Errorf("artifact: zstd decompress: %w", err)
		}
	}
	return string(data), nil
}

func writeEvents(path string, events []agentprobe.Event, format Format) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("artifact: create events file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("artifact: close events file: %w", cerr)
		}
	}()

	bw := bufio.NewWriter(f)
	switch format {
	case FormatCBOR:
		enc := cborEnc.NewEncoder(bw)
		for _, ev := range events {
			if err := enc.Encode(ev); err != nil {
				return fmt.Errorf("artifact: encode event: %w", err)
			}
		}
	default:
		enc := json.NewEncoder(bw)
		for _, ev := range events {
			if err := enc.Encode(ev); err != nil {
				return fmt.Errorf("artifact: encode event: %w", err)
			}
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("artifact: write events: %w", err)
	}
	return nil
}

// ReadEvents loads an events file written by Writer. The encoding is chosen
// by extension: .cbor for CBOR, anything else for JSON lines.
func ReadEvents(path string) ([]agentprobe.Event, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("artifact: open events file: %w", err)
	}
	defer f.Close()

	var events []agentprobe.Event
	if strings.HasSuffix(path, "."+string(FormatCBOR)) {
		dec := cborDec.NewDecoder(bufio.NewReader(f))
		for {
			var ev agentprobe.Event
			if err := dec.Decode(&ev); err != nil {
				if errors.Is(err, io.EOF) {
					return events, nil
				}
				return nil, fmt.Errorf("artifact: decode event: %w", err)
			}
			events = append(events, ev)
		}
	}

	dec := json.NewDecoder(bufio.NewReader(f))
	for {
		var ev agentprobe.Event
		if err := dec.Decode(&ev); err != nil {
			if errors.Is(err, io.EOF) {
				return events, nil
			}
			return nil, fmt.Errorf("artifact: decode event: %w", err)
		}
		events = append(events, ev)
	}
}

func writeSummary(path string, s Summary) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("artifact: encode summary: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("artifact: write summary: %w", err)
	}
	return nil
}

// ReadSummary loads a summary written by Writer.
func ReadSummary(path string) (Summary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Summary{}, fmt.Errorf("artifact: read summary: %w", err)
	}
	var s Summary
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Summary{}, fmt.Errorf("artifact: decode summary: %w", err)
	}
	return s, nil
}
