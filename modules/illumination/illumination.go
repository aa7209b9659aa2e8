// Package illumination drives the external light that the strobe sequence toggles.
//
// Phase A (true) is the illuminated phase, phase B (false) the dark one.
// Implementations:
//
//   - MQTTIlluminator: publishes phase commands to a light controller
//   - LogIlluminator: logs commands and remembers the current phase
//   - Multi: fans one command out to several illuminators
package illumination

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// Illuminator sets the light to a phase.
//
// index is the position in the running sequence, or -1 for commands issued
// outside a sequence (the return to rest after a run).
type Illuminator interface {
	SetPhase(ctx context.Context, index int, phase bool) error
}

// PhaseName returns "A" for the illuminated phase and "B" for the dark one
func PhaseName(phase bool) string {
	if phase {
		return "A"
	}
	return "B"
}

// Command is the message sent to a light controller
type Command struct {
	Index     int       `json:"index" msgpack:"index"`
	Phase     string    `json:"phase" msgpack:"phase"`
	On        bool      `json:"on" msgpack:"on"`
	Timestamp time.Time `json:"timestamp" msgpack:"timestamp"`
}

// NewCommand builds a command for the given step
func NewCommand(index int, phase bool) Command {
	return Command{
		Index:     index,
		Phase:     PhaseName(phase),
		On:        phase,
		Timestamp: time.Now(),
	}
}

// PayloadFormat selects the wire encoding of a Command
type PayloadFormat int

const (
	// PayloadJSON encodes commands as JSON objects
	PayloadJSON PayloadFormat = iota
	// PayloadMsgpack encodes commands as MessagePack maps
	PayloadMsgpack
)

// String returns the configuration name of the format
func (f PayloadFormat) String() string {
	switch f {
	case PayloadJSON:
		return "json"
	case PayloadMsgpack:
		return "msgpack"
	default:
		return "unknown"
	}
}

// ParsePayloadFormat maps "json" (or "") and "msgpack" to a PayloadFormat
func ParsePayloadFormat(s string) (PayloadFormat, error) {
	switch s {
	case "", "json":
		return PayloadJSON, nil
	case "msgpack":
		return PayloadMsgpack, nil
	default:
		return PayloadJSON, fmt.Errorf("illumination: unknown payload format %q (must be json or msgpack)", s)
	}
}

// Encode serializes cmd in the given format
func Encode(cmd Command, format PayloadFormat) ([]byte, error) {
	switch format {
	case PayloadJSON:
		return json.Marshal(cmd)
	case PayloadMsgpack:
		return msgpack.Marshal(cmd)
	default:
		return nil, fmt.Errorf("illumination: unknown payload format %d", format)
	}
}

// Decode parses a payload produced by Encode
func Decode(data []byte, format PayloadFormat) (Command, error) {
	var cmd Command
	var err error
	switch format {
	case PayloadJSON:
		err = json.Unmarshal(data, &cmd)
	case PayloadMsgpack:
		err = msgpack.Unmarshal(data, &cmd)
	default:
		err = fmt.Errorf("illumination: unknown payload format %d", format)
	}
	return cmd, err
}

// Multi sends every command to all illuminators, in order, and joins their errors.
type Multi []Illuminator

// SetPhase implements Illuminator
func (m Multi) SetPhase(ctx context.Context, index int, phase bool) error {
	var errs []error
	for _, il := range m {
		if err := il.SetPhase(ctx, index, phase); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
