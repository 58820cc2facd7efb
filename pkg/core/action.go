// pkg/core/action.go
package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

// Action is one scheduled production step produced by the build-order engine.
// On the wire it is a 7-tuple:
// [typeName, startFrame, endFrame, mineralsAtStart, gasAtStart, lane, color]
type Action struct {
	Type            string
	StartFrame      int
	EndFrame        int
	MineralsAtStart float64
	GasAtStart      float64
	Lane            int
	Color           string
}

// Duration returns the number of frames the action is active for.
func (a Action) Duration() int {
	return a.EndFrame - a.StartFrame
}

// ErrInvalidAction is wrapped by every Validate failure.
var ErrInvalidAction = errors.New("invalid action")

// Validate checks the frame, lane and resource preconditions of an action.
func (a Action) Validate() error {
	if a.Type == "" {
		return fmt.Errorf("%w: no type name", ErrInvalidAction)
	}
	if a.StartFrame < 0 {
		return fmt.Errorf("%w %s: negative start frame %d", ErrInvalidAction, a.Type, a.StartFrame)
	}
	if a.EndFrame <= a.StartFrame {
		return fmt.Errorf("%w %s: end frame %d not after start frame %d", ErrInvalidAction, a.Type, a.EndFrame, a.StartFrame)
	}
	if a.Lane < 0 {
		return fmt.Errorf("%w %s: negative lane %d", ErrInvalidAction, a.Type, a.Lane)
	}
	if a.MineralsAtStart < 0 || a.GasAtStart < 0 {
		return fmt.Errorf("%w %s: negative resources", ErrInvalidAction, a.Type)
	}
	return nil
}

// MarshalJSON writes the action as the engine's 7-tuple.
func (a Action) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{
		a.Type,
		a.StartFrame,
		a.EndFrame,
		a.MineralsAtStart,
		a.GasAtStart,
		a.Lane,
		a.Color,
	})
}

// UnmarshalJSON reads the engine's 7-tuple. Frames and lane may arrive as
// floats but must be integral.
func (a *Action) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("action: %w", err)
	}
	if len(raw) != 7 {
		return fmt.Errorf("action: expected 7 fields, got %d", len(raw))
	}

	var out Action
	if err := json.Unmarshal(raw[0], &out.Type); err != nil {
		return fmt.Errorf("action type name: %w", err)
	}

	ints := []struct {
		name string
		dst  *int
		raw  json.RawMessage
	}{
		{"startFrame", &out.StartFrame, raw[1]},
		{"endFrame", &out.EndFrame, raw[2]},
		{"lane", &out.Lane, raw[5]},
	}
	for _, f := range ints {
		v, err := integral(f.raw)
		if err != nil {
			return fmt.Errorf("action %s %s: %w", out.Type, f.name, err)
		}
		*f.dst = v
	}

	if err := json.Unmarshal(raw[3], &out.MineralsAtStart); err != nil {
		return fmt.Errorf("action %s minerals: %w", out.Type, err)
	}
	if err := json.Unmarshal(raw[4], &out.GasAtStart); err != nil {
		return fmt.Errorf("action %s gas: %w", out.Type, err)
	}
	if err := json.Unmarshal(raw[6], &out.Color); err != nil {
		return fmt.Errorf("action %s color: %w", out.Type, err)
	}

	*a = out
	return nil
}

func integral(raw json.RawMessage) (int, error) {
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return 0, err
	}
	if f != math.Trunc(f) {
		return 0, fmt.Errorf("%v is not an integer", f)
	}
	return int(f), nil
}

// Plot is one player's realized build-order timeline.
type Plot struct {
	Name       string   `json:"name,omitempty"`
	BuildOrder []Action `json:"buildOrder"`
}
