package codegen

import (
	"encoding/json"
	"fmt"
	"os"
)

// Options configures one CodeGenerator.
type Options struct {
	// CodeComments records block start and source position comments.
	CodeComments bool `json:"code_comments"`
	// ValidateFrameStates rejects frame state values held in registers.
	ValidateFrameStates bool `json:"validate_frame_states"`
	// DeoptIDInput is the call input holding the deoptimization id.
	DeoptIDInput int `json:"deopt_id_input"`
	// FirstStateValueInput is the call input the frame state values start at.
	FirstStateValueInput int  `json:"first_state_value_input"`
	Trace                bool `json:"trace"`
}

func DefaultOptions() Options {
	return Options{
		ValidateFrameStates:  true,
		DeoptIDInput:         1,
		FirstStateValueInput: 2,
	}
}

// LoadOptions reads a JSON options file on top of the defaults.
func LoadOptions(path string) (Options, error) {
	opts := DefaultOptions()
	data, err := os.ReadFile(path)
	if err != nil {
		return opts, fmt.Errorf("failed to read options %s: %w", path, err)
	}
	if err := json.Unmarshal(data, &opts); err != nil {
		return opts, fmt.Errorf("failed to parse options %s: %w", path, err)
	}
	if opts.DeoptIDInput < 0 || opts.FirstStateValueInput < 0 {
		return opts, fmt.Errorf("options %s: negative input index", path)
	}
	return opts, nil
}

// String method returns the Options as a formatted JSON string
func (o *Options) String() string {
	jsonData, err := json.MarshalIndent(o, "", "  ")
	if err != nil {
		return fmt.Sprintf("Error marshaling JSON: %v", err)
	}
	return string(jsonData)
}
