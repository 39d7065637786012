package codegenerrors

import (
	"errors"
	"fmt"
	"strings"
)

// Model (M) Errors: malformed input to the back end
var (
	ErrMUnknownOperand       = errors.New("M1|UnknownOperand: Operand shape is not one of register, double register, stack slot, double stack slot or immediate.")
	ErrMConstantType         = errors.New("M2|ConstantType: Constant read with the wrong type.")
	ErrMInvalidFlagsMode     = errors.New("M3|InvalidFlagsMode: Flags mode is not one of none, set or branch.")
	ErrMInvalidPosition      = errors.New("M4|InvalidPosition: Source position marker carries the invalid position.")
	ErrMUnknownBlock         = errors.New("M5|UnknownBlock: Instruction refers to a block that is not part of the sequence.")
	ErrMUnknownDeoptEntry    = errors.New("M6|UnknownDeoptEntry: Deoptimization id has no frame state descriptor.")
	ErrMUnsupportedOperation = errors.New("M7|UnsupportedOperation: Backend cannot assemble the instruction.")
)

// Deoptimization (D) Errors
var (
	ErrDTranslationBuiltTwice = errors.New("D1|TranslationBuiltTwice: Translation already built for this deoptimization id.")
	ErrDMissingTranslation    = errors.New("D2|MissingTranslation: Frame state descriptor has no translation at finalization.")
	ErrDRegisterInFrameState  = errors.New("D3|RegisterInFrameState: Frame state value lives in a register across a call.")
	ErrDFrameStateTooShort    = errors.New("D4|FrameStateTooShort: Instruction has fewer inputs than its frame state descriptor needs.")
	ErrDCorruptTranslation    = errors.New("D5|CorruptTranslation: Translation byte array holds an unknown or misplaced opcode.")
)

// Table (T) Errors: safepoints and labels
var (
	ErrTUnknownSafepoint   = errors.New("T1|UnknownSafepoint: Safepoint id was never defined.")
	ErrTTableEmitted       = errors.New("T2|TableEmitted: Safepoint table was already emitted.")
	ErrTUnboundLabel       = errors.New("T3|UnboundLabel: Label referenced but never bound.")
	ErrTLabelBoundTwice    = errors.New("T4|LabelBoundTwice: Label bound more than once.")
	ErrTCorruptTable       = errors.New("T5|CorruptTable: Serialized table is truncated or malformed.")
	ErrTNoScratch          = errors.New("T6|NoScratch: Parallel move cannot be resolved without an assembler.")
	ErrTUnpatchedLazyDeopt = errors.New("T7|UnpatchedLazyDeopt: Lazy deoptimization safepoint left without a deopt pc.")
)

// FatalError aborts the compilation of one unit. It is raised with panic
// inside the generator and turned back into an error by Recover.
type FatalError struct {
	Err    error
	Detail string
}

func (e *FatalError) Error() string {
	if e.Detail == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s (%s)", e.Err.Error(), e.Detail)
}

func (e *FatalError) Unwrap() error {
	return e.Err
}

// Fatalf panics with a *FatalError wrapping err.
func Fatalf(err error, format string, args ...interface{}) {
	panic(&FatalError{Err: err, Detail: fmt.Sprintf(format, args...)})
}

// Check panics with a *FatalError wrapping err when cond is false.
func Check(cond bool, err error, format string, args ...interface{}) {
	if !cond {
		Fatalf(err, format, args...)
	}
}

// Recover stores a recovered *FatalError into errp. Other panics propagate.
// It must be called directly by a deferred function.
func Recover(errp *error) {
	r := recover()
	if r == nil {
		return
	}
	if fe, ok := r.(*FatalError); ok {
		*errp = fe
		return
	}
	panic(r)
}

// GetErrorName extracts the error name from the error message.
func GetErrorName(err error) string {
	if err == nil {
		return "No Error"
	}
	errStr := err.Error()
	if !strings.Contains(errStr, "|") || !strings.Contains(errStr, ":") {
		return errStr
	}
	parts := strings.SplitN(errStr, "|", 2)
	nameParts := strings.SplitN(parts[1], ":", 2)
	return strings.TrimSpace(nameParts[0])
}

// GetErrorCode extracts the error code from the error message.
func GetErrorCode(err error) string {
	if err == nil {
		return ""
	}
	errStr := err.Error()
	if !strings.Contains(errStr, "|") {
		return ""
	}
	parts := strings.SplitN(errStr, "|", 2)
	return strings.TrimSpace(parts[0])
}

// GetErrorCodeWithName returns the error code and name in the format "Code_ErrorName".
func GetErrorCodeWithName(err error) string {
	code := GetErrorCode(err)
	name := GetErrorName(err)
	if code == "" || name == "" {
		return ""
	}
	return code + "_" + name
}
