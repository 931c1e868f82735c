package rm024

import (
	"errors"
	"fmt"
)

var (
	// ErrSessionClosed indicates the session has ended.
	ErrSessionClosed = errors.New("session closed")
	// ErrSessionActive indicates a session is already open on the link.
	ErrSessionActive = errors.New("session already active")
	// ErrShortWrite indicates the port didn't accept a request in one write.
	ErrShortWrite = errors.New("short write")
	// ErrJobFinished indicates the firmware job has already run.
	ErrJobFinished = errors.New("firmware job finished")
	// ErrInvalidArgument indicates a request can't be encoded.
	ErrInvalidArgument = errors.New("invalid argument")
)

// Kinds of ControlError, usable with errors.Is.
var (
	ErrTimeout            = errors.New("response timeout")
	ErrUnexpectedResponse = errors.New("unexpected response")
	ErrProtocolReported   = errors.New("error reported by radio")
	ErrEntryFailed        = errors.New("command mode entry failed")
)

// ControlError describes a failed command mode exchange.
type ControlError struct {
	Op       string
	Kind     error
	Code     byte
	Expected []byte
	Actual   []byte
	// Warning is set when the operation completed regardless, e.g. exit.
	Warning bool
	Err     error
}

// Error implements error.
func (e *ControlError) Error() string {
	msg := fmt.Sprintf("%s: %v", e.Op, e.Kind)
	switch {
	case e.Kind == ErrProtocolReported:
		msg += fmt.Sprintf(" (code %d)", e.Code)
	case e.Err != nil:
		msg += ": " + e.Err.Error()
	case e.Expected != nil || e.Actual != nil:
		msg += fmt.Sprintf(": expect [% x], got [% x]", e.Expected, e.Actual)
	}
	if e.Warning {
		msg = "warning: " + msg
	}
	return msg
}

// Is matches Kind.
func (e *ControlError) Is(target error) bool {
	return target == e.Kind
}

// Unwrap returns the cause.
func (e *ControlError) Unwrap() error {
	return e.Err
}

// Stage is a step of a firmware upgrade.
type Stage int

// Firmware upgrade stages.
const (
	StagePending Stage = iota
	StageErase
	StageWrite
	StageVerify
	StageDecrypt
	StageReset
	StagePostVerify
	StageCompleted
	// StageAborted is final for a job which failed; the error tells at
	// which stage.
	StageAborted
)

var stageNames = []string{
	"pending", "erase", "write", "verify", "decrypt", "reset", "post-verify", "completed", "aborted",
}

// String implements fmt.Stringer.
func (s Stage) String() string {
	if s >= 0 && int(s) < len(stageNames) {
		return stageNames[s]
	}
	return fmt.Sprintf("Stage(%d)", int(s))
}

// Recovery tells the caller what to do after an aborted upgrade.
type Recovery int

// Recovery actions.
const (
	// RecoveryRetry means the job can be run again as-is.
	RecoveryRetry Recovery = iota
	// RecoveryReErase means the flash must be erased and the image
	// uploaded from scratch.
	RecoveryReErase
	// RecoveryAlternateImage means the radio rejected the image after
	// reset, the alternate image file must be uploaded.
	RecoveryAlternateImage
)

// String implements fmt.Stringer.
func (r Recovery) String() string {
	switch r {
	case RecoveryRetry:
		return "retry"
	case RecoveryReErase:
		return "re-erase"
	case RecoveryAlternateImage:
		return "alternate image"
	}
	return fmt.Sprintf("Recovery(%d)", int(r))
}

// FirmwareUpgradeError aborts a firmware upgrade.
type FirmwareUpgradeError struct {
	Stage    Stage
	Address  uint16
	Result   byte
	Attempts int
	Recovery Recovery
	Err      error
}

// Error implements error.
func (e *FirmwareUpgradeError) Error() string {
	msg := fmt.Sprintf("firmware upgrade aborted at %v", e.Stage)
	switch e.Stage {
	case StageWrite:
		msg += fmt.Sprintf(" 0x%04x after %d attempts, result %v", e.Address, e.Attempts, WriteResult(e.Result))
	case StageVerify:
		msg += fmt.Sprintf(" 0x%04x", e.Address)
	case StageDecrypt:
		msg += fmt.Sprintf(", result %v", DecryptResult(e.Result))
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg + fmt.Sprintf(" (recovery: %v)", e.Recovery)
}

// Unwrap returns the cause.
func (e *FirmwareUpgradeError) Unwrap() error {
	return e.Err
}
