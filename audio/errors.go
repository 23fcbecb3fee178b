package audio

import "fmt"

// ConfigurationError reports a mood or module key missing from the
// configuration table. The engine's state is unchanged when one is returned.
type ConfigurationError struct {
	Key string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("audio: unknown configuration key %q", e.Key)
}

// SubsystemUnavailableError means the underlying audio subsystem could not be
// created or has been closed. It is fatal to the whole engine: every further
// public call becomes a no-op.
type SubsystemUnavailableError struct {
	Reason string
}

func (e *SubsystemUnavailableError) Error() string {
	return "audio: subsystem unavailable: " + e.Reason
}

// ModuleError wraps a failure inside a single synthesizer module. Module
// errors never propagate into the coordinator's control flow; they are
// counted and the module is dropped after repeated failures.
type ModuleError struct {
	Key string
	Op  string
	Err error
}

func (e *ModuleError) Error() string {
	return fmt.Sprintf("audio: module %q %s: %v", e.Key, e.Op, e.Err)
}

func (e *ModuleError) Unwrap() error {
	return e.Err
}
