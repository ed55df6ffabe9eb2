package streams

import (
	"fmt"
	"strings"
)

// RestartPolicy governs what happens to a Stream Entry's target_state when
// its Manager finishes.
type RestartPolicy int

const (
	RestartNever RestartPolicy = iota
	RestartAlways
	RestartOnError
	RestartOnEos
)

func (p RestartPolicy) String() string {
	switch p {
	case RestartNever:
		return "never"
	case RestartAlways:
		return "always"
	case RestartOnError:
		return "on_error"
	case RestartOnEos:
		return "on_eos"
	default:
		return "unknown"
	}
}

// ParseRestartPolicy accepts case- and underscore/hyphen-insensitive
// spellings of never/always/on_error/on_eos. Anything else is rejected —
// unknown restart policies must fail the stream mutation, not default
// silently.
func ParseRestartPolicy(s string) (RestartPolicy, error) {
	normalized := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_")
	switch normalized {
	case "never":
		return RestartNever, nil
	case "always":
		return RestartAlways, nil
	case "on_error", "onerror":
		return RestartOnError, nil
	case "on_eos", "oneos":
		return RestartOnEos, nil
	default:
		return 0, fmt.Errorf("unknown restart policy %q", s)
	}
}

// TargetState is the Dispatcher-owned lifecycle state of a Stream Entry.
type TargetState int

const (
	StateRunning TargetState = iota
	StateCompleted
	StateError
)

func (s TargetState) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// isFileURI reports whether uri uses a file-like scheme, forcing a Never
// restart policy per the Stream Entry contract.
func isFileURI(uri string) bool {
	return strings.HasPrefix(uri, "file://")
}
