package streams

import "github.com/pipeless-ai/pipeless/models"

// NextTargetState is the restart-policy transition table: given the
// policy bound to an entry and why its Manager finished, what
// target_state the Dispatcher should set.
func NextTargetState(policy RestartPolicy, reason models.FinishReason) TargetState {
	switch policy {
	case RestartNever:
		switch reason {
		case models.ReasonCompleted:
			return StateCompleted
		case models.ReasonError:
			return StateError
		default: // Updated
			return StateRunning
		}
	case RestartAlways:
		return StateRunning
	case RestartOnError:
		switch reason {
		case models.ReasonError:
			return StateRunning
		case models.ReasonCompleted:
			return StateError
		default: // Updated
			return StateRunning
		}
	case RestartOnEos:
		switch reason {
		case models.ReasonCompleted:
			return StateRunning
		case models.ReasonError:
			return StateCompleted
		default: // Updated
			return StateRunning
		}
	default:
		return StateError
	}
}
