package engine

import "github.com/roach88/tasktree/internal/model"

// IsNotFound reports whether err is a NOT_FOUND failure.
// Uses errors.As to handle wrapped errors.
func IsNotFound(err error) bool {
	return model.IsCode(err, model.CodeNotFound)
}

// IsConflict reports whether err is a CONCURRENT_MODIFICATION failure.
// The whole operation was rolled back and may be retried by the caller.
func IsConflict(err error) bool {
	return model.IsCode(err, model.CodeConcurrentModification)
}

// IsBlockedError reports whether err is a DEPENDENCY_NOT_SATISFIED failure.
func IsBlockedError(err error) bool {
	return model.IsCode(err, model.CodeDependencyNotSatisfied)
}

// IsCycleError reports whether err is a CYCLE_DETECTED failure.
func IsCycleError(err error) bool {
	return model.IsCode(err, model.CodeCycleDetected)
}

// IsValidationError reports whether err was raised by input validation before
// any mutation.
func IsValidationError(err error) bool {
	switch model.CodeOf(err) {
	case model.CodeNotFound, model.CodeDuplicateKey, model.CodeInvalidParent,
		model.CodeCycleDetected, model.CodeDuplicateDependency,
		model.CodeDependencyNotSatisfied, model.CodeInvalidArgument,
		model.CodeExternalReference:
		return true
	}
	return false
}
