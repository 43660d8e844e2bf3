package observability

import (
	"runtime/debug"
)

// RecoverPanic logs a recovered panic with its stack. Call it deferred:
//
//	defer observability.RecoverPanic(logger, "janitor prune")
//
// The panic is not re-raised.
func RecoverPanic(logger *Logger, where string) {
	if r := recover(); r != nil {
		logger.WithFields(map[string]interface{}{
			"panic":   r,
			"stack":   string(debug.Stack()),
			"context": where,
		}).Error("panic recovered")
	}
}
