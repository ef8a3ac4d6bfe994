package logging

import (
	"time"

	"go.uber.org/zap"
)

// GenerationFields returns zap fields describing one generation run.
// Used by the dispatcher when logging request start and completion.
//
// Example:
//
//	logger.Info("generation complete",
//		logging.GenerationFields("flux-schnell", "cuda", "bf16", 42, 4, elapsed)...)
func GenerationFields(model, device, precision string, seed int64, steps int, elapsed time.Duration) []zap.Field {
	return []zap.Field{
		zap.String("model", model),
		zap.String("device", device),
		zap.String("precision", precision),
		zap.Int64("seed", seed),
		zap.Int("steps", steps),
		zap.Duration("elapsed", elapsed),
	}
}

// ModelLoadFields returns zap fields describing a model load.
func ModelLoadFields(model, device, precision string, cached bool, elapsed time.Duration) []zap.Field {
	return []zap.Field{
		zap.String("model", model),
		zap.String("device", device),
		zap.String("precision", precision),
		zap.Bool("cached", cached),
		zap.Duration("elapsed", elapsed),
	}
}
