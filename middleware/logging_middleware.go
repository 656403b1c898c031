package middleware

import (
	"context"

	"kataribe/logging"
)

// Logging records the direction, channel, and kind of every envelope that
// passes through the pipeline. It never fails the pipeline itself.
func Logging(logger logging.Logger) Func {
	return func(ctx context.Context, mc *Ctx) error {
		logger.Debug("envelope",
			"direction", string(mc.Direction),
			"kind", string(mc.Envelope.Kind),
			"ch", mc.Envelope.Ch,
			"id", mc.Envelope.ID,
		)
		return nil
	}
}
