package relationships

import (
	"context"
	"fmt"

	"github.com/pairmesh/backend/internal/logging"
)

// confirmStep is one named side effect in the friendship confirmation
// sequence. Steps run strictly in order: the conversation is created before
// its memberships so a conversation never exists without members on the
// happy path, and the status flips to friends only after both memberships
// exist.
//
// The sequence is NOT atomic and performs no compensation: a failure part
// way through leaves the earlier side effects in place (an orphaned
// conversation, possibly one membership) and surfaces the step error to the
// caller. Retrying is not guaranteed to be idempotent. This is a documented
// limitation of the design, kept visible here rather than buried in inline
// calls.
type confirmStep struct {
	name string
	run  func(ctx context.Context) error
}

// runConfirmSequence executes the steps under a logging span, stopping at
// the first failure.
func runConfirmSequence(ctx context.Context, relationshipID string, steps []confirmStep) error {
	ctx, span := logging.StartSpan(ctx, "confirm_friendship")
	defer span.End()

	logger := logging.FromContext(ctx)
	for _, step := range steps {
		if err := step.run(ctx); err != nil {
			logger.Error("confirm friendship step failed",
				"relationshipId", relationshipID, "step", step.name, "error", err)
			return fmt.Errorf("%s: %w", step.name, err)
		}
		logger.Debug("confirm friendship step completed",
			"relationshipId", relationshipID, "step", step.name)
	}

	return nil
}
