package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"cadence/internal/domain/models"
	"cadence/internal/domain/repositories"
)

// UpdateExecutor applies edits to the session's persisted sequence and
// returns the complete updated artifact. It never writes; persistence
// happens downstream when the artifact is broadcast.
type UpdateExecutor struct {
	sequences repositories.SequenceRepository
	logger    *slog.Logger
}

// NewUpdateExecutor creates an UpdateExecutor.
func NewUpdateExecutor(sequences repositories.SequenceRepository, logger *slog.Logger) *UpdateExecutor {
	return &UpdateExecutor{
		sequences: sequences,
		logger:    logger,
	}
}

// Execute implements the Executor interface.
func (e *UpdateExecutor) Execute(ctx context.Context, scope Scope, input map[string]any) (any, error) {
	sequenceID := stringArg(input, "sequence_id", "")
	if sequenceID == "" {
		return nil, fmt.Errorf("sequence_id is required")
	}

	seq, err := e.sequences.GetBySession(ctx, scope.SessionID)
	if err != nil {
		return nil, fmt.Errorf("no sequence to update for this session: %w", err)
	}

	var preferredChannel string
	if raw, ok := input["preferred_channel"].(string); ok && raw != "" {
		preferredChannel = NormalizeChannel(raw, e.logger)
	}

	changeCount := 0
	switch changes := input["changes"].(type) {
	case map[string]any:
		if _, ok := changes["steps"]; ok {
			if err := e.replaceSequence(seq, changes); err != nil {
				return nil, err
			}
			changeCount = 1
		} else {
			e.logger.Warn("changes object has no steps list, ignoring", "sequence_id", seq.ID)
		}
	case []any:
		for _, raw := range changes {
			edit, ok := raw.(map[string]any)
			if !ok {
				e.logger.Warn("skipping malformed edit entry", "sequence_id", seq.ID)
				continue
			}
			if e.applyEdit(seq, edit) {
				changeCount++
			}
		}
	case nil:
		// add_step alone is a valid update
	default:
		e.logger.Warn("unsupported changes payload, ignoring", "sequence_id", seq.ID)
	}

	if boolArg(input, "add_step") {
		e.addStep(seq, preferredChannel)
		changeCount++
	}

	RepairSteps(seq, "", e.logger)

	e.logger.Info("updated sequence",
		"sequence_id", seq.ID,
		"session_id", scope.SessionID,
		"changes", changeCount,
	)

	return seq, nil
}

// replaceSequence swaps the whole sequence body, preserving only the
// artifact id and ownership. Fields the replacement omits are cleared,
// not inherited; repair at publish time resynthesizes a missing title.
func (e *UpdateExecutor) replaceSequence(seq *models.Sequence, body map[string]any) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode replacement: %w", err)
	}

	replacement := models.Sequence{}
	if err := json.Unmarshal(raw, &replacement); err != nil {
		return fmt.Errorf("replacement is not a valid sequence: %w", err)
	}

	seq.Title = replacement.Title
	seq.TargetRole = replacement.TargetRole
	seq.TargetIndustry = replacement.TargetIndustry
	seq.Steps = replacement.Steps
	return nil
}

// applyEdit applies one {step_id|step_index, field, value} edit.
// Edits targeting a non-existent step are no-ops.
func (e *UpdateExecutor) applyEdit(seq *models.Sequence, edit map[string]any) bool {
	step := e.findStep(seq, edit)
	if step == nil {
		e.logger.Warn("edit targets unknown step, skipping", "sequence_id", seq.ID, "edit", edit)
		return false
	}

	field := stringArg(edit, "field", "")
	value := edit["value"]

	switch field {
	case "message":
		step.Message, _ = value.(string)
	case "subject":
		step.Subject, _ = value.(string)
	case "timing":
		step.Timing, _ = value.(string)
	case "channel":
		if raw, ok := value.(string); ok {
			step.Channel = NormalizeChannel(raw, e.logger)
		}
	case "day":
		step.Day = intArg(edit, "value", step.Day)
	default:
		e.logger.Warn("edit targets unknown field, skipping", "sequence_id", seq.ID, "field", field)
		return false
	}

	return true
}

func (e *UpdateExecutor) findStep(seq *models.Sequence, edit map[string]any) *models.Step {
	if stepID := stringArg(edit, "step_id", ""); stepID != "" {
		for i := range seq.Steps {
			if seq.Steps[i].ID == stepID {
				return &seq.Steps[i]
			}
		}
		return nil
	}
	if idx := intArg(edit, "step_index", -1); idx >= 0 && idx < len(seq.Steps) {
		return &seq.Steps[idx]
	}
	return nil
}

// addStep appends one follow-up step at lastDay+3 on the preferred or
// dominant channel.
func (e *UpdateExecutor) addStep(seq *models.Sequence, preferredChannel string) {
	channel := preferredChannel
	if channel == "" {
		channel = seq.DominantChannel()
	}

	step := models.Step{
		ID:      newStepID(),
		Step:    len(seq.Steps) + 1,
		Day:     seq.LastDay() + 3,
		Channel: channel,
		Message: followupMessage(channel, seq.TargetRole, "our team", ""),
	}
	step.Timing = fmt.Sprintf("Day %d - Follow-up", step.Day)
	if channel == models.ChannelEmail {
		step.Subject = fmt.Sprintf("Follow up %d", step.Step)
	}

	seq.Steps = append(seq.Steps, step)
}
