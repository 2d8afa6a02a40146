package tools

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"cadence/internal/domain/models"
)

const (
	minSteps     = 1
	maxSteps     = 8
	defaultSteps = 3
)

// stepDays is the default day schedule. Steps past the end continue at
// one-week intervals.
var stepDays = []int{0, 3, 7, 14, 21}

// GenerateExecutor builds a complete outreach sequence from the model's
// arguments. It never returns an error: any internal failure degrades to
// a one-step error sequence so the caller always receives a structurally
// valid artifact.
type GenerateExecutor struct {
	logger *slog.Logger
}

// NewGenerateExecutor creates a GenerateExecutor.
func NewGenerateExecutor(logger *slog.Logger) *GenerateExecutor {
	return &GenerateExecutor{logger: logger}
}

// Execute implements the Executor interface.
func (e *GenerateExecutor) Execute(ctx context.Context, scope Scope, input map[string]any) (result any, err error) {
	targetRole := stringArg(input, "target_role", "Software Developer")
	companyName := stringArg(input, "company_name", "Your Company")
	industry := stringArg(input, "industry", "Technology")
	tone := stringArg(input, "tone", "Professional")
	valueProp := stringArg(input, "value_proposition", "")

	defer func() {
		if rec := recover(); rec != nil {
			e.logger.Error("sequence generation failed", "panic", rec, "session_id", scope.SessionID)
			result = errorSequence(scope, targetRole, industry, fmt.Errorf("%v", rec))
			err = nil
		}
	}()

	numSteps := intArg(input, "num_steps", defaultSteps)
	if numSteps < minSteps {
		numSteps = defaultSteps
	}
	if numSteps > maxSteps {
		numSteps = maxSteps
	}

	// Absent an explicit channel request every step is Email.
	channel := models.ChannelEmail
	if raw, ok := input["preferred_channel"].(string); ok && raw != "" {
		channel = NormalizeChannel(raw, e.logger)
	}

	e.logger.Info("generating sequence",
		"session_id", scope.SessionID,
		"target_role", targetRole,
		"industry", industry,
		"num_steps", numSteps,
		"channel", channel,
	)

	seq := &models.Sequence{
		ID:             newSequenceID(),
		SessionID:      scope.SessionID,
		UserID:         scope.UserID,
		Title:          fmt.Sprintf("%s Recruitment for %s", targetRole, companyName),
		TargetRole:     targetRole,
		TargetIndustry: industry,
		Steps:          make([]models.Step, 0, numSteps),
	}

	for i := 0; i < numSteps; i++ {
		step := models.Step{
			ID:      newStepID(),
			Step:    i + 1,
			Day:     dayForStep(i),
			Channel: channel,
			Message: stepMessage(i, channel, targetRole, companyName, industry, tone, valueProp),
		}
		if i == 0 {
			step.Timing = "Initial Outreach"
		} else {
			step.Timing = fmt.Sprintf("Day %d - Follow-up", step.Day)
		}
		if channel == models.ChannelEmail {
			step.Subject = stepSubject(i, targetRole, companyName)
		}
		seq.Steps = append(seq.Steps, step)
	}

	RepairSteps(seq, channel, e.logger)
	return seq, nil
}

// dayForStep returns the day offset for the i-th step (0-based).
func dayForStep(i int) int {
	if i < len(stepDays) {
		return stepDays[i]
	}
	return stepDays[len(stepDays)-1] + (i-len(stepDays)+1)*7
}

// RepairSteps is the post-generation validation pass. It guarantees
// every step has id, sequential 1-based position, day, channel, message
// and timing, forces the requested channel when one was supplied, and
// synthesizes subjects for Email steps. A sequence that ends up with
// zero steps gets one default step.
func RepairSteps(seq *models.Sequence, forcedChannel string, logger *slog.Logger) {
	if len(seq.Steps) == 0 {
		if logger != nil {
			logger.Warn("sequence has no steps, synthesizing a default step", "sequence_id", seq.ID)
		}
		seq.Steps = []models.Step{defaultStep(seq.TargetRole)}
	}

	for i := range seq.Steps {
		step := &seq.Steps[i]
		if step.ID == "" {
			step.ID = newStepID()
		}
		step.Step = i + 1
		if step.Day < 0 {
			step.Day = 0
		}
		if forcedChannel != "" && step.Channel != forcedChannel {
			if logger != nil {
				logger.Warn("repairing step channel drift",
					"step_id", step.ID, "got", step.Channel, "want", forcedChannel)
			}
			step.Channel = forcedChannel
		}
		if step.Channel == "" {
			step.Channel = models.ChannelEmail
		}
		if step.Message == "" {
			step.Message = "Enter your message here..."
		}
		if step.Timing == "" {
			step.Timing = fmt.Sprintf("Day %d", step.Day)
		}
		if step.Channel == models.ChannelEmail {
			if step.Subject == "" {
				step.Subject = fmt.Sprintf("Follow up %d", i+1)
			}
		} else {
			// Subject is an Email convention; stale subjects from a
			// channel switch are dropped.
			step.Subject = ""
		}
	}

	// Day offsets must not decrease across steps.
	for i := 1; i < len(seq.Steps); i++ {
		if seq.Steps[i].Day < seq.Steps[i-1].Day {
			seq.Steps[i].Day = seq.Steps[i-1].Day
		}
	}
}

func defaultStep(targetRole string) models.Step {
	return models.Step{
		ID:      newStepID(),
		Step:    1,
		Day:     0,
		Channel: models.ChannelEmail,
		Subject: fmt.Sprintf("Opportunity for %ss", targetRole),
		Message: fmt.Sprintf("Hi [Name],\n\nI hope this message finds you well! I'm reaching out because we're looking for talented %ss to join our team.\n\nWould you be open to discussing this opportunity?\n\nBest regards,\n[Your Name]", targetRole),
		Timing:  "Initial Outreach",
	}
}

// errorSequence is the failure-policy artifact: structurally valid, one
// step, the failure reported in its message.
func errorSequence(scope Scope, targetRole, industry string, cause error) *models.Sequence {
	return &models.Sequence{
		ID:             "error_sequence",
		SessionID:      scope.SessionID,
		UserID:         scope.UserID,
		Title:          fmt.Sprintf("Error: %v", cause),
		TargetRole:     targetRole,
		TargetIndustry: industry,
		Steps: []models.Step{{
			ID:      "error_step",
			Step:    1,
			Day:     0,
			Channel: models.ChannelEmail,
			Subject: "Error generating sequence",
			Message: fmt.Sprintf("There was an error generating the sequence: %v. Please try again with different parameters.", cause),
			Timing:  "Error",
		}},
	}
}

func newSequenceID() string {
	return "seq_" + shortID()
}

func newStepID() string {
	return "step_" + shortID()
}

func shortID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

// stepSubject returns the Email subject line for the i-th step (0-based).
func stepSubject(i int, targetRole, companyName string) string {
	switch i {
	case 0:
		return fmt.Sprintf("Exciting opportunity for %ss at %s", targetRole, companyName)
	case 1:
		return fmt.Sprintf("Following up: %s opportunity at %s", targetRole, companyName)
	default:
		return fmt.Sprintf("One more thing about %s", companyName)
	}
}

// stepMessage renders the templated copy for the i-th step (0-based).
// Step 1 is always framed as an opener, later steps as follow-ups.
func stepMessage(i int, channel, targetRole, companyName, industry, tone, valueProp string) string {
	if i == 0 {
		return openerMessage(channel, targetRole, companyName, industry, valueProp)
	}
	return followupMessage(channel, targetRole, companyName, valueProp)
}

func openerMessage(channel, targetRole, companyName, industry, valueProp string) string {
	vp := ""
	if valueProp != "" {
		vp = " and " + valueProp
	}
	switch channel {
	case models.ChannelLinkedIn:
		return fmt.Sprintf("Hi {first_name},\n\nI'm {recruiter_name} from %s. I noticed your experience in %s and thought you might be interested in our %s position.%s\n\nWould you be open to learning more about this role?\n\nBest,\n{recruiter_name}", companyName, industry, targetRole, vp)
	case models.ChannelPhone:
		return fmt.Sprintf("Hello {first_name}, this is {recruiter_name} from %s.\n\nI'm calling because we're looking for a %s to join our team%s. Do you have a few minutes to chat about it now, or would you prefer to schedule a time later this week?", companyName, targetRole, vp)
	case models.ChannelText:
		return fmt.Sprintf("Hi {first_name}, this is {recruiter_name} from %s. We have a %s opening I think you'd be great for%s. Open to a quick chat?", companyName, targetRole, vp)
	default: // Email
		return fmt.Sprintf("Hi {first_name},\n\nI'm {recruiter_name} from %s, and I came across your profile. Your experience in %s caught my attention, particularly your background as a %s.\n\nWe're looking for talented %ss to join our team%s.\n\nWould you be open to a quick chat about this opportunity? I'd be happy to share more details about the role and answer any questions.\n\nBest regards,\n{recruiter_name}\n%s", companyName, industry, targetRole, targetRole, vp, companyName)
	}
}

func followupMessage(channel, targetRole, companyName, valueProp string) string {
	highlight := valueProp
	if highlight == "" {
		highlight = "Competitive compensation and benefits"
	}
	switch channel {
	case models.ChannelLinkedIn:
		return fmt.Sprintf("Hi {first_name},\n\nJust following up on my previous message about the %s role at %s.\n\nWe're building an exceptional team, and your background would be valuable to us. I'd love to share more details if you're interested.\n\n{recruiter_name}", targetRole, companyName)
	case models.ChannelPhone:
		return fmt.Sprintf("Hello {first_name}, this is {recruiter_name} from %s.\n\nI reached out earlier about a %s position we're looking to fill. I'm calling to see if you might be interested in learning more about this opportunity.", companyName, targetRole)
	case models.ChannelText:
		return fmt.Sprintf("Hi {first_name}, following up on the %s opportunity at %s. Happy to share details whenever works for you!", targetRole, companyName)
	default: // Email
		return fmt.Sprintf("Hi {first_name},\n\nI wanted to follow up on my previous message about the %s position at %s.\n\nSome highlights about the role:\n- %s\n- Collaborative team environment with growth opportunities\n- Chance to work on cutting-edge projects in our field\n\nI'd love to discuss this opportunity with you. Are you available for a quick 15-minute call this week?\n\nLooking forward to connecting,\n{recruiter_name}\n%s", targetRole, companyName, highlight, companyName)
	}
}
