package models

import (
	"time"
)

// Outreach channels. Every step channel is normalized to one of these
// before persistence.
const (
	ChannelEmail    = "Email"
	ChannelLinkedIn = "LinkedIn"
	ChannelPhone    = "Phone"
	ChannelText     = "Text"
)

// Sequence is the structured outreach plan generated for a session.
// A session owns at most one current sequence; regeneration overwrites
// it wholesale, incremental updates patch fields in place.
type Sequence struct {
	ID             string    `json:"id"`
	SessionID      string    `json:"session_id"`
	UserID         string    `json:"user_id"`
	Title          string    `json:"title"`
	TargetRole     string    `json:"target_role"`
	TargetIndustry string    `json:"target_industry"`
	Steps          []Step    `json:"steps"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Step is one outreach touch-point. Subject is present for Email steps
// and omitted for other channels.
type Step struct {
	ID      string `json:"id"`
	Step    int    `json:"step"`
	Day     int    `json:"day"`
	Channel string `json:"channel"`
	Subject string `json:"subject,omitempty"`
	Message string `json:"message"`
	Timing  string `json:"timing,omitempty"`
}

// DominantChannel returns the most frequent channel across steps,
// defaulting to Email for an empty sequence. Ties resolve to the channel
// seen first.
func (s *Sequence) DominantChannel() string {
	if len(s.Steps) == 0 {
		return ChannelEmail
	}
	counts := make(map[string]int, 4)
	best := s.Steps[0].Channel
	for _, step := range s.Steps {
		counts[step.Channel]++
		if counts[step.Channel] > counts[best] {
			best = step.Channel
		}
	}
	return best
}

// LastDay returns the day offset of the final step, or 0 when empty.
func (s *Sequence) LastDay() int {
	if len(s.Steps) == 0 {
		return 0
	}
	return s.Steps[len(s.Steps)-1].Day
}
