package tools

import (
	"log/slog"
	"strings"

	"cadence/internal/domain/models"
)

// channelSynonyms maps lowercased channel spellings to canonical names.
var channelSynonyms = map[string]string{
	"email":     models.ChannelEmail,
	"e-mail":    models.ChannelEmail,
	"mail":      models.ChannelEmail,
	"linkedin":  models.ChannelLinkedIn,
	"linked-in": models.ChannelLinkedIn,
	"li":        models.ChannelLinkedIn,
	"inmail":    models.ChannelLinkedIn,
	"phone":     models.ChannelPhone,
	"call":      models.ChannelPhone,
	"voice":     models.ChannelPhone,
	"cold call": models.ChannelPhone,
	"text":      models.ChannelText,
	"sms":       models.ChannelText,
	"message":   models.ChannelText,
}

// NormalizeChannel maps a free-form channel name onto a canonical one.
// Unrecognized values fall back to Email with a logged warning, never an
// error.
func NormalizeChannel(raw string, logger *slog.Logger) string {
	key := strings.ToLower(strings.TrimSpace(raw))
	if canonical, ok := channelSynonyms[key]; ok {
		return canonical
	}
	if logger != nil {
		logger.Warn("unrecognized channel, defaulting to Email", "channel", raw)
	}
	return models.ChannelEmail
}
