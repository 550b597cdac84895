package models

import (
	"strconv"
	"time"
)

// ActionError is the bot action tag the widget records when the bot failed to answer.
const ActionError = "error"

// LogMetadata holds the optional per-interaction measurements.
// Nil pointers mean the measurement is absent; accessors return the zero default.
type LogMetadata struct {
	ResponseTimeMs *int64 `json:"response_time_ms,omitempty"`
	MessageCount   int    `json:"message_count,omitempty"`
	HasAction      bool   `json:"has_action,omitempty"`
	AppVersion     string `json:"app_version,omitempty"`
}

// ResponseTime returns the response time in milliseconds and whether it was recorded.
func (m LogMetadata) ResponseTime() (int64, bool) {
	if m.ResponseTimeMs == nil {
		return 0, false
	}
	return *m.ResponseTimeMs, true
}

// InteractionLog is one user message paired with the bot's reply, the unit the
// statistics engine counts.
type InteractionLog struct {
	ID              string      `json:"id"`
	SessionID       string      `json:"session_id"`
	UserMessage     string      `json:"user_message"`
	BotResponse     string      `json:"bot_response"`
	Timestamp       time.Time   `json:"timestamp"`
	SessionDuration float64     `json:"session_duration"` // seconds
	Resolved        bool        `json:"resolved"`
	Rating          int         `json:"rating"` // 0 = absent
	Category        string      `json:"category"`
	Error           bool        `json:"error"`
	Platform        string      `json:"platform"`
	Metadata        LogMetadata `json:"metadata"`
}

// InteractionLogs flattens the session into one log per user message.
// Each user message is paired with the bot message immediately after it.
func (s EnrichedSession) InteractionLogs() []InteractionLog {
	var logs []InteractionLog

	resolved := s.Feedback.Resolved != nil && *s.Feedback.Resolved
	duration := s.Duration().Seconds()
	msgCount := s.MessageCount
	if msgCount == 0 {
		msgCount = len(s.Messages)
	}

	for i, m := range s.Messages {
		if !m.IsUser {
			continue
		}

		var reply *ChatMessage
		if i+1 < len(s.Messages) && !s.Messages[i+1].IsUser {
			reply = &s.Messages[i+1]
		}

		platform := s.Platform
		if platform == "" {
			platform = m.Platform
		}

		log := InteractionLog{
			ID:              s.ID + "-" + strconv.Itoa(i),
			SessionID:       s.ID,
			UserMessage:     m.Content,
			Timestamp:       m.Timestamp,
			SessionDuration: duration,
			Resolved:        resolved,
			Rating:          s.Feedback.Rating,
			Category:        s.Feedback.Category,
			Platform:        platform,
			Metadata: LogMetadata{
				MessageCount: msgCount,
				AppVersion:   s.App.AppVersion,
			},
		}

		if reply == nil {
			log.Error = true
		} else {
			log.BotResponse = reply.Content
			log.Error = reply.Action == ActionError
			log.Metadata.HasAction = reply.HasAction || reply.Action != ""
			if log.Category == "" && reply.Action != ActionError {
				log.Category = reply.Action
			}
			if !m.Timestamp.IsZero() && !reply.Timestamp.IsZero() && !reply.Timestamp.Before(m.Timestamp) {
				ms := reply.Timestamp.Sub(m.Timestamp).Milliseconds()
				log.Metadata.ResponseTimeMs = &ms
			}
		}

		logs = append(logs, log)
	}

	return logs
}

// FlattenSessions flattens every session in order.
func FlattenSessions(sessions []EnrichedSession) []InteractionLog {
	var logs []InteractionLog
	for _, s := range sessions {
		logs = append(logs, s.InteractionLogs()...)
	}
	return logs
}
