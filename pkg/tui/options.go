package tui

import (
	"go.uber.org/zap"

	"github.com/goliatone/go-formstate/pkg/feedback"
	"github.com/goliatone/go-formstate/pkg/form"
)

// Theme captures optional prefixes applied to printed messages.
type Theme struct {
	InfoPrefix  string
	ErrorPrefix string
}

// Option configures a Session.
type Option func(*Session)

// WithPromptDriver overrides the prompt driver.
func WithPromptDriver(driver PromptDriver) Option {
	return func(s *Session) {
		if driver != nil {
			s.driver = driver
		}
	}
}

// WithTransport submits the collected values through t. Without one the
// session only validates and returns the payload.
func WithTransport(t form.Transport) Option {
	return func(s *Session) {
		s.transport = t
	}
}

// WithMessages replaces the templates used for validation messages.
func WithMessages(messages *feedback.Messages) Option {
	return func(s *Session) {
		if messages != nil {
			s.messages = messages
		}
	}
}

// WithFeedback adds a sink that receives every signal besides the
// session's own message board.
func WithFeedback(sink feedback.Sink) Option {
	return func(s *Session) {
		s.extra = sink
	}
}

// WithLogger sets the logger handed to the registry.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithTheme applies message prefixes.
func WithTheme(theme Theme) Option {
	return func(s *Session) {
		s.theme = theme
	}
}

// WithMaxRounds caps how often rejected fields are asked again.
func WithMaxRounds(n int) Option {
	return func(s *Session) {
		if n > 0 {
			s.maxRounds = n
		}
	}
}
