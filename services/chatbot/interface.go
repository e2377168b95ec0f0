package chatbot

import (
	"context"
	"fmt"
	"time"

	bookinglogRepo "beatbook/database/repository/bookinglog"
	"beatbook/services/dateparse"
	"beatbook/services/extractor"
	"beatbook/services/intelligence"
	"beatbook/services/notification"
	"beatbook/services/session"
	"beatbook/utils"
)

// InboundMessage is what the channel adapter delivers for one turn.
type InboundMessage struct {
	SessionID string
	Name      string
	Handle    string
	Text      string
}

// ChatbotService processes conversation turns.
type ChatbotService interface {
	ProcessMessage(ctx context.Context, msg InboundMessage) (string, error)
	ClearSession(ctx context.Context, sessionID string) error
}

// Options carries the tunable knobs for the turn loop.
type Options struct {
	Profile             BusinessProfile
	ExtractionCadence   int
	SuggestionFrequency int
	SanitizerMaxLength  int
}

// DefaultChatbotService is the production implementation.
type DefaultChatbotService struct {
	sessions  *session.Manager
	completer intelligence.Completer
	validator *validationExecutor
	actions   *actionExecutor
	extractor *extractor.Extractor
	sanitizer *Sanitizer
	notifier  notification.Notifier
	parser    *dateparse.Parser
	opts      Options
}

func NewDefaultChatbotService(
	sessions *session.Manager,
	completer intelligence.Completer,
	parser *dateparse.Parser,
	ext *extractor.Extractor,
	archive bookinglogRepo.BookingLogRepository,
	sink RowAppender,
	notifier notification.Notifier,
	opts Options,
) (*DefaultChatbotService, error) {
	if sessions == nil || completer == nil || parser == nil || ext == nil || archive == nil || sink == nil {
		return nil, fmt.Errorf("chatbot service initialization error: missing dependency")
	}
	logger := utils.GetLogger()
	return &DefaultChatbotService{
		sessions:  sessions,
		completer: completer,
		validator: &validationExecutor{parser: parser, logger: logger},
		actions: &actionExecutor{
			sessions:  sessions,
			extractor: ext,
			archive:   archive,
			sink:      sink,
			logger:    logger,
			now:       time.Now,
		},
		extractor: ext,
		sanitizer: NewSanitizer(opts.SanitizerMaxLength),
		notifier:  notifier,
		parser:    parser,
		opts:      opts,
	}, nil
}
