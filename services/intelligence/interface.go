package intelligence

import (
	"context"
	"regexp"
	"strings"
)

// Completer is the opaque model capability: one prompt in, free text
// out. Implementations must honor ctx cancellation so callers can
// bound the network call.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

var thinkTagRe = regexp.MustCompile(`(?is)<think>.*?</think>`)

// StripThinkTags removes reasoning-model <think> blocks from output
// before it reaches the rest of the pipeline.
func StripThinkTags(text string) string {
	if text == "" {
		return text
	}
	text = thinkTagRe.ReplaceAllString(text, "")
	for strings.Contains(text, "\n\n\n") {
		text = strings.ReplaceAll(text, "\n\n\n", "\n\n")
	}
	return strings.TrimSpace(text)
}
