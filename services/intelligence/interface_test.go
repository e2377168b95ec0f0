package intelligence

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStripThinkTags(t *testing.T) {
	t.Run("removes a single block", func(t *testing.T) {
		out := StripThinkTags("<think>weighing the options</think>Hello!")
		require.Equal(t, "Hello!", out)
	})

	t.Run("removes multiple blocks and collapses blank runs", func(t *testing.T) {
		out := StripThinkTags("<think>a</think>\n\n\n<think>b</think>\n\nReply")
		require.Equal(t, "Reply", out)
	})

	t.Run("handles multiline content case-insensitively", func(t *testing.T) {
		out := StripThinkTags("<THINK>line one\nline two</THINK>Done")
		require.Equal(t, "Done", out)
	})

	t.Run("leaves plain text alone", func(t *testing.T) {
		require.Equal(t, "no tags here", StripThinkTags("no tags here"))
		require.Equal(t, "", StripThinkTags(""))
	})

	t.Run("unclosed tag is kept", func(t *testing.T) {
		require.Equal(t, "<think>never closed", StripThinkTags("<think>never closed"))
	})
}
