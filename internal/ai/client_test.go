package ai

import (
	"testing"

	"brandpulse/internal/engine"
	"brandpulse/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseVerdict(t *testing.T) {
	tests := []struct {
		answer  string
		want    bool
		wantErr bool
	}{
		{"YES", true, false},
		{"yes", true, false},
		{"Yes.", true, false},
		{"  yes!  ", true, false},
		{"NO", false, false},
		{"no, it is not", false, false},
		{"\"No\"", false, false},
		{"maybe", false, true},
		{"", false, true},
		{"the answer is yes", false, true},
	}
	for _, tt := range tests {
		got, err := ParseVerdict(tt.answer)
		if tt.wantErr {
			require.Error(t, err, "answer %q", tt.answer)
			continue
		}
		require.NoError(t, err, "answer %q", tt.answer)
		assert.Equal(t, tt.want, got, "answer %q", tt.answer)
	}
}

func TestVerdictKeyVariesByPromptAndContent(t *testing.T) {
	in := &model.Interaction{
		Platform: model.PlatformInstagram,
		Type:     model.InteractionComment,
		Content:  "great video",
	}

	k1 := verdictKey("Is this spam?", in)
	k2 := verdictKey("Is this a question?", in)
	assert.NotEqual(t, k1, k2)

	other := *in
	other.Content = "terrible video"
	assert.NotEqual(t, k1, verdictKey("Is this spam?", &other))

	assert.Equal(t, k1, verdictKey("Is this spam?", in))
}

func TestDraftUserPromptIncludesToneAndInstructions(t *testing.T) {
	req := engine.DraftRequest{
		Tone:         "friendly",
		Instructions: "mention the discount code",
		Content:      "how much is shipping?",
		AuthorHandle: "fan42",
		Platform:     model.PlatformTikTok,
	}

	prompt := draftUserPrompt(req)
	assert.Contains(t, prompt, "@fan42")
	assert.Contains(t, prompt, "tiktok")
	assert.Contains(t, prompt, "Tone: friendly")
	assert.Contains(t, prompt, "mention the discount code")

	bare := draftUserPrompt(engine.DraftRequest{Content: "hi", AuthorHandle: "x", Platform: model.PlatformTwitter})
	assert.NotContains(t, bare, "Tone:")
	assert.NotContains(t, bare, "Instructions:")
}
