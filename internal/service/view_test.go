package service

import (
	"context"
	"errors"
	"testing"

	"brandpulse/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubClassifier struct {
	verdict bool
	err     error
	prompts []string
}

func (c *stubClassifier) Classify(ctx context.Context, prompt string, in *model.Interaction) (bool, error) {
	c.prompts = append(c.prompts, prompt)
	return c.verdict, c.err
}

func newViewServiceForMatching(classifier *stubClassifier) *ViewService {
	return NewViewService(nil, classifier, nil, nil, zap.NewNop())
}

func sampleInteraction() *model.Interaction {
	return &model.Interaction{
		ID:             "int-42",
		Platform:       model.PlatformInstagram,
		Type:           model.InteractionComment,
		Content:        "where can I buy this?",
		AuthorHandle:   "@curious",
		FollowerCount:  2500,
		LikeCount:      18,
		AuthorVerified: true,
		Status:         model.StatusUnread,
		Tags:           []string{"lead"},
	}
}

func TestValidateViewInput(t *testing.T) {
	s := newViewServiceForMatching(&stubClassifier{})

	tests := []struct {
		name    string
		in      ViewInput
		wantErr string
	}{
		{
			name: "valid manual view",
			in:   ViewInput{Name: "Verified fans", Kind: model.ViewManual, Filter: `author_verified && like_count > 10`},
		},
		{
			name: "valid ai view",
			in:   ViewInput{Name: "Complaints", Kind: model.ViewAIPrompt, Prompt: "Is this a complaint?"},
		},
		{
			name:    "missing name",
			in:      ViewInput{Kind: model.ViewManual, Filter: `true`},
			wantErr: "name is required",
		},
		{
			name:    "manual without filter",
			in:      ViewInput{Name: "Empty", Kind: model.ViewManual},
			wantErr: "require a filter",
		},
		{
			name:    "ai without prompt",
			in:      ViewInput{Name: "Empty", Kind: model.ViewAIPrompt},
			wantErr: "require a prompt",
		},
		{
			name:    "unknown kind",
			in:      ViewInput{Name: "Odd", Kind: "smart"},
			wantErr: "invalid view kind",
		},
		{
			name:    "filter referencing unknown field",
			in:      ViewInput{Name: "Broken", Kind: model.ViewManual, Filter: `sentiment == "angry"`},
			wantErr: "invalid filter expression",
		},
		{
			name:    "filter that is not boolean",
			in:      ViewInput{Name: "Broken", Kind: model.ViewManual, Filter: `follower_count + 1`},
			wantErr: "invalid filter expression",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.validateInput(tt.in)
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				assert.ErrorContains(t, err, tt.wantErr)
			}
		})
	}
}

func TestCompileFilterCachesPrograms(t *testing.T) {
	s := newViewServiceForMatching(&stubClassifier{})

	first, err := s.compileFilter(`platform == "instagram"`)
	require.NoError(t, err)
	second, err := s.compileFilter(`platform == "instagram"`)
	require.NoError(t, err)
	assert.Same(t, first, second)
}

func TestMatchesViewManualFilter(t *testing.T) {
	s := newViewServiceForMatching(&stubClassifier{})
	in := sampleInteraction()

	view := &model.View{ID: "v1", Kind: model.ViewManual,
		Filter: `platform == "instagram" && like_count > 10`}
	matched, err := s.MatchesView(context.Background(), view, in)
	require.NoError(t, err)
	assert.True(t, matched)

	view.Filter = `follower_count > 100000`
	matched, err = s.MatchesView(context.Background(), view, in)
	require.NoError(t, err)
	assert.False(t, matched)
}

func TestMatchesViewManualFilterOnTags(t *testing.T) {
	s := newViewServiceForMatching(&stubClassifier{})
	view := &model.View{ID: "v1", Kind: model.ViewManual, Filter: `"lead" in tags`}

	matched, err := s.MatchesView(context.Background(), view, sampleInteraction())
	require.NoError(t, err)
	assert.True(t, matched)
}

func TestMatchesViewDelegatesToClassifier(t *testing.T) {
	classifier := &stubClassifier{verdict: true}
	s := newViewServiceForMatching(classifier)

	view := &model.View{ID: "v2", Kind: model.ViewAIPrompt, Prompt: "Is this a buying question?"}
	matched, err := s.MatchesView(context.Background(), view, sampleInteraction())
	require.NoError(t, err)
	assert.True(t, matched)
	require.Len(t, classifier.prompts, 1)
	assert.Equal(t, "Is this a buying question?", classifier.prompts[0])
}

func TestMatchesViewClassifierErrorSurfaces(t *testing.T) {
	classifier := &stubClassifier{err: errors.New("upstream timeout")}
	s := newViewServiceForMatching(classifier)

	view := &model.View{ID: "v2", Kind: model.ViewAIPrompt, Prompt: "Is this spam?"}
	_, err := s.MatchesView(context.Background(), view, sampleInteraction())
	assert.ErrorContains(t, err, "upstream timeout")
}

func TestMatchesViewUnknownKind(t *testing.T) {
	s := newViewServiceForMatching(&stubClassifier{})
	view := &model.View{ID: "v3", Kind: "smart"}
	_, err := s.MatchesView(context.Background(), view, sampleInteraction())
	assert.ErrorContains(t, err, "unknown view kind")
}

func TestReassignView(t *testing.T) {
	t.Skip("Requires test database setup")
}
