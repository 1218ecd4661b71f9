package engine

import (
	"context"
	"errors"
	"testing"

	"brandpulse/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeStore records interaction state changes in memory
type fakeStore struct {
	interactions map[string]*model.Interaction
	dispatches   []*model.Dispatch
	statusSets   []model.InteractionStatus
	pendingText  string
	pendingFrom  *string
	tagsAdded    []string
	priority     string
}

func newFakeStore(ins ...*model.Interaction) *fakeStore {
	s := &fakeStore{interactions: make(map[string]*model.Interaction)}
	for _, in := range ins {
		s.interactions[in.ID] = in
	}
	return s
}

func (s *fakeStore) GetInteraction(ctx context.Context, id string) (*model.Interaction, error) {
	in, ok := s.interactions[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return in, nil
}

func (s *fakeStore) UpdateInteractionStatus(ctx context.Context, id string, status, prev model.InteractionStatus) error {
	s.statusSets = append(s.statusSets, status)
	if in, ok := s.interactions[id]; ok {
		in.PrevStatus = prev
		in.Status = status
	}
	return nil
}

func (s *fakeStore) SetPendingResponse(ctx context.Context, id, text string, workflowID *string) error {
	s.pendingText = text
	s.pendingFrom = workflowID
	if in, ok := s.interactions[id]; ok {
		in.PrevStatus = in.Status
		in.Status = model.StatusAwaitingApproval
		in.PendingResponse = &model.PendingResponse{Text: text, WorkflowID: workflowID}
	}
	return nil
}

func (s *fakeStore) AddInteractionTags(ctx context.Context, id string, tags []string) error {
	s.tagsAdded = append(s.tagsAdded, tags...)
	return nil
}

func (s *fakeStore) SetReviewPriority(ctx context.Context, id, priority string) error {
	s.priority = priority
	return nil
}

func (s *fakeStore) RecordDispatch(ctx context.Context, d *model.Dispatch) error {
	s.dispatches = append(s.dispatches, d)
	return nil
}

// fakePublisher records platform side effects and can be told to fail
type fakePublisher struct {
	replies []string
	deletes int
	blocks  int
	fail    error
}

func (p *fakePublisher) Reply(ctx context.Context, in *model.Interaction, text string) error {
	if p.fail != nil {
		return p.fail
	}
	p.replies = append(p.replies, text)
	return nil
}

func (p *fakePublisher) DeleteComment(ctx context.Context, in *model.Interaction) error {
	if p.fail != nil {
		return p.fail
	}
	p.deletes++
	return nil
}

func (p *fakePublisher) BlockAuthor(ctx context.Context, in *model.Interaction) error {
	if p.fail != nil {
		return p.fail
	}
	p.blocks++
	return nil
}

type fakeGenerator struct {
	draft string
	fail  error
}

func (g *fakeGenerator) Draft(ctx context.Context, req DraftRequest) (string, error) {
	if g.fail != nil {
		return "", g.fail
	}
	return g.draft, nil
}

// fakeClassifier answers per prompt and counts calls
type fakeClassifier struct {
	answers map[string]bool
	fail    error
	calls   int
}

func (c *fakeClassifier) Classify(ctx context.Context, prompt string, in *model.Interaction) (bool, error) {
	c.calls++
	if c.fail != nil {
		return false, c.fail
	}
	return c.answers[prompt], nil
}

type staticRules struct {
	set RuleSet
}

func (r *staticRules) Snapshot(ctx context.Context) (*RuleSet, error) {
	return &r.set, nil
}

func newTestEngine(rules []model.Workflow, store *fakeStore, pub *fakePublisher, gen *fakeGenerator, cls *fakeClassifier) *Engine {
	log := zap.NewNop()
	exec := NewActionExecutor(store, pub, gen, log)
	return New(&staticRules{set: RuleSet{Version: 1, Workflows: rules}}, store, exec, cls, log)
}

func sysType(t model.SystemWorkflowType) *model.SystemWorkflowType { return &t }

func testInteraction() *model.Interaction {
	return &model.Interaction{
		ID:           "int-1",
		Platform:     model.PlatformInstagram,
		Type:         model.InteractionComment,
		AuthorHandle: "@fan",
		Content:      "love this product, where can I buy it?",
		LikeCount:    12,
		Status:       model.StatusUnread,
	}
}

func TestDispatchFirstMatchWins(t *testing.T) {
	first := model.Workflow{
		ID: "wf-1", Name: "tag buyers", Status: model.WorkflowActive, Priority: 1,
		Conditions: []model.Condition{
			{Kind: model.ConditionField, Field: "content", Operator: model.OpContains, Value: "buy"},
		},
		ActionType:   model.ActionAddTag,
		ActionConfig: model.ActionConfig{Tags: []string{"purchase-intent"}},
	}
	second := model.Workflow{
		ID: "wf-2", Name: "flag everything", Status: model.WorkflowActive, Priority: 2,
		ActionType: model.ActionFlagForReview,
	}

	store := newFakeStore(testInteraction())
	eng := newTestEngine([]model.Workflow{first, second}, store, &fakePublisher{}, &fakeGenerator{}, nil)

	rec, err := eng.Dispatch(context.Background(), "int-1")
	require.NoError(t, err)
	require.NotNil(t, rec)

	assert.Equal(t, model.OutcomeDispatched, rec.Outcome)
	require.NotNil(t, rec.WorkflowID)
	assert.Equal(t, "wf-1", *rec.WorkflowID)
	assert.Equal(t, []string{"purchase-intent"}, store.tagsAdded)
	// wf-2 never ran
	assert.Empty(t, store.priority)
	assert.Equal(t, 1, rec.Evaluated)
}

func TestDispatchSystemWorkflowRunsFirst(t *testing.T) {
	// A user workflow with priority 1 would match, but the spam comment
	// hits the auto-moderator first.
	moderator := model.Workflow{
		ID: "system-auto-moderator", Name: "Auto moderator", Status: model.WorkflowActive,
		Priority:   0,
		SystemType: sysType(model.SystemAutoModerator),
		Conditions: []model.Condition{
			{Kind: model.ConditionPrompt, Prompt: "Is this spam?"},
		},
		ActionType: model.ActionModerate,
	}
	responder := model.Workflow{
		ID: "wf-respond", Name: "thank fans", Status: model.WorkflowActive, Priority: 1,
		ActionType:   model.ActionAutoRespond,
		ActionConfig: model.ActionConfig{ResponseText: "thanks!"},
	}

	rules := []model.Workflow{responder, moderator}
	SortEvaluationOrder(rules)
	require.Equal(t, "system-auto-moderator", rules[0].ID)

	in := testInteraction()
	in.Content = "CLICK HERE FOR FREE FOLLOWERS"
	store := newFakeStore(in)
	pub := &fakePublisher{}
	cls := &fakeClassifier{answers: map[string]bool{"Is this spam?": true}}

	eng := newTestEngine(rules, store, pub, &fakeGenerator{}, cls)
	rec, err := eng.Dispatch(context.Background(), "int-1")
	require.NoError(t, err)

	assert.Equal(t, model.OutcomeDispatched, rec.Outcome)
	assert.Equal(t, "system-auto-moderator", *rec.WorkflowID)
	assert.Equal(t, 1, pub.deletes)
	assert.Empty(t, pub.replies)
	assert.Equal(t, model.StatusArchived, in.Status)
	assert.Equal(t, 1, rec.AICalls)
}

func TestDispatchGenerateResponseKeepsProvenance(t *testing.T) {
	wf := model.Workflow{
		ID: "wf-gen", Name: "draft replies", Status: model.WorkflowActive, Priority: 1,
		ActionType:   model.ActionGenerateResponse,
		ActionConfig: model.ActionConfig{Tone: "friendly"},
	}

	in := testInteraction()
	store := newFakeStore(in)
	pub := &fakePublisher{}
	gen := &fakeGenerator{draft: "Thanks so much! You can find it in our store."}

	eng := newTestEngine([]model.Workflow{wf}, store, pub, gen, nil)
	rec, err := eng.Dispatch(context.Background(), "int-1")
	require.NoError(t, err)

	assert.Equal(t, model.OutcomeDispatched, rec.Outcome)
	assert.Equal(t, gen.draft, store.pendingText)
	require.NotNil(t, store.pendingFrom)
	assert.Equal(t, "wf-gen", *store.pendingFrom)
	assert.Equal(t, model.StatusAwaitingApproval, in.Status)
	// The draft must not reach the platform before approval.
	assert.Empty(t, pub.replies)
}

func TestDispatchExhaustedLeavesInteractionUntouched(t *testing.T) {
	wf := model.Workflow{
		ID: "wf-1", Status: model.WorkflowActive, Priority: 1,
		Conditions: []model.Condition{
			{Kind: model.ConditionField, Field: "follower_count", Operator: model.OpGreaterThan, Value: "100000"},
		},
		ActionType: model.ActionFlagForReview,
	}

	in := testInteraction()
	store := newFakeStore(in)
	eng := newTestEngine([]model.Workflow{wf}, store, &fakePublisher{}, &fakeGenerator{}, nil)

	rec, err := eng.Dispatch(context.Background(), "int-1")
	require.NoError(t, err)

	assert.Equal(t, model.OutcomeExhausted, rec.Outcome)
	assert.Nil(t, rec.WorkflowID)
	assert.Equal(t, model.StatusUnread, in.Status)
	assert.Empty(t, store.statusSets)
	require.Len(t, store.dispatches, 1)
}

func TestDispatchClassifierErrorFallsThrough(t *testing.T) {
	// The AI-conditioned workflow errors; the next workflow still fires.
	aiWorkflow := model.Workflow{
		ID: "wf-ai", Status: model.WorkflowActive, Priority: 1,
		Conditions: []model.Condition{
			{Kind: model.ConditionPrompt, Prompt: "Is this a complaint?"},
		},
		ActionType: model.ActionFlagForReview,
	}
	fallback := model.Workflow{
		ID: "wf-tag", Status: model.WorkflowActive, Priority: 2,
		ActionType:   model.ActionAddTag,
		ActionConfig: model.ActionConfig{Tags: []string{"needs-triage"}},
	}

	in := testInteraction()
	store := newFakeStore(in)
	cls := &fakeClassifier{fail: errors.New("upstream timeout")}

	eng := newTestEngine([]model.Workflow{aiWorkflow, fallback}, store, &fakePublisher{}, &fakeGenerator{}, cls)
	rec, err := eng.Dispatch(context.Background(), "int-1")
	require.NoError(t, err)

	assert.Equal(t, model.OutcomeDispatched, rec.Outcome)
	assert.Equal(t, "wf-tag", *rec.WorkflowID)
	assert.Contains(t, rec.Error, "upstream timeout")
	assert.Empty(t, store.priority)
	assert.Equal(t, 1, rec.AICalls)
}

func TestDispatchActionFailureReturnsError(t *testing.T) {
	wf := model.Workflow{
		ID: "wf-respond", Status: model.WorkflowActive, Priority: 1,
		ActionType:   model.ActionAutoRespond,
		ActionConfig: model.ActionConfig{ResponseText: "hello"},
	}

	in := testInteraction()
	store := newFakeStore(in)
	pub := &fakePublisher{fail: errors.New("platform 502")}

	eng := newTestEngine([]model.Workflow{wf}, store, pub, &fakeGenerator{}, nil)
	rec, err := eng.Dispatch(context.Background(), "int-1")
	require.Error(t, err)
	require.NotNil(t, rec)

	assert.Equal(t, model.OutcomeFailed, rec.Outcome)
	// The side effect failed before any state write.
	assert.Equal(t, model.StatusUnread, in.Status)
	require.Len(t, store.dispatches, 1)
	assert.Equal(t, model.OutcomeFailed, store.dispatches[0].Outcome)
}

func TestDispatchSkipsAlreadyHandledInteraction(t *testing.T) {
	wf := model.Workflow{
		ID: "wf-1", Status: model.WorkflowActive, Priority: 1,
		ActionType: model.ActionFlagForReview,
	}

	for _, status := range []model.InteractionStatus{
		model.StatusAwaitingApproval, model.StatusReplied, model.StatusArchived,
	} {
		in := testInteraction()
		in.Status = status
		store := newFakeStore(in)

		eng := newTestEngine([]model.Workflow{wf}, store, &fakePublisher{}, &fakeGenerator{}, nil)
		rec, err := eng.Dispatch(context.Background(), "int-1")
		require.NoError(t, err)
		assert.Nil(t, rec, "status %s should skip dispatch", status)
		assert.Empty(t, store.dispatches)
	}
}

func TestDispatchTriggerFilterSkipsWithoutEvaluation(t *testing.T) {
	wf := model.Workflow{
		ID: "wf-yt", Status: model.WorkflowActive, Priority: 1,
		Platforms: []model.Platform{model.PlatformYouTube},
		Conditions: []model.Condition{
			{Kind: model.ConditionPrompt, Prompt: "Is this spam?"},
		},
		ActionType: model.ActionArchive,
	}

	in := testInteraction() // instagram
	store := newFakeStore(in)
	cls := &fakeClassifier{answers: map[string]bool{"Is this spam?": true}}

	eng := newTestEngine([]model.Workflow{wf}, store, &fakePublisher{}, &fakeGenerator{}, cls)
	rec, err := eng.Dispatch(context.Background(), "int-1")
	require.NoError(t, err)

	assert.Equal(t, model.OutcomeExhausted, rec.Outcome)
	assert.Equal(t, 0, rec.Evaluated)
	// The classifier is never consulted for a trigger miss.
	assert.Equal(t, 0, cls.calls)
}
