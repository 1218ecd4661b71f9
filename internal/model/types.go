package model

// Platform identifies a connected social platform
type Platform string

const (
	PlatformYouTube   Platform = "youtube"
	PlatformInstagram Platform = "instagram"
	PlatformTikTok    Platform = "tiktok"
	PlatformTwitter   Platform = "twitter"
)

// ValidPlatform reports whether p is a known platform
func ValidPlatform(p Platform) bool {
	switch p {
	case PlatformYouTube, PlatformInstagram, PlatformTikTok, PlatformTwitter:
		return true
	}
	return false
}

// InteractionType identifies the kind of inbound interaction
type InteractionType string

const (
	InteractionComment InteractionType = "comment"
	InteractionDM      InteractionType = "dm"
	InteractionMention InteractionType = "mention"
)

// ValidInteractionType reports whether t is a known interaction type
func ValidInteractionType(t InteractionType) bool {
	switch t {
	case InteractionComment, InteractionDM, InteractionMention:
		return true
	}
	return false
}

// InteractionStatus represents an interaction's lifecycle state
type InteractionStatus string

const (
	StatusUnread           InteractionStatus = "unread"
	StatusRead             InteractionStatus = "read"
	StatusAwaitingApproval InteractionStatus = "awaiting_approval"
	StatusReplied          InteractionStatus = "replied"
	StatusArchived         InteractionStatus = "archived"
)

// WorkflowStatus represents a workflow's lifecycle state.
// Only active workflows participate in matching.
type WorkflowStatus string

const (
	WorkflowActive WorkflowStatus = "active"
	WorkflowPaused WorkflowStatus = "paused"
	WorkflowDraft  WorkflowStatus = "draft"
)

// ActionType is the single action a workflow performs on match
type ActionType string

const (
	ActionAutoRespond      ActionType = "auto_respond"
	ActionGenerateResponse ActionType = "generate_response"
	ActionModerate         ActionType = "moderate"
	ActionArchive          ActionType = "archive"
	ActionFlagForReview    ActionType = "flag_for_review"
	ActionAddTag           ActionType = "add_tag"
)

// ValidActionType reports whether a is a known action type
func ValidActionType(a ActionType) bool {
	switch a {
	case ActionAutoRespond, ActionGenerateResponse, ActionModerate,
		ActionArchive, ActionFlagForReview, ActionAddTag:
		return true
	}
	return false
}

// SystemWorkflowType marks a built-in, non-deletable workflow. System
// workflows are always evaluated ahead of user workflows.
type SystemWorkflowType string

const (
	SystemAutoModerator SystemWorkflowType = "auto_moderator"
	SystemAutoArchive   SystemWorkflowType = "auto_archive"
)

// ConditionKind discriminates the two condition dialects. A single
// workflow uses exactly one dialect; mixing is rejected at save time.
type ConditionKind string

const (
	ConditionField  ConditionKind = "field"
	ConditionPrompt ConditionKind = "prompt"
)

// Operator is a typed comparison applied by field conditions
type Operator string

const (
	OpContains       Operator = "contains"
	OpNotContains    Operator = "not_contains"
	OpEquals         Operator = "equals"
	OpNotEquals      Operator = "not_equals"
	OpGreaterThan    Operator = "greater_than"
	OpLessThan       Operator = "less_than"
	OpGreaterOrEqual Operator = "greater_or_equal"
	OpLessOrEqual    Operator = "less_or_equal"
)

// Condition is one predicate of a workflow. Field conditions carry
// Field/Operator/Value and AND together; prompt conditions carry Prompt,
// are answered by the AI classifier, and OR together.
type Condition struct {
	Kind     ConditionKind `json:"kind"`
	Field    string        `json:"field,omitempty"`
	Operator Operator      `json:"operator,omitempty"`
	Value    string        `json:"value,omitempty"`
	Prompt   string        `json:"prompt,omitempty"`
}

// ModerationVerb is what the auto-moderator does per interaction type
type ModerationVerb string

const (
	VerbDeleteComment ModerationVerb = "delete_comment"
	VerbBlockAuthor   ModerationVerb = "block_author"
)

// ActionConfig carries the parameters of a workflow's action. Which
// fields are required depends on the action type and is enforced by a
// per-action JSON Schema at save time.
type ActionConfig struct {
	ResponseText   string                             `json:"response_text,omitempty"`
	Tone           string                             `json:"tone,omitempty"`
	AIInstructions string                             `json:"ai_instructions,omitempty"`
	Tags           []string                           `json:"tags,omitempty"`
	ReviewPriority string                             `json:"review_priority,omitempty"`
	Moderation     map[InteractionType]ModerationVerb `json:"moderation,omitempty"`
}

// Workflow is a stored automation rule: scope filters, conditions, and
// exactly one action.
type Workflow struct {
	ID               string              `json:"id"`
	Name             string              `json:"name"`
	Status           WorkflowStatus      `json:"status"`
	Priority         int                 `json:"priority"`
	ViewIDs          []string            `json:"viewIds,omitempty"`
	Platforms        []Platform          `json:"platforms,omitempty"`
	InteractionTypes []InteractionType   `json:"interactionTypes,omitempty"`
	Conditions       []Condition         `json:"conditions"`
	ActionType       ActionType          `json:"actionType"`
	ActionConfig     ActionConfig        `json:"actionConfig"`
	SystemType       *SystemWorkflowType `json:"systemWorkflowType,omitempty"`
	CreatedAt        string              `json:"createdAt,omitempty"`
	UpdatedAt        string              `json:"updatedAt,omitempty"`
}

// IsSystem reports whether the workflow is a pinned system workflow
func (w *Workflow) IsSystem() bool {
	return w.SystemType != nil
}

// PendingResponse is an AI-drafted reply awaiting human approval.
// WorkflowID carries provenance when the draft came from a workflow.
type PendingResponse struct {
	Text       string  `json:"text"`
	WorkflowID *string `json:"workflowId,omitempty"`
}

// Interaction is an inbound comment, DM, or mention
type Interaction struct {
	ID              string            `json:"id"`
	Platform        Platform          `json:"platform"`
	Type            InteractionType   `json:"type"`
	ExternalID      string            `json:"externalId,omitempty"`
	AuthorHandle    string            `json:"authorHandle"`
	AuthorID        string            `json:"authorId,omitempty"`
	Content         string            `json:"content"`
	FollowerCount   int64             `json:"followerCount,omitempty"`
	LikeCount       int64             `json:"likeCount,omitempty"`
	AuthorVerified  bool              `json:"authorVerified,omitempty"`
	ViewIDs         []string          `json:"viewIds,omitempty"`
	Status          InteractionStatus `json:"status"`
	PrevStatus      InteractionStatus `json:"prevStatus,omitempty"`
	PendingResponse *PendingResponse  `json:"pendingResponse,omitempty"`
	Tags            []string          `json:"tags,omitempty"`
	ReviewPriority  string            `json:"reviewPriority,omitempty"`
	CreatedAt       string            `json:"createdAt,omitempty"`
	UpdatedAt       string            `json:"updatedAt,omitempty"`
}

// ViewKind discriminates manual filter views from AI-prompt views
type ViewKind string

const (
	ViewManual   ViewKind = "manual"
	ViewAIPrompt ViewKind = "ai_prompt"
)

// View is a named saved filter over interactions, usable for browsing
// and as a workflow scope qualifier.
type View struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Kind      ViewKind `json:"kind"`
	Filter    string   `json:"filter,omitempty"` // expr source for manual views
	Prompt    string   `json:"prompt,omitempty"` // classifier prompt for ai views
	Pinned    bool     `json:"pinned"`
	CreatedAt string   `json:"createdAt,omitempty"`
	UpdatedAt string   `json:"updatedAt,omitempty"`
}

// DispatchOutcome is the terminal state of one dispatch pass
type DispatchOutcome string

const (
	OutcomeDispatched DispatchOutcome = "dispatched"
	OutcomeExhausted  DispatchOutcome = "exhausted"
	OutcomeFailed     DispatchOutcome = "failed"
)

// Dispatch is the audit record of one dispatch pass over an interaction
type Dispatch struct {
	ID            string          `json:"id"`
	InteractionID string          `json:"interactionId"`
	WorkflowID    *string         `json:"workflowId,omitempty"`
	ActionType    *ActionType     `json:"actionType,omitempty"`
	Outcome       DispatchOutcome `json:"outcome"`
	Evaluated     int             `json:"evaluated"`
	AICalls       int             `json:"aiCalls"`
	Error         string          `json:"error,omitempty"`
	CreatedAt     string          `json:"createdAt,omitempty"`
}
