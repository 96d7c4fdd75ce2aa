package domain

type ctxKey string

const (
	RequesterIdCtxKey   ctxKey = "sn-requesterId"
	RequesterRoleCtxKey ctxKey = "sn-requesterRole"
)

// FetchState names a step of the reconciling fetch.
type FetchState int

const (
	FetchStateStart FetchState = iota
	FetchStateResolvingGroup
	FetchStateDualQuerying
	FetchStateMerging
	FetchStateFiltering
	FetchStateSorting
	FetchStateFallbackQuerying
	FetchStateDone
	FetchStateFailed
)

func (s FetchState) String() string {
	switch s {
	case FetchStateStart:
		return "Start"
	case FetchStateResolvingGroup:
		return "ResolvingGroup"
	case FetchStateDualQuerying:
		return "DualQuerying"
	case FetchStateMerging:
		return "Merging"
	case FetchStateFiltering:
		return "Filtering"
	case FetchStateSorting:
		return "Sorting"
	case FetchStateFallbackQuerying:
		return "FallbackQuerying"
	case FetchStateDone:
		return "Done"
	case FetchStateFailed:
		return "Failed"
	default:
		return "Error"
	}
}

// StoryEventType enumerates story changes pushed to family subscribers.
type StoryEventType string

const (
	StoryCreated     StoryEventType = "story.created"
	StoryUpdated     StoryEventType = "story.updated"
	StoryPublished   StoryEventType = "story.published"
	StoryUnpublished StoryEventType = "story.unpublished"
	StoryDeleted     StoryEventType = "story.deleted"
)

// StoryEvent is published on a family channel whenever a story changes.
type StoryEvent struct {
	Type     StoryEventType `json:"type"`
	StoryID  string         `json:"storyId"`
	FamilyID string         `json:"familyId"`
	ChildID  string         `json:"childId,omitempty"`
}
