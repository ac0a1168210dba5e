package store

import "time"

// EntityType identifies one of the conference's searchable entity classes.
type EntityType string

const (
	EntitySessions   EntityType = "sessions"
	EntityExhibitors EntityType = "exhibitors"
	EntitySpeakers   EntityType = "speakers"
	EntityAttendees  EntityType = "attendees"
)

// AllEntityTypes lists every searchable entity class.
var AllEntityTypes = []EntityType{EntitySessions, EntityExhibitors, EntitySpeakers, EntityAttendees}

// ParseEntityType validates a planner-provided table name.
func ParseEntityType(s string) (EntityType, bool) {
	switch EntityType(s) {
	case EntitySessions, EntityExhibitors, EntitySpeakers, EntityAttendees:
		return EntityType(s), true
	}
	return "", false
}

// Search modes as emitted by the planner contract.
const (
	SearchModeFaceted  = "faceted"
	SearchModeSpecific = "specific"
	SearchModeHybrid   = "hybrid"
)

// PlannedQuery is one search the planner wants executed. Immutable once created.
type PlannedQuery struct {
	Target     EntityType `json:"target"`
	QueryText  string     `json:"query_text"`
	UseFaceted bool       `json:"use_faceted"`
	Limit      int        `json:"limit"`
}

// SearchResult is one ranked entity returned by the faceted search engine.
// Never mutated after creation.
type SearchResult struct {
	EntityID     string                 `json:"entity_id"`
	EntityType   EntityType             `json:"entity_type"`
	Score        float64                `json:"score"`
	FacetMatches int                    `json:"facet_matches"`
	Payload      map[string]interface{} `json:"payload,omitempty"`
}

// ScoredHit is a raw vector-store hit before facet aggregation.
type ScoredHit struct {
	EntityID   string                 `json:"entity_id"`
	FacetKey   string                 `json:"facet_key,omitempty"`
	Similarity float64                `json:"similarity"`
	Payload    map[string]interface{} `json:"payload,omitempty"`
}

// ConversationTurn is one prior message in a conversation, most-recent-last
// when returned as a history slice.
type ConversationTurn struct {
	Role      string    `json:"role"` // "user" | "assistant"
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Session is the lightweight in-memory snapshot of a conversation, kept
// between turns so the planner sees continuity (last intent, last targets).
type Session struct {
	ID          string       `json:"id"` // conversation id
	UserID      string       `json:"user_id"`
	LastIntent  string       `json:"last_intent"`
	LastTargets []EntityType `json:"last_targets"`
	LastQuery   string       `json:"last_query"`
}
