package models

// ActivityAction enumerates the auditable actions taken within a work session.
type ActivityAction string

const (
	ActionUploaded     ActivityAction = "uploaded"
	ActionGridAdjusted ActivityAction = "grid_adjusted"
	ActionExtracted    ActivityAction = "extracted"
	ActionAIExtracted  ActivityAction = "ai_extracted"
	ActionCombined     ActivityAction = "combined"
)

// ValidAction reports whether a is a known activity action.
func ValidAction(a ActivityAction) bool {
	switch a {
	case ActionUploaded, ActionGridAdjusted, ActionExtracted, ActionAIExtracted, ActionCombined:
		return true
	}
	return false
}

// ActivityEntry is an append-only audit fact. Rows are never updated or
// deleted, and nothing reads them to make resolution decisions.
type ActivityEntry struct {
	ID        uint           `gorm:"primaryKey;autoIncrement" json:"id"`
	SessionID string         `gorm:"not null;index" json:"session_id"`
	EntityID  *string        `gorm:"index" json:"entity_id,omitempty"` // nullable until an entity exists
	Action    ActivityAction `gorm:"not null" json:"action"`
	Detail    string         `gorm:"" json:"detail,omitempty"` // JSON payload specific to the action
	CreatedAt int64          `gorm:"not null;index" json:"created_at"`
}

// TableName explicitly sets the table name for GORM.
func (ActivityEntry) TableName() string {
	return "activity_entries"
}
