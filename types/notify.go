package types

const (
	NotifyTypeBatchCreated = "batch_created"
	NotifyTypeBatchDeleted = "batch_deleted"
	NotifyTypeInfo         = "info"
)

// Notification represents a notification message structure
type Notification struct {
	Type    string         `json:"type,omitempty"`    // Notification type, e.g. "batch_created"
	Title   string         `json:"title,omitempty"`   // Notification title
	Message string         `json:"message,omitempty"` // Notification message/content
	Data    map[string]any `json:"data,omitempty"`    // Additional data fields
}
