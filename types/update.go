package types

// UpdateKind classifies an inbound chat event.
type UpdateKind int

const (
	UpdateUnknown UpdateKind = iota
	UpdateCommand
	UpdateMedia
	UpdateCallback
)

// Media is the payload description of an inbound media message. Size and name come from
// the chat platform and may be empty.
type Media struct {
	Kind     MediaKind
	FileName string
	Size     int64
	MimeType string
}

// Update is a transport-neutral inbound event. The gateway adapter fills it from the
// platform update; the dispatcher never sees platform types.
type Update struct {
	Kind      UpdateKind
	UserID    int64
	ChatID    int64
	MessageID int
	Private   bool
	Mention   string

	Command string // without the leading slash
	Args    string

	Media *Media

	CallbackID   string
	CallbackData string
}
