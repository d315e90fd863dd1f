package models

const (
	SourceUser  = "user"
	SourceGroup = "group"
	SourceRoom  = "room"
)

// Source identifies where an event came from.
type Source struct {
	Type    string `json:"type"`
	UserID  string `json:"userId,omitempty"`
	GroupID string `json:"groupId,omitempty"`
	RoomID  string `json:"roomId,omitempty"`
}

// TargetID returns the id a push message should be addressed to:
// the group or room for multi-person chats, otherwise the user.
func (s Source) TargetID() string {
	switch s.Type {
	case SourceGroup:
		return s.GroupID
	case SourceRoom:
		return s.RoomID
	default:
		return s.UserID
	}
}
