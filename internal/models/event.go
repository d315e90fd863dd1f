package models

import (
	"encoding/json"
	"time"
)

// EventType is the closed set of webhook event variants the service understands.
// Anything else the platform sends is surfaced as EventUnknown.
type EventType string

const (
	EventMessage      EventType = "message"
	EventFollow       EventType = "follow"
	EventUnfollow     EventType = "unfollow"
	EventJoin         EventType = "join"
	EventLeave        EventType = "leave"
	EventPostback     EventType = "postback"
	EventBeacon       EventType = "beacon"
	EventMemberJoined EventType = "memberJoined"
	EventMemberLeft   EventType = "memberLeft"
	EventUnknown      EventType = "unknown"
)

// KnownEventTypes lists every variant except EventUnknown, in a stable order.
var KnownEventTypes = []EventType{
	EventMessage,
	EventFollow,
	EventUnfollow,
	EventJoin,
	EventLeave,
	EventPostback,
	EventBeacon,
	EventMemberJoined,
	EventMemberLeft,
}

// ParseEventType maps a wire type string onto the enumeration.
func ParseEventType(s string) EventType {
	for _, t := range KnownEventTypes {
		if string(t) == s {
			return t
		}
	}
	return EventUnknown
}

// WebhookPayload is the decoded body of a POST /callback request.
type WebhookPayload struct {
	Destination string
	Events      []Event
}

// Event is a single notification parsed from a webhook payload.
// Exactly one of the variant fields is set, according to Type.
type Event struct {
	Type           EventType
	WireType       string // type string as sent by the platform
	Mode           string
	ReplyToken     string
	WebhookEventID string
	Redelivery     bool
	Timestamp      time.Time
	Source         Source

	Message  *MessageContent
	Postback *Postback
	Beacon   *Beacon
	Joined   *Members
	Left     *Members

	Raw json.RawMessage
}

// Postback carries the data string of a postback action.
type Postback struct {
	Data   string
	Params map[string]string
}

// Beacon describes a beacon interaction.
type Beacon struct {
	Hwid string
	Type string
	DM   string
}

// Members lists the users that joined or left a group or room.
type Members struct {
	Members []Source
}
