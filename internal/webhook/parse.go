package webhook

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/PratikDhanave/line-webhook-service/internal/models"
)

// wirePayload mirrors the platform's JSON body. Events stay raw so one
// unrecognized event cannot fail the batch.
type wirePayload struct {
	Destination string            `json:"destination"`
	Events      []json.RawMessage `json:"events"`
}

type wireEvent struct {
	Type            string        `json:"type"`
	Mode            string        `json:"mode"`
	Timestamp       int64         `json:"timestamp"`
	ReplyToken      string        `json:"replyToken"`
	WebhookEventID  string        `json:"webhookEventId"`
	DeliveryContext wireDelivery  `json:"deliveryContext"`
	Source          models.Source `json:"source"`
	Message         *wireMessage  `json:"message"`
	Postback        *wirePostback `json:"postback"`
	Beacon          *wireBeacon   `json:"beacon"`
	Joined          *wireMembers  `json:"joined"`
	Left            *wireMembers  `json:"left"`
}

type wireDelivery struct {
	IsRedelivery bool `json:"isRedelivery"`
}

type wireMessage struct {
	ID         string  `json:"id"`
	Type       string  `json:"type"`
	Text       string  `json:"text"`
	QuoteToken string  `json:"quoteToken"`
	FileName   string  `json:"fileName"`
	FileSize   int64   `json:"fileSize"`
	Duration   int64   `json:"duration"`
	Title      string  `json:"title"`
	Address    string  `json:"address"`
	Latitude   float64 `json:"latitude"`
	Longitude  float64 `json:"longitude"`
	PackageID  string  `json:"packageId"`
	StickerID  string  `json:"stickerId"`
}

type wirePostback struct {
	Data   string         `json:"data"`
	Params map[string]any `json:"params"`
}

type wireBeacon struct {
	Hwid string `json:"hwid"`
	Type string `json:"type"`
	DM   string `json:"dm"`
}

type wireMembers struct {
	Members []models.Source `json:"members"`
}

// ParsePayload decodes a webhook body into its ordered events.
// A body that is not a JSON object with an events array fails as a whole;
// individual events that cannot be understood become EventUnknown.
func ParsePayload(body []byte) (models.WebhookPayload, error) {
	var wp wirePayload
	if err := json.Unmarshal(body, &wp); err != nil {
		return models.WebhookPayload{}, errMalformedPayload(err, len(body))
	}
	if wp.Events == nil && !hasEventsKey(body) {
		return models.WebhookPayload{}, errMalformedPayload(errors.New("missing events array"), len(body))
	}

	out := models.WebhookPayload{
		Destination: wp.Destination,
		Events:      make([]models.Event, 0, len(wp.Events)),
	}
	for _, raw := range wp.Events {
		out.Events = append(out.Events, parseEvent(raw))
	}
	return out, nil
}

func hasEventsKey(body []byte) bool {
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(body, &keys); err != nil {
		return false
	}
	_, ok := keys["events"]
	return ok
}

func parseEvent(raw json.RawMessage) models.Event {
	var we wireEvent
	if err := json.Unmarshal(raw, &we); err != nil {
		return models.Event{Type: models.EventUnknown, Raw: raw}
	}

	ev := models.Event{
		Type:           models.ParseEventType(we.Type),
		WireType:       we.Type,
		Mode:           we.Mode,
		ReplyToken:     we.ReplyToken,
		WebhookEventID: we.WebhookEventID,
		Redelivery:     we.DeliveryContext.IsRedelivery,
		Source:         we.Source,
		Raw:            raw,
	}
	if we.Timestamp > 0 {
		ev.Timestamp = time.UnixMilli(we.Timestamp).UTC()
	}

	switch ev.Type {
	case models.EventMessage:
		if we.Message == nil {
			ev.Type = models.EventUnknown
			break
		}
		m := we.Message
		ev.Message = &models.MessageContent{
			ID:         m.ID,
			Type:       m.Type,
			Text:       m.Text,
			QuoteToken: m.QuoteToken,
			FileName:   m.FileName,
			FileSize:   m.FileSize,
			Duration:   m.Duration,
			Title:      m.Title,
			Address:    m.Address,
			Latitude:   m.Latitude,
			Longitude:  m.Longitude,
			PackageID:  m.PackageID,
			StickerID:  m.StickerID,
		}
	case models.EventPostback:
		if we.Postback == nil {
			ev.Type = models.EventUnknown
			break
		}
		ev.Postback = &models.Postback{Data: we.Postback.Data, Params: stringParams(we.Postback.Params)}
	case models.EventBeacon:
		if we.Beacon == nil {
			ev.Type = models.EventUnknown
			break
		}
		ev.Beacon = &models.Beacon{Hwid: we.Beacon.Hwid, Type: we.Beacon.Type, DM: we.Beacon.DM}
	case models.EventMemberJoined:
		if we.Joined == nil {
			ev.Type = models.EventUnknown
			break
		}
		ev.Joined = &models.Members{Members: we.Joined.Members}
	case models.EventMemberLeft:
		if we.Left == nil {
			ev.Type = models.EventUnknown
			break
		}
		ev.Left = &models.Members{Members: we.Left.Members}
	}

	return ev
}

func stringParams(in map[string]any) map[string]string {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		if s, ok := v.(string); ok {
			out[k] = s
			continue
		}
		out[k] = fmt.Sprint(v)
	}
	return out
}
