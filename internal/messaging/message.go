package messaging

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
)

// MaxMessagesPerCall is the platform limit for a single reply or push.
const MaxMessagesPerCall = 5

const (
	KindText     = "text"
	KindImage    = "image"
	KindSticker  = "sticker"
	KindLocation = "location"
)

// Message is an outbound message. Kind selects which fields apply.
type Message struct {
	Kind string `yaml:"type" validate:"required,oneof=text image sticker location"`

	Text string `yaml:"text,omitempty" validate:"required_if=Kind text"`

	OriginalContentURL string `yaml:"original_content_url,omitempty" validate:"required_if=Kind image,omitempty,url"`
	PreviewImageURL    string `yaml:"preview_image_url,omitempty" validate:"required_if=Kind image,omitempty,url"`

	PackageID string `yaml:"package_id,omitempty" validate:"required_if=Kind sticker"`
	StickerID string `yaml:"sticker_id,omitempty" validate:"required_if=Kind sticker"`

	Title     string  `yaml:"title,omitempty" validate:"required_if=Kind location"`
	Address   string  `yaml:"address,omitempty" validate:"required_if=Kind location"`
	Latitude  float64 `yaml:"latitude,omitempty" validate:"latitude"`
	Longitude float64 `yaml:"longitude,omitempty" validate:"longitude"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

func Text(text string) Message {
	return Message{Kind: KindText, Text: text}
}

func Image(originalURL, previewURL string) Message {
	return Message{Kind: KindImage, OriginalContentURL: originalURL, PreviewImageURL: previewURL}
}

func Sticker(packageID, stickerID string) Message {
	return Message{Kind: KindSticker, PackageID: packageID, StickerID: stickerID}
}

func Location(title, address string, lat, lng float64) Message {
	return Message{Kind: KindLocation, Title: title, Address: address, Latitude: lat, Longitude: lng}
}

// Validate checks that the fields required by m.Kind are present and well formed.
func (m Message) Validate() error {
	err := validate.Struct(m)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s fails %s=%s", fe.Field(), fe.Tag(), fe.Param()))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s fails %s", fe.Field(), fe.Tag()))
		}
	}
	return fmt.Errorf("%s message: %s", m.Kind, strings.Join(msgs, ", "))
}

func (m Message) toSDK() messaging_api.MessageInterface {
	switch m.Kind {
	case KindImage:
		return &messaging_api.ImageMessage{
			OriginalContentUrl: m.OriginalContentURL,
			PreviewImageUrl:    m.PreviewImageURL,
		}
	case KindSticker:
		return &messaging_api.StickerMessage{
			PackageId: m.PackageID,
			StickerId: m.StickerID,
		}
	case KindLocation:
		return &messaging_api.LocationMessage{
			Title:     m.Title,
			Address:   m.Address,
			Latitude:  m.Latitude,
			Longitude: m.Longitude,
		}
	default:
		return &messaging_api.TextMessage{Text: m.Text}
	}
}

// validateBatch enforces 1..MaxMessagesPerCall valid messages and converts
// them to SDK messages.
func validateBatch(msgs []Message) ([]messaging_api.MessageInterface, error) {
	if len(msgs) == 0 || len(msgs) > MaxMessagesPerCall {
		return nil, fmt.Errorf("expected 1..%d messages, got %d", MaxMessagesPerCall, len(msgs))
	}
	out := make([]messaging_api.MessageInterface, 0, len(msgs))
	for i, m := range msgs {
		if err := m.Validate(); err != nil {
			return nil, fmt.Errorf("message %d: %w", i, err)
		}
		out = append(out, m.toSDK())
	}
	return out, nil
}
