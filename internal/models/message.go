package models

// Inbound message content kinds.
const (
	ContentText     = "text"
	ContentImage    = "image"
	ContentVideo    = "video"
	ContentAudio    = "audio"
	ContentFile     = "file"
	ContentLocation = "location"
	ContentSticker  = "sticker"
)

// MessageContent is the body of a message event. Only the fields relevant
// to Type are populated.
type MessageContent struct {
	ID         string
	Type       string
	Text       string
	QuoteToken string

	FileName string
	FileSize int64
	Duration int64

	Title     string
	Address   string
	Latitude  float64
	Longitude float64

	PackageID string
	StickerID string
}
