package messaging

import (
	"errors"
	"net/http"

	goerrors "github.com/goliatone/go-errors"
)

const (
	TextCodeAPIFailed       = "MESSAGING_API_FAILED"
	TextCodeInvalidMessages = "MESSAGING_INVALID_MESSAGES"
	TextCodeSessionReleased = "MESSAGING_SESSION_RELEASED"
)

var errReleased = errors.New("session already released")

func errAPIFailed(operation string, source error) error {
	return goerrors.Wrap(source, goerrors.CategoryExternal, "messaging: "+operation+" failed").
		WithCode(http.StatusBadGateway).
		WithTextCode(TextCodeAPIFailed).
		WithMetadata(map[string]any{"operation": operation})
}

func errInvalidMessages(operation string, source error) error {
	return goerrors.Wrap(source, goerrors.CategoryBadInput, "messaging: invalid "+operation+" request").
		WithCode(http.StatusBadRequest).
		WithTextCode(TextCodeInvalidMessages).
		WithMetadata(map[string]any{"operation": operation})
}

func errSessionReleased(operation string) error {
	return goerrors.Wrap(errReleased, goerrors.CategoryOperation, "messaging: "+operation+" on released session").
		WithCode(http.StatusInternalServerError).
		WithTextCode(TextCodeSessionReleased)
}

// IsAPIError reports whether err came back from the messaging API.
func IsAPIError(err error) bool {
	var rich *goerrors.Error
	return goerrors.As(err, &rich) && rich.TextCode == TextCodeAPIFailed
}

// IsInvalidMessages reports whether err was a request rejected before any I/O.
func IsInvalidMessages(err error) bool {
	var rich *goerrors.Error
	return goerrors.As(err, &rich) && rich.TextCode == TextCodeInvalidMessages
}
