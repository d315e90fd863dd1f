package webhook

import (
	"net/http"

	goerrors "github.com/goliatone/go-errors"
)

const (
	TextCodeSignatureInvalid = "WEBHOOK_SIGNATURE_INVALID"
	TextCodePayloadMalformed = "WEBHOOK_PAYLOAD_MALFORMED"
	TextCodeInternal         = "WEBHOOK_INTERNAL_ERROR"
)

func webhookError(
	message string,
	category goerrors.Category,
	code int,
	textCode string,
	metadata map[string]any,
) error {
	err := goerrors.New(message, category).
		WithCode(code).
		WithTextCode(textCode)
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

func errInvalidSignature() error {
	return webhookError(
		"webhook: invalid signature",
		goerrors.CategoryAuth,
		http.StatusBadRequest,
		TextCodeSignatureInvalid,
		nil,
	)
}

func errMalformedPayload(source error, size int) error {
	return goerrors.Wrap(source, goerrors.CategoryBadInput, "webhook: malformed payload").
		WithCode(http.StatusBadRequest).
		WithTextCode(TextCodePayloadMalformed).
		WithMetadata(map[string]any{"body_bytes": size})
}

// IsInvalidSignature reports whether err was raised by signature validation.
func IsInvalidSignature(err error) bool {
	return hasTextCode(err, TextCodeSignatureInvalid)
}

// IsMalformedPayload reports whether err was raised while parsing the body.
func IsMalformedPayload(err error) bool {
	return hasTextCode(err, TextCodePayloadMalformed)
}

// StatusCode maps a dispatch error to the HTTP status the endpoint returns.
func StatusCode(err error) int {
	var rich *goerrors.Error
	if goerrors.As(err, &rich) && rich.Code != 0 {
		return rich.Code
	}
	return http.StatusInternalServerError
}

func hasTextCode(err error, textCode string) bool {
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		return false
	}
	return rich.TextCode == textCode
}
