package auth

import (
	"encoding/base64"

	goerrors "github.com/goliatone/go-errors"
)

// Wire sizes for the default OPAQUE suite (ristretto255 / SHA-512). The
// registration record range is inclusive; the credential envelope embeds an
// identity dependent component so its exact size varies.
const (
	RegistrationRequestLength   = 32
	LoginRequestLength          = 96
	RegistrationRecordMinLength = 170
	RegistrationRecordMaxLength = 200
)

// DecodeBlob decodes a base64 protocol blob and enforces an exact byte
// length. The returned error names the offending field but never echoes the
// value, so malformed input cannot be probed through error text.
func DecodeBlob(field, encoded string, length int) ([]byte, error) {
	return DecodeBlobRange(field, encoded, length, length)
}

// DecodeBlobRange decodes a base64 protocol blob and enforces an inclusive
// byte length range.
func DecodeBlobRange(field, encoded string, min, max int) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, malformedMessage(field)
	}

	if len(raw) < min || len(raw) > max {
		return nil, malformedMessage(field)
	}

	return raw, nil
}

// EncodeBlob is the transport encoding counterpart of DecodeBlob.
func EncodeBlob(raw []byte) string {
	return base64.StdEncoding.EncodeToString(raw)
}

func malformedMessage(field string) error {
	return goerrors.New("malformed protocol message", goerrors.CategoryBadInput).
		WithTextCode(TextCodeMalformedMessage).
		WithMetadata(map[string]any{
			"field": field,
		})
}
