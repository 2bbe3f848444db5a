package intake

import (
	"encoding/base64"
	"strings"

	stderrors "grievance-intake/internal/common/errors"
)

// DecodeImagePayload turns a submitted image string into raw bytes. A
// data-URI prefix ("data:image/jpeg;base64,...") is stripped by splitting on
// the first comma; everything after it must be standard base64.
func DecodeImagePayload(payload string) ([]byte, error) {
	if idx := strings.Index(payload, ","); idx >= 0 {
		payload = payload[idx+1:]
	}

	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, stderrors.NewInvalidImageFormatError(err.Error())
	}
	if len(raw) == 0 {
		return nil, stderrors.NewInvalidImageFormatError("empty image payload")
	}
	return raw, nil
}
