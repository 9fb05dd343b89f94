package connection

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
)

// ErrMalformedCursor is wrapped by every cursor decoding failure.
var ErrMalformedCursor = errors.New("malformed cursor")

// EncodeCursor returns the base64 form of v: the decimal text of an integer,
// the string itself, or the fmt representation of anything else.
func EncodeCursor(v any) string {
	var s string
	switch v := v.(type) {
	case string:
		s = v
	case int:
		s = strconv.Itoa(v)
	case int32:
		s = strconv.FormatInt(int64(v), 10)
	case int64:
		s = strconv.FormatInt(v, 10)
	case fmt.Stringer:
		s = v.String()
	default:
		s = fmt.Sprint(v)
	}
	return base64.StdEncoding.EncodeToString([]byte(s))
}

// DecodeCursor returns the text encoded in token.
func DecodeCursor(token string) (string, error) {
	b, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return "", fmt.Errorf("%w: %q: %v", ErrMalformedCursor, token, err)
	}
	return string(b), nil
}

// DecodeOffset decodes a cursor produced from a non-negative offset.
func DecodeOffset(token string) (int, error) {
	s, err := DecodeCursor(token)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %q is not an offset", ErrMalformedCursor, token)
	}
	return n, nil
}
