package sessiontoken

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	fieldTimestamp = "timestamp"
	fieldSession   = "session"
	fieldService   = "service"
	fieldRole      = "role"
	fieldMeta      = "meta"
)

// fieldOrder is the canonical serialization order. Changing it invalidates issued tokens.
var fieldOrder = [...]string{fieldTimestamp, fieldSession, fieldService, fieldRole, fieldMeta}

var jsonNull = []byte("null")

var textSafe = base64.RawURLEncoding.Strict()

func isField(name string) bool {
	for _, f := range fieldOrder {
		if f == name {
			return true
		}
	}
	return false
}

// Encode serializes claims into their canonical byte form.
func Encode(c Claims) ([]byte, error) {
	values := make([][]byte, len(fieldOrder))
	values[0] = encodeTimestamp(c.Timestamp)

	var err error
	if c.Session == nil {
		values[1] = jsonNull
	} else if values[1], err = marshalString(*c.Session); err != nil {
		return nil, newError(ErrCodeMalformed, fmt.Errorf("session: %w", err))
	}
	for i, s := range []string{c.Service, c.Role, c.Meta} {
		if values[i+2], err = marshalString(s); err != nil {
			return nil, newError(ErrCodeMalformed, fmt.Errorf("%s: %w", fieldOrder[i+2], err))
		}
	}
	return writeObject(values), nil
}

// EncodeMap validates an untrusted claims map and serializes it canonically.
// It fails with ErrCodeInvalidKey when two keys share a name or a key names no claims field.
func EncodeMap(m Map) ([]byte, error) {
	fields, err := m.byName()
	if err != nil {
		return nil, err
	}

	values := make([][]byte, len(fieldOrder))
	if values[0], err = mapTimestamp(fields[fieldTimestamp]); err != nil {
		return nil, newError(ErrCodeMalformed, fmt.Errorf("%s: %w", fieldTimestamp, err))
	}
	if values[1], err = mapSession(fields[fieldSession]); err != nil {
		return nil, newError(ErrCodeMalformed, fmt.Errorf("%s: %w", fieldSession, err))
	}
	for i, name := range fieldOrder[2:] {
		if values[i+2], err = mapString(fields[name]); err != nil {
			return nil, newError(ErrCodeMalformed, fmt.Errorf("%s: %w", name, err))
		}
	}
	return writeObject(values), nil
}

// Decode parses canonical claim bytes. Keys must appear exactly once, in canonical order;
// a repeated key fails with ErrCodeInvalidKey.
// A non-integer timestamp decodes to an invalid Timestamp rather than an error.
func Decode(data []byte) (Claims, error) {
	raw, err := readObject(data)
	if errors.Is(err, ErrInvalidKey) {
		return Claims{}, err
	}
	if err != nil {
		return Claims{}, newError(ErrCodeMalformed, err)
	}

	c := Claims{Timestamp: decodeTimestamp(raw[0])}
	if !bytes.Equal(raw[1], jsonNull) {
		var s string
		if err := json.Unmarshal(raw[1], &s); err != nil {
			return Claims{}, newError(ErrCodeMalformed, fmt.Errorf("%s: %w", fieldSession, err))
		}
		c.Session = &s
	}
	dst := []*string{&c.Service, &c.Role, &c.Meta}
	for i, v := range raw[2:] {
		if bytes.Equal(v, jsonNull) {
			continue
		}
		if err := json.Unmarshal(v, dst[i]); err != nil {
			return Claims{}, newError(ErrCodeMalformed, fmt.Errorf("%s: %w", fieldOrder[i+2], err))
		}
	}
	return c, nil
}

// ToTextSafe maps bytes to unpadded URL-safe base64.
func ToTextSafe(data []byte) string {
	return textSafe.EncodeToString(data)
}

// FromTextSafe reverses ToTextSafe. Non-canonical input is rejected.
func FromTextSafe(text string) ([]byte, error) {
	if strings.ContainsAny(text, "\r\n") {
		return nil, newError(ErrCodeMalformed, errors.New("line breaks in token"))
	}
	data, err := textSafe.DecodeString(text)
	if err != nil {
		return nil, newError(ErrCodeMalformed, err)
	}
	return data, nil
}

func writeObject(values [][]byte) []byte {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range fieldOrder {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteByte('"')
		buf.WriteString(name)
		buf.WriteString(`":`)
		buf.Write(values[i])
	}
	buf.WriteByte('}')
	return buf.Bytes()
}

func readObject(data []byte) ([][]byte, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := expectDelim(dec, '{'); err != nil {
		return nil, err
	}
	values := make([][]byte, len(fieldOrder))
	for i, name := range fieldOrder {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if ok && key != name && slices.Contains(fieldOrder[:i], key) {
			return nil, invalidKey(key)
		}
		if !ok || key != name {
			return nil, fmt.Errorf("expected key %q at position %d, got %v", name, i, tok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		values[i] = raw
	}
	if err := expectDelim(dec, '}'); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("trailing data after claims object")
	}
	return values, nil
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return fmt.Errorf("expected %q, got %v", want, tok)
	}
	return nil
}

func marshalValue(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// marshalString refuses invalid UTF-8, which encoding/json would rewrite to U+FFFD.
func marshalString(s string) ([]byte, error) {
	if !utf8.ValidString(s) {
		return nil, errors.New("invalid UTF-8")
	}
	return marshalValue(s)
}

func encodeTimestamp(ts Timestamp) []byte {
	ms, ok := ts.Millis()
	if !ok {
		return jsonNull
	}
	return strconv.AppendInt(nil, ms, 10)
}

func decodeTimestamp(raw []byte) Timestamp {
	ms, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		return Timestamp{}
	}
	return Millis(ms)
}

// mapTimestamp accepts literal and structured time values alike.
// Values that are neither are emitted verbatim and verify as expired.
func mapTimestamp(v any) ([]byte, error) {
	switch t := v.(type) {
	case nil:
		return jsonNull, nil
	case Timestamp:
		return encodeTimestamp(t), nil
	case time.Time:
		return encodeTimestamp(At(t)), nil
	case *time.Time:
		if t == nil {
			return jsonNull, nil
		}
		return encodeTimestamp(At(*t)), nil
	case int:
		return strconv.AppendInt(nil, int64(t), 10), nil
	case int32:
		return strconv.AppendInt(nil, int64(t), 10), nil
	case int64:
		return strconv.AppendInt(nil, t, 10), nil
	case uint32:
		return strconv.AppendUint(nil, uint64(t), 10), nil
	case uint64:
		return strconv.AppendUint(nil, t, 10), nil
	case float64:
		if t == math.Trunc(t) && math.Abs(t) < 1<<53 {
			return strconv.AppendInt(nil, int64(t), 10), nil
		}
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return strconv.AppendInt(nil, n, 10), nil
		}
	}
	return marshalValue(v)
}

func mapSession(v any) ([]byte, error) {
	switch s := v.(type) {
	case nil:
		return jsonNull, nil
	case string:
		return marshalString(s)
	case *string:
		if s == nil {
			return jsonNull, nil
		}
		return marshalString(*s)
	default:
		return nil, fmt.Errorf("unsupported type %T", v)
	}
}

func mapString(v any) ([]byte, error) {
	switch s := v.(type) {
	case nil:
		return jsonNull, nil
	case string:
		return marshalString(s)
	default:
		return nil, fmt.Errorf("unsupported type %T", v)
	}
}
