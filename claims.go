package sessiontoken

import "time"

// Claims is the payload carried by a session token.
// Fields are serialized in declaration order; reordering them invalidates issued tokens.
type Claims struct {
	Timestamp Timestamp
	Session   *string
	Service   string
	Role      string
	Meta      string
}

// Timestamp is an epoch-millisecond instant. The zero value is invalid.
type Timestamp struct {
	ms    int64
	valid bool
}

// Millis builds a Timestamp from epoch milliseconds.
func Millis(ms int64) Timestamp {
	return Timestamp{ms: ms, valid: true}
}

// At builds a Timestamp from a structured time value.
func At(t time.Time) Timestamp {
	return Millis(t.UnixMilli())
}

// Millis returns the epoch milliseconds and whether the timestamp is valid.
func (t Timestamp) Millis() (int64, bool) {
	return t.ms, t.valid
}

// Valid reports whether the timestamp carries an integer instant.
func (t Timestamp) Valid() bool {
	return t.valid
}

// Time converts the timestamp to a time.Time; the zero time for invalid timestamps.
func (t Timestamp) Time() time.Time {
	if !t.valid {
		return time.Time{}
	}
	return fromMillis(t.ms)
}

// SessionValue returns a pointer to s, for building Claims literals.
func SessionValue(s string) *string {
	return &s
}
