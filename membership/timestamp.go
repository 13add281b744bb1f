package membership

import (
	"encoding/json"
	"fmt"
	"time"
)

// TimestampLayout is the wire format shared by snapshot files and the
// directory API, e.g. "2021-Jan-01 04:46:25.868712 UTC".
const TimestampLayout = "2006-Jan-02 15:04:05.000000 MST"

// Timestamp is a time.Time that round-trips through TimestampLayout.
type Timestamp struct {
	time.Time
}

// NewTimestamp truncates t to the microsecond precision of the wire format.
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{Time: t.UTC().Truncate(time.Microsecond)}
}

func ParseTimestamp(s string) (Timestamp, error) {
	t, err := time.Parse(TimestampLayout, s)
	if err != nil {
		return Timestamp{}, fmt.Errorf("invalid timestamp %q: %w", s, err)
	}
	return Timestamp{Time: t}, nil
}

func (t Timestamp) String() string {
	return t.UTC().Format(TimestampLayout)
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("timestamp must be a string: %w", err)
	}
	parsed, err := ParseTimestamp(raw)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
