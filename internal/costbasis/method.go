package costbasis

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Method selects the accounting convention used to match sells against
// prior buys.
type Method int

const (
	// Average folds every purchase into a single aggregate cost.
	Average Method = iota
	// FIFO tracks discrete lots and consumes the oldest first.
	FIFO
)

func (m Method) String() string {
	switch m {
	case Average:
		return "AVERAGE"
	case FIFO:
		return "FIFO"
	}
	return fmt.Sprintf("Method(%d)", int(m))
}

// ParseMethod converts a stored or user-supplied method name.
func ParseMethod(s string) (Method, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "AVERAGE", "AVG":
		return Average, nil
	case "FIFO":
		return FIFO, nil
	}
	return Average, fmt.Errorf("unknown cost basis method: %q", s)
}

// MarshalJSON encodes the method as its string name.
func (m Method) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

// UnmarshalJSON accepts the names produced by MarshalJSON.
func (m *Method) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseMethod(s)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
