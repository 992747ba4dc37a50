package vectorclock

import "encoding/json"

// wireClock is the JSON-visible shape of a Clock: the full fixed-capacity
// array plus the active prefix length, matching the transport contract's
// `clock[32]:i32, clock_size:uword` layout (spec.md section 6).
type wireClock struct {
	Counters [Capacity]int32 `json:"counters"`
	Size     int             `json:"size"`
}

// MarshalJSON implements json.Marshaler.
func (c Clock) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireClock{Counters: c.counters, Size: c.size})
}

// UnmarshalJSON implements json.Unmarshaler.
func (c *Clock) UnmarshalJSON(data []byte) error {
	var w wireClock
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	c.counters = w.Counters
	c.size = w.Size
	return nil
}
