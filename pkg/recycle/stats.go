package recycle

import (
	"bytes"
	"fmt"
	"io"

	json "github.com/goccy/go-json"
)

// Stats is a point-in-time snapshot of one recycler's counters.
type Stats struct {
	Name        string `json:"name"`
	InstanceID  string `json:"instance_id"`
	Capacity    int    `json:"capacity"`
	Idle        int    `json:"idle"`
	Outstanding int64  `json:"outstanding"`
	Hits        uint64 `json:"hits"`
	Misses      uint64 `json:"misses"`
	Returns     uint64 `json:"returns"`
	Discards    uint64 `json:"discards"`
}

// HitRate reports the fraction of acquires served from the free store.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// EncodeJSON marshals the value to JSON bytes without HTML escaping.
func EncodeJSON(v any) ([]byte, error) {
	buf := &bytes.Buffer{}
	encoder := json.NewEncoder(buf)
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(v); err != nil {
		return nil, fmt.Errorf("json encode: %w", err)
	}
	data := buf.Bytes()
	if len(data) > 0 && data[len(data)-1] == '\n' {
		data = data[:len(data)-1]
	}
	return data, nil
}

// WriteJSON encodes and writes JSON directly to the writer without HTML escaping.
func WriteJSON(w io.Writer, v any) error {
	data, err := EncodeJSON(v)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write encoded json: %w", err)
	}
	return nil
}
