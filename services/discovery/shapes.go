package discovery

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrShapeChanged marks a listing page whose markup or schedule blob no
// longer matches what the parser expects. It indicates the source changed
// format and the code needs updating, callers must not retry it.
var ErrShapeChanged = errors.New("listing shape changed")

// RawShowing is one showing variant as it appears in the schedule blob.
type RawShowing struct {
	URL    string `json:"url"`
	Format string `json:"format"`
}

// ShowingGroup is the value of one time-slot entry in the schedule blob.
// The source renders it in two shapes depending on context: a list of
// showing variants (several formats at the same clock time), or a single
// showing object keyed by time-plus-format.
//
// Iterating the object shape's fields ("url", "format", ...) as if each
// were a sibling showing fabricates phantom records, so the two shapes are
// kept as an explicit tagged variant and consumers go through Each.
type ShowingGroup struct {
	Variants []RawShowing
	Single   *RawShowing
}

func (g *ShowingGroup) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if len(trimmed) == 0 {
		return fmt.Errorf("%w: empty time slot value", ErrShapeChanged)
	}
	switch trimmed[0] {
	case '[':
		return json.Unmarshal(data, &g.Variants)
	case '{':
		g.Single = &RawShowing{}
		return json.Unmarshal(data, g.Single)
	}
	return fmt.Errorf("%w: time slot value is neither a list nor an object", ErrShapeChanged)
}

// Each calls fn once per individual showing record regardless of which
// shape the group arrived in.
func (g ShowingGroup) Each(fn func(RawShowing)) {
	if g.Single != nil {
		fn(*g.Single)
		return
	}
	for _, v := range g.Variants {
		fn(v)
	}
}

type scheduleFilm struct {
	Title     string                  `json:"title"`
	Showtimes map[string]ShowingGroup `json:"showtimes"`
}

type scheduleBlob struct {
	Films []scheduleFilm `json:"films"`
}
