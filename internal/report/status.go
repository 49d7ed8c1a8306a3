package report

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/gosimple/slug"
	"gopkg.in/yaml.v3"
)

// Status is the outcome of a result, block or run. Higher values are worse.
type Status int

const (
	StatusNeutral Status = iota
	StatusGood
	StatusWarning
	StatusBad
)

var statusNames = [...]string{
	StatusNeutral: "No Status",
	StatusGood:    "Good",
	StatusWarning: "Warning",
	StatusBad:     "Bad",
}

// AllStatuses returns every status from best to worst, neutral first
func AllStatuses() []Status {
	return []Status{StatusNeutral, StatusGood, StatusWarning, StatusBad}
}

// Valid reports whether s is one of the known statuses
func (s Status) Valid() bool {
	return s >= StatusNeutral && s <= StatusBad
}

// String returns the display name, which doubles as the status tag
func (s Status) String() string {
	if !s.Valid() {
		return "Status(" + strconv.Itoa(int(s)) + ")"
	}
	return statusNames[s]
}

// Marker returns the CSS marker class of the status tag
func (s Status) Marker() string {
	return slug.Make(s.String())
}

// ParseStatus accepts a status number, name or marker
func ParseStatus(v string) (Status, error) {
	v = strings.TrimSpace(v)
	if n, err := strconv.Atoi(v); err == nil {
		if s := Status(n); s.Valid() {
			return s, nil
		}
		return StatusNeutral, fmt.Errorf("invalid status %d", n)
	}
	for _, s := range AllStatuses() {
		if strings.EqualFold(v, s.String()) || strings.EqualFold(v, s.Marker()) {
			return s, nil
		}
	}
	return StatusNeutral, fmt.Errorf("invalid status %q", v)
}

// MaxStatus returns the worst of the given statuses, neutral for none
func MaxStatus(statuses ...Status) Status {
	worst := StatusNeutral
	for _, s := range statuses {
		if s > worst {
			worst = s
		}
	}
	return worst
}

// StatusOfName maps a status tag name back to its status
func StatusOfName(name string) (Status, bool) {
	for _, s := range AllStatuses() {
		if s.String() == name {
			return s, true
		}
	}
	return StatusNeutral, false
}

// MarshalJSON writes the numeric value
func (s Status) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Itoa(int(s))), nil
}

// UnmarshalJSON accepts a number, a name or null
func (s *Status) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*s = StatusNeutral
		return nil
	}
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case float64:
		st := Status(int(v))
		if !st.Valid() {
			return fmt.Errorf("invalid status %v", v)
		}
		*s = st
		return nil
	case string:
		st, err := ParseStatus(v)
		if err != nil {
			return err
		}
		*s = st
		return nil
	}
	return fmt.Errorf("invalid status %s", data)
}

// MarshalYAML writes the numeric value
func (s Status) MarshalYAML() (any, error) {
	return int(s), nil
}

// UnmarshalYAML accepts a number, a name or null
func (s *Status) UnmarshalYAML(node *yaml.Node) error {
	if node.Tag == "!!null" || node.Value == "" {
		*s = StatusNeutral
		return nil
	}
	st, err := ParseStatus(node.Value)
	if err != nil {
		return err
	}
	*s = st
	return nil
}
