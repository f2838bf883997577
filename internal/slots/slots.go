package slots

import (
	"fmt"
	"strings"
)

// Location is a test center as it appears in the portal's location dropdown.
type Location struct {
	Name string `yaml:"name"`
	// Telegram forum topic the location's alerts go to; 0 means the main chat.
	TopicID int64 `yaml:"telegram_topic_id"`
}

func (l Location) String() string {
	return l.Name
}

// Slot is one bookable time entry for a location on a given day.
type Slot struct {
	Day  string
	Date string
	Time string
}

// Label renders the slot the way it is shown in notifications, e.g. "Mo 12.05.2025 08:15".
func (s Slot) Label() string {
	return strings.TrimSpace(fmt.Sprintf("%s %s %s", s.Day, s.Date, s.Time))
}

// LocationResult holds every slot found for one location during one scan cycle.
type LocationResult struct {
	Location Location
	Slots    []Slot
}

func (r LocationResult) Empty() bool {
	return len(r.Slots) == 0
}

// Labels returns the slot labels in scan order.
func (r LocationResult) Labels() []string {
	labels := make([]string, 0, len(r.Slots))
	for _, slot := range r.Slots {
		labels = append(labels, slot.Label())
	}
	return labels
}
