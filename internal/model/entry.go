package model

import (
	"strings"
	"time"
)

// Status is the service lifecycle of a visitor. It only moves Pending -> Done.
type Status int

const (
	StatusPending Status = iota
	StatusDone
)

func (s Status) String() string {
	if s == StatusDone {
		return "Done"
	}
	return "Pending"
}

// AffirmativeToken is the canonical "yes" value for the called flag.
const AffirmativeToken = "yes"

// Entry is one visitor check-in inside a monthly file.
type Entry struct {
	ID           string    `json:"id"`
	Date         time.Time `json:"date"`
	Name         string    `json:"name"`
	IDNumber     string    `json:"id_number"`
	ServiceType  string    `json:"service_type"`
	Neighborhood string    `json:"neighborhood"`
	Called       bool      `json:"called"`
	Status       Status    `json:"status"`
}

// NewEntry holds the caller-supplied fields of a check-in.
type NewEntry struct {
	Name         string
	IDNumber     string
	ServiceType  string
	Neighborhood string
}

// Summary aggregates the called flag over one monthly file.
type Summary struct {
	Total     int `json:"total"`
	Called    int `json:"called"`
	NotCalled int `json:"not_called"`
}

// IsAffirmative reports whether s is a "yes" spelling, case-insensitively.
// "sim" is accepted for files written by the earlier Portuguese version.
func IsAffirmative(s string) bool {
	s = strings.TrimSpace(s)
	return strings.EqualFold(s, AffirmativeToken) || strings.EqualFold(s, "sim")
}

// ValidCalledState reports whether s is a called-state token a client may
// assert: the affirmative token or one of the negative spellings.
func ValidCalledState(s string) bool {
	if IsAffirmative(s) {
		return true
	}
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "no", "não", "nao":
		return true
	}
	return false
}

// CalledLabel returns the display token for a called flag.
func CalledLabel(called bool) string {
	if called {
		return "yes"
	}
	return "no"
}
