package domain

import (
	"encoding/json"
	"time"
)

// Domain contains core models shared across packages.

// Health is the payload of GET /api/v1/health.
type Health struct {
	Status string `json:"status" yaml:"status"`
}

// Version is the payload of GET /api/v1/version.
type Version struct {
	Name    string `json:"name" yaml:"name"`
	Version string `json:"version" yaml:"version"`
	Env     string `json:"env" yaml:"env"`
}

// Label renders "<name> <version> (<env>)".
func (v Version) Label() string {
	return v.Name + " " + v.Version + " (" + v.Env + ")"
}

// StatusUnreachable marks a target whose API could not be contacted at all.
const StatusUnreachable = "unreachable"

// StatusError marks a target that answered with a non-2xx status.
const StatusError = "error"

// Snapshot is the result of probing one target.
type Snapshot struct {
	TargetID      string    `json:"target_id"`
	TargetName    string    `json:"target_name"`
	Status        string    `json:"status"`
	Version       *Version  `json:"version,omitempty"`
	FrontendTitle string    `json:"frontend_title,omitempty"`
	HTTPStatus    int       `json:"http_status,omitempty"`
	Error         string    `json:"error,omitempty"`
	CheckedAt     time.Time `json:"checked_at"`
}

// Healthy reports whether the API answered with status "ok".
func (s Snapshot) Healthy() bool {
	return s.Status == "ok"
}

// LookupTables lists the reference tables served as id/code/name rows under
// /api/v1/<table>.
var LookupTables = []string{
	"ac-types",
	"sizes",
	"creature-types",
	"alignments",
	"damage-types",
	"condition-types",
	"speed-types",
	"sense-types",
	"languages",
	"environments",
	"tags",
	"skills",
	"abilities",
}

// IsLookupTable reports whether name is one of LookupTables.
func IsLookupTable(name string) bool {
	for _, t := range LookupTables {
		if t == name {
			return true
		}
	}
	return false
}

// Lookup is a row of one of the simple reference tables (sizes, creature
// types, alignments, ...).
type Lookup struct {
	ID   int    `json:"id" yaml:"id"`
	Code string `json:"code" yaml:"code"`
	Name string `json:"name" yaml:"name"`
}

// Source is a rulebook or supplement monsters are published in.
type Source struct {
	ID          int     `json:"id" yaml:"id"`
	Code        string  `json:"code" yaml:"code"`
	Title       string  `json:"title" yaml:"title"`
	Abbrev      *string `json:"abbrev" yaml:"abbrev"`
	ReleaseYear *int    `json:"release_year" yaml:"release_year"`
	Publisher   *string `json:"publisher" yaml:"publisher"`
}

// CRToXP maps a challenge rating to the experience it awards. The API
// serializes the rating as a decimal string ("0.125"); json.Number accepts
// both that and a bare number.
type CRToXP struct {
	ChallengeRating json.Number `json:"challenge_rating" yaml:"challenge_rating"`
	XP              int         `json:"xp" yaml:"xp"`
}
