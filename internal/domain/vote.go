package domain

import (
	"strconv"
	"strings"
	"time"
)

// Direction is the binary classification of a vote.
type Direction string

const (
	DirectionFavor  Direction = "favor"
	DirectionContra Direction = "contra"
)

// Valid reports whether the direction is one of the two allowed values.
func (d Direction) Valid() bool {
	return d == DirectionFavor || d == DirectionContra
}

// Vote represents one submitted survey opinion. Votes are append-only:
// once stored they are never updated or deleted.
type Vote struct {
	ID               int64     `json:"id"`
	InterviewerName  string    `json:"interviewer_name"`
	IntervieweeName  string    `json:"interviewee_name"`
	IntervieweeEmail string    `json:"interviewee_email"`
	Age              int       `json:"age"`
	Profession       string    `json:"profession"`
	CaseExample      string    `json:"case_example,omitempty"`
	Direction        Direction `json:"vote_type"`
	CreatedAt        time.Time `json:"created_at"`
}

// FilterAll is the sentinel filter value meaning "no filtering".
const FilterAll = "all"

// VoteFilter narrows a vote listing. Empty or FilterAll fields apply no
// constraint; set fields combine with logical AND.
type VoteFilter struct {
	Direction  string // exact match against "favor" / "contra"
	Profession string // case-sensitive substring match
	AgeBracket string // one of the bracket tokens, e.g. "26-35" or "51+"
}

// AgeBrackets lists the bracket tokens in ascending order.
var AgeBrackets = []string{"18-25", "26-35", "36-50", "51+"}

// BracketForAge assigns an age to exactly one bracket. Ages below the
// validated minimum still land in the lowest bracket so that no record is
// ever dropped from a distribution.
func BracketForAge(age int) string {
	switch {
	case age <= 25:
		return "18-25"
	case age <= 35:
		return "26-35"
	case age <= 50:
		return "36-50"
	default:
		return "51+"
	}
}

// AgeRange is the inclusive numeric range encoded by a bracket token.
// Open means the range has no upper bound.
type AgeRange struct {
	Min  int
	Max  int
	Open bool
}

// ParseAgeBracket maps a bracket token to its inclusive range.
func ParseAgeBracket(token string) (AgeRange, bool) {
	if strings.HasSuffix(token, "+") {
		min, err := strconv.Atoi(strings.TrimSuffix(token, "+"))
		if err != nil {
			return AgeRange{}, false
		}
		return AgeRange{Min: min, Open: true}, true
	}
	lo, hi, ok := strings.Cut(token, "-")
	if !ok {
		return AgeRange{}, false
	}
	min, err := strconv.Atoi(lo)
	if err != nil {
		return AgeRange{}, false
	}
	max, err := strconv.Atoi(hi)
	if err != nil {
		return AgeRange{}, false
	}
	return AgeRange{Min: min, Max: max}, true
}
