// Package stories reads the requirements document and selects work.
//
// The document (prd.json) is owned by the external coding agent: it writes
// story state back to disk between iterations, so every read here goes to
// disk. The orchestrator never mutates the document.
package stories

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"
)

// prioritySentinel orders stories with no explicit priority after every
// story that has one.
const prioritySentinel = 999

// RequirementsDocument is the on-disk story declaration for a branch.
type RequirementsDocument struct {
	BranchName  string  `json:"branchName"`
	UserStories []Story `json:"userStories"`
}

// Story is a single unit of work. Priority and Passes are optional in the
// document; defaults are applied at load time so selection logic never has
// to check for absence.
type Story struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Priority *int   `json:"priority,omitempty"`
	Passes   bool   `json:"passes,omitempty"`
}

// EffectivePriority returns the story's priority with the unset sentinel
// applied.
func (s Story) EffectivePriority() int {
	if s.Priority == nil {
		return prioritySentinel
	}
	return *s.Priority
}

// ParseError indicates the requirements document exists but is not valid
// JSON. It is deliberately distinct from a validly empty document: a
// malformed file must never read as "zero stories remaining".
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse requirements document %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// storyID normalizes story ids to strings; documents in the wild use both
// numeric and string ids.
type storyID string

func (id *storyID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*id = storyID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("story id must be a string or number: %w", err)
	}
	*id = storyID(n.String())
	return nil
}

// looseBool treats anything but a literal true as false. A story passes
// only when its passes field is exactly true; a non-boolean value there is
// an incomplete story, not a parse failure.
type looseBool bool

func (b *looseBool) UnmarshalJSON(data []byte) error {
	*b = looseBool(string(data) == "true")
	return nil
}

// Store reads the requirements document from a fixed path.
type Store struct {
	path string
}

// NewStore returns a store reading the document at path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the document location.
func (s *Store) Path() string { return s.path }

// Load reads and parses the requirements document from disk. It is called
// at the top of every iteration rather than once, because the external
// agent rewrites the file between iterations.
//
// A missing or unreadable file is an ordinary error; a file that exists
// but does not parse is a *ParseError. An absent userStories field yields
// an empty story list, not an error.
func (s *Store) Load() (*RequirementsDocument, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read requirements document: %w", err)
	}

	var raw struct {
		BranchName  string `json:"branchName"`
		UserStories []struct {
			ID       storyID   `json:"id"`
			Title    string    `json:"title"`
			Priority *int      `json:"priority"`
			Passes   looseBool `json:"passes"`
		} `json:"userStories"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &ParseError{Path: s.path, Err: err}
	}

	doc := &RequirementsDocument{
		BranchName:  raw.BranchName,
		UserStories: make([]Story, 0, len(raw.UserStories)),
	}
	for _, rs := range raw.UserStories {
		doc.UserStories = append(doc.UserStories, Story{
			ID:       string(rs.ID),
			Title:    rs.Title,
			Priority: rs.Priority,
			Passes:   bool(rs.Passes),
		})
	}

	return doc, nil
}

// Incomplete returns every story whose passes flag is not set, ordered by
// ascending priority (unset priority sorts last) with ascending id as the
// tie-break. The ordering is recomputed from the document on every call and
// is stable for identical input.
func Incomplete(doc *RequirementsDocument) []Story {
	var out []Story
	for _, s := range doc.UserStories {
		if !s.Passes {
			out = append(out, s)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		pi, pj := out[i].EffectivePriority(), out[j].EffectivePriority()
		if pi != pj {
			return pi < pj
		}
		return lessID(out[i].ID, out[j].ID)
	})
	return out
}

// lessID orders ids numerically when both sides are numeric, lexically
// otherwise, so documents with numeric ids do not sort 1, 10, 2.
func lessID(a, b string) bool {
	na, errA := strconv.Atoi(a)
	nb, errB := strconv.Atoi(b)
	if errA == nil && errB == nil {
		return na < nb
	}
	return a < b
}

// Current returns the next story to surface to the operator, or nil when
// every story passes.
func Current(doc *RequirementsDocument) *Story {
	incomplete := Incomplete(doc)
	if len(incomplete) == 0 {
		return nil
	}
	return &incomplete[0]
}

// Remaining counts the stories that do not yet pass.
func Remaining(doc *RequirementsDocument) int {
	return len(Incomplete(doc))
}
