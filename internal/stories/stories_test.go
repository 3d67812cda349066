package stories

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeDoc(t *testing.T, content string) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "prd.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return NewStore(path)
}

func TestLoad_AppliesDefaults(t *testing.T) {
	store := writeDoc(t, `{
		"branchName": "ralph/feature-x",
		"userStories": [
			{"id": "1", "title": "First"},
			{"id": "2", "title": "Second", "priority": 3, "passes": true}
		]
	}`)

	doc, err := store.Load()
	require.NoError(t, err)

	assert.Equal(t, "ralph/feature-x", doc.BranchName)
	require.Len(t, doc.UserStories, 2)

	// Absent priority reads as the sentinel; absent passes reads false.
	assert.Nil(t, doc.UserStories[0].Priority)
	assert.Equal(t, 999, doc.UserStories[0].EffectivePriority())
	assert.False(t, doc.UserStories[0].Passes)

	require.NotNil(t, doc.UserStories[1].Priority)
	assert.Equal(t, 3, *doc.UserStories[1].Priority)
	assert.True(t, doc.UserStories[1].Passes)
}

func TestLoad_NumericIDs(t *testing.T) {
	store := writeDoc(t, `{"userStories": [{"id": 7, "title": "Numeric"}]}`)

	doc, err := store.Load()
	require.NoError(t, err)
	require.Len(t, doc.UserStories, 1)
	assert.Equal(t, "7", doc.UserStories[0].ID)
}

func TestLoad_AbsentUserStoriesIsEmpty(t *testing.T) {
	// A valid document without userStories yields zero stories, not an
	// error. Only malformed JSON is a hard failure.
	store := writeDoc(t, `{"branchName": "ralph/bare"}`)

	doc, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, doc.UserStories)
	assert.Equal(t, 0, Remaining(doc))
}

func TestLoad_NonBooleanPassesIsIncomplete(t *testing.T) {
	// Only a literal true counts as passing; a string or number there
	// leaves the story incomplete rather than failing the load.
	store := writeDoc(t, `{"userStories": [
		{"id": "1", "title": "A", "passes": "yes"},
		{"id": "2", "title": "B", "passes": 1},
		{"id": "3", "title": "C", "passes": true}
	]}`)

	doc, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, 2, Remaining(doc))
	assert.True(t, doc.UserStories[2].Passes)
}

func TestLoad_MalformedIsParseError(t *testing.T) {
	store := writeDoc(t, `{"branchName": "ralph/broken", "userStories": [`)

	_, err := store.Load()
	require.Error(t, err)

	var parseErr *ParseError
	require.True(t, errors.As(err, &parseErr), "malformed document must surface as *ParseError, got %v", err)
	assert.Equal(t, store.Path(), parseErr.Path)
}

func TestLoad_MissingFileIsNotParseError(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "absent.json"))

	_, err := store.Load()
	require.Error(t, err)

	var parseErr *ParseError
	assert.False(t, errors.As(err, &parseErr))
}

func TestIncomplete_ScenarioOrdering(t *testing.T) {
	// id:2 passes and is excluded; id:1 has explicit priority 1 and sorts
	// before id:3, which carries the unset-priority sentinel.
	store := writeDoc(t, `{
		"branchName": "ralph/scenario-a",
		"userStories": [
			{"id": "2", "title": "Done", "passes": true},
			{"id": "1", "title": "Urgent", "priority": 1},
			{"id": "3", "title": "Later"}
		]
	}`)

	doc, err := store.Load()
	require.NoError(t, err)

	incomplete := Incomplete(doc)
	require.Len(t, incomplete, 2)
	assert.Equal(t, "1", incomplete[0].ID)
	assert.Equal(t, "3", incomplete[1].ID)
	assert.Equal(t, 2, Remaining(doc))
}

func TestIncomplete_PriorityThenIDTieBreak(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want []string
	}{
		{
			name: "same priority breaks ties by id",
			doc: `{"userStories": [
				{"id": "b", "title": "B", "priority": 5},
				{"id": "a", "title": "A", "priority": 5}
			]}`,
			want: []string{"a", "b"},
		},
		{
			name: "numeric ids sort numerically",
			doc: `{"userStories": [
				{"id": 10, "title": "Ten"},
				{"id": 2, "title": "Two"}
			]}`,
			want: []string{"2", "10"},
		},
		{
			name: "explicit priority beats unset regardless of id",
			doc: `{"userStories": [
				{"id": "1", "title": "Unset"},
				{"id": "9", "title": "Set", "priority": 100}
			]}`,
			want: []string{"9", "1"},
		},
		{
			name: "all passing yields empty",
			doc: `{"userStories": [
				{"id": "1", "title": "A", "passes": true},
				{"id": "2", "title": "B", "passes": true}
			]}`,
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := writeDoc(t, tt.doc)
			doc, err := store.Load()
			require.NoError(t, err)

			var got []string
			for _, s := range Incomplete(doc) {
				got = append(got, s.ID)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCurrent_IdempotentWithoutMutation(t *testing.T) {
	store := writeDoc(t, `{"userStories": [
		{"id": "1", "title": "A", "priority": 2},
		{"id": "2", "title": "B", "priority": 1}
	]}`)

	doc, err := store.Load()
	require.NoError(t, err)

	first := Current(doc)
	second := Current(doc)
	require.NotNil(t, first)
	require.NotNil(t, second)
	assert.Equal(t, *first, *second)
	assert.Equal(t, "2", first.ID)
}

func TestCurrent_NilWhenAllPass(t *testing.T) {
	store := writeDoc(t, `{"userStories": [{"id": "1", "title": "A", "passes": true}]}`)

	doc, err := store.Load()
	require.NoError(t, err)
	assert.Nil(t, Current(doc))
	assert.Equal(t, 0, Remaining(doc))
}

func TestLoad_RereadsDiskState(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prd.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"userStories": [{"id": "1", "title": "A"}]}`), 0644))
	store := NewStore(path)

	doc, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, 1, Remaining(doc))

	// The external agent flips passes on disk between iterations; the next
	// Load must see it.
	require.NoError(t, os.WriteFile(path, []byte(`{"userStories": [{"id": "1", "title": "A", "passes": true}]}`), 0644))

	doc, err = store.Load()
	require.NoError(t, err)
	assert.Equal(t, 0, Remaining(doc))
}
