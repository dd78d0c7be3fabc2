package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSet(t *testing.T, urls ...string) *WorkingSet {
	t.Helper()
	ws := NewWorkingSet()
	for _, u := range urls {
		ws.Add(mustTarget(t, u))
	}
	return ws
}

func urlsOf(ws *WorkingSet) []string {
	var out []string
	for _, j := range ws.Jobs() {
		out = append(out, j.Target.URL())
	}
	return out
}

func TestWorkingSet_AddIsUniqueByURL(t *testing.T) {
	ws := NewWorkingSet()

	first, added := ws.Add(mustTarget(t, "https://example.com/a"))
	require.True(t, added)

	dup := mustTarget(t, "https://example.com/a")
	dup.Title = "other"
	again, added := ws.Add(dup)

	assert.False(t, added)
	assert.Same(t, first, again)
	assert.Equal(t, 1, ws.Len())
}

func TestWorkingSet_PreservesInsertionOrder(t *testing.T) {
	ws := newSet(t, "https://c.example", "https://a.example", "https://b.example")
	assert.Equal(t, []string{"https://c.example", "https://a.example", "https://b.example"}, urlsOf(ws))
}

func TestWorkingSet_RemoveByIndex(t *testing.T) {
	ws := newSet(t, "https://a.example", "https://b.example", "https://c.example")

	next, err := ws.RemoveByIndex(2)
	require.NoError(t, err)

	assert.Equal(t, []string{"https://a.example", "https://c.example"}, urlsOf(next))
	assert.Equal(t, 3, ws.Len(), "original set is not mutated")
}

func TestWorkingSet_RemoveByIndexMultiple(t *testing.T) {
	ws := newSet(t, "https://a.example", "https://b.example", "https://c.example", "https://d.example")

	next, err := ws.RemoveByIndex(4, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://b.example", "https://c.example"}, urlsOf(next))
}

func TestWorkingSet_RemoveByIndexOutOfRange(t *testing.T) {
	ws := newSet(t, "https://a.example", "https://b.example")

	for _, pos := range []int{0, 3, -1} {
		_, err := ws.RemoveByIndex(1, pos)
		assert.ErrorIs(t, err, ErrPositionOutOfRange, "position %d", pos)
	}
	assert.Equal(t, 2, ws.Len())
}

func TestWorkingSet_RemoveAll(t *testing.T) {
	ws := newSet(t, "https://a.example", "https://b.example", "https://c.example")
	a, _ := ws.Job(1)
	c, _ := ws.Job(3)

	next := ws.RemoveAll(a, c)
	assert.Equal(t, []string{"https://b.example"}, urlsOf(next))
}

func TestWorkingSet_Job(t *testing.T) {
	ws := newSet(t, "https://a.example", "https://b.example")

	j, err := ws.Job(2)
	require.NoError(t, err)
	assert.Equal(t, "https://b.example", j.Target.URL())

	_, err = ws.Job(0)
	assert.ErrorIs(t, err, ErrPositionOutOfRange)
}

func TestWorkingSet_Entries(t *testing.T) {
	ws := newSet(t, "https://a.example", "https://b.example")
	j, _ := ws.Job(2)
	j.Target.Title = "Bee"

	assert.Equal(t, []Entry{
		{Index: 1, Title: UntitledPlaceholder, URL: "https://a.example"},
		{Index: 2, Title: "Bee", URL: "https://b.example"},
	}, ws.Entries())
}
