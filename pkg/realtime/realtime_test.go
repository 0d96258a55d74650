package realtime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rubiojr/cvsearch/pkg/core"
)

func TestHubPublish(t *testing.T) {
	h := NewHub(4)
	id1, ch1 := h.Register()
	_, ch2 := h.Register()
	require.Equal(t, 2, h.Size())

	cid := int64(7)
	h.Publish(NewSearchEvent(core.HistoryEntry{
		RequestID:    "abc",
		Query:        "golang",
		CandidateID:  &cid,
		SearchType:   core.SearchTypeContent,
		Outcome:      core.OutcomeSuccess,
		ResultsCount: 3,
		SearchedAt:   time.Unix(1700000000, 0).UTC(),
	}))

	for _, ch := range []<-chan Event{ch1, ch2} {
		select {
		case ev := <-ch:
			assert.Equal(t, TypeSearch, ev.Type)
			assert.Equal(t, "golang", ev.Search.Query)
			assert.Equal(t, 3, ev.Search.ResultsCount)
			assert.Equal(t, int64(7), *ev.Search.CandidateID)
		case <-time.After(time.Second):
			t.Fatal("event not delivered")
		}
	}

	h.Unregister(id1)
	h.Unregister(id1)
	assert.Equal(t, 1, h.Size())
	_, open := <-ch1
	assert.False(t, open)
}

func TestHubDropsForSlowListener(t *testing.T) {
	h := NewHub(1)
	_, ch := h.Register()

	h.Publish(SearchEvent{Query: "first"})
	h.Publish(SearchEvent{Query: "second"})

	ev := <-ch
	assert.Equal(t, "first", ev.Search.Query)
	select {
	case ev := <-ch:
		t.Fatalf("unexpected event %q", ev.Search.Query)
	default:
	}
}

func TestNewHubDefaultBuffer(t *testing.T) {
	h := NewHub(0)
	assert.Equal(t, 32, h.bufSize)
}
