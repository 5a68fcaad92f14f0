package domain

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func track(id string) *Track {
	return &Track{ID: id, Name: "Song " + id, Source: MusicSourceNetease}
}

func ids(q *Queue) []string {
	out := make([]string, 0, q.Len())
	for _, t := range q.List() {
		out = append(out, t.ID)
	}
	return out
}

func queueOf(trackIDs ...string) Queue {
	q := NewQueue()
	for _, id := range trackIDs {
		q.InsertOrSeek(track(id), -1)
	}
	q.Seek(0)
	return q
}

func TestNewQueue(t *testing.T) {
	q := NewQueue()

	if !q.IsEmpty() {
		t.Errorf("expected empty queue, got length %d", q.Len())
	}
	if q.Current() != nil {
		t.Error("expected nil current track on empty queue")
	}
}

func TestQueue_InsertOrSeek(t *testing.T) {
	tests := []struct {
		name      string
		initial   []string
		cursor    int
		track     *Track
		insertAt  int
		wantIndex int
		wantIDs   []string
	}{
		{
			name:      "append to empty queue",
			track:     track("a"),
			insertAt:  -1,
			wantIndex: 0,
			wantIDs:   []string{"a"},
		},
		{
			name:      "append when index is negative",
			initial:   []string{"a", "b"},
			track:     track("c"),
			insertAt:  -1,
			wantIndex: 2,
			wantIDs:   []string{"a", "b", "c"},
		},
		{
			name:      "insert at explicit position",
			initial:   []string{"a", "b"},
			track:     track("c"),
			insertAt:  1,
			wantIndex: 1,
			wantIDs:   []string{"a", "c", "b"},
		},
		{
			name:      "insert past the end appends",
			initial:   []string{"a"},
			track:     track("b"),
			insertAt:  10,
			wantIndex: 1,
			wantIDs:   []string{"a", "b"},
		},
		{
			name:      "existing track seeks without inserting",
			initial:   []string{"a", "b", "c"},
			track:     track("c"),
			insertAt:  0,
			wantIndex: 2,
			wantIDs:   []string{"a", "b", "c"},
		},
		{
			name:      "same id from another source is a different track",
			initial:   []string{"a"},
			track:     &Track{ID: "a", Source: MusicSourceKuwo},
			insertAt:  -1,
			wantIndex: 1,
			wantIDs:   []string{"a", "a"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := queueOf(tt.initial...)
			q.Seek(tt.cursor)

			got := q.InsertOrSeek(tt.track, tt.insertAt)

			if got != tt.wantIndex {
				t.Errorf("expected index %d, got %d", tt.wantIndex, got)
			}
			if q.CurrentIndex() != tt.wantIndex {
				t.Errorf("expected cursor %d, got %d", tt.wantIndex, q.CurrentIndex())
			}
			if diff := cmp.Diff(tt.wantIDs, ids(&q)); diff != "" {
				t.Errorf("queue mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestQueue_RemoveAt(t *testing.T) {
	tests := []struct {
		name           string
		initial        []string
		cursor         int
		remove         int
		wantRemoved    string
		wantWasCurrent bool
		wantCursor     int
		wantIDs        []string
	}{
		{
			name:        "remove before cursor shifts cursor back",
			initial:     []string{"a", "b", "c"},
			cursor:      2,
			remove:      0,
			wantRemoved: "a",
			wantCursor:  1,
			wantIDs:     []string{"b", "c"},
		},
		{
			name:        "remove after cursor keeps cursor",
			initial:     []string{"a", "b", "c"},
			cursor:      0,
			remove:      2,
			wantRemoved: "c",
			wantCursor:  0,
			wantIDs:     []string{"a", "b"},
		},
		{
			name:           "remove current in the middle points at the next entry",
			initial:        []string{"a", "b", "c"},
			cursor:         1,
			remove:         1,
			wantRemoved:    "b",
			wantWasCurrent: true,
			wantCursor:     1,
			wantIDs:        []string{"a", "c"},
		},
		{
			name:           "remove current at the end clamps cursor",
			initial:        []string{"a", "b", "c"},
			cursor:         2,
			remove:         2,
			wantRemoved:    "c",
			wantWasCurrent: true,
			wantCursor:     1,
			wantIDs:        []string{"a", "b"},
		},
		{
			name:           "remove the only track empties the queue",
			initial:        []string{"a"},
			cursor:         0,
			remove:         0,
			wantRemoved:    "a",
			wantWasCurrent: true,
			wantCursor:     0,
			wantIDs:        []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := queueOf(tt.initial...)
			q.Seek(tt.cursor)

			removed, wasCurrent := q.RemoveAt(tt.remove)

			if removed == nil || removed.ID != tt.wantRemoved {
				t.Fatalf("expected removed %q, got %v", tt.wantRemoved, removed)
			}
			if wasCurrent != tt.wantWasCurrent {
				t.Errorf("expected wasCurrent=%v, got %v", tt.wantWasCurrent, wasCurrent)
			}
			if q.CurrentIndex() != tt.wantCursor {
				t.Errorf("expected cursor %d, got %d", tt.wantCursor, q.CurrentIndex())
			}
			if diff := cmp.Diff(tt.wantIDs, ids(&q)); diff != "" {
				t.Errorf("queue mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestQueue_RemoveAt_OutOfBounds(t *testing.T) {
	q := queueOf("a")

	for _, index := range []int{-1, 1, 5} {
		if removed, _ := q.RemoveAt(index); removed != nil {
			t.Errorf("RemoveAt(%d): expected nil, got %v", index, removed)
		}
	}
	if q.Len() != 1 {
		t.Errorf("expected queue untouched, got length %d", q.Len())
	}
}

func TestQueue_Replace(t *testing.T) {
	q := queueOf("a", "b")

	if ok := q.Replace([]*Track{track("x"), track("y"), track("z")}, 1); !ok {
		t.Fatal("expected Replace to succeed")
	}
	if diff := cmp.Diff([]string{"x", "y", "z"}, ids(&q)); diff != "" {
		t.Errorf("queue mismatch (-want +got):\n%s", diff)
	}
	if q.CurrentIndex() != 1 {
		t.Errorf("expected cursor 1, got %d", q.CurrentIndex())
	}

	if ok := q.Replace([]*Track{track("p")}, 3); ok {
		t.Error("expected Replace with invalid start to fail")
	}
	if q.Len() != 3 {
		t.Errorf("expected queue unchanged after failed Replace, got length %d", q.Len())
	}
}

func TestQueue_NextIndex(t *testing.T) {
	fixed := func(n int) int { return n - 1 }

	tests := []struct {
		name    string
		cursor  int
		mode    PlayMode
		want    int
		wantOK  bool
		prev    bool
		initial []string
	}{
		{name: "list advances", cursor: 0, mode: PlayModeList, want: 1, wantOK: true},
		{name: "list stops at end", cursor: 2, mode: PlayModeList, wantOK: false},
		{name: "loop wraps at end", cursor: 2, mode: PlayModeLoop, want: 0, wantOK: true},
		{name: "random uses picker", cursor: 0, mode: PlayModeRandom, want: 2, wantOK: true},
		{name: "list prev stops at start", cursor: 0, mode: PlayModeList, prev: true, wantOK: false},
		{name: "list prev moves back", cursor: 2, mode: PlayModeList, prev: true, want: 1, wantOK: true},
		{name: "loop prev wraps at start", cursor: 0, mode: PlayModeLoop, prev: true, want: 2, wantOK: true},
		{name: "empty queue has nothing", mode: PlayModeLoop, wantOK: false, initial: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			initial := tt.initial
			if initial == nil {
				initial = []string{"a", "b", "c"}
			}
			q := queueOf(initial...)
			q.Seek(tt.cursor)

			var got int
			var ok bool
			if tt.prev {
				got, ok = q.PrevIndex(tt.mode, fixed)
			} else {
				got, ok = q.NextIndex(tt.mode, fixed)
			}

			if ok != tt.wantOK {
				t.Fatalf("expected ok=%v, got %v", tt.wantOK, ok)
			}
			if ok && got != tt.want {
				t.Errorf("expected index %d, got %d", tt.want, got)
			}
			if q.CurrentIndex() != tt.cursor && len(initial) > 0 {
				t.Errorf("expected cursor untouched at %d, got %d", tt.cursor, q.CurrentIndex())
			}
		})
	}
}

func TestQueue_Clear(t *testing.T) {
	q := queueOf("a", "b", "c")
	q.Seek(2)

	q.Clear()

	if !q.IsEmpty() {
		t.Errorf("expected empty queue, got length %d", q.Len())
	}
	if q.CurrentIndex() != 0 {
		t.Errorf("expected cursor 0, got %d", q.CurrentIndex())
	}
}
