package domain

// Queue is an ordered list of tracks with a cursor pointing at the current entry.
// Tracks are never popped when they finish; the cursor moves instead.
type Queue struct {
	tracks       []*Track
	currentIndex int
}

// NewQueue creates a new empty Queue.
func NewQueue() Queue {
	return Queue{tracks: make([]*Track, 0)}
}

// IsEmpty returns true if the queue has no tracks.
func (q *Queue) IsEmpty() bool {
	return q.Len() == 0
}

// Len returns the number of tracks in the queue.
func (q *Queue) Len() int {
	return len(q.tracks)
}

// CurrentIndex returns the cursor position.
func (q *Queue) CurrentIndex() int {
	return q.currentIndex
}

func (q *Queue) isValidIndex(index int) bool {
	return 0 <= index && index < q.Len()
}

// Current returns the track under the cursor, or nil if the queue is empty.
func (q *Queue) Current() *Track {
	if q.IsEmpty() {
		return nil
	}
	return q.tracks[q.currentIndex]
}

// At returns the track at index, or nil if index is out of bounds.
func (q *Queue) At(index int) *Track {
	if !q.isValidIndex(index) {
		return nil
	}
	return q.tracks[index]
}

// List returns a copy of the track list. The tracks themselves are shared.
func (q *Queue) List() []*Track {
	result := make([]*Track, q.Len())
	copy(result, q.tracks)
	return result
}

// IndexOf returns the position of the track with the given key, or -1.
func (q *Queue) IndexOf(key TrackKey) int {
	for i, t := range q.tracks {
		if t.Key() == key {
			return i
		}
	}
	return -1
}

// InsertOrSeek moves the cursor to track if it is already queued.
// Otherwise the track is inserted at insertAt (appended when insertAt is
// negative or past the end) and the cursor moves to it.
// Returns the resulting cursor position.
func (q *Queue) InsertOrSeek(track *Track, insertAt int) int {
	if idx := q.IndexOf(track.Key()); idx >= 0 {
		q.currentIndex = idx
		return idx
	}

	if insertAt < 0 || insertAt > q.Len() {
		insertAt = q.Len()
	}

	q.tracks = append(q.tracks, nil)
	copy(q.tracks[insertAt+1:], q.tracks[insertAt:])
	q.tracks[insertAt] = track
	q.currentIndex = insertAt
	return insertAt
}

// Replace discards the queue contents and loads tracks with the cursor at start.
// Returns false, leaving the queue unchanged, if start is not a valid index of tracks.
func (q *Queue) Replace(tracks []*Track, start int) bool {
	if len(tracks) > 0 && (start < 0 || start >= len(tracks)) {
		return false
	}

	q.tracks = make([]*Track, len(tracks))
	copy(q.tracks, tracks)
	q.currentIndex = 0
	if len(tracks) > 0 {
		q.currentIndex = start
	}
	return true
}

// RemoveAt removes and returns the track at index, or nil if out of bounds.
// Removing before the cursor shifts the cursor back by one. Removing the
// entry under the cursor leaves the cursor on the entry that slid into its
// place, clamped to the new last index. wasCurrent reports the latter case.
func (q *Queue) RemoveAt(index int) (removed *Track, wasCurrent bool) {
	if !q.isValidIndex(index) {
		return nil, false
	}

	removed = q.tracks[index]
	q.tracks = append(q.tracks[:index], q.tracks[index+1:]...)
	wasCurrent = index == q.currentIndex

	switch {
	case q.IsEmpty():
		q.currentIndex = 0
	case index < q.currentIndex:
		q.currentIndex--
	case q.currentIndex >= q.Len():
		q.currentIndex = q.Len() - 1
	}

	return removed, wasCurrent
}

// Seek moves the cursor to index. Returns false if index is out of bounds.
func (q *Queue) Seek(index int) bool {
	if !q.isValidIndex(index) {
		return false
	}
	q.currentIndex = index
	return true
}

// NextIndex returns the index that follows the cursor under mode.
// randIntN picks the index in random mode and may return the current one.
// In list mode there is no next index past the last track.
func (q *Queue) NextIndex(mode PlayMode, randIntN func(int) int) (int, bool) {
	if q.IsEmpty() {
		return 0, false
	}

	switch mode {
	case PlayModeRandom:
		return randIntN(q.Len()), true
	case PlayModeLoop:
		return (q.currentIndex + 1) % q.Len(), true
	default:
		if q.currentIndex+1 >= q.Len() {
			return 0, false
		}
		return q.currentIndex + 1, true
	}
}

// PrevIndex is the mirror image of NextIndex.
func (q *Queue) PrevIndex(mode PlayMode, randIntN func(int) int) (int, bool) {
	if q.IsEmpty() {
		return 0, false
	}

	switch mode {
	case PlayModeRandom:
		return randIntN(q.Len()), true
	case PlayModeLoop:
		return (q.currentIndex - 1 + q.Len()) % q.Len(), true
	default:
		if q.currentIndex == 0 {
			return 0, false
		}
		return q.currentIndex - 1, true
	}
}

// Clear removes all tracks and resets the cursor.
func (q *Queue) Clear() {
	q.tracks = make([]*Track, 0)
	q.currentIndex = 0
}
