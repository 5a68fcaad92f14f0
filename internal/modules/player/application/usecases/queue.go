package usecases

import (
	"github.com/disgoorg/snowflake/v2"

	"github.com/sglre6355/tunebot/internal/modules/player/domain"
)

// DefaultPageSize is the number of queue entries shown per page.
const DefaultPageSize = 10

// QueueListInput contains the input for the List use case.
type QueueListInput struct {
	GuildID  snowflake.ID
	Page     int // 1-indexed, defaults to the page holding the current track
	PageSize int // defaults to DefaultPageSize
}

// QueueEntry is a queue track with its position.
type QueueEntry struct {
	Index     int
	Track     domain.Track
	IsCurrent bool
}

// QueueListOutput contains one page of the queue.
type QueueListOutput struct {
	Entries     []QueueEntry
	TotalTracks int
	CurrentPage int
	TotalPages  int
	PlayMode    domain.PlayMode
}

// QueueService provides read access to guild queues.
type QueueService struct {
	repo domain.PlayerStateRepository
}

// NewQueueService creates a new QueueService.
func NewQueueService(repo domain.PlayerStateRepository) *QueueService {
	return &QueueService{repo: repo}
}

// List returns one page of the queue.
func (q *QueueService) List(input QueueListInput) (*QueueListOutput, error) {
	state := q.repo.Get(input.GuildID)
	if state == nil {
		return nil, ErrNotConnected
	}

	state.Lock()
	defer state.Unlock()

	pageSize := input.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	tracks := state.Queue.List()
	current := state.Queue.CurrentIndex()
	hasCurrent := state.CurrentTrack() != nil

	totalTracks := len(tracks)
	totalPages := max((totalTracks+pageSize-1)/pageSize, 1)

	page := input.Page
	if page <= 0 {
		page = current/pageSize + 1
	}
	page = min(page, totalPages)

	start := (page - 1) * pageSize
	end := min(start+pageSize, totalTracks)

	entries := make([]QueueEntry, 0, max(end-start, 0))
	for i := start; i < end; i++ {
		entries = append(entries, QueueEntry{
			Index:     i,
			Track:     *tracks[i],
			IsCurrent: hasCurrent && i == current,
		})
	}

	return &QueueListOutput{
		Entries:     entries,
		TotalTracks: totalTracks,
		CurrentPage: page,
		TotalPages:  totalPages,
		PlayMode:    state.PlayMode(),
	}, nil
}
