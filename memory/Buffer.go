package memory

import (
	"fmt"

	"github.com/gammazero/deque"
)

// BufferType describes the kinds of experience memory that can be
// selected from a serialized configuration
type BufferType string

const (
	RingBuffer BufferType = "ring_buffer"
)

// Config mirrors a memory specification in a serialized configuration
// file
type Config struct {
	Type     BufferType `json:"type"`
	Capacity int        `json:"capacity"`
}

// Create returns the Buffer the Config describes. Unknown buffer types
// and non-positive capacities are rejected here, so a malformed
// configuration fails at construction rather than at update time.
func (c Config) Create() (*Buffer, error) {
	if c.Type != RingBuffer {
		return nil, fmt.Errorf("create: no such memory type %q", c.Type)
	}
	return New(c.Capacity)
}

// Buffer is a fixed-capacity FIFO store of transition Records. When
// full, appending evicts the oldest record. The deliberate bias toward
// recent experience keeps updates close to on-policy.
type Buffer struct {
	records  *deque.Deque[Record]
	capacity int
}

// New returns a new Buffer holding at most capacity records
func New(capacity int) (*Buffer, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("new: capacity must be > 0, got %v", capacity)
	}

	return &Buffer{
		records:  deque.New[Record](),
		capacity: capacity,
	}, nil
}

// Append inserts a record in O(1). If the Buffer is at capacity, the
// oldest record is evicted first. Append never fails.
func (b *Buffer) Append(r Record) {
	if b.records.Len() == b.capacity {
		b.records.PopFront()
	}
	b.records.PushBack(r)
}

// Len returns the number of records currently stored
func (b *Buffer) Len() int {
	return b.records.Len()
}

// Capacity returns the maximum number of records the Buffer can hold
func (b *Buffer) Capacity() int {
	return b.capacity
}

// Drain returns the most recent n records in their original
// chronological order, or all records if n exceeds the current size.
// Drain(0) returns an empty slice. Records are copied out, not
// removed: records leave the Buffer only through capacity eviction.
func (b *Buffer) Drain(n int) []Record {
	if n <= 0 {
		return []Record{}
	}
	if n > b.records.Len() {
		n = b.records.Len()
	}

	out := make([]Record, n)
	start := b.records.Len() - n
	for i := 0; i < n; i++ {
		out[i] = b.records.At(start + i)
	}
	return out
}

// DrainEpisodes returns the most recent n complete episodes, oldest
// first, with each episode's records in chronological order. A
// trailing in-progress episode is excluded. The oldest returned
// episode may have lost its earliest records to capacity eviction.
// Like Drain, nothing is removed from the Buffer.
func (b *Buffer) DrainEpisodes(n int) [][]Record {
	if n <= 0 || b.records.Len() == 0 {
		return [][]Record{}
	}

	// Skip the trailing records of an unfinished episode
	end := b.records.Len()
	for end > 0 && !b.records.At(end-1).Done {
		end--
	}

	episodes := make([][]Record, 0, n)
	for end > 0 && len(episodes) < n {
		start := end - 1
		for start > 0 && !b.records.At(start-1).Done {
			start--
		}

		episode := make([]Record, end-start)
		for i := start; i < end; i++ {
			episode[i-start] = b.records.At(i)
		}
		episodes = append(episodes, episode)

		end = start
	}

	// Reverse to chronological order
	for i, j := 0, len(episodes)-1; i < j; i, j = i+1, j-1 {
		episodes[i], episodes[j] = episodes[j], episodes[i]
	}

	return episodes
}
