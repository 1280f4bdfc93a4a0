package audio

import "sync"

// Scheduled describes one buffer placed on the playback timeline.
type Scheduled struct {
	// ID identifies the buffer in the pending set until it is released.
	ID uint64

	// Start is the scheduled begin time in seconds on the device clock.
	Start float64

	// End is Start plus the buffer duration.
	End float64
}

// Scheduler maintains the playback timeline cursor so that decoded output
// buffers play back-to-back with no gaps or overlaps. The cursor is the next
// free point on the device timeline and never decreases.
//
// Scheduler is safe for concurrent use, though in practice a session enqueues
// from a single event loop.
type Scheduler struct {
	mu      sync.Mutex
	cursor  float64
	nextID  uint64
	pending map[uint64]Scheduled
}

// NewScheduler returns a Scheduler with the cursor at zero.
func NewScheduler() *Scheduler {
	return &Scheduler{
		pending: make(map[uint64]Scheduled),
	}
}

// Schedule places a buffer of the given duration (seconds) on the timeline.
// The buffer begins at max(cursor, deviceNow): immediately after the previous
// buffer when delivery outpaces real time, or right now after a starvation
// gap. The cursor advances to the buffer's end.
//
// Buffers whose end time has already passed are dropped from the pending set
// on the way through; an explicit playback-end notification may also release
// them via [Scheduler.Release].
func (s *Scheduler) Schedule(duration, deviceNow float64) Scheduled {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.releaseElapsed(deviceNow)

	start := s.cursor
	if deviceNow > start {
		start = deviceNow
	}
	s.cursor = start + duration

	s.nextID++
	sc := Scheduled{ID: s.nextID, Start: start, End: s.cursor}
	s.pending[sc.ID] = sc
	return sc
}

// Release removes a buffer from the pending set after the device reports its
// playback ended. Unknown IDs are ignored.
func (s *Scheduler) Release(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pending, id)
}

// Pending reports how many scheduled buffers have not finished playing at the
// given device time.
func (s *Scheduler) Pending(deviceNow float64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.releaseElapsed(deviceNow)
	return len(s.pending)
}

// Cursor returns the next free point on the timeline in seconds.
func (s *Scheduler) Cursor() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor
}

// Flush discards the pending set without rewinding the cursor. Used when the
// remote agent is interrupted and queued speech should not be awaited; the
// next buffer still starts at max(cursor, now).
func (s *Scheduler) Flush(deviceNow float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.pending)
	if deviceNow > s.cursor {
		s.cursor = deviceNow
	}
}

// releaseElapsed drops pending entries whose end time has passed.
// Callers must hold s.mu.
func (s *Scheduler) releaseElapsed(deviceNow float64) {
	for id, sc := range s.pending {
		if sc.End <= deviceNow {
			delete(s.pending, id)
		}
	}
}
