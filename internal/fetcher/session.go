package fetcher

import (
	"io"
	"sync"
	"time"
)

// session tracks one transfer attempt and fires stall when it goes idle.
type session struct {
	url     string
	started time.Time
	idle    time.Duration

	mu           sync.Mutex
	received     int64
	total        int64
	lastActivity time.Time
	timer        *time.Timer
}

// newSession starts the inactivity timer immediately, so a server that never
// answers is treated the same way as one that stops sending mid-body.
func newSession(url string, idle time.Duration, stall func()) *session {
	now := time.Now()

	s := &session{
		url:          url,
		started:      now,
		idle:         idle,
		total:        -1,
		lastActivity: now,
	}
	s.timer = time.AfterFunc(idle, stall)

	return s
}

// touch records activity and pushes the stall deadline back.
func (s *session) touch(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.received += int64(n)
	s.lastActivity = time.Now()
	s.timer.Reset(s.idle)
}

// restart begins a new response body (after a redirect) on the same session.
func (s *session) restart(total int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.received = 0
	s.total = total
	s.lastActivity = time.Now()
	s.timer.Reset(s.idle)
}

func (s *session) stop() {
	s.timer.Stop()
}

func (s *session) bytesReceived() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.received
}

// throughput returns the average rate in bytes per second.
func (s *session) throughput() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	elapsed := s.lastActivity.Sub(s.started).Seconds()
	if elapsed <= 0 {
		return 0
	}

	return float64(s.received) / elapsed
}

// activityReader counts bytes read through it and keeps the session alive.
type activityReader struct {
	r io.Reader
	s *session
}

func (a *activityReader) Read(p []byte) (int, error) {
	n, err := a.r.Read(p)
	if n > 0 {
		a.s.touch(n)
	}

	return n, err
}
