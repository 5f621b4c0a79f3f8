package mpsim

import (
	"encoding/json"
	"slices"

	"github.com/sd400mp/mp-go/pkg/client"
)

// AddUser registers login credentials.
func (s *Server) AddUser(user, password string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Users[user] = password
}

// Fail makes path answer with the given envelope code. Code 0 clears it.
func (s *Server) Fail(path string, code int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if code == 0 {
		delete(s.failures, path)
		return
	}
	s.failures[path] = code
}

// ExpireSessions forgets every issued token.
func (s *Server) ExpireSessions() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.tokens)
}

// MaxQueuedFrames bounds the frame queue; the oldest batches are dropped first.
const MaxQueuedFrames = 1024

// QueueFrames queues a frame batch for the next /api/prps call.
func (s *Server) QueueFrames(testPointID string, frames json.RawMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frames = append(s.frames, client.FrameEntry{ID: client.ID(testPointID), Frames: frames})
	if over := len(s.frames) - MaxQueuedFrames; over > 0 {
		s.frames = slices.Delete(s.frames, 0, over)
	}
}

// Streaming returns the test point ids with streaming enabled, sorted.
func (s *Server) Streaming() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.streaming))
	for id := range s.streaming {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Requests returns the data of every request received on path.
func (s *Server) Requests(path string) []json.RawMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.requests[path])
}
