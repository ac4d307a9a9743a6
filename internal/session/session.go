package session

import (
	"encoding/json"
	"fmt"
)

// Session is the per-visitor key/value state loaded for one
// request; values are kept as raw JSON so each owner decodes its own shape
type Session struct {
	ID       string
	values   map[string]json.RawMessage
	modified bool
}

// New creates an empty session
func New(id string) *Session {
	return &Session{
		ID:     id,
		values: make(map[string]json.RawMessage),
	}
}

// Get returns the raw value stored under key
func (s *Session) Get(key string) ([]byte, bool) {
	v, ok := s.values[key]
	return v, ok
}

// Set stores value under key and marks the session modified
func (s *Session) Set(key string, value []byte) {
	s.values[key] = json.RawMessage(value)
	s.modified = true
}

// Delete removes key and marks the session modified
func (s *Session) Delete(key string) {
	delete(s.values, key)
	s.modified = true
}

// Modified reports whether the session must be written back
func (s *Session) Modified() bool {
	return s.modified
}

// Len returns the number of stored keys
func (s *Session) Len() int {
	return len(s.values)
}

func (s *Session) encode() ([]byte, error) {
	return json.Marshal(s.values)
}

func decode(id string, data []byte) (*Session, error) {
	values := make(map[string]json.RawMessage)
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("failed to decode session %s: %w", id, err)
	}
	return &Session{ID: id, values: values}, nil
}
