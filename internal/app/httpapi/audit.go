package httpapi

import (
	"encoding/json"
	"os"
	"sync"
	"time"
)

// auditEntry records one admin action against the workflow or catalog.
type auditEntry struct {
	Time       time.Time `json:"time"`
	User       string    `json:"user"`
	Role       string    `json:"role"`
	Action     string    `json:"action"`
	Target     string    `json:"target,omitempty"`
	Path       string    `json:"path"`
	Method     string    `json:"method"`
	RemoteAddr string    `json:"remote_addr,omitempty"`
}

// auditSink persists entries beyond the in-memory window.
type auditSink interface {
	Write(entry auditEntry) error
}

// auditLog keeps the most recent admin actions in a fixed circular buffer.
// Entries past the window are only retained when a sink is configured.
type auditLog struct {
	mu   sync.Mutex
	ring []auditEntry
	next int
	full bool
	sink auditSink
}

func newAuditLog(capacity int, sink auditSink) *auditLog {
	if capacity <= 0 {
		capacity = 200
	}
	return &auditLog{ring: make([]auditEntry, capacity), sink: sink}
}

func (l *auditLog) record(entry auditEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.ring[l.next] = entry
	l.next++
	if l.next == len(l.ring) {
		l.next = 0
		l.full = true
	}

	if l.sink != nil {
		// Best-effort persistence; a sink failure must not fail the request.
		_ = l.sink.Write(entry)
	}
}

// recent returns up to limit entries, oldest first. A non-positive limit
// returns the whole window.
func (l *auditLog) recent(limit int) []auditEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	var ordered []auditEntry
	if l.full {
		ordered = append(ordered, l.ring[l.next:]...)
		ordered = append(ordered, l.ring[:l.next]...)
	} else {
		ordered = append(ordered, l.ring[:l.next]...)
	}

	if limit > 0 && len(ordered) > limit {
		ordered = ordered[len(ordered)-limit:]
	}
	return ordered
}

// fileAuditSink appends entries to a file as JSON lines.
type fileAuditSink struct {
	mu  sync.Mutex
	enc *json.Encoder
}

func newFileAuditSink(path string) (*fileAuditSink, error) {
	if path == "" {
		return nil, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o640)
	if err != nil {
		return nil, err
	}
	return &fileAuditSink{enc: json.NewEncoder(f)}, nil
}

func (s *fileAuditSink) Write(entry auditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enc.Encode(entry)
}
