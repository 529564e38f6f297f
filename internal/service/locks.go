package service

import (
	"sync"

	"github.com/google/uuid"
)

// AssignmentLocks serializes every mutation of one truck assignment and its
// tracking record. Different assignments never contend. One instance is
// shared by the transport, weighing and tracking services.
type AssignmentLocks struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

func NewAssignmentLocks() *AssignmentLocks {
	return &AssignmentLocks{locks: make(map[uuid.UUID]*sync.Mutex)}
}

// Lock acquires the per-assignment mutex and returns its unlock func.
func (l *AssignmentLocks) Lock(id uuid.UUID) func() {
	l.mu.Lock()
	m, ok := l.locks[id]
	if !ok {
		m = &sync.Mutex{}
		l.locks[id] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
