package server

import "sync"

// Directory is the registry of live handles. Registration is an atomic
// check-then-insert: at most one session holds a handle at any moment,
// and lookups are exact, case-sensitive byte matches.
type Directory struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	order    []string // handles in registration order
}

// NewDirectory returns an empty directory.
func NewDirectory() *Directory {
	return &Directory{
		sessions: make(map[string]*Session),
	}
}

// Register claims handle for s. It returns ErrHandleTaken if another
// session already holds the handle.
//
// If ready is non-nil it runs after a successful claim while the
// directory lock is still held. A burst enqueued inside ready is
// therefore ordered before any packet routed to the new handle, because
// routing cannot observe the handle until the lock is released.
func (d *Directory) Register(handle string, s *Session, ready func()) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.sessions[handle]; exists {
		return ErrHandleTaken
	}
	d.sessions[handle] = s
	d.order = append(d.order, handle)
	if ready != nil {
		ready()
	}
	return nil
}

// Unregister removes handle if it is currently held by s. It returns
// true if the entry was removed. The session check keeps a late
// unregister from a rejected duplicate from evicting the legitimate
// holder.
func (d *Directory) Unregister(handle string, s *Session) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	current, exists := d.sessions[handle]
	if !exists || current != s {
		return false
	}
	delete(d.sessions, handle)
	for i, h := range d.order {
		if h == handle {
			d.order = append(d.order[:i], d.order[i+1:]...)
			break
		}
	}
	return true
}

// Resolve returns the session registered under handle, or
// ErrHandleUnknown if no session holds it.
func (d *Directory) Resolve(handle string) (*Session, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	s, exists := d.sessions[handle]
	if !exists {
		return nil, ErrHandleUnknown
	}
	return s, nil
}

// Count returns the number of registered handles.
func (d *Directory) Count() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.sessions)
}

// Snapshot returns the registered handles in registration order. The
// returned slice is a copy taken under one lock acquisition, so it is a
// consistent view even while registrations continue.
func (d *Directory) Snapshot() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	handles := make([]string, len(d.order))
	copy(handles, d.order)
	return handles
}

// Others returns every registered session except skip. Callers enqueue
// to the returned sessions after the lock is released so a slow outbox
// never stalls the directory.
func (d *Directory) Others(skip *Session) []*Session {
	d.mu.RLock()
	defer d.mu.RUnlock()

	targets := make([]*Session, 0, len(d.sessions))
	for _, s := range d.sessions {
		if s != skip {
			targets = append(targets, s)
		}
	}
	return targets
}
