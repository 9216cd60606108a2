// Package session holds the client-side cache of known conversations.
package session

import (
	"sync"

	"github.com/streamagent/streamchat-go/internal/models"
)

// Directory is the set of known sessions plus the currently active one.
// Turns across different conversations share it, so all mutation goes
// through one mutex: appends are serialized, single writer at a time.
type Directory struct {
	mu       sync.Mutex
	sessions []models.Session
	activeID string
}

// NewDirectory returns an empty directory.
func NewDirectory() *Directory {
	return &Directory{}
}

// Replace swaps in the authoritative session list, typically after a
// list call to the conversation store. The active id is kept if it is
// still present, cleared otherwise.
func (d *Directory) Replace(sessions []models.Session) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.sessions = make([]models.Session, len(sessions))
	copy(d.sessions, sessions)

	if d.activeID != "" && d.indexLocked(d.activeID) < 0 {
		d.activeID = ""
	}
}

// Register records a newly learned session as the active one,
// prepending it to the list. Registering an id that is already known
// only switches the active session; no duplicate entry is created, so
// a turn that learns a new id mutates the list exactly once.
func (d *Directory) Register(s models.Session) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.indexLocked(s.ID) < 0 {
		d.sessions = append([]models.Session{s}, d.sessions...)
	}
	d.activeID = s.ID
}

// SetActive marks a known session as active. Unknown ids are ignored.
func (d *Directory) SetActive(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.indexLocked(id) >= 0 {
		d.activeID = id
	}
}

// Active returns the active session, if any.
func (d *Directory) Active() (models.Session, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	i := d.indexLocked(d.activeID)
	if i < 0 {
		return models.Session{}, false
	}
	return d.sessions[i], true
}

// Remove drops a session, clearing the active id if it pointed at it.
func (d *Directory) Remove(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	i := d.indexLocked(id)
	if i < 0 {
		return
	}
	d.sessions = append(d.sessions[:i], d.sessions[i+1:]...)
	if d.activeID == id {
		d.activeID = ""
	}
}

// Rename updates a session title in place.
func (d *Directory) Rename(id, title string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if i := d.indexLocked(id); i >= 0 {
		d.sessions[i].Title = title
	}
}

// List returns a copy of the known sessions, most recent first.
func (d *Directory) List() []models.Session {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make([]models.Session, len(d.sessions))
	copy(out, d.sessions)
	return out
}

// Len returns the number of known sessions.
func (d *Directory) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.sessions)
}

// indexLocked returns the position of id, or -1. Caller holds mu.
func (d *Directory) indexLocked(id string) int {
	if id == "" {
		return -1
	}
	for i, s := range d.sessions {
		if s.ID == id {
			return i
		}
	}
	return -1
}
