// Package state holds the small pieces of per-process mutable state the
// command handlers share: the current upload destination and the registry
// of in-flight transfer tasks.
package state

import "sync"

// Destination is the optional "current upload folder" pointer. When unset,
// callers fall back to the statically configured default folder. Unlike the
// configured default it survives only for the life of the process.
type Destination struct {
	mu  sync.Mutex
	id  string
	set bool
}

// NewDestination returns an unset destination
func NewDestination() *Destination {
	return &Destination{}
}

// Set points the destination at folderID
func (d *Destination) Set(folderID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.id = folderID
	d.set = true
}

// Clear unsets the destination. Safe to call when already unset.
func (d *Destination) Clear() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.id = ""
	d.set = false
}

// Get returns the destination id and whether one is set
func (d *Destination) Get() (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.id, d.set
}

// Resolve returns the session destination if set, else the fallback
func (d *Destination) Resolve(fallback string) string {
	if id, ok := d.Get(); ok {
		return id
	}
	return fallback
}
