// Package progress turns raw transfer byte counts into human readable
// status snapshots, throttled so chat message edits stay within rate limits.
package progress

import (
	"fmt"
	"math"
	"strings"
	"time"

	"drivebot/pkg/utils"
)

// DefaultInterval is the minimum time between two emitted snapshots.
const DefaultInterval = 15 * time.Second

const barSlots = 10

// Snapshot is one point-in-time view of a running transfer
type Snapshot struct {
	Operation   string  // "Download", "Upload", ...
	Name        string  // file name being transferred
	Transferred int64   // bytes moved so far
	Total       int64   // total bytes, 0 if unknown
	Percentage  float64 // 0-100, one decimal
	Speed       float64 // bytes per second since start, 0 if unknown
	ETA         time.Duration // -1 if unknown
	Done        bool
}

// Tracker computes snapshots for a single transfer. Speed is measured
// against the start time, not a sliding window.
type Tracker struct {
	operation string
	name      string
	total     int64
	start     time.Time
}

// NewTracker starts tracking a transfer of total bytes
func NewTracker(operation, name string, total int64) *Tracker {
	return &Tracker{
		operation: operation,
		name:      name,
		total:     total,
		start:     time.Now(),
	}
}

// Snapshot returns the current view for transferred bytes
func (t *Tracker) Snapshot(transferred int64) Snapshot {
	s := Snapshot{
		Operation:   t.operation,
		Name:        t.name,
		Transferred: transferred,
		Total:       t.total,
		Percentage:  Percentage(transferred, t.total),
		Speed:       0,
		ETA:         -1,
	}
	s.Done = t.total > 0 && transferred >= t.total

	elapsed := time.Since(t.start).Seconds()
	if elapsed > 0 {
		s.Speed = float64(transferred) / elapsed
	}
	if s.Speed > 0 && t.total > 0 {
		remaining := float64(t.total - transferred)
		s.ETA = time.Duration(remaining / s.Speed * float64(time.Second))
	}
	return s
}

// Percentage returns 100*transferred/total rounded to one decimal,
// clamped to [0, 100]. The completed boundary reads exactly 100.0.
func Percentage(transferred, total int64) float64 {
	if total <= 0 {
		return 0
	}
	if transferred >= total {
		return 100.0
	}
	if transferred <= 0 {
		return 0
	}
	p := math.Round(float64(transferred)/float64(total)*1000) / 10
	if p > 100 {
		p = 100
	}
	return p
}

// Bar renders a fixed-width bar for a percentage, e.g. "[●●●○○○○○○○]"
func Bar(percentage float64) string {
	filled := int(math.Floor(percentage / 10))
	if filled > barSlots {
		filled = barSlots
	}
	if filled < 0 {
		filled = 0
	}
	return "[" + strings.Repeat("●", filled) + strings.Repeat("○", barSlots-filled) + "]"
}

// String renders the snapshot the way the bot posts it
func (s Snapshot) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "GDrive - %s\n\n", s.Operation)
	if s.Name != "" {
		fmt.Fprintf(&b, "%s\n", s.Name)
	}
	fmt.Fprintf(&b, "%s %.1f%%\n", Bar(s.Percentage), s.Percentage)
	fmt.Fprintf(&b, "%s of %s", utils.FormatBytes(s.Transferred), utils.FormatBytes(s.Total))
	if s.Speed > 0 {
		fmt.Fprintf(&b, " @ %s/s", utils.FormatBytes(int64(s.Speed)))
	}
	b.WriteString("\n")
	if s.ETA >= 0 {
		fmt.Fprintf(&b, "ETA: %s", utils.FormatDuration(s.ETA))
	} else {
		b.WriteString("ETA: unknown")
	}
	return b.String()
}

// Throttle gates snapshot emission to at most once per interval.
// A completed snapshot always passes.
type Throttle struct {
	interval time.Duration
	last     time.Time
}

// NewThrottle creates a throttle; interval <= 0 uses DefaultInterval
func NewThrottle(interval time.Duration) *Throttle {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Throttle{interval: interval}
}

// Allow reports whether this snapshot should be emitted now
func (th *Throttle) Allow(s Snapshot) bool {
	now := time.Now()
	if s.Done || th.last.IsZero() || now.Sub(th.last) >= th.interval {
		th.last = now
		return true
	}
	return false
}

// Func is a progress callback fed with snapshots. A nil Func is valid
// and discards updates.
type Func func(Snapshot)

// Report sends s to fn if fn is non-nil
func (fn Func) Report(s Snapshot) {
	if fn != nil {
		fn(s)
	}
}
