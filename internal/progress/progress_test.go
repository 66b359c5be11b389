package progress

import (
	"strings"
	"testing"
	"time"
)

func TestPercentage(t *testing.T) {
	tests := []struct {
		name        string
		transferred int64
		total       int64
		want        float64
	}{
		{"zero of zero", 0, 0, 0},
		{"unknown total", 50, 0, 0},
		{"negative total", 10, -1, 0},
		{"start", 0, 1000, 0},
		{"one decimal rounding", 1, 3, 33.3},
		{"two thirds", 2, 3, 66.7},
		{"half", 512, 1024, 50},
		// the completed boundary must read exactly 100.0
		{"exactly complete", 1024, 1024, 100.0},
		{"overshoot clamps", 2048, 1024, 100.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Percentage(tt.transferred, tt.total); got != tt.want {
				t.Errorf("Percentage(%d, %d) = %v, want %v", tt.transferred, tt.total, got, tt.want)
			}
		})
	}
}

func TestBar(t *testing.T) {
	tests := []struct {
		percentage float64
		want       string
	}{
		{0, "[○○○○○○○○○○]"},
		{9.9, "[○○○○○○○○○○]"},
		{10, "[●○○○○○○○○○]"},
		{55, "[●●●●●○○○○○]"},
		{100, "[●●●●●●●●●●]"},
	}
	for _, tt := range tests {
		if got := Bar(tt.percentage); got != tt.want {
			t.Errorf("Bar(%v) = %s, want %s", tt.percentage, got, tt.want)
		}
	}
}

func TestTrackerSnapshot(t *testing.T) {
	tr := NewTracker("Upload", "a.bin", 200)

	s := tr.Snapshot(100)
	if s.Operation != "Upload" || s.Name != "a.bin" {
		t.Errorf("snapshot identity = %q/%q", s.Operation, s.Name)
	}
	if s.Percentage != 50 {
		t.Errorf("Percentage = %v, want 50", s.Percentage)
	}
	if s.Done {
		t.Error("snapshot done before completion")
	}

	s = tr.Snapshot(200)
	if !s.Done {
		t.Error("snapshot not done at completion")
	}
	if s.Percentage != 100.0 {
		t.Errorf("completed Percentage = %v, want exactly 100.0", s.Percentage)
	}
}

func TestSnapshotString(t *testing.T) {
	s := Snapshot{
		Operation:   "Download",
		Name:        "movie.mkv",
		Transferred: 512,
		Total:       1024,
		Percentage:  50,
		ETA:         -1,
	}
	got := s.String()
	for _, want := range []string{"GDrive - Download", "movie.mkv", "[●●●●●○○○○○] 50.0%", "512 B of 1.0 KiB", "ETA: unknown"} {
		if !strings.Contains(got, want) {
			t.Errorf("String() missing %q:\n%s", want, got)
		}
	}
}

func TestThrottle(t *testing.T) {
	th := NewThrottle(time.Hour)

	if !th.Allow(Snapshot{}) {
		t.Error("first snapshot was throttled")
	}
	if th.Allow(Snapshot{}) {
		t.Error("second immediate snapshot passed the throttle")
	}
	// completion always goes through
	if !th.Allow(Snapshot{Done: true}) {
		t.Error("completed snapshot was throttled")
	}
}

func TestThrottleDefaultInterval(t *testing.T) {
	th := NewThrottle(0)
	if th.interval != DefaultInterval {
		t.Errorf("interval = %v, want %v", th.interval, DefaultInterval)
	}
}
