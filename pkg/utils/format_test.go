package utils

import (
	"testing"
	"time"
)

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		size int64
		want string
	}{
		{0, "0 B"},
		{512, "512 B"},
		{1024, "1.0 KiB"},
		{1536, "1.5 KiB"},
		{1048576, "1.0 MiB"},
		{5 << 30, "5.0 GiB"},
	}
	for _, tt := range tests {
		if got := FormatBytes(tt.size); got != tt.want {
			t.Errorf("FormatBytes(%d) = %q, want %q", tt.size, got, tt.want)
		}
	}
}

func TestParseBytes(t *testing.T) {
	tests := []struct {
		input   string
		want    int64
		wantErr bool
	}{
		{"1024", 1024, false},
		{"1K", 1024, false},
		{"1.5KB", 1536, false},
		{"200M", 200 << 20, false},
		{"2GB", 2 << 30, false},
		{"1T", 1 << 40, false},
		{"10B", 10, false},
		{" 3 MB ", 3 << 20, false},
		{"", 0, true},
		{"abc", 0, true},
		{"12Q", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseBytes(tt.input)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseBytes(%q) succeeded with %d, want error", tt.input, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseBytes(%q) error: %v", tt.input, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseBytes(%q) = %d, want %d", tt.input, got, tt.want)
		}
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{-time.Second, "unknown"},
		{0, "0s"},
		{42 * time.Second, "42s"},
		{90 * time.Second, "1m 30s"},
		{time.Hour + 2*time.Minute + 3*time.Second, "1h 2m 3s"},
		{25*time.Hour + 5*time.Second, "1d 1h 0m 5s"},
	}
	for _, tt := range tests {
		if got := FormatDuration(tt.d); got != tt.want {
			t.Errorf("FormatDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}
