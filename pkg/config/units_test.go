package config

import (
	"testing"
	"time"

	"gopkg.in/yaml.v3"
)

func TestParseDuration(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{"30s", 30 * time.Second, false},
		{"2h45m", 2*time.Hour + 45*time.Minute, false},
		{"1d", Day, false},
		{"2w", 2 * Week, false},
		{"1d12h", Day + 12*time.Hour, false},
		{"", 0, false},
		{"banana", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseDuration(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseDuration(%q) expected error, got %v", tt.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseDuration(%q) failed: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseDuration(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParseDistance(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"100m", 100},
		{"1.5km", 1500},
		{"10ft", 3.048},
		{"250", 250},
	}
	for _, tt := range tests {
		got, err := ParseDistance(tt.in)
		if err != nil {
			t.Errorf("ParseDistance(%q) failed: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseDistance(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestDistanceYAMLRoundTrip(t *testing.T) {
	type doc struct {
		D Distance `yaml:"d"`
	}

	var parsed doc
	if err := yaml.Unmarshal([]byte("d: 20ft"), &parsed); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if parsed.D != Distance(20*0.3048) {
		t.Errorf("got %v, want %v", parsed.D, Distance(20*0.3048))
	}

	// Bare numbers are meters.
	if err := yaml.Unmarshal([]byte("d: 42"), &parsed); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if parsed.D != Distance(42) {
		t.Errorf("got %v, want 42", parsed.D)
	}
}
