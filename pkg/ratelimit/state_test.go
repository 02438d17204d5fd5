package ratelimit

import (
	"testing"
	"time"
)

func TestRateLimitState_CooldownRemaining(t *testing.T) {
	tests := []struct {
		name    string
		until   time.Time
		wantPos bool
	}{
		{"no cooldown", time.Time{}, false},
		{"expired", time.Now().Add(-time.Minute), false},
		{"active", time.Now().Add(time.Minute), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &RateLimitState{CooldownUntil: tt.until}
			got := s.CooldownRemaining()
			if (got > 0) != tt.wantPos {
				t.Errorf("CooldownRemaining() = %v, want positive %v", got, tt.wantPos)
			}
			if got < 0 {
				t.Errorf("CooldownRemaining() = %v, must not be negative", got)
			}
		})
	}
}

func TestRateLimitState_NextRequestIn(t *testing.T) {
	s := &RateLimitState{NextSlotIn: time.Second}
	if got := s.NextRequestIn(); got != time.Second {
		t.Errorf("NextRequestIn() = %v, want 1s", got)
	}

	s.CooldownUntil = time.Now().Add(time.Hour)
	if got := s.NextRequestIn(); got < 59*time.Minute {
		t.Errorf("NextRequestIn() = %v, want about 1h", got)
	}
}
