package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDeriveStatus(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	ptr := func(t time.Time) *time.Time { return &t }

	tests := []struct {
		name  string
		start *time.Time
		want  SessionStatus
	}{
		{"no start time", nil, StatusNotScheduled},
		{"zero start time", ptr(time.Time{}), StatusNotScheduled},
		{"starts in an hour", ptr(now.Add(time.Hour)), StatusUpcoming},
		{"started a minute ago", ptr(now.Add(-time.Minute)), StatusLive},
		{"just inside the live window", ptr(now.Add(-LiveWindow + time.Second)), StatusLive},
		{"exactly at the live window", ptr(now.Add(-LiveWindow)), StatusRecorded},
		{"started two days ago", ptr(now.Add(-48 * time.Hour)), StatusRecorded},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &Session{StartTime: tt.start}
			assert.Equal(t, tt.want, s.DeriveStatus(now))
			assert.Equal(t, tt.want, s.Status)
		})
	}
}
