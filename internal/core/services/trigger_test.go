package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateSchedule(t *testing.T) {
	tests := []struct {
		expr    string
		wantErr bool
	}{
		{"*/30 * * * *", false},
		{"0 3 * * 1-5", false},
		{"@hourly", false},
		{"@every 15m", false},
		{"*/30 * * *", true},
		{"every half hour", true},
		{"", true},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			err := ValidateSchedule(tt.expr)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCronTrigger_Next(t *testing.T) {
	trigger, err := NewCronTrigger("*/30 * * * *", time.UTC)
	require.NoError(t, err)
	defer trigger.Stop()

	next := trigger.Next()
	require.False(t, next.IsZero())
	assert.Contains(t, []int{0, 30}, next.Minute())
	assert.True(t, next.After(time.Now().Add(-time.Second)))
}

func TestCronTrigger_InvalidExpression(t *testing.T) {
	_, err := NewCronTrigger("61 * * * *", nil)
	assert.Error(t, err)
}

func TestCronTrigger_StopIsIdempotent(t *testing.T) {
	trigger, err := NewCronTrigger("@every 1h", nil)
	require.NoError(t, err)

	trigger.Stop()
	trigger.Stop()
}

func TestIntervalTrigger_Ticks(t *testing.T) {
	trigger := NewIntervalTrigger(5 * time.Millisecond)
	defer trigger.Stop()

	select {
	case <-trigger.C():
	case <-time.After(time.Second):
		t.Fatal("expected a tick")
	}
}
