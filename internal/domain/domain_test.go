package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLifecycle_State(t *testing.T) {
	now := time.Now()

	assert.Equal(t, StateActive, Lifecycle{}.State())
	assert.Equal(t, StateTrashed, Lifecycle{DeletedAt: &now}.State())
	assert.True(t, Lifecycle{DeletedAt: &now}.IsTrashed())
}

func TestEventStatus_IsValid(t *testing.T) {
	tests := []struct {
		status EventStatus
		want   bool
	}{
		{EventStatusDraft, true},
		{EventStatusPublished, true},
		{EventStatusCancelled, true},
		{"archived", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.status.IsValid())
		})
	}
}

func TestEvent_IsUpcoming(t *testing.T) {
	now := time.Date(2030, 1, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		status EventStatus
		date   time.Time
		want   bool
	}{
		{"published future", EventStatusPublished, now.Add(time.Hour), true},
		{"published now", EventStatusPublished, now, true},
		{"published past", EventStatusPublished, now.Add(-time.Hour), false},
		{"draft future", EventStatusDraft, now.Add(time.Hour), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := &Event{Status: tt.status, Date: tt.date}
			assert.Equal(t, tt.want, e.IsUpcoming(now))
		})
	}
}

func TestEvent_JSONFlattensLifecycle(t *testing.T) {
	e := &Event{ID: 10, OrganizationID: 2, Title: "Launch", Price: decimal.RequireFromString("12.50")}

	raw, err := json.Marshal(e)
	require.NoError(t, err)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &body))

	assert.Contains(t, body, "deleted_at")
	assert.Nil(t, body["deleted_at"])
	assert.Equal(t, "12.5", body["price"])
	assert.Equal(t, float64(2), body["organization_id"])
}
