package task

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatus_IsTerminal(t *testing.T) {
	tests := []struct {
		status   Status
		terminal bool
	}{
		{StatusPending, false},
		{StatusRunning, false},
		{StatusCompleted, true},
		{StatusFailed, true},
		{Status("queued"), false},
		{Status(""), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.terminal, tt.status.IsTerminal())
		})
	}
}

func TestType_Valid(t *testing.T) {
	assert.True(t, TypeItinerary.Valid())
	assert.True(t, TypeReport.Valid())
	assert.False(t, Type("weather").Valid())
}

func TestTask_Items(t *testing.T) {
	t.Run("ordered list", func(t *testing.T) {
		tk := &Task{ID: "t1", Result: json.RawMessage(`[{"title":"a"},{"title":"b"}]`)}
		items, err := tk.Items()
		require.NoError(t, err)
		require.Len(t, items, 2)
		assert.JSONEq(t, `{"title":"a"}`, string(items[0]))
		assert.JSONEq(t, `{"title":"b"}`, string(items[1]))
	})

	t.Run("null result", func(t *testing.T) {
		tk := &Task{ID: "t1", Result: json.RawMessage(`null`)}
		assert.False(t, tk.HasResult())
		items, err := tk.Items()
		require.NoError(t, err)
		assert.Empty(t, items)
	})

	t.Run("string result is not a list", func(t *testing.T) {
		tk := &Task{ID: "t1", Result: json.RawMessage(`"a calm month"`)}
		_, err := tk.Items()
		assert.Error(t, err)
	})
}

func TestTask_JSONShape(t *testing.T) {
	created := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	tk := &Task{
		ID:        "abc",
		Status:    StatusPending,
		Type:      TypeReport,
		CreatedAt: &created,
		Payload:   json.RawMessage(`{"secret":"x"}`),
	}

	data, err := json.Marshal(tk)
	require.NoError(t, err)
	assert.JSONEq(t, `{"task_id":"abc","status":"pending","type":"report","created_at":"2026-03-01T09:00:00Z"}`, string(data))
}

func TestTask_Clone(t *testing.T) {
	created := time.Now()
	orig := &Task{ID: "a", Result: json.RawMessage(`[1]`), CreatedAt: &created}
	c := orig.Clone()
	c.Result[1] = '2'
	*c.CreatedAt = created.Add(time.Hour)

	assert.Equal(t, `[1]`, string(orig.Result))
	assert.Equal(t, created, *orig.CreatedAt)
	assert.Nil(t, (*Task)(nil).Clone())
}
