package push

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEvent(t *testing.T) {
	raw := []byte(`{"type": "task_updated", "data": {"entity_type": "task", "entity_id": "42", "action": "updated"}}`)

	ev, err := ParseEvent(raw)
	require.NoError(t, err)

	assert.Equal(t, "task_updated", ev.Type)
	assert.Equal(t, "task", ev.EntityType)
	assert.Equal(t, "42", ev.EntityID)
	assert.Equal(t, "updated", ev.Action)
	assert.False(t, ev.KeepAlive())
}

func TestParseEvent_MeetingID(t *testing.T) {
	raw := []byte(`{"type": "meeting_processing_complete", "data": {"meeting_id": "m-7"}}`)

	ev, err := ParseEvent(raw)
	require.NoError(t, err)

	assert.Equal(t, EventTypeMeetingComplete, ev.Type)
	assert.Equal(t, "m-7", ev.EntityID)
	assert.Empty(t, ev.EntityType)
}

func TestParseEvent_Malformed(t *testing.T) {
	_, err := ParseEvent([]byte(`not json at all`))
	assert.ErrorIs(t, err, ErrMalformedFrame)

	// 缺 type 字段
	_, err = ParseEvent([]byte(`{"data": {"entity_id": "1"}}`))
	assert.ErrorIs(t, err, ErrMalformedFrame)
}

func TestEvent_KeepAlive(t *testing.T) {
	ka, err := ParseEvent([]byte(`{"type": "connected", "data": null}`))
	require.NoError(t, err)
	assert.True(t, ka.KeepAlive())

	ping, err := ParseEvent([]byte(`{"type": "ping"}`))
	require.NoError(t, err)
	assert.True(t, ping.KeepAlive())
}
