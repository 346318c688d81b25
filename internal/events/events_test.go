package events

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncode(t *testing.T) {
	at := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	subject, data, err := encode("studyroom.events", Event{
		Type:   SessionCompleted,
		RoomID: "r1",
		Data:   map[string]string{"session": "2"},
		At:     at,
	})
	require.NoError(t, err)
	assert.Equal(t, "studyroom.events.session.completed", subject)

	var got Event
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "r1", got.RoomID)
	assert.Equal(t, "2", got.Data["session"])
	assert.True(t, at.Equal(got.At))
}

func TestEncodeStampsTime(t *testing.T) {
	_, data, err := encode("p", Event{Type: RoomEnded, RoomID: "r"})
	require.NoError(t, err)

	var got Event
	require.NoError(t, json.Unmarshal(data, &got))
	assert.False(t, got.At.IsZero())
}

func TestNewPublisherWithoutURL(t *testing.T) {
	p, err := NewPublisher(DefaultConfig(""))
	require.NoError(t, err)
	assert.IsType(t, NopPublisher{}, p)
	assert.NoError(t, p.Publish(Event{Type: RoomOpened}))
	p.Close()
}
