package events

import (
	"bufio"
	"encoding/json"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBroadcastJSONToTCPClient(t *testing.T) {
	h := NewHub()
	server, client := net.Pipe()
	defer client.Close()
	h.Add(server)

	done := make(chan PublishEvent, 1)
	go func() {
		line, err := bufio.NewReader(client).ReadBytes('\n')
		if err != nil {
			close(done)
			return
		}
		var ev PublishEvent
		_ = json.Unmarshal(line, &ev)
		done <- ev
	}()

	h.BroadcastJSON(NewPublishEvent("default_cards", 3, 95000))

	select {
	case ev := <-done:
		assert.Equal(t, "cache.publish", ev.Type)
		assert.Equal(t, int64(3), ev.Epoch)
		assert.Equal(t, 95000, ev.Records)
	case <-time.After(2 * time.Second):
		t.Fatal("no frame received")
	}
}

func TestBroadcastDropsDeadClients(t *testing.T) {
	h := NewHub()
	server, client := net.Pipe()
	h.Add(server)
	require.Equal(t, 1, h.Count())

	client.Close()
	h.BroadcastJSON(NewProgressEvent("default_cards", "run1", 10, 100))
	assert.Equal(t, 0, h.Count())
}

func TestProgressEventPercent(t *testing.T) {
	ev := NewProgressEvent("rulings", "abc123def456", 50, 200)
	assert.Equal(t, 25.0, ev.Percent)

	// unknown total: no percent claimed
	ev = NewProgressEvent("rulings", "abc123def456", 50, -1)
	assert.Zero(t, ev.Percent)
}
