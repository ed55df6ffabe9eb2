package eventexport

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestRedisExporterPublishesToChannel(t *testing.T) {
	srv := miniredis.RunT(t)

	exporter, err := NewRedisExporter("redis://"+srv.Addr(), "pipeless-events")
	require.NoError(t, err)
	defer exporter.Close()

	subClient := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	defer subClient.Close()
	ctx := context.Background()
	sub := subClient.Subscribe(ctx, "pipeless-events")
	defer sub.Close()
	_, err = sub.Receive(ctx) // block until the subscribe confirmation arrives
	require.NoError(t, err)

	payload := `{"type":"StreamFinished","end_state":"completed","stream_uuid":"abc"}`
	require.NoError(t, exporter.Publish(payload))

	select {
	case msg := <-sub.Channel():
		require.Equal(t, payload, msg.Payload)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for published message")
	}
}
