package pubsub

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/pubsub/pstest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/JakeFAU/profile-image-resolver/internal/results"
)

func newTestTopic(t *testing.T) (*pstest.Server, *pubsub.Topic) {
	t.Helper()
	ctx := context.Background()

	srv := pstest.NewServer()
	t.Cleanup(func() { _ = srv.Close() })

	conn, err := grpc.NewClient(srv.Addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	client, err := pubsub.NewClient(ctx, "project-id", option.WithGRPCConn(conn))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	topic, err := client.CreateTopic(ctx, "avatar-results")
	require.NoError(t, err)
	return srv, topic
}

func TestRecordPublishesJSON(t *testing.T) {
	t.Parallel()

	srv, topic := newTestTopic(t)
	pub := New(topic)

	res := results.Result{
		RunID:      "run-1",
		Account:    "jack",
		ImageURL:   "https://pbs.twimg.com/profile_images/1/a_400x400.jpg",
		Strategy:   "network_log",
		Resolved:   true,
		ResolvedAt: time.Unix(1700000000, 0).UTC(),
	}
	require.NoError(t, pub.Record(context.Background(), res))
	require.NoError(t, pub.Close())

	msgs := srv.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, map[string]string{
		"run_id":   "run-1",
		"account":  "jack",
		"strategy": "network_log",
		"resolved": "true",
	}, msgs[0].Attributes)

	var got results.Result
	require.NoError(t, json.Unmarshal(msgs[0].Data, &got))
	assert.Equal(t, res, got)
}

func TestRecordWithoutTopic(t *testing.T) {
	t.Parallel()

	var pub *Publisher
	require.Error(t, pub.Record(context.Background(), results.Result{}))
	require.NoError(t, pub.Close())
	require.Error(t, New(nil).Record(context.Background(), results.Result{}))
}

func TestOpenRequiresTopic(t *testing.T) {
	t.Parallel()

	_, err := Open(context.Background(), Config{ProjectID: "p"})
	require.Error(t, err)
}
