package pubsub

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/phuoc-stack/foodapp-backend/pkg/config"
)

func TestTopicResourceName(t *testing.T) {
	cases := []struct {
		project, name, want string
	}{
		{"demo", "orders", "projects/demo/topics/orders"},
		{"demo", " orders ", "projects/demo/topics/orders"},
		{"demo", "projects/other/topics/orders", "projects/other/topics/orders"},
		{"", "projects/other/topics/orders", "projects/other/topics/orders"},
		{"demo", "  ", ""},
		{"", "orders", ""},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, topicResourceName(tc.project, tc.name), "%q/%q", tc.project, tc.name)
	}
}

func TestTopicNamesSkipsBlank(t *testing.T) {
	require.Empty(t, topicNames(config.PubSubConfig{}))
	require.Equal(t, []string{"foodapp-order-events"}, topicNames(config.PubSubConfig{OrdersTopic: " foodapp-order-events "}))
}

func TestNewClientValidatesConfigBeforeDialing(t *testing.T) {
	_, err := NewClient(context.Background(), config.GCPConfig{}, config.PubSubConfig{OrdersTopic: "orders"}, nil)
	require.ErrorIs(t, err, errProjectIDRequired)

	_, err = NewClient(context.Background(), config.GCPConfig{ProjectID: "demo"}, config.PubSubConfig{}, nil)
	require.ErrorIs(t, err, errNoTopics)
}

func TestNilClientIsSafe(t *testing.T) {
	var c *Client
	require.Nil(t, c.Publisher("orders"))
	require.ErrorIs(t, c.Ping(context.Background()), errClosed)
	require.NoError(t, c.Close())
}
