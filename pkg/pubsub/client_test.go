package pubsub

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/angelmondragon/storefront-backend/pkg/config"
)

func TestTopicResourceName(t *testing.T) {
	cases := []struct {
		project, topic, want string
	}{
		{"shop", "orders", "projects/shop/topics/orders"},
		{"shop", "projects/other/topics/orders", "projects/other/topics/orders"},
		{"", "orders", ""},
		{"shop", "  ", ""},
	}
	for _, tc := range cases {
		if got := TopicResourceName(tc.project, tc.topic); got != tc.want {
			t.Fatalf("TopicResourceName(%q, %q) = %q, want %q", tc.project, tc.topic, got, tc.want)
		}
	}
}

func TestNilClientIsSafe(t *testing.T) {
	var c *Client
	if c.OrderPublisher() != nil {
		t.Fatal("expected nil publisher")
	}
	if err := c.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := c.Ping(context.Background()); !errors.Is(err, errNotInitialized) {
		t.Fatalf("expected errNotInitialized, got %v", err)
	}
}

func TestNewClientValidatesConfig(t *testing.T) {
	ctx := context.Background()

	_, err := NewClient(ctx, config.GCPConfig{}, config.NotificationsConfig{OrderTopic: "orders"}, nil)
	if !errors.Is(err, errProjectIDRequired) {
		t.Fatalf("expected errProjectIDRequired, got %v", err)
	}

	_, err = NewClient(ctx, config.GCPConfig{ProjectID: "shop"}, config.NotificationsConfig{OrderTopic: " "}, nil)
	if err == nil || !strings.Contains(err.Error(), "order topic is required") {
		t.Fatalf("expected missing topic error, got %v", err)
	}
}
