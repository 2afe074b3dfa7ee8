// Package pubsub owns the Google Cloud Pub/Sub connection used for order
// notifications. Set PUBSUB_EMULATOR_HOST to run against the local emulator.
package pubsub

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

// Order events are rare and a shopper may be waiting on the email, so batches are
// flushed almost immediately.
const orderPublishDelay = 10 * time.Millisecond

var (
	errProjectIDRequired = errors.New("gcp project id is required")
	errNotInitialized    = errors.New("pubsub client not initialized")
)

type Client struct {
	client     *pubsub.Client
	orderTopic string
	orders     *pubsub.Publisher
}

// NewClient connects to the project, checks that the order topic exists and
// prepares its publisher.
func NewClient(ctx context.Context, gcp config.GCPConfig, cfg config.NotificationsConfig, logg *logger.Logger) (*Client, error) {
	projectID := strings.TrimSpace(gcp.ProjectID)
	if projectID == "" {
		return nil, errProjectIDRequired
	}
	topic := TopicResourceName(projectID, cfg.OrderTopic)
	if topic == "" {
		return nil, errors.New("pubsub order topic is required")
	}

	psClient, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}
	c := &Client{client: psClient, orderTopic: topic}
	if err := c.checkTopic(ctx); err != nil {
		_ = psClient.Close()
		return nil, err
	}

	c.orders = psClient.Publisher(topic)
	c.orders.PublishSettings.DelayThreshold = orderPublishDelay

	if logg != nil {
		logg.Info(logg.WithField(ctx, "topic", topic), "pubsub order publisher ready")
	}
	return c, nil
}

func (c *Client) checkTopic(ctx context.Context) error {
	_, err := c.client.TopicAdminClient.GetTopic(ctx, &pubsubpb.GetTopicRequest{Topic: c.orderTopic})
	switch {
	case err == nil:
		return nil
	case status.Code(err) == codes.NotFound:
		return fmt.Errorf("topic %s does not exist", c.orderTopic)
	default:
		return fmt.Errorf("checking topic %s: %w", c.orderTopic, err)
	}
}

// OrderPublisher returns the publisher for order lifecycle events, nil on a nil client.
func (c *Client) OrderPublisher() *pubsub.Publisher {
	if c == nil {
		return nil
	}
	return c.orders
}

// Ping backs the readiness check by re-reading the order topic.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.client == nil {
		return errNotInitialized
	}
	return c.checkTopic(ctx)
}

// Close flushes buffered order events before closing the connection.
func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	if c.orders != nil {
		c.orders.Stop()
	}
	return c.client.Close()
}

// TopicResourceName expands a bare topic id into projects/<p>/topics/<id>; full
// resource names pass through.
func TopicResourceName(projectID, name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	if strings.HasPrefix(name, "projects/") && strings.Contains(name, "/topics/") {
		return name
	}
	projectID = strings.TrimSpace(projectID)
	if projectID == "" {
		return ""
	}
	return "projects/" + projectID + "/topics/" + name
}
