package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"cloud.google.com/go/pubsub"
	"google.golang.org/api/option"
)

// NotificationMessage is the payload published for every stored notification.
type NotificationMessage struct {
	ID            int               `json:"id"`
	CompanyId     string            `json:"company_id"`
	UserId        *int              `json:"user_id,omitempty"`
	Title         string            `json:"title"`
	Message       string            `json:"message"`
	Type          string            `json:"type"`
	Category      string            `json:"category"`
	Priority      string            `json:"priority"`
	ActionUrl     string            `json:"action_url,omitempty"`
	ActionText    string            `json:"action_text,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
	CorrelationId string            `json:"correlation_id"`
}

var (
	pubsubClient   *pubsub.Client
	pubsubClientMu sync.Mutex
)

func getPubSubProjectID() string {
	if v := os.Getenv("PUBSUB_PROJECT_ID"); v != "" {
		return v
	}
	return os.Getenv("GOOGLE_CLOUD_PROJECT")
}

// GetPubSubClient returns the shared client, creating it with retries.
// PUBSUB_CREDENTIALS_JSON overrides Application Default Credentials.
func GetPubSubClient(c context.Context) (*pubsub.Client, error) {
	pubsubClientMu.Lock()
	defer pubsubClientMu.Unlock()
	if pubsubClient != nil {
		return pubsubClient, nil
	}

	projectID := getPubSubProjectID()
	if projectID == "" {
		return nil, errors.New("PUBSUB_PROJECT_ID/GOOGLE_CLOUD_PROJECT not set")
	}
	var opts []option.ClientOption
	if credJSON := os.Getenv("PUBSUB_CREDENTIALS_JSON"); credJSON != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(credJSON)))
	}

	var attempt int
	for {
		attempt++
		client, err := pubsub.NewClient(c, projectID, opts...)
		if err == nil {
			pubsubClient = client
			log.Printf("pubsub client ready (project_id=%s attempt=%d)", projectID, attempt)
			return client, nil
		}
		if attempt >= 5 {
			return nil, fmt.Errorf("init pubsub client: %w", err)
		}
		sleep := backoff(attempt, 30*time.Second)
		log.Printf("failed to init pubsub client (project_id=%s attempt=%d): %v; retrying in %s", projectID, attempt, err, sleep)
		select {
		case <-c.Done():
			return nil, c.Err()
		case <-time.After(sleep):
		}
	}
}

func CreateTopicIfNotExists(c context.Context, client *pubsub.Client, topic string) (*pubsub.Topic, error) {
	if client == nil {
		return nil, errors.New("pubsub client is nil")
	}
	if topic == "" {
		return nil, errors.New("topic is required")
	}
	t := client.Topic(topic)
	ok, err := t.Exists(c)
	if err != nil {
		return nil, err
	}
	if ok {
		return t, nil
	}
	t, err = client.CreateTopic(c, topic)
	if err != nil {
		return nil, fmt.Errorf("create topic %q: %w", topic, err)
	}
	return t, nil
}

func notificationTopic() string {
	if v := os.Getenv("PUBSUB_NOTIFICATION_TOPIC"); v != "" {
		return v
	}
	return "fleet-notifications"
}

// EnsureNotificationTopic creates the notification topic on a fresh project or emulator.
func EnsureNotificationTopic(c context.Context) error {
	client, err := GetPubSubClient(c)
	if err != nil {
		return err
	}
	_, err = CreateTopicIfNotExists(c, client, notificationTopic())
	return err
}

// PublishNotificationWithResult publishes msg and returns the server-assigned message id.
// The company id is used as ordering key attribute for consumers.
func PublishNotificationWithResult(c context.Context, msg NotificationMessage) (string, error) {
	client, err := GetPubSubClient(c)
	if err != nil {
		return "", err
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return "", err
	}
	result := client.Topic(notificationTopic()).Publish(c, &pubsub.Message{
		Data: data,
		Attributes: map[string]string{
			"company_id":     msg.CompanyId,
			"category":       msg.Category,
			"priority":       msg.Priority,
			"correlation_id": msg.CorrelationId,
		},
	})
	return result.Get(c)
}
