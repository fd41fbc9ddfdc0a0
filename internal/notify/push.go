package notify

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"

	"divecenter-backend/internal/domain"
	"divecenter-backend/internal/logger"
)

// PushClient is the part of the FCM client the sink uses.
type PushClient interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

// PushSink sends a push notification to the staff app topic of the owning center.
type PushSink struct {
	client      PushClient
	topicPrefix string
}

// NewFirebaseClient builds an FCM client from a service account file.
func NewFirebaseClient(ctx context.Context, projectID, credentialsFile string) (*messaging.Client, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("init firebase app: %w", err)
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("init firebase messaging: %w", err)
	}
	return client, nil
}

func NewPushSink(client PushClient, topicPrefix string) *PushSink {
	if topicPrefix == "" {
		topicPrefix = "center-"
	}
	return &PushSink{client: client, topicPrefix: topicPrefix}
}

func (p *PushSink) Name() string { return "firebase" }

func (p *PushSink) Topic(centerID string) string { return p.topicPrefix + centerID }

func (p *PushSink) Send(ctx context.Context, ev domain.Event) error {
	title, message := Describe(ev)
	id, err := p.client.Send(ctx, &messaging.Message{
		Topic: p.Topic(ev.CenterID),
		Notification: &messaging.Notification{
			Title: title,
			Body:  message,
		},
		Data: Attributes(ev),
	})
	if err != nil {
		return fmt.Errorf("push to %s: %w", p.Topic(ev.CenterID), err)
	}
	logger.DebugContext(ctx, "Push sent", "topic", p.Topic(ev.CenterID), "messageID", id)
	return nil
}
