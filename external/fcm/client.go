package fcm

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	log "github.com/sirupsen/logrus"
	"google.golang.org/api/option"
)

const (
	logPrefix = "fcm"

	// MaxBatchSize is the largest multicast accepted by FCM
	MaxBatchSize = 500
)

// Message is a push notification with string only data
type Message struct {
	Title string
	Body  string
	Data  map[string]string
}

// Outcome is the delivery result for a single device token
type Outcome struct {
	Token     string
	MessageID string
	Err       error
}

func (o Outcome) Delivered() bool {
	return o.Err == nil
}

// Sender is the part of the messaging client used for delivery
type Sender interface {
	SendEachForMulticast(ctx context.Context, message *messaging.MulticastMessage) (*messaging.BatchResponse, error)
}

type Client struct {
	sender Sender
}

// NewClient returns a client authenticated with a service account file
func NewClient(ctx context.Context, credentialsFile string) (*Client, error) {
	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(credentialsFile))
	if err != nil {
		return nil, fmt.Errorf("init firebase app: %w", err)
	}

	messagingClient, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("init firebase messaging: %w", err)
	}

	return NewClientWithSender(messagingClient), nil
}

func NewClientWithSender(sender Sender) *Client {
	return &Client{sender: sender}
}

func multicast(tokens []string, msg Message) *messaging.MulticastMessage {
	return &messaging.MulticastMessage{
		Tokens: tokens,
		Notification: &messaging.Notification{
			Title: msg.Title,
			Body:  msg.Body,
		},
		Data: msg.Data,
		Android: &messaging.AndroidConfig{
			Priority: "high",
			Notification: &messaging.AndroidNotification{
				Sound: "default",
			},
		},
		APNS: &messaging.APNSConfig{
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{
					Sound: "default",
				},
			},
		},
	}
}

// SendBatch delivers msg to every token and returns one outcome per token
// in the order of tokens. A failed chunk marks its tokens failed and the
// remaining chunks are still sent.
func (c *Client) SendBatch(ctx context.Context, tokens []string, msg Message) ([]Outcome, error) {
	outcomes := make([]Outcome, 0, len(tokens))

	for start := 0; start < len(tokens); start += MaxBatchSize {
		end := start + MaxBatchSize
		if end > len(tokens) {
			end = len(tokens)
		}
		chunk := tokens[start:end]

		resp, err := c.sender.SendEachForMulticast(ctx, multicast(chunk, msg))
		if err != nil {
			log.WithField("prefix", logPrefix).Errorf("send multicast of %d tokens with error: %s", len(chunk), err)
			for _, t := range chunk {
				outcomes = append(outcomes, Outcome{Token: t, Err: err})
			}
			continue
		}

		for i, t := range chunk {
			o := Outcome{Token: t}
			if i < len(resp.Responses) && resp.Responses[i] != nil {
				r := resp.Responses[i]
				o.MessageID = r.MessageID
				if !r.Success {
					o.Err = r.Error
					if o.Err == nil {
						o.Err = fmt.Errorf("delivery failed")
					}
				}
			} else {
				o.Err = fmt.Errorf("missing delivery response")
			}
			outcomes = append(outcomes, o)
		}

		log.WithField("prefix", logPrefix).Debugf("multicast sent: %d succeeded, %d failed", resp.SuccessCount, resp.FailureCount)
	}

	return outcomes, nil
}
