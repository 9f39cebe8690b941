// Package queue provides the outbound alert transports. Delivery itself (SMS,
// chat, email) is owned by an external worker; this package either enqueues
// alert messages on SQS for that worker or, for local development, writes them
// to the process log.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqsTypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/google/uuid"

	"pestwatch/internal/types"
)

// SQSSender abstracts the SQS SendMessage operation for testability.
// Production code uses the *sqs.Client from aws-sdk-go-v2.
type SQSSender interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// AlertMessage is the payload the delivery worker consumes.
type AlertMessage struct {
	TraceID  string    `json:"trace_id"`
	Contact  string    `json:"contact"`
	Body     string    `json:"body"`
	QueuedAt time.Time `json:"queued_at"`
}

// SQSPublisher enqueues alert messages on the delivery queue.
type SQSPublisher struct {
	client   SQSSender
	queueURL string
	logger   *slog.Logger
}

// NewSQSPublisher creates a publisher targeting the given queue.
func NewSQSPublisher(client SQSSender, queueURL string, logger *slog.Logger) *SQSPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &SQSPublisher{client: client, queueURL: queueURL, logger: logger}
}

// Send serializes the alert and enqueues it. A failure surfaces as a
// dispatch error; the sweep logs it and moves on.
func (p *SQSPublisher) Send(ctx context.Context, contact string, message string) error {
	msg := AlertMessage{
		TraceID:  uuid.New().String(),
		Contact:  contact,
		Body:     message,
		QueuedAt: time.Now().UTC(),
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return types.NewAppError(types.ErrCodeDispatchFailed,
			fmt.Sprintf("failed to marshal alert message for %s", p.queueURL), err)
	}

	input := &sqs.SendMessageInput{
		QueueUrl:    aws.String(p.queueURL),
		MessageBody: aws.String(string(body)),
		MessageAttributes: map[string]sqsTypes.MessageAttributeValue{
			"source": {
				DataType:    aws.String("String"),
				StringValue: aws.String("pestwatch-engine"),
			},
		},
	}

	if _, err := p.client.SendMessage(ctx, input); err != nil {
		return types.NewAppError(types.ErrCodeDispatchFailed,
			fmt.Sprintf("failed to enqueue alert on %s", p.queueURL), err)
	}

	p.logger.InfoContext(ctx, "alert message enqueued",
		"queue_url", p.queueURL,
		"trace_id", msg.TraceID,
	)
	return nil
}
