package events

import (
	"context"
	"encoding/json"

	"cloud.google.com/go/pubsub"
	"go.uber.org/zap"
)

// PubSubEmitter mirrors accountability entries to a Pub/Sub topic so they can
// feed downstream analysis. Optional; publish failures are swallowed.
type PubSubEmitter struct {
	ctx    context.Context
	client *pubsub.Client
	topic  *pubsub.Topic
	log    *zap.SugaredLogger
}

func NewPubSubEmitter(ctx context.Context, projectID, topicID string, log *zap.SugaredLogger) (*PubSubEmitter, error) {
	client, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return &PubSubEmitter{
		ctx:    ctx,
		client: client,
		topic:  client.Topic(topicID),
		log:    log,
	}, nil
}

func (e *PubSubEmitter) Emit(entry Entry) {
	b, err := json.Marshal(entry)
	if err != nil {
		e.log.Debugw("pubsub entry marshal failed", "error", err)
		return
	}

	res := e.topic.Publish(e.ctx, &pubsub.Message{
		Data: b,
		Attributes: map[string]string{
			"run_id": entry.RunID,
		},
	})
	if _, err := res.Get(e.ctx); err != nil {
		e.log.Debugw("pubsub publish failed", "error", err)
	}
}

func (e *PubSubEmitter) Close() error {
	return e.client.Close()
}
