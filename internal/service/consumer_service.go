package service

import (
	"context"
	"encoding/json"
	"log"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"ai-examgen-be/pkg/cache"
	"ai-examgen-be/pkg/embedding"
	"ai-examgen-be/pkg/events"
)

type IConsumerService interface {
	Consume(ctx context.Context) error
}

// consumerService drains accepted-question messages and registers their
// embeddings into the long-lived novelty history.
type consumerService struct {
	pubSub            *gochannel.GoChannel
	topicName         string
	cache             *cache.TwoTierCache
	embeddingProvider embedding.Provider
}

func NewConsumerService(
	pubSub *gochannel.GoChannel,
	topicName string,
	c *cache.TwoTierCache,
	embeddingProvider embedding.Provider,
) IConsumerService {
	return &consumerService{
		pubSub:            pubSub,
		topicName:         topicName,
		cache:             c,
		embeddingProvider: embeddingProvider,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.pubSub.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	eventType, data, err := events.Decode(msg.Payload)
	if err != nil {
		log.Printf("[ERROR] Failed to decode bus message: %v", err)
		msg.Ack() // Ack invalid messages to prevent infinite retry
		return
	}
	if eventType != events.TypeQuestionAccepted {
		msg.Ack()
		return
	}

	var payload events.QuestionAcceptedData
	if err := json.Unmarshal(data, &payload); err != nil {
		log.Printf("[ERROR] Failed to unmarshal accepted-question payload: %v", err)
		msg.Ack()
		return
	}

	if payload.Text == "" {
		msg.Ack()
		return
	}

	emb, err := cs.embeddingProvider.Generate(ctx, payload.Text, embedding.TaskRetrievalDocument)
	if err != nil {
		log.Printf("[ERROR] Failed to embed accepted question %s: %v", payload.QuestionID, err)
		msg.Nack() // Nack for retriable errors
		return
	}

	cs.cache.AddQuestionEmbedding(ctx, payload.ScopeKey, payload.QuestionID, emb)
	log.Printf("[INFO] Registered accepted question %s into novelty history (scope %s)", payload.QuestionID, payload.ScopeKey)
	msg.Ack()
}
