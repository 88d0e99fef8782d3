package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/rs/zerolog/log"
)

const DefaultTopic = "chat"

const sequenceNumberKey = "sequence_number"

// Bus carries UI events from a dialogue controller to whoever renders them.
//
// Publishing blocks until every subscriber acknowledged the message, which keeps
// events in order. A bus without subscribers drops what is published.
type Bus struct {
	pubSub         *gochannel.GoChannel
	topic          string
	sequenceNumber uint64
	mutex          sync.Mutex
}

type BusOption func(*busConfig)

type busConfig struct {
	topic  string
	logger watermill.LoggerAdapter
}

func WithTopic(topic string) BusOption {
	return func(c *busConfig) {
		c.topic = topic
	}
}

func WithVerbose(verbose bool) BusOption {
	return func(c *busConfig) {
		if verbose {
			c.logger = NewWatermill(log.Logger)
		}
	}
}

func NewBus(options ...BusOption) *Bus {
	cfg := &busConfig{
		topic:  DefaultTopic,
		logger: watermill.NopLogger{},
	}
	for _, o := range options {
		o(cfg)
	}

	return &Bus{
		pubSub: gochannel.NewGoChannel(gochannel.Config{
			BlockPublishUntilSubscriberAck: true,
		}, cfg.logger),
		topic: cfg.topic,
	}
}

// Publish serializes e to JSON and stamps it with the next sequence number.
func (b *Bus) Publish(e Event) error {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	payload, err := json.Marshal(e)
	if err != nil {
		return err
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set(sequenceNumberKey, fmt.Sprintf("%d", b.sequenceNumber))
	b.sequenceNumber++

	return b.pubSub.Publish(b.topic, msg)
}

func (b *Bus) PublishBlind(e Event) {
	if err := b.Publish(e); err != nil {
		log.Warn().Err(err).Str("type", string(e.Type)).Msg("failed to publish")
	}
}

// Subscribe returns the decoded events published from now on. The channel is
// closed when ctx is done or the bus is closed.
func (b *Bus) Subscribe(ctx context.Context) (<-chan Event, error) {
	msgs, err := b.pubSub.Subscribe(ctx, b.topic)
	if err != nil {
		return nil, err
	}

	out := make(chan Event, 64)
	go func() {
		defer close(out)
		for msg := range msgs {
			var e Event
			if err := json.Unmarshal(msg.Payload, &e); err != nil {
				log.Warn().Err(err).Str("message_id", msg.UUID).Msg("could not decode event")
				msg.Ack()
				continue
			}
			if seq, err := strconv.ParseUint(msg.Metadata.Get(sequenceNumberKey), 10, 64); err == nil {
				e.Sequence = seq
			}

			select {
			case out <- e:
				msg.Ack()
			case <-ctx.Done():
				msg.Ack()
				return
			}
		}
	}()

	return out, nil
}

func (b *Bus) Close() error {
	log.Debug().Msg("closing event bus")
	return b.pubSub.Close()
}
