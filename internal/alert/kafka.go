package alert

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
)

const (
	envelopeTypeAlert        = "whale_alert"
	envelopeTypeAnnouncement = "announcement"
)

type Envelope struct {
	Type string          `json:"type"`
	TS   int64           `json:"ts"` // unix milli
	Data json.RawMessage `json:"data"`
}

type announcement struct {
	Text string `json:"text"`
}

// KafkaSink publishes every notification to a topic so other services can
// consume alerts without going through the chat endpoint.
type KafkaSink struct {
	topic string
	p     sarama.SyncProducer
	now   func() time.Time
}

func NewKafkaSink(brokers []string, topic string, cfg *sarama.Config) (*KafkaSink, error) {
	if cfg == nil {
		cfg = sarama.NewConfig()
	}
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Return.Successes = true
	cfg.Producer.Return.Errors = true

	p, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, err
	}
	return newKafkaSinkWithProducer(topic, p), nil
}

func newKafkaSinkWithProducer(topic string, p sarama.SyncProducer) *KafkaSink {
	return &KafkaSink{topic: topic, p: p, now: time.Now}
}

func (s *KafkaSink) Close() error {
	if s.p != nil {
		return s.p.Close()
	}
	return nil
}

// Send ignores ctx; SyncProducer has no context support.
func (s *KafkaSink) Send(_ context.Context, n Notification) error {
	env := Envelope{TS: s.now().UnixMilli()}
	var key sarama.Encoder

	var (
		data []byte
		err  error
	)
	if n.Event != nil {
		env.Type = envelopeTypeAlert
		data, err = json.Marshal(n.Event)
		key = sarama.StringEncoder(n.Event.Tx.Hash)
	} else {
		env.Type = envelopeTypeAnnouncement
		data, err = json.Marshal(announcement{Text: n.Text})
	}
	if err != nil {
		return err
	}
	env.Data = data

	b, err := json.Marshal(env)
	if err != nil {
		return err
	}

	msg := &sarama.ProducerMessage{
		Topic: s.topic,
		Key:   key,
		Value: sarama.ByteEncoder(b),
	}
	if _, _, err := s.p.SendMessage(msg); err != nil {
		return fmt.Errorf("%w: kafka emit failed: %v", ErrTransport, err)
	}
	return nil
}
