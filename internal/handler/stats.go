package handler

import (
	"encoding/json"

	"github.com/IBM/sarama"

	"github.com/hoteldesk/backoffice-service/pkg/kafka"
)

// StatsLog publishes reservation-action events for downstream reporting.
// Delivery is best effort: a failed enqueue is logged by the caller and
// never fails the request.
type StatsLog interface {
	Log(event kafka.Event) error
}

type statsLog struct {
	producer sarama.AsyncProducer
	topic    string
}

// NewStatsLog with a nil producer drops events, which keeps the gateway
// runnable without brokers.
func NewStatsLog(producer sarama.AsyncProducer, topic string) StatsLog {
	return &statsLog{
		producer: producer,
		topic:    topic,
	}
}

func (l *statsLog) Log(event kafka.Event) error {
	if l.producer == nil {
		return nil
	}
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	msg := &sarama.ProducerMessage{Topic: l.topic, Value: sarama.StringEncoder(data)}
	l.producer.Input() <- msg
	return nil
}
