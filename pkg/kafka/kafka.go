package kafka

import (
	"time"

	"github.com/IBM/sarama"
)

type Config struct {
	Addrs []string `envconfig:"KAFKA_ADDRS"`
}

// Enabled reports whether event production is configured at all. The
// gateway runs fine without brokers; events are then dropped silently.
func (c Config) Enabled() bool {
	return len(c.Addrs) > 0
}

const (
	ReservationEventsTopic = "reservation-events"
)

// Event is the reservation-action record emitted after every successful
// mutation (create, update, status transition).
type Event struct {
	Action        string    `json:"action"`
	ReservationID string    `json:"reservationId"`
	Status        string    `json:"status"`
	Username      string    `json:"username"`
	At            time.Time `json:"at"`
}

func NewAsyncProducer(cfg Config) (sarama.AsyncProducer, error) {
	defaultCfg := sarama.NewConfig()

	defaultCfg.Producer.RequiredAcks = sarama.WaitForLocal
	defaultCfg.Producer.Return.Successes = false

	return sarama.NewAsyncProducer(cfg.Addrs, defaultCfg)
}
