// Package events publishes task lifecycle events to Kafka. Conversions run
// in-process, so events flow outward only; nothing in this service consumes
// them. Wired only when brokers are configured.
package events

import (
	"encoding/json"

	"github.com/IBM/sarama"
)

const topic = "conversion_events"

type TaskEvent struct {
	TaskID         string `json:"task_id"`
	Status         string `json:"status"`
	OutputFilename string `json:"output_filename,omitempty"`
	Error          string `json:"error,omitempty"`
}

type Producer interface {
	PublishTaskEvent(event *TaskEvent) error
	Close() error
}

type producer struct {
	producer sarama.SyncProducer
}

func NewProducer(brokers []string) (Producer, error) {
	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5
	config.Producer.Return.Successes = true

	p, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, err
	}

	return &producer{producer: p}, nil
}

func (p *producer) PublishTaskEvent(event *TaskEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	msg := &sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(event.TaskID),
		Value: sarama.ByteEncoder(data),
	}

	_, _, err = p.producer.SendMessage(msg)
	return err
}

func (p *producer) Close() error {
	return p.producer.Close()
}
