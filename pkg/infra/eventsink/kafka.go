package eventsink

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/confluentinc/confluent-kafka-go/kafka"
	"github.com/mitchellh/mapstructure"
)

const KafkaSinkName = "kafka"

type KafkaConfig struct {
	BootstrapServers string `mapstructure:"bootstrap_servers"`
	Topic            string `mapstructure:"topic"`
	ClientID         string `mapstructure:"client_id"`
}

type kafkaSink struct {
	cfg      KafkaConfig
	producer *kafka.Producer
}

func NewKafkaSink() Sink {
	return &kafkaSink{}
}

func (s *kafkaSink) Name() string {
	return KafkaSinkName
}

func (s *kafkaSink) ValidateConfig(settings map[string]interface{}) error {
	var conf KafkaConfig
	if err := mapstructure.Decode(settings, &conf); err != nil {
		return fmt.Errorf("invalid kafka config: %w", err)
	}
	if conf.BootstrapServers == "" {
		return errors.New("kafka bootstrap_servers is required")
	}
	if conf.Topic == "" {
		return errors.New("kafka topic is required")
	}
	return nil
}

func (s *kafkaSink) WithSettings(settings map[string]interface{}) (Sink, error) {
	var conf KafkaConfig
	if err := mapstructure.Decode(settings, &conf); err != nil {
		return nil, fmt.Errorf("invalid kafka config: %w", err)
	}
	if conf.ClientID == "" {
		conf.ClientID = "trustshield"
	}
	producer, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers": conf.BootstrapServers,
		"client.id":         conf.ClientID,
		"acks":              "all",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}
	return &kafkaSink{cfg: conf, producer: producer}, nil
}

func (s *kafkaSink) Publish(ctx context.Context, evt Event) error {
	if s.producer == nil {
		return errors.New("kafka producer is not initialized")
	}
	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	deliveryChan := make(chan kafka.Event, 1)
	err = s.producer.Produce(&kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &s.cfg.Topic, Partition: kafka.PartitionAny},
		Key:            []byte(evt.Key),
		Value:          data,
		Headers:        []kafka.Header{{Key: "type", Value: []byte(evt.Type)}},
	}, deliveryChan)
	if err != nil {
		return fmt.Errorf("failed to produce message: %w", err)
	}

	select {
	case e := <-deliveryChan:
		m, ok := e.(*kafka.Message)
		if !ok {
			return fmt.Errorf("unexpected delivery event %T", e)
		}
		if m.TopicPartition.Error != nil {
			return fmt.Errorf("delivery failed: %w", m.TopicPartition.Error)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *kafkaSink) Close() {
	if s.producer != nil {
		s.producer.Flush(5000)
		s.producer.Close()
	}
}
