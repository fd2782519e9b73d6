package kafka

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// EnsureTopics cria os tópicos no controller do cluster (usado só em local/dev).
// Tópico já existente não é erro.
func EnsureTopics(ctx context.Context, brokers []string, log *zap.Logger, topics ...string) error {
	if len(brokers) == 0 {
		return fmt.Errorf("kafka brokers not provided")
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	conn, err := kafka.DialContext(ctx, "tcp", brokers[0])
	if err != nil {
		return fmt.Errorf("dial kafka: %w", err)
	}
	defer conn.Close()

	controller, err := conn.Controller()
	if err != nil {
		return fmt.Errorf("kafka controller: %w", err)
	}
	cconn, err := kafka.DialContext(ctx, "tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	if err != nil {
		return fmt.Errorf("dial kafka controller: %w", err)
	}
	defer cconn.Close()

	for _, topic := range topics {
		// single-broker: 1 partição, replicação 1
		cfg := kafka.TopicConfig{Topic: topic, NumPartitions: 1, ReplicationFactor: 1}
		if err := cconn.CreateTopics(cfg); err != nil && !strings.Contains(err.Error(), "already exists") {
			log.Warn("failed to create kafka topic", zap.String("topic", topic), zap.Error(err))
			continue
		}
		log.Debug("kafka topic ready", zap.String("topic", topic))
	}
	return nil
}
