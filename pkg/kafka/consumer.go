package kafka

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/IBM/sarama"
	"github.com/coder/quartz"
	"go.uber.org/zap"
)

const (
	minRetryBackoff = time.Second
	maxRetryBackoff = 30 * time.Second
)

// MessageHandler processes one message. A returned error is logged and the
// message is still marked, so a poison message cannot stall the partition.
type MessageHandler func(ctx context.Context, key, value []byte) error

type Consumer struct {
	consumerGroup sarama.ConsumerGroup
	topics        []string
	handler       MessageHandler
	logger        *zap.Logger
	clock         quartz.Clock

	// ready is closed on the first group join and never replaced.
	ready     chan struct{}
	readyOnce sync.Once
}

type ConsumerConfig struct {
	Brokers           []string
	Topics            []string
	GroupID           string
	AutoCommit        bool
	CommitInterval    time.Duration
	SessionTimeout    time.Duration
	RebalanceStrategy string
	Clock             quartz.Clock
}

func NewConsumer(cfg ConsumerConfig, handler MessageHandler, logger *zap.Logger) (*Consumer, error) {
	config := sarama.NewConfig()
	config.Version = sarama.V3_3_0_0
	config.Consumer.Return.Errors = true
	config.Consumer.Offsets.Initial = sarama.OffsetOldest
	config.Consumer.Offsets.AutoCommit.Enable = cfg.AutoCommit
	config.Consumer.Offsets.AutoCommit.Interval = cfg.CommitInterval
	config.Consumer.Group.Session.Timeout = cfg.SessionTimeout
	config.Consumer.Group.Heartbeat.Interval = cfg.SessionTimeout / 3
	config.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{balanceStrategy(cfg.RebalanceStrategy)}

	consumerGroup, err := sarama.NewConsumerGroup(cfg.Brokers, cfg.GroupID, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer group: %w", err)
	}

	logger.Info("Kafka consumer initialized",
		zap.Strings("brokers", cfg.Brokers),
		zap.Strings("topics", cfg.Topics),
		zap.String("group_id", cfg.GroupID),
	)

	return newConsumer(consumerGroup, cfg.Topics, handler, cfg.Clock, logger), nil
}

func newConsumer(group sarama.ConsumerGroup, topics []string, handler MessageHandler, clock quartz.Clock, logger *zap.Logger) *Consumer {
	if clock == nil {
		clock = quartz.NewReal()
	}
	return &Consumer{
		consumerGroup: group,
		topics:        topics,
		handler:       handler,
		logger:        logger,
		clock:         clock,
		ready:         make(chan struct{}),
	}
}

func balanceStrategy(name string) sarama.BalanceStrategy {
	switch name {
	case "sticky":
		return sarama.NewBalanceStrategySticky()
	case "roundrobin":
		return sarama.NewBalanceStrategyRoundRobin()
	default:
		return sarama.NewBalanceStrategyRange()
	}
}

// Start consumes until ctx is cancelled, rejoining the group after every rebalance.
// Failed joins are retried with exponential backoff.
func (c *Consumer) Start(ctx context.Context) error {
	backoff := minRetryBackoff
	for {
		err := c.consumerGroup.Consume(ctx, c.topics, c)
		if ctx.Err() != nil {
			c.logger.Info("Context cancelled, stopping consumer")
			return nil
		}
		if err == nil {
			backoff = minRetryBackoff
			continue
		}
		if errors.Is(err, sarama.ErrClosedConsumerGroup) {
			return err
		}

		c.logger.Error("Error from consumer", zap.Error(err), zap.Duration("retry_in", backoff))
		timer := c.clock.NewTimer(backoff, "consumer", "backoff")
		select {
		case <-ctx.Done():
			timer.Stop()
			c.logger.Info("Context cancelled, stopping consumer")
			return nil
		case <-timer.C:
		}
		backoff = min(backoff*2, maxRetryBackoff)
	}
}

func (c *Consumer) Close() error {
	if err := c.consumerGroup.Close(); err != nil {
		c.logger.Error("Failed to close consumer group", zap.Error(err))
		return err
	}
	c.logger.Info("Kafka consumer closed")
	return nil
}

func (c *Consumer) Setup(sarama.ConsumerGroupSession) error {
	c.logger.Info("Consumer group rebalanced")
	c.readyOnce.Do(func() { close(c.ready) })
	return nil
}

func (c *Consumer) Cleanup(sarama.ConsumerGroupSession) error {
	return nil
}

func (c *Consumer) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case message, ok := <-claim.Messages():
			if !ok {
				return nil
			}
			if err := c.handler(session.Context(), message.Key, message.Value); err != nil {
				c.logger.Error("Failed to process message",
					zap.Error(err),
					zap.String("topic", message.Topic),
					zap.Int32("partition", message.Partition),
					zap.Int64("offset", message.Offset),
				)
			}
			session.MarkMessage(message, "")

		case <-session.Context().Done():
			return nil
		}
	}
}

// WaitReady is closed once the consumer has joined its group.
func (c *Consumer) WaitReady() <-chan struct{} {
	return c.ready
}
