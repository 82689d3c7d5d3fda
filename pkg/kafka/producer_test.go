package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestProducerSendMessage(t *testing.T) {
	sp := mocks.NewSyncProducer(t, nil)
	sp.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		var got map[string]any
		if err := json.Unmarshal(val, &got); err != nil {
			return err
		}
		if got["pixel_id"] != "px-1" {
			return errors.New("unexpected payload")
		}
		return nil
	})

	p := NewProducerFromClient(sp, "pixel-events", zap.NewNop())
	err := p.SendMessage(context.Background(), "px-1", map[string]any{"pixel_id": "px-1", "type": "pixel_open"})
	require.NoError(t, err)
	require.NoError(t, p.Close())
}

func TestProducerSendMessageFailure(t *testing.T) {
	sp := mocks.NewSyncProducer(t, nil)
	sp.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	p := NewProducerFromClient(sp, "pixel-events", zap.NewNop())
	err := p.SendMessage(context.Background(), "px-1", map[string]string{"type": "pixel_open"})
	require.Error(t, err)
	assert.ErrorIs(t, err, sarama.ErrOutOfBrokers)
	require.NoError(t, p.Close())
}

func TestProducerSkipsCancelledContext(t *testing.T) {
	sp := mocks.NewSyncProducer(t, nil)
	p := NewProducerFromClient(sp, "pixel-events", zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, p.SendMessage(ctx, "px-1", "x"), context.Canceled)
	require.NoError(t, p.Close())
}

func TestSaramaProducerConfig(t *testing.T) {
	cfg := saramaProducerConfig(ProducerConfig{
		Retries:          3,
		Timeout:          2 * time.Second,
		RequiredAcks:     1,
		Compression:      "zstd",
		IdempotentWrites: true,
		MaxMessageBytes:  2048,
	})

	assert.Equal(t, sarama.WaitForAll, cfg.Producer.RequiredAcks)
	assert.Equal(t, 5, cfg.Producer.Retry.Max)
	assert.Equal(t, 1, cfg.Net.MaxOpenRequests)
	assert.Equal(t, sarama.CompressionZSTD, cfg.Producer.Compression)
	assert.Equal(t, 2048, cfg.Producer.MaxMessageBytes)
	assert.True(t, cfg.Producer.Return.Successes)
}
