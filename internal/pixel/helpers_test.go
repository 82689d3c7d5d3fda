package pixel

import (
	"context"
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestService(t *testing.T) (*Service, *quartz.Mock) {
	t.Helper()
	clock := quartz.NewMock(t)
	store := NewMemoryStore(zap.NewNop())
	svc := NewService(ServiceConfig{
		BaseURL:    "http://pixels.test",
		Clock:      clock,
		Registerer: prometheus.NewRegistry(),
	}, store, nil, zap.NewNop())
	return svc, clock
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

const chromeUA = "Mozilla/5.0 (Windows NT 10.0) Chrome/91"
