package cli

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/opendap/olfs/lib/monitoring"
)

// Counters below are published by core/dispatch and core/bes. NewCounter
// returns the already published ones.
type serverMetrics struct {
	Requests       *monitoring.Counter
	ActiveRequests *monitoring.Counter
	ActiveBESConns *monitoring.Counter
	RequestsPerSec *monitoring.Counter
}

func newServerMetrics() serverMetrics {
	return serverMetrics{
		Requests:       monitoring.NewCounter("dispatch_requests"),
		ActiveRequests: monitoring.NewCounter("dispatch_requests_active"),
		ActiveBESConns: monitoring.NewCounter("bes_transactions_active"),
		RequestsPerSec: monitoring.NewCounter("server_ReqPS"),
	}
}

// startReport logs request rate every interval until ctx is done.
func startReport(ctx context.Context, log *zap.Logger, m serverMetrics, interval time.Duration) {
	if interval <= 0 {
		return
	}
	requests := m.Requests.Get()
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
			requestsNew := m.Requests.Get()
			reqps := (requestsNew - requests) * int64(time.Second) / int64(interval)
			requests = requestsNew
			m.RequestsPerSec.Set(reqps)
			log.Sugar().Infof("[SERVER] %d req/s; %d active; %d BES transactions",
				reqps, m.ActiveRequests.Get(), m.ActiveBESConns.Get())
		}
	}()
}
