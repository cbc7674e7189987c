package archive

import (
	"context"
	"time"

	"tradefeed/internal/exchange/fanout"
	"tradefeed/internal/exchange/model"

	"go.uber.org/zap"
)

// insertTimeout caps each database write so a slow archive cannot back
// up the subscription buffer indefinitely.
const insertTimeout = 2 * time.Second

// TradeWriter is the storage sink the archiver feeds.
type TradeWriter interface {
	InsertTrade(ctx context.Context, t model.Trade) error
}

// Archiver copies accepted trades from a hub subscription into a
// storage sink, best-effort. Insert failures are logged and skipped;
// they never reach the submitter.
type Archiver struct {
	sub    *fanout.Subscription
	writer TradeWriter
	logger *zap.Logger
}

func New(sub *fanout.Subscription, writer TradeWriter, logger *zap.Logger) *Archiver {
	return &Archiver{sub: sub, writer: writer, logger: logger}
}

// Run consumes the subscription until ctx is cancelled or the
// subscription is closed.
func (a *Archiver) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			a.sub.Close()
			return
		case trade, ok := <-a.sub.Trades():
			if !ok {
				return
			}
			insertCtx, cancel := context.WithTimeout(context.Background(), insertTimeout)
			err := a.writer.InsertTrade(insertCtx, trade)
			cancel()
			if err != nil {
				a.logger.Warn("failed to archive trade",
					zap.Int64("trade_id", trade.ID),
					zap.String("symbol", trade.Symbol),
					zap.Error(err))
			}
		}
	}
}
