package realtime

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// Channel is the Postgres notification channel raised by the orders trigger.
const Channel = "orders_changed"

const reconnectDelay = 5 * time.Second

// Subscription delivers "something changed" signals from the orders table.
// The channel coalesces: a signal may stand for several changes, which is
// fine because consumers reload wholesale anyway.
type Subscription struct {
	C      <-chan struct{}
	cancel context.CancelFunc
}

// Close stops the listener and releases its connection.
func (s *Subscription) Close() {
	s.cancel()
}

// Subscribe opens a dedicated LISTEN connection and forwards notifications
// until the subscription is closed. Connection loss is retried forever; the
// subscription outlives individual connections.
func Subscribe(ctx context.Context, dsn string, log *zap.Logger) *Subscription {
	ctx, cancel := context.WithCancel(ctx)
	ch := make(chan struct{}, 1)

	go func() {
		for {
			if err := listen(ctx, dsn, ch); err != nil {
				if ctx.Err() != nil {
					return
				}
				log.Warn("realtime listener disconnected, retrying", zap.Error(err))
			}
			select {
			case <-time.After(reconnectDelay):
			case <-ctx.Done():
				return
			}
		}
	}()

	return &Subscription{C: ch, cancel: cancel}
}

func listen(ctx context.Context, dsn string, ch chan<- struct{}) error {
	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return err
	}
	defer conn.Close(context.Background())

	if _, err := conn.Exec(ctx, "LISTEN "+Channel); err != nil {
		return err
	}

	for {
		if _, err := conn.WaitForNotification(ctx); err != nil {
			return err
		}
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
