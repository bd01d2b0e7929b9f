package kafkax

import (
	"context"
	"errors"
	"time"
)

// ReadyCheck reports whether the first configured broker accepts a TCP
// connection. Good enough for /readyz; it does not validate topics.
func ReadyCheck(brokers string) func(context.Context) error {
	return func(ctx context.Context) error {
		list := SplitBrokers(brokers)
		if len(list) == 0 {
			return errors.New("kafka brokers not configured")
		}
		conn, err := dialBroker(ctx, list[0], 2*time.Second)
		if err != nil {
			return err
		}
		_ = conn.Close()
		return nil
	}
}
