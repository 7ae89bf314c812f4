// Package usage attributes transferred bytes and request counts to users.
// Recording is best-effort: counters live only in the fast cache and a lost
// write never fails the relay that produced it.
package usage

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

type Store interface {
	IncrementUsage(ctx context.Context, userID int64, bytesSent, bytesReceived int64) error
	Usage(ctx context.Context, userID int64) (bytesSent, bytesReceived, requests int64, err error)
}

type Stats struct {
	BytesSent     int64 `json:"bytes_sent"`
	BytesReceived int64 `json:"bytes_received"`
	Requests      int64 `json:"requests"`
	TotalBytes    int64 `json:"total_bytes"`
}

type Accountant struct {
	store Store
}

func NewAccountant(store Store) *Accountant {
	return &Accountant{store: store}
}

// Record increments the user's counters asynchronously. Delivery is
// at-most-once; failures are logged and swallowed so the relay response is
// never delayed or failed by accounting.
func (a *Accountant) Record(userID int64, bytesSent, bytesReceived int64) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := a.store.IncrementUsage(ctx, userID, bytesSent, bytesReceived); err != nil {
			logrus.WithError(err).WithField("user_id", userID).Warn("failed to record usage")
		}
	}()
}

func (a *Accountant) Read(ctx context.Context, userID int64) (Stats, error) {
	sent, received, requests, err := a.store.Usage(ctx, userID)
	if err != nil {
		return Stats{}, err
	}

	return Stats{
		BytesSent:     sent,
		BytesReceived: received,
		Requests:      requests,
		TotalBytes:    sent + received,
	}, nil
}
