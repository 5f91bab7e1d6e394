package stream

import (
	"time"

	"github.com/nats-io/nats.go"
)

// Connect dials NATS with unlimited reconnects so a headless device can ride
// out broker restarts.
func Connect(url string) (*nats.Conn, error) {
	return nats.Connect(
		url,
		nats.Name("ppg-heartrate"),
		nats.Timeout(3*time.Second),
		nats.ReconnectWait(500*time.Millisecond),
		nats.MaxReconnects(-1),
	)
}
