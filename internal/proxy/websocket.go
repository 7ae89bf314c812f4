package proxy

import (
	"fmt"

	autherror "github.com/proxygate/proxygate/internal/errors"
)

// MessageConn is the message-level surface shared by the inbound
// (fiber-upgraded) and outbound (dialed) WebSocket connections.
type MessageConn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// TunnelWebSocket dials the target and relays frames in both directions
// until either side closes or fails. Each direction counts its own bytes
// and flushes them to the accountant independently when its loop ends.
// Closing both connections after the first loop exits is what unblocks the
// peer loop.
func (r *Relay) TunnelWebSocket(client MessageConn, targetURL string, userID int64) error {
	target, _, err := r.wsDialer.Dial(targetURL, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", autherror.ErrUpstreamConnect, err)
	}

	done := make(chan struct{}, 2)

	// client -> target counts as bytes sent, target -> client as received.
	go r.relayFrames(client, target, userID, true, done)
	go r.relayFrames(target, client, userID, false, done)

	<-done
	client.Close()
	target.Close()
	<-done

	return nil
}

func (r *Relay) relayFrames(src, dst MessageConn, userID int64, clientToTarget bool, done chan<- struct{}) {
	var transferred int64
	defer func() {
		if clientToTarget {
			r.recorder.Record(userID, transferred, 0)
		} else {
			r.recorder.Record(userID, 0, transferred)
		}
		done <- struct{}{}
	}()

	for {
		messageType, msg, err := src.ReadMessage()
		if err != nil {
			return
		}
		transferred += int64(len(msg))
		if err := dst.WriteMessage(messageType, msg); err != nil {
			return
		}
	}
}
