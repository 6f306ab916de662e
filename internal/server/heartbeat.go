package server

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/morezero/plugin-dispatcher/pkg/dispatcher"
	"github.com/morezero/plugin-dispatcher/pkg/jsonrpc"
)

const heartbeatLogPrefix = "server:heartbeat"

// EventHeartbeat is the event clients register for to receive periodic
// heartbeats.
const EventHeartbeat = "heartbeat"

type heartbeatParams struct {
	Sequence uint64 `json:"seq"`
	Uptime   int64  `json:"uptime"`
}

// heartbeat notifies EventHeartbeat subscribers every interval. The ticker
// runs only while the event has subscribers: a registration starts it and it
// stops itself on the first tick that finds no subscriber left.
type heartbeat struct {
	d        *dispatcher.JSONRPCSupportsEventStatus
	interval time.Duration
	started  time.Time

	mu      sync.Mutex
	running bool
	seq     uint64
	stop    chan struct{}
	done    chan struct{}
}

func newHeartbeat(d *dispatcher.JSONRPCSupportsEventStatus, interval time.Duration) *heartbeat {
	return &heartbeat{d: d, interval: interval, started: time.Now()}
}

// Attach installs the event-status listener for EventHeartbeat.
func (hb *heartbeat) Attach() {
	hb.d.RegisterEventStatusListener(EventHeartbeat, hb.onStatus)
}

// Detach removes the listener and stops the ticker.
func (hb *heartbeat) Detach() {
	hb.d.UnregisterEventStatusListener(EventHeartbeat)
	hb.Stop()
}

func (hb *heartbeat) onStatus(client string, status dispatcher.SubscriptionStatus) {
	slog.Debug(fmt.Sprintf("%s - %s %s", heartbeatLogPrefix, client, status))
	if status == dispatcher.StatusRegistered {
		hb.start()
	}
}

// Running reports whether the ticker is active.
func (hb *heartbeat) Running() bool {
	hb.mu.Lock()
	defer hb.mu.Unlock()
	return hb.running
}

func (hb *heartbeat) start() {
	hb.mu.Lock()
	defer hb.mu.Unlock()
	if hb.running {
		return
	}
	hb.running = true
	hb.stop = make(chan struct{})
	hb.done = make(chan struct{})
	go hb.loop(hb.stop, hb.done)
	slog.Info(fmt.Sprintf("%s - started (every %s)", heartbeatLogPrefix, hb.interval))
}

// Stop halts the ticker and waits for it to exit.
func (hb *heartbeat) Stop() {
	hb.mu.Lock()
	if !hb.running {
		hb.mu.Unlock()
		return
	}
	hb.running = false
	stop, done := hb.stop, hb.done
	hb.mu.Unlock()

	close(stop)
	<-done
}

func (hb *heartbeat) loop(stop, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(hb.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if !hb.beat(stop) {
				slog.Info(fmt.Sprintf("%s - stopped, no subscribers", heartbeatLogPrefix))
				return
			}
		}
	}
}

// beat sends one heartbeat. It returns false when the ticker should exit.
func (hb *heartbeat) beat(stop chan struct{}) bool {
	hb.mu.Lock()
	if len(hb.d.Handler().Subscribers(EventHeartbeat)) == 0 {
		// A concurrent start may have replaced the channels; only the
		// current loop clears running.
		if hb.stop == stop {
			hb.running = false
		}
		hb.mu.Unlock()
		return false
	}
	hb.seq++
	params := heartbeatParams{Sequence: hb.seq, Uptime: int64(time.Since(hb.started).Seconds())}
	hb.mu.Unlock()

	if status := hb.d.NotifyWith(EventHeartbeat, params); status != jsonrpc.ErrorNone {
		slog.Warn(fmt.Sprintf("%s - notify failed: %s", heartbeatLogPrefix, status))
	}
	return true
}
