package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	commsserver "github.com/nats-io/nats-server/v2/server"
	comms "github.com/nats-io/nats.go"
)

// startTestServer starts an in-process NATS server for testing.
func startTestServer(t *testing.T, port int) (*comms.Conn, func()) {
	t.Helper()

	opts := &commsserver.Options{
		Host:   "127.0.0.1",
		Port:   port,
		NoLog:  true,
		NoSigs: true,
	}

	ns, err := commsserver.NewServer(opts)
	if err != nil {
		t.Fatalf("events:comms_publisher_integration_test - failed to create server: %v", err)
	}

	go ns.Start()
	if !ns.ReadyForConnections(10 * time.Second) {
		t.Fatal("events:comms_publisher_integration_test - server failed to start")
	}

	nc, err := comms.Connect(ns.ClientURL(), comms.Timeout(5*time.Second))
	if err != nil {
		ns.Shutdown()
		t.Fatalf("events:comms_publisher_integration_test - failed to connect: %v", err)
	}

	cleanup := func() {
		nc.Close()
		ns.Shutdown()
		ns.WaitForShutdown()
	}

	return nc, cleanup
}

func subscribeEvents(t *testing.T, nc *comms.Conn, subject string) chan *SubscriptionChangedEvent {
	t.Helper()

	received := make(chan *SubscriptionChangedEvent, 4)
	sub, err := nc.Subscribe(subject, func(msg *comms.Msg) {
		var event SubscriptionChangedEvent
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			t.Errorf("events:comms_publisher_integration_test - failed to unmarshal: %v", err)
			return
		}
		received <- &event
	})
	if err != nil {
		t.Fatalf("events:comms_publisher_integration_test - failed to subscribe: %v", err)
	}
	t.Cleanup(func() { _ = sub.Unsubscribe() })
	return received
}

func TestCommsPublisher_BothSubjects(t *testing.T) {
	nc, cleanup := startTestServer(t, 14230)
	defer cleanup()

	publisher := NewCommsPublisher(nc, nil)
	granular := subscribeEvents(t, nc, "plugin.ctrl.subscriptions.tick")
	global := subscribeEvents(t, nc, "plugin.subscriptions")

	event := &SubscriptionChangedEvent{
		EventID:   "e-1",
		Callsign:  "ctrl",
		ChannelID: 42,
		Event:     "tick",
		Client:    "client1",
		Status:    StatusRegistered,
		Accepted:  true,
	}
	if err := publisher.PublishSubscriptionChanged(context.Background(), event); err != nil {
		t.Fatalf("events:comms_publisher_integration_test - publish failed: %v", err)
	}
	nc.Flush()

	for _, ch := range []struct {
		name string
		ch   chan *SubscriptionChangedEvent
	}{
		{"granular", granular},
		{"global", global},
	} {
		select {
		case got := <-ch.ch:
			if got.ChannelID != 42 || got.Client != "client1" || got.Status != StatusRegistered {
				t.Errorf("events:comms_publisher_integration_test - %s event fields not preserved: %+v", ch.name, got)
			}
			if got.Timestamp == "" {
				t.Errorf("events:comms_publisher_integration_test - %s event missing timestamp", ch.name)
			}
		case <-time.After(5 * time.Second):
			t.Errorf("events:comms_publisher_integration_test - timeout waiting for %s event", ch.name)
		}
	}
}

func TestCommsPublisher_CustomSubjects(t *testing.T) {
	nc, cleanup := startTestServer(t, 14233)
	defer cleanup()

	publisher := NewCommsPublisher(nc, &CommsPublisherOpts{
		Prefix:        "edge",
		GlobalSubject: "custom.subscriptions",
	})
	granular := subscribeEvents(t, nc, "edge.org_ctrl.subscriptions.state_changed")
	global := subscribeEvents(t, nc, "custom.subscriptions")

	event := &SubscriptionChangedEvent{Callsign: "org.ctrl", Event: "state.changed", Status: StatusUnregistered, Code: -32601}
	if err := publisher.PublishSubscriptionChanged(context.Background(), event); err != nil {
		t.Fatalf("events:comms_publisher_integration_test - publish failed: %v", err)
	}
	nc.Flush()

	select {
	case got := <-granular:
		if got.Code != -32601 {
			t.Errorf("events:comms_publisher_integration_test - Code = %d, want -32601", got.Code)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("events:comms_publisher_integration_test - timeout waiting for granular event")
	}
	select {
	case <-global:
	case <-time.After(5 * time.Second):
		t.Fatal("events:comms_publisher_integration_test - timeout waiting for global event")
	}
}

func TestNewCommsPublisher_Defaults(t *testing.T) {
	nc, cleanup := startTestServer(t, 14235)
	defer cleanup()

	for _, opts := range []*CommsPublisherOpts{nil, {}} {
		publisher := NewCommsPublisher(nc, opts)
		if publisher.prefix != "plugin" {
			t.Errorf("events:comms_publisher_integration_test - prefix = %q, want plugin", publisher.prefix)
		}
		if publisher.globalSubject != "plugin.subscriptions" {
			t.Errorf("events:comms_publisher_integration_test - globalSubject = %q, want plugin.subscriptions", publisher.globalSubject)
		}
	}
}
