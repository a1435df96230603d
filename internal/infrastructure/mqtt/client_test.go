package mqtt

import (
	"errors"
	"testing"
)

func TestCloseNil(t *testing.T) {
	client := &Client{}
	if err := client.Close(); err != nil {
		t.Errorf("Close() on nil client error = %v, want nil", err)
	}
}

func TestPublishEmptyTopic(t *testing.T) {
	client := &Client{subscriptions: make(map[string]subscription)}

	err := client.Publish("", []byte("payload"), 1, false)
	if !errors.Is(err, ErrInvalidTopic) {
		t.Errorf("Publish() error = %v, want ErrInvalidTopic", err)
	}
}

func TestPublishInvalidQoS(t *testing.T) {
	client := &Client{subscriptions: make(map[string]subscription)}

	err := client.Publish("forms/event/test", []byte("payload"), 3, false)
	if !errors.Is(err, ErrInvalidQoS) {
		t.Errorf("Publish() error = %v, want ErrInvalidQoS", err)
	}
}

func TestSubscribeEmptyTopic(t *testing.T) {
	client := &Client{subscriptions: make(map[string]subscription)}

	err := client.Subscribe("", 1, func(string, []byte) error { return nil })
	if !errors.Is(err, ErrInvalidTopic) {
		t.Errorf("Subscribe() error = %v, want ErrInvalidTopic", err)
	}
}

func TestSubscribeNilHandler(t *testing.T) {
	client := &Client{subscriptions: make(map[string]subscription)}

	err := client.Subscribe("forms/reading/+", 1, nil)
	if !errors.Is(err, ErrSubscribeFailed) {
		t.Errorf("Subscribe() error = %v, want ErrSubscribeFailed", err)
	}
}

func TestUnsubscribeEmptyTopic(t *testing.T) {
	client := &Client{subscriptions: make(map[string]subscription)}

	err := client.Unsubscribe("")
	if !errors.Is(err, ErrInvalidTopic) {
		t.Errorf("Unsubscribe() error = %v, want ErrInvalidTopic", err)
	}
}

func TestSubscriptionCountEmpty(t *testing.T) {
	client := &Client{subscriptions: make(map[string]subscription)}

	if count := client.SubscriptionCount(); count != 0 {
		t.Errorf("SubscriptionCount() = %d, want 0", count)
	}
}

func TestHasSubscriptionNotSubscribed(t *testing.T) {
	client := &Client{subscriptions: make(map[string]subscription)}

	if client.HasSubscription("forms/reading/+") {
		t.Error("HasSubscription() = true, want false")
	}
}

func TestTopicBuilders(t *testing.T) {
	topics := Topics{}

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"sensor reading", topics.SensorReading("sensor-river-north"), "forms/reading/sensor-river-north"},
		{"event", topics.Event("zone_created"), "forms/event/zone_created"},
		{"camera counts", topics.CameraCounts("cam-bridge-east"), "forms/camera/cam-bridge-east/counts"},
		{"system status", topics.SystemStatus(), "forms/system/status"},
		{"all sensor readings", topics.AllSensorReadings(), "forms/reading/+"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %q, want %q", tt.got, tt.want)
			}
		})
	}
}
