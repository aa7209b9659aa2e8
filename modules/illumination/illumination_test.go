package illumination

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

type fakeToken struct {
	done chan struct{}
	err  error
}

func completedToken(err error) *fakeToken {
	t := &fakeToken{done: make(chan struct{}), err: err}
	close(t.done)
	return t
}

func (t *fakeToken) Wait() bool {
	<-t.done
	return true
}

func (t *fakeToken) WaitTimeout(d time.Duration) bool {
	select {
	case <-t.done:
		return true
	case <-time.After(d):
		return false
	}
}

func (t *fakeToken) Done() <-chan struct{} { return t.done }
func (t *fakeToken) Error() error          { return t.err }

type published struct {
	topic    string
	qos      byte
	retained bool
	payload  []byte
}

type fakePublisher struct {
	mu    sync.Mutex
	msgs  []published
	token func() mqtt.Token
}

func (f *fakePublisher) IsConnected() bool { return true }

func (f *fakePublisher) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	f.mu.Lock()
	f.msgs = append(f.msgs, published{topic, qos, retained, payload.([]byte)})
	f.mu.Unlock()
	if f.token != nil {
		return f.token()
	}
	return completedToken(nil)
}

func connectedIlluminator(cfg MQTTConfig, pub publisher) *MQTTIlluminator {
	m := NewMQTTIlluminator(cfg)
	m.pub = pub
	m.connected = true
	return m
}

func TestEncodeDecode(t *testing.T) {
	for _, format := range []PayloadFormat{PayloadJSON, PayloadMsgpack} {
		t.Run(format.String(), func(t *testing.T) {
			cmd := NewCommand(3, true)
			data, err := Encode(cmd, format)
			if err != nil {
				t.Fatalf("Encode() failed: %v", err)
			}
			got, err := Decode(data, format)
			if err != nil {
				t.Fatalf("Decode() failed: %v", err)
			}
			if got.Index != 3 || got.Phase != "A" || !got.On {
				t.Errorf("decoded %+v, want index 3 phase A on", got)
			}
		})
	}

	if _, err := Encode(Command{}, PayloadFormat(7)); err == nil {
		t.Error("Encode() with unknown format should fail")
	}
}

func TestParsePayloadFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    PayloadFormat
		wantErr bool
	}{
		{"", PayloadJSON, false},
		{"json", PayloadJSON, false},
		{"msgpack", PayloadMsgpack, false},
		{"xml", PayloadJSON, true},
	}
	for _, tt := range tests {
		got, err := ParsePayloadFormat(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParsePayloadFormat(%q) = (%v, %v), want (%v, err=%v)", tt.in, got, err, tt.want, tt.wantErr)
		}
	}
}

func TestMQTTIlluminator_SetPhase(t *testing.T) {
	pub := &fakePublisher{}
	m := connectedIlluminator(MQTTConfig{Topic: "lab/strobe/light", QoS: 1, Retained: true, Payload: PayloadMsgpack}, pub)

	for i, phase := range []bool{true, false, true} {
		if err := m.SetPhase(context.Background(), i, phase); err != nil {
			t.Fatalf("SetPhase(%d) failed: %v", i, err)
		}
	}

	if len(pub.msgs) != 3 {
		t.Fatalf("published %d messages, want 3", len(pub.msgs))
	}
	last := pub.msgs[2]
	if last.topic != "lab/strobe/light" || last.qos != 1 || !last.retained {
		t.Errorf("unexpected publish options: %+v", last)
	}
	cmd, err := Decode(last.payload, PayloadMsgpack)
	if err != nil {
		t.Fatalf("payload is not msgpack: %v", err)
	}
	if cmd.Index != 2 || cmd.Phase != "A" {
		t.Errorf("last command = %+v, want index 2 phase A", cmd)
	}

	if s := m.Stats(); s.Published != 3 || s.Errors != 0 || !s.Connected {
		t.Errorf("unexpected stats: %+v", s)
	}
}

func TestMQTTIlluminator_Failures(t *testing.T) {
	t.Run("not connected", func(t *testing.T) {
		m := NewMQTTIlluminator(MQTTConfig{Topic: "x"})
		if err := m.SetPhase(context.Background(), 0, true); err == nil {
			t.Error("SetPhase() without Connect should fail")
		}
		if m.Stats().Errors != 1 {
			t.Errorf("Errors = %d, want 1", m.Stats().Errors)
		}
	})

	t.Run("broker error", func(t *testing.T) {
		boom := errors.New("not authorized")
		pub := &fakePublisher{token: func() mqtt.Token { return completedToken(boom) }}
		m := connectedIlluminator(MQTTConfig{Topic: "x"}, pub)
		if err := m.SetPhase(context.Background(), 0, true); !errors.Is(err, boom) {
			t.Errorf("SetPhase() error = %v, want wrapped broker error", err)
		}
	})

	t.Run("publish timeout", func(t *testing.T) {
		pub := &fakePublisher{token: func() mqtt.Token { return &fakeToken{done: make(chan struct{})} }}
		m := connectedIlluminator(MQTTConfig{Topic: "x", PublishTimeout: 10 * time.Millisecond}, pub)
		if err := m.SetPhase(context.Background(), 0, true); err == nil {
			t.Error("SetPhase() should time out")
		}
	})
}

func TestLogIlluminatorAndMulti(t *testing.T) {
	a, b := &LogIlluminator{}, &LogIlluminator{}
	multi := Multi{a, b}

	if err := multi.SetPhase(context.Background(), 0, true); err != nil {
		t.Fatalf("SetPhase() failed: %v", err)
	}
	if !a.Lit() || !b.Lit() {
		t.Error("both illuminators should be lit")
	}

	if err := multi.SetPhase(context.Background(), -1, false); err != nil {
		t.Fatalf("SetPhase() failed: %v", err)
	}
	if a.Lit() || b.Lit() || a.Commands() != 2 {
		t.Errorf("unexpected state: lit=%v/%v commands=%d", a.Lit(), b.Lit(), a.Commands())
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	failing := NewMQTTIlluminator(MQTTConfig{})
	if err := (Multi{a, failing}).SetPhase(ctx, 1, true); err == nil {
		t.Error("Multi should report member errors")
	}
}
