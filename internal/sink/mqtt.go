// internal/sink/mqtt.go
package sink

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"

	cfg "github.com/tamzrod/modbus-acquire/internal/config"
	"github.com/tamzrod/modbus-acquire/internal/published"
)

const (
	mqttConnectTimeout = 10 * time.Second
	mqttPublishTimeout = 5 * time.Second
)

// MQTT publishes every snapshot as one JSON document.
type MQTT struct {
	client mqtt.Client
	topic  string
	qos    byte
	log    zerolog.Logger
}

// NewMQTT connects to the broker. The client reconnects on its own after
// the first successful connect.
func NewMQTT(c cfg.MQTTSinkConfig, log zerolog.Logger) (*MQTT, error) {
	clientID := c.ClientID
	if clientID == "" {
		clientID = "modbus-acquire"
	}

	opts := mqtt.NewClientOptions().
		AddBroker(c.Broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetOrderMatters(false)
	if c.Username != "" {
		opts.SetUsername(c.Username)
		opts.SetPassword(c.Password)
	}

	client := mqtt.NewClient(opts)
	if tok := client.Connect(); !tok.WaitTimeout(mqttConnectTimeout) || tok.Error() != nil {
		err := tok.Error()
		if err == nil {
			err = errors.New("timeout")
		}
		return nil, fmt.Errorf("sink mqtt: connect %s: %w", c.Broker, err)
	}

	return &MQTT{
		client: client,
		topic:  c.Topic,
		qos:    c.QoS,
		log:    log.With().Str("component", "sink.mqtt").Logger(),
	}, nil
}

func (m *MQTT) Name() string { return "mqtt" }

func (m *MQTT) Consume(ctx context.Context, snap *published.Snapshot) error {
	if snap == nil {
		return nil
	}
	b, err := Encode(snap)
	if err != nil {
		return err
	}

	tok := m.client.Publish(m.topic, m.qos, false, b)
	select {
	case <-tok.Done():
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(mqttPublishTimeout):
		return fmt.Errorf("sink mqtt: publish to %s timed out", m.topic)
	}
	return tok.Error()
}

func (m *MQTT) Close() error {
	m.client.Disconnect(250)
	return nil
}

// ---- payload ----

type samplePayload struct {
	Key   string   `json:"key"`
	Name  string   `json:"name,omitempty"`
	Unit  string   `json:"unit,omitempty"`
	Raw   *float64 `json:"raw,omitempty"`
	Value *float64 `json:"value"` // null for NaN
}

type snapshotPayload struct {
	Cycle    uint64          `json:"cycle"`
	TS       string          `json:"ts"`
	TookMs   float64         `json:"took_ms"`
	Channels []samplePayload `json:"channels"`
	Math     []samplePayload `json:"math"`
	Errors   []string        `json:"errors,omitempty"`
}

// Encode renders the JSON document published for a snapshot.
func Encode(snap *published.Snapshot) ([]byte, error) {
	p := snapshotPayload{
		Cycle:    snap.Cycle,
		TS:       stamp(snap.At),
		TookMs:   float64(snap.Duration) / float64(time.Millisecond),
		Channels: []samplePayload{},
		Math:     []samplePayload{},
	}

	for _, s := range Samples(snap) {
		sp := samplePayload{Key: s.Key, Name: s.Name, Unit: s.Unit, Value: number(s.Value)}
		if s.Kind == KindMath {
			sp.Name = ""
			p.Math = append(p.Math, sp)
			continue
		}
		sp.Raw = number(s.Raw)
		p.Channels = append(p.Channels, sp)
	}
	for _, e := range snap.Errors {
		p.Errors = append(p.Errors, e.Error())
	}

	return json.Marshal(p)
}

// number maps values JSON cannot carry to null.
func number(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
