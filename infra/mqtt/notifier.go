// Package mqtt publishes vehicle notifications to an MQTT broker. Each ready
// or retired event becomes a JSON message on <prefix>/<plate>/<kind>.
package mqtt

import (
	"context"
	"fmt"
	"strings"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	json "github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/kilianp07/evslot/core/events"
	coremon "github.com/kilianp07/evslot/core/monitoring"
	"github.com/kilianp07/evslot/infra/logger"
)

type pahoClient interface {
	IsConnected() bool
	Connect() paho.Token
	Disconnect(quiesce uint)
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
}

var newMQTTClient = func(opts *paho.ClientOptions) pahoClient {
	return paho.NewClient(opts)
}

// Message is the JSON payload of a notification.
type Message struct {
	MessageID     string `json:"message_id"`
	Kind          string `json:"kind"`
	Plate         string `json:"plate"`
	CurrentCharge int    `json:"current_charge"`
	TotalCharge   int    `json:"total_charge"`
	Estimated     *int64 `json:"estimated,omitempty"`
	Timestamp     int64  `json:"timestamp"`
}

// Notifier publishes vehicle events with Eclipse Paho.
type Notifier struct {
	cli        pahoClient
	prefix     string
	qos        byte
	retain     bool
	maxRetries int
	backoff    time.Duration
	log        logger.Logger
}

// NewNotifier connects to the broker.
func NewNotifier(cfg Config) (*Notifier, error) {
	cfg.SetDefaults()
	opts, err := NewClientOptions(cfg)
	if err != nil {
		return nil, err
	}
	log := logger.New("mqtt-notifier")
	n := &Notifier{
		prefix:     strings.TrimSuffix(cfg.TopicPrefix, "/"),
		qos:        cfg.QoS,
		retain:     cfg.Retain,
		maxRetries: cfg.MaxRetries,
		backoff:    time.Duration(cfg.BackoffMS) * time.Millisecond,
		log:        log,
	}
	opts.OnConnect = func(paho.Client) {
		log.Infof("MQTT connected to %s", cfg.Broker)
	}
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		log.Errorf("connection lost: %v", err)
	}
	opts.OnReconnecting = func(_ paho.Client, _ *paho.ClientOptions) {
		log.Warnf("reconnecting to MQTT broker")
	}
	c := newMQTTClient(opts)
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	n.cli = c
	return n, nil
}

// NewClientOptions builds mqtt client options from Config.
func NewClientOptions(cfg Config) (*paho.ClientOptions, error) {
	opts := paho.NewClientOptions().AddBroker(cfg.Broker).SetClientID(cfg.ClientID)
	opts.AutoReconnect = true
	if cfg.AuthMethod == "username_password" || cfg.AuthMethod == "both" || cfg.AuthMethod == "" {
		if cfg.Username != "" {
			opts.SetUsername(cfg.Username)
		}
		if cfg.Password != "" {
			opts.SetPassword(cfg.Password)
		}
	}
	if cfg.UseTLS {
		tlsCfg, err := cfg.LoadTLSConfig()
		if err != nil {
			return nil, err
		}
		opts.SetTLSConfig(tlsCfg)
	}
	if cfg.LWTTopic != "" {
		opts.SetWill(cfg.LWTTopic, cfg.LWTPayload, cfg.LWTQoS, cfg.LWTRetain)
	}
	return opts, nil
}

// Topic returns the topic of an event. MQTT wildcard and level separators in
// the plate are replaced so a plate always maps to a single topic level.
func (n *Notifier) Topic(ev events.VehicleEvent) string {
	plate := strings.NewReplacer("/", "_", "+", "_", "#", "_").Replace(ev.Plate)
	return fmt.Sprintf("%s/%s/%s", n.prefix, plate, ev.Kind)
}

// Notify publishes ev, retrying with exponential backoff.
func (n *Notifier) Notify(ev events.VehicleEvent) error {
	msg := Message{
		MessageID:     uuid.NewString(),
		Kind:          string(ev.Kind),
		Plate:         ev.Plate,
		CurrentCharge: ev.CurrentCharge,
		TotalCharge:   ev.TotalCharge,
		Timestamp:     ev.Time.UnixMilli(),
	}
	if !ev.EstimatedAt.IsZero() {
		est := ev.EstimatedAt.UnixMilli()
		msg.Estimated = &est
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	topic := n.Topic(ev)
	var publishErr error
	for attempt := 0; attempt <= n.maxRetries; attempt++ {
		token := n.cli.Publish(topic, n.qos, n.retain, payload)
		token.Wait()
		publishErr = token.Error()
		if publishErr == nil {
			n.log.Debugf("sent %s notification %s to %s", msg.Kind, msg.MessageID, topic)
			return nil
		}
		n.log.Errorf("publish attempt %d failed: %v", attempt+1, publishErr)
		if attempt < n.maxRetries {
			time.Sleep(n.backoff * time.Duration(1<<attempt))
		}
	}
	coremon.CaptureException(publishErr, map[string]string{"plate": ev.Plate, "module": "mqtt", "kind": msg.Kind})
	return publishErr
}

// Run forwards events from sub until ctx is done or sub is closed. Publish
// failures are logged and never stop the loop.
func (n *Notifier) Run(ctx context.Context, sub <-chan events.VehicleEvent) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sub:
			if !ok {
				return
			}
			if err := n.Notify(ev); err != nil {
				n.log.Warnf("drop %s notification for %s: %v", ev.Kind, ev.Plate, err)
			}
		}
	}
}

// Disconnect gracefully closes the MQTT connection.
func (n *Notifier) Disconnect() {
	if n.cli != nil && n.cli.IsConnected() {
		n.cli.Disconnect(250)
	}
}
