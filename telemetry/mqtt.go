package telemetry

import (
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// Binding routes one MQTT topic to one channel slot.
type Binding struct {
	Topic   string
	Channel int
	Text    bool // deliver the payload as text instead of parsing a number
}

// MQTTSource bridges broker messages into channel samples. The paho client
// delivers on its own goroutines; samples cross to the loop through a
// buffered channel drained by Poll.
type MQTTSource struct {
	broker   string
	port     int
	clientID string
	bindings []Binding

	client  mqtt.Client
	samples chan Sample
}

// NewMQTTSource builds a source for the given broker and topic bindings.
func NewMQTTSource(broker string, port int, clientID string, bindings []Binding) *MQTTSource {
	if clientID == "" {
		clientID = fmt.Sprintf("waybeam-%d", time.Now().Unix())
	}
	return &MQTTSource{
		broker:   broker,
		port:     port,
		clientID: clientID,
		bindings: bindings,
		samples:  make(chan Sample, 64),
	}
}

func (m *MQTTSource) Name() string { return "mqtt" }

// Connect establishes the broker connection and subscribes every binding.
func (m *MQTTSource) Connect() error {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", m.broker, m.port))
	opts.SetClientID(m.clientID)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetConnectTimeout(10 * time.Second)
	opts.SetAutoReconnect(true)
	opts.SetMaxReconnectInterval(time.Minute)
	opts.SetOnConnectHandler(m.onConnect)
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		log.Printf("Telemetry: mqtt connection lost: %v", err)
	})

	m.client = mqtt.NewClient(opts)
	token := m.client.Connect()
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("telemetry: connect %s:%d: %w", m.broker, m.port, token.Error())
	}
	return nil
}

func (m *MQTTSource) onConnect(client mqtt.Client) {
	for _, b := range m.bindings {
		b := b
		token := client.Subscribe(b.Topic, 0, func(_ mqtt.Client, msg mqtt.Message) {
			m.deliver(b, msg.Payload())
		})
		if token.Wait() && token.Error() != nil {
			log.Printf("Telemetry: subscribe %s: %v", b.Topic, token.Error())
		}
	}
}

func (m *MQTTSource) deliver(b Binding, payload []byte) {
	s := Sample{Channel: b.Channel}
	body := strings.TrimSpace(string(payload))
	if b.Text {
		s.IsText = true
		s.Text = body
	} else {
		v, err := strconv.ParseFloat(body, 64)
		if err != nil {
			// Non-numeric payloads on a numeric binding fall back to text.
			s.IsText = true
			s.Text = body
		} else {
			s.Value = v
		}
	}
	select {
	case m.samples <- s:
	default:
		// Loop is behind; the next message supersedes anyway.
	}
}

// Poll drains whatever the broker delivered since the last call.
func (m *MQTTSource) Poll(now time.Time) []Sample {
	var out []Sample
	for {
		select {
		case s := <-m.samples:
			out = append(out, s)
		default:
			return out
		}
	}
}

// Stop unsubscribes and disconnects.
func (m *MQTTSource) Stop() {
	if m.client == nil || !m.client.IsConnected() {
		return
	}
	for _, b := range m.bindings {
		m.client.Unsubscribe(b.Topic)
	}
	m.client.Disconnect(250)
}
