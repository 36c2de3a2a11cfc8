package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"packloop/internal/config"
	"packloop/internal/models"
	"packloop/internal/services"
)

// sensorMessage is the wire format edge devices publish. Timestamps are
// RFC 3339; a missing timestamp means ingest time.
type sensorMessage struct {
	InstanceID *uuid.UUID `json:"instance_id,omitempty"`
	LocationID *uuid.UUID `json:"location_id,omitempty"`
	SensorType string     `json:"sensor_type"`
	Value      float64    `json:"value"`
	RecordedAt *time.Time `json:"recorded_at,omitempty"`
}

// MQTTIngestor subscribes to the telemetry topic and feeds readings into the
// telemetry service. Malformed payloads are logged and dropped; the broker
// connection auto-reconnects.
type MQTTIngestor struct {
	cfg          config.MQTTConfig
	telemetrySvc services.TelemetryService
	client       mqtt.Client
}

func NewMQTTIngestor(cfg config.MQTTConfig, telemetrySvc services.TelemetryService) *MQTTIngestor {
	return &MQTTIngestor{
		cfg:          cfg,
		telemetrySvc: telemetrySvc,
	}
}

// Start connects to the broker and subscribes. It returns once the
// subscription is registered; message handling runs on paho's goroutines.
func (i *MQTTIngestor) Start(ctx context.Context) error {
	broker := fmt.Sprintf("tcp://%s:%d", i.cfg.Broker, i.cfg.Port)
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(i.cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second)

	client := mqtt.NewClient(opts)
	token := client.Connect()
	token.Wait()
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt connect: %w", err)
	}
	i.client = client

	sub := client.Subscribe(i.cfg.Topic, 1, func(_ mqtt.Client, msg mqtt.Message) {
		i.handleMessage(ctx, msg.Topic(), msg.Payload())
	})
	sub.Wait()
	if err := sub.Error(); err != nil {
		client.Disconnect(1000)
		i.client = nil
		return fmt.Errorf("mqtt subscribe %s: %w", i.cfg.Topic, err)
	}

	log.Printf("mqtt ingestor subscribed to %s on %s", i.cfg.Topic, broker)
	return nil
}

func (i *MQTTIngestor) handleMessage(ctx context.Context, topic string, payload []byte) {
	var msg sensorMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		log.Printf("mqtt %s: dropping malformed payload: %v", topic, err)
		return
	}

	var recordedAt time.Time
	if msg.RecordedAt != nil {
		recordedAt = *msg.RecordedAt
	}

	_, err := i.telemetrySvc.RecordSensorReading(ctx, msg.InstanceID, msg.LocationID, models.SensorType(msg.SensorType), msg.Value, recordedAt, "mqtt")
	if err != nil {
		log.Printf("mqtt %s: reading rejected: %v", topic, err)
	}
}

// Stop disconnects from the broker, waiting briefly for in-flight work.
func (i *MQTTIngestor) Stop() {
	if i.client != nil {
		i.client.Disconnect(1000)
		i.client = nil
	}
}
