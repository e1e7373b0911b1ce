// Package mqttsub feeds fixes from a subscribed MQTT channel into the
// pipeline.
package mqttsub

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"placewatch/presence-server/internal/model"
)

// Source labels fixes ingested over MQTT in metrics and logs.
const Source = "mqtt"

const (
	connectTimeout = 10 * time.Second
	processTimeout = 30 * time.Second
)

// Processor is the pipeline entry point the subscriber feeds.
type Processor interface {
	Process(ctx context.Context, fix model.Fix, source string) (model.Fix, error)
}

// Subscriber maintains the MQTT connection and subscription.
type Subscriber struct {
	client   mqtt.Client
	topic    string
	pipeline Processor
	logger   *slog.Logger
}

// New prepares a subscriber for the given broker and topic filter.
func New(brokerURL, topic string, pipeline Processor, logger *slog.Logger) *Subscriber {
	s := &Subscriber{topic: topic, pipeline: pipeline, logger: logger}

	opts := mqtt.NewClientOptions().
		AddBroker(brokerURL).
		SetClientID(fmt.Sprintf("presence-server-%s", uuid.NewString())).
		SetOrderMatters(false).
		SetAutoReconnect(true).
		SetConnectTimeout(connectTimeout)

	// Subscribe inside OnConnect so the subscription survives reconnects.
	opts.OnConnect = func(client mqtt.Client) {
		token := client.Subscribe(s.topic, 0, s.handleMessage)
		token.Wait()
		if err := token.Error(); err != nil {
			s.logger.Error("mqtt subscribe failed", "topic", s.topic, "error", err)
			return
		}
		s.logger.Info("mqtt subscription established", "topic", s.topic)
	}

	s.client = mqtt.NewClient(opts)
	return s
}

// Start connects to the broker.
func (s *Subscriber) Start() error {
	token := s.client.Connect()
	token.Wait()
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt connect: %w", err)
	}
	return nil
}

// Stop disconnects from the broker.
func (s *Subscriber) Stop() {
	s.client.Disconnect(250)
	s.logger.Info("mqtt subscriber stopped")
}

func (s *Subscriber) handleMessage(_ mqtt.Client, msg mqtt.Message) {
	fix, ok := DecodePayload(msg.Payload())
	if !ok {
		s.logger.Warn("ignoring unusable mqtt payload", "topic", msg.Topic())
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), processTimeout)
	defer cancel()

	result, err := s.pipeline.Process(ctx, fix, Source)
	if err != nil {
		s.logger.Warn("mqtt fix rejected", "topic", msg.Topic(), "error", err)
		return
	}

	s.logger.Info("processed mqtt fix", "user", result.User, "place", result.Place, "atHome", result.AtHome)
}

// DecodePayload reinterprets an OwnTracks location payload as a fix.
// Malformed JSON, a non-location type, or missing identity/coordinates all
// yield ok=false: the payload is dropped without touching any state.
func DecodePayload(payload []byte) (model.Fix, bool) {
	var p model.OwnTracksPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return model.Fix{}, false
	}

	if p.Type != "location" || p.TID == "" || p.Lat == nil || p.Lon == nil || p.Tst == 0 {
		return model.Fix{}, false
	}

	return model.Fix{
		User:      p.TID,
		Latitude:  *p.Lat,
		Longitude: *p.Lon,
		Timestamp: p.Tst,
	}, true
}
