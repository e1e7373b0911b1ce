// fix-sim publishes OwnTracks-style location payloads to an MQTT broker so
// the presence server can be exercised without a real tracker app.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
)

type locationPayload struct {
	Type string  `json:"_type"`
	TID  string  `json:"tid"`
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
	Tst  int64   `json:"tst"`
}

func main() {
	brokerAddr := flag.String("broker", "tcp://localhost:1883", "MQTT broker address, e.g. tcp://localhost:1883")
	topic := flag.String("topic", "owntracks/sim/phone", "Topic to publish location payloads on")
	tid := flag.String("tid", "sim", "Tracker identifier reported in the payload")
	lat := flag.Float64("lat", 52.520008, "Base latitude in decimal degrees")
	lon := flag.Float64("lon", 13.404954, "Base longitude in decimal degrees")
	wanderMeters := flag.Float64("wander", 50, "Maximum random offset from the base coordinate in meters")
	interval := flag.Duration("interval", 5*time.Second, "Interval between published fixes")

	flag.Parse()

	clientID := fmt.Sprintf("fix-sim-%s", uuid.NewString())
	opts := mqtt.NewClientOptions().AddBroker(*brokerAddr).SetClientID(clientID)
	opts = opts.SetOrderMatters(false)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		log.Fatalf("failed to connect to broker: %v", token.Error())
	}
	log.Printf("connected to MQTT broker %s as %s", *brokerAddr, clientID)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()

	publish := func() {
		payload := locationPayload{
			Type: "location",
			TID:  *tid,
			Lat:  *lat + wander(*wanderMeters),
			Lon:  *lon + wander(*wanderMeters),
			Tst:  time.Now().Unix(),
		}

		data, err := json.Marshal(payload)
		if err != nil {
			log.Printf("failed to encode payload: %v", err)
			return
		}

		token := client.Publish(*topic, 0, false, data)
		token.Wait()
		if err := token.Error(); err != nil {
			log.Printf("publish error: %v", err)
			return
		}
		log.Printf("published %s lat=%.6f lon=%.6f", *topic, payload.Lat, payload.Lon)
	}

	publish()

	for {
		select {
		case <-ctx.Done():
			log.Print("received shutdown signal, disconnecting")
			client.Disconnect(250)
			return
		case <-ticker.C:
			publish()
		}
	}
}

// wander returns a random coordinate offset in degrees, roughly equivalent
// to up to maxMeters of drift.
func wander(maxMeters float64) float64 {
	if maxMeters <= 0 {
		return 0
	}
	const metersPerDegree = 111320.0
	return (rand.Float64()*2 - 1) * maxMeters / metersPerDegree
}
