// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/attitude_link/internal/link"
)

// Publisher pushes body outputs to "<prefix>/<body>" as retained JSON and,
// when rawTopic is set, the raw IMU stream to rawTopic.
type Publisher struct {
	client   mqtt.Client
	prefix   string
	rawTopic string
}

// connectMQTT connects to broker with clientID.
func connectMQTT(broker, clientID string) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("MQTT connect %s: %w", broker, token.Error())
	}
	return client, nil
}

func NewPublisher(client mqtt.Client, prefix, rawTopic string) *Publisher {
	return &Publisher{client: client, prefix: strings.TrimSuffix(prefix, "/"), rawTopic: rawTopic}
}

// Topic is where body is published.
func (p *Publisher) Topic(body string) string {
	return p.prefix + "/" + body
}

// Publish does not wait for delivery; the tick must not stall on the broker.
func (p *Publisher) Publish(outs []BodyOutput) {
	for _, out := range outs {
		payload, err := json.Marshal(out)
		if err != nil {
			log.Printf("mqtt: marshal %s: %v", out.Body, err)
			continue
		}
		if token := p.client.Publish(p.Topic(out.Body), 0, true, payload); token.Error() != nil {
			log.Printf("mqtt: publish %s: %v", out.Body, token.Error())
		}
	}
}

// PublishRaw sends raw not retained; a late subscriber has no use for an old
// sample.
func (p *Publisher) PublishRaw(raw RawOutput) {
	if p.rawTopic == "" {
		return
	}
	payload, err := json.Marshal(raw)
	if err != nil {
		log.Printf("mqtt: marshal raw: %v", err)
		return
	}
	if token := p.client.Publish(p.rawTopic, 0, false, payload); token.Error() != nil {
		log.Printf("mqtt: publish %s: %v", p.rawTopic, token.Error())
	}
}

// SubscribeCommands forwards command names received on topic to the tracker.
func SubscribeCommands(client mqtt.Client, topic string, t *Tracker) error {
	token := client.Subscribe(topic, 0, func(_ mqtt.Client, msg mqtt.Message) {
		cmd, err := link.ParseCommand(string(msg.Payload()))
		if err != nil {
			log.Printf("mqtt: %v", err)
			return
		}
		t.Enqueue(cmd)
	})
	token.Wait()
	if token.Error() != nil {
		return fmt.Errorf("MQTT subscribe %s: %w", topic, token.Error())
	}
	log.Printf("mqtt: subscribed to %s", topic)
	return nil
}
