// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/attitude_link/internal/config"
)

// RunConsoleMQTT prints every orientation published under the configured
// topic prefix, and the raw IMU stream when its topic is set, until ctx ends.
func RunConsoleMQTT(ctx context.Context, cfg *config.Config) error {
	if cfg.MQTTBroker == "" {
		return fmt.Errorf("MQTT_BROKER is not set")
	}
	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientID+"-console")
	if err != nil {
		return err
	}
	defer client.Disconnect(250)
	log.Printf("console: connected to MQTT broker at %s", cfg.MQTTBroker)

	topic := cfg.TopicOrientation + "/#"
	token := client.Subscribe(topic, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var out BodyOutput
		if err := json.Unmarshal(msg.Payload(), &out); err != nil {
			log.Printf("console: %s unmarshal error: %v", msg.Topic(), err)
			return
		}
		printOutput(out)
	})
	token.Wait()
	if token.Error() != nil {
		return fmt.Errorf("MQTT subscribe %s: %w", topic, token.Error())
	}
	log.Printf("console: subscribed to %s", topic)

	if cfg.TopicIMURaw != "" {
		token := client.Subscribe(cfg.TopicIMURaw, 0, func(_ mqtt.Client, msg mqtt.Message) {
			var raw RawOutput
			if err := json.Unmarshal(msg.Payload(), &raw); err != nil {
				log.Printf("console: %s unmarshal error: %v", msg.Topic(), err)
				return
			}
			printRaw(raw)
		})
		token.Wait()
		if token.Error() != nil {
			return fmt.Errorf("MQTT subscribe %s: %w", cfg.TopicIMURaw, token.Error())
		}
		log.Printf("console: subscribed to %s", cfg.TopicIMURaw)
	}

	<-ctx.Done()
	return nil
}
