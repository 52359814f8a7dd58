// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/edaniels/golog"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// connectMQTT connects to broker and reconnects on its own after drops. An
// empty clientID gets a random one so several instances can share a broker.
func connectMQTT(broker, clientID string, logger golog.Logger) (mqtt.Client, error) {
	if clientID == "" {
		clientID = "dronetracker-" + uuid.NewString()
	}
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			logger.Warnw("mqtt: connection lost", "error", err)
		})

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, errors.Wrapf(token.Error(), "connect to MQTT broker %s", broker)
	}
	logger.Infof("mqtt: connected to broker at %s as %s", broker, clientID)
	return client, nil
}

// subscribeJSON subscribes to topic and decodes every payload into a fresh T
// before handing it to handle. Undecodable payloads are logged and dropped.
func subscribeJSON[T any](client mqtt.Client, topic string, logger golog.Logger, handle func(topic string, v T)) error {
	token := client.Subscribe(topic, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var v T
		if err := json.Unmarshal(msg.Payload(), &v); err != nil {
			logger.Warnw("mqtt: payload unmarshal error", "topic", msg.Topic(), "error", err)
			return
		}
		handle(msg.Topic(), v)
	})
	token.Wait()
	if token.Error() != nil {
		return errors.Wrapf(token.Error(), "subscribe to %s", topic)
	}
	logger.Infof("mqtt: subscribed to %s", topic)
	return nil
}

// publishJSON marshals v and publishes it retained.
func publishJSON(client mqtt.Client, topic string, v interface{}) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return errors.Wrapf(err, "marshal payload for %s", topic)
	}
	token := client.Publish(topic, 0, true, payload)
	token.Wait()
	if token.Error() != nil {
		return errors.Wrapf(token.Error(), "publish to %s", topic)
	}
	return nil
}
