/*******************************************************************************
* Copyright (C) 2026 the Titan-AAS Authors
*
* Permission is hereby granted, free of charge, to any person obtaining
* a copy of this software and associated documentation files (the
* "Software"), to deal in the Software without restriction, including
* without limitation the rights to use, copy, modify, merge, publish,
* distribute, sublicense, and/or sell copies of the Software, and to
* permit persons to whom the Software is furnished to do so, subject to
* the following conditions:
*
* The above copyright notice and this permission notice shall be
* included in all copies or substantial portions of the Software.
*
* THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND,
* EXPRESS OR IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF
* MERCHANTABILITY, FITNESS FOR A PARTICULAR PURPOSE AND
* NONINFRINGEMENT. IN NO EVENT SHALL THE AUTHORS OR COPYRIGHT HOLDERS BE
* LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY, WHETHER IN AN ACTION
* OF CONTRACT, TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN CONNECTION
* WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.
*
* SPDX-License-Identifier: MIT
******************************************************************************/

package writer

import (
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/titan-aas/titan-go-components/internal/common"
	"github.com/titan-aas/titan-go-components/internal/common/model"
)

const mqttConnectTimeout = 10 * time.Second

// MQTTBroadcaster mirrors event envelopes onto an MQTT broker under
// {topicPrefix}/{entity}/{identifierB64}. Publishes are fire and forget at
// QoS 0; a broker outage degrades notifications, never writes.
type MQTTBroadcaster struct {
	client      mqtt.Client
	topicPrefix string
}

// NewMQTTBroadcaster connects to the configured broker. Returns nil when no
// broker URL is configured.
func NewMQTTBroadcaster(cfg common.MQTTConfig) (*MQTTBroadcaster, error) {
	if cfg.BrokerURL == "" {
		return nil, nil
	}
	clientID := cfg.ClientID
	if clientID == "" {
		clientID = "titan-aas-writer"
	}
	topicPrefix := strings.TrimSuffix(cfg.TopicPrefix, "/")
	if topicPrefix == "" {
		topicPrefix = "titan/events"
	}

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.BrokerURL).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectTimeout(mqttConnectTimeout)
	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(mqttConnectTimeout) {
		return nil, common.NewInternalServerError("timed out connecting to MQTT broker " + cfg.BrokerURL)
	}
	if err := token.Error(); err != nil {
		return nil, err
	}
	return &MQTTBroadcaster{client: client, topicPrefix: topicPrefix}, nil
}

// Broadcast publishes the event envelope without document bytes.
func (m *MQTTBroadcaster) Broadcast(event model.Event) {
	envelope := wsEnvelope{
		EventID:       event.EventID,
		EventType:     strings.ToLower(string(event.EventType)),
		Entity:        event.Entity,
		Identifier:    event.Identifier,
		IdentifierB64: event.IdentifierB64,
		Timestamp:     event.Timestamp.UTC().Format(time.RFC3339Nano),
		ETag:          event.ETag,
		IDShortPath:   event.IDShortPath,
	}
	payload, err := jsonStd.Marshal(envelope)
	if err != nil {
		return
	}
	topic := m.topicPrefix + "/" + event.Entity + "/" + event.IdentifierB64
	token := m.client.Publish(topic, 0, false, payload)
	go func() {
		token.Wait()
		if err := token.Error(); err != nil {
			log.Debugf("mqtt publish to %s failed: %v", topic, err)
		}
	}()
}

// Close disconnects from the broker.
func (m *MQTTBroadcaster) Close() {
	if m == nil {
		return
	}
	m.client.Disconnect(250)
}
