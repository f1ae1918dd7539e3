// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package bus forwards fix events and display requests to message brokers.
package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/relabs-tech/gps_matrix/internal/acquisition"
	"github.com/relabs-tech/gps_matrix/internal/display"
)

const (
	publishTimeout        = 2 * time.Second
	defaultConnectTimeout = 10 * time.Second
	// maxInFlight bounds the publishes awaiting broker acknowledgement.
	maxInFlight = 32
)

// MQTTOptions selects the broker and topics.
type MQTTOptions struct {
	Broker       string
	ClientID     string
	FixTopic     string
	DisplayTopic string
	// ConnectTimeout bounds the first connection attempt. Zero means 10s.
	ConnectTimeout time.Duration
}

// DisplayMessage is the payload published on the display topic. Exactly one
// of Text and Heading is set.
type DisplayMessage struct {
	Type    string           `json:"type"`
	Text    *display.Text    `json:"text,omitempty"`
	Heading *display.Heading `json:"heading,omitempty"`
}

// publisher is the part of mqtt.Client used here.
type publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// MQTT publishes fix events and mirrors the display. It is both an
// acquisition.Publisher and a display.Sink.
//
// Sends never wait for the broker: a publish that is not acknowledged at once
// is awaited in the background, and dropped when maxInFlight are pending.
type MQTT struct {
	client       publisher
	fixTopic     string
	displayTopic string
	log          *zap.Logger
	inflight     chan struct{}
}

// DialMQTT connects to the broker. The returned func disconnects.
// A broker that does not answer within ConnectTimeout is not fatal: the
// client keeps retrying in the background and messages are queued or dropped
// meanwhile.
func DialMQTT(opts MQTTOptions, log *zap.Logger) (*MQTT, func(), error) {
	timeout := opts.ConnectTimeout
	if timeout <= 0 {
		timeout = defaultConnectTimeout
	}
	copts := mqtt.NewClientOptions().
		AddBroker(opts.Broker).
		SetClientID(opts.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetWriteTimeout(publishTimeout)

	client := mqtt.NewClient(copts)
	token := client.Connect()
	switch {
	case !token.WaitTimeout(timeout):
		log.Warn("MQTT broker not reachable yet, retrying in background",
			zap.String("broker", opts.Broker), zap.Duration("waited", timeout))
	case token.Error() != nil:
		return nil, func() {}, fmt.Errorf("mqtt connect %s: %w", opts.Broker, token.Error())
	default:
		log.Info("connected to MQTT broker", zap.String("broker", opts.Broker), zap.String("client_id", opts.ClientID))
	}

	return NewMQTT(client, opts.FixTopic, opts.DisplayTopic, log), func() { client.Disconnect(250) }, nil
}

// NewMQTT wraps a client. An empty topic disables that stream.
func NewMQTT(client publisher, fixTopic, displayTopic string, log *zap.Logger) *MQTT {
	return &MQTT{
		client:       client,
		fixTopic:     fixTopic,
		displayTopic: displayTopic,
		log:          log,
		inflight:     make(chan struct{}, maxInFlight),
	}
}

// Publish sends ev as retained JSON so late subscribers see the last state.
func (m *MQTT) Publish(ctx context.Context, ev acquisition.Event) error {
	if m.fixTopic == "" {
		return nil
	}
	return m.send(ctx, m.fixTopic, true, ev)
}

func (m *MQTT) ShowText(ctx context.Context, t display.Text) error {
	if m.displayTopic == "" {
		return nil
	}
	return m.send(ctx, m.displayTopic, false, DisplayMessage{Type: "text", Text: &t})
}

func (m *MQTT) ShowHeading(ctx context.Context, h display.Heading) error {
	if m.displayTopic == "" {
		return nil
	}
	return m.send(ctx, m.displayTopic, false, DisplayMessage{Type: "heading", Heading: &h})
}

func (m *MQTT) send(ctx context.Context, topic string, retained bool, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", topic, err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	select {
	case m.inflight <- struct{}{}:
	default:
		m.log.Warn("dropping MQTT message, broker is not keeping up", zap.String("topic", topic))
		return nil
	}

	token := m.client.Publish(topic, 0, retained, payload)
	select {
	case <-token.Done():
		<-m.inflight
		if err := token.Error(); err != nil {
			return fmt.Errorf("publish %s: %w", topic, err)
		}
		m.log.Debug("published", zap.String("topic", topic), zap.Int("bytes", len(payload)))
	default:
		go m.await(topic, token)
	}
	return nil
}

// await releases the in-flight slot once the broker answers or
// publishTimeout passes.
func (m *MQTT) await(topic string, token mqtt.Token) {
	defer func() { <-m.inflight }()
	if !token.WaitTimeout(publishTimeout) {
		m.log.Warn("MQTT publish not acknowledged", zap.String("topic", topic), zap.Duration("waited", publishTimeout))
		return
	}
	if err := token.Error(); err != nil {
		m.log.Warn("MQTT publish failed", zap.String("topic", topic), zap.Error(err))
	}
}

// Pending returns the number of publishes still awaiting the broker.
func (m *MQTT) Pending() int {
	return len(m.inflight)
}
