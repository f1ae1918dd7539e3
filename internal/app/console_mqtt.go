// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/relabs-tech/gps_matrix/internal/acquisition"
	"github.com/relabs-tech/gps_matrix/internal/bus"
	"github.com/relabs-tech/gps_matrix/internal/config"
	"github.com/relabs-tech/gps_matrix/internal/display"
)

// RunConsoleMQTT subscribes to the fix and display topics of a running
// display and prints every message to out until ctx is done.
func RunConsoleMQTT(ctx context.Context, cfg *config.Config, log *zap.Logger, out io.Writer) error {
	if cfg.MQTTBroker == "" {
		return fmt.Errorf("MQTT_BROKER is required for the console")
	}
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientID + "-console")

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	defer client.Disconnect(250)
	log.Info("console: connected to MQTT broker", zap.String("broker", cfg.MQTTBroker))

	subs := map[string]func([]byte) (string, error){
		cfg.TopicFix:     formatEvent,
		cfg.TopicDisplay: formatDisplay,
	}
	for topic, format := range subs {
		if topic == "" {
			continue
		}
		format := format
		token := client.Subscribe(topic, 0, func(_ mqtt.Client, msg mqtt.Message) {
			line, err := format(msg.Payload())
			if err != nil {
				log.Warn("console: unmarshal error", zap.String("topic", msg.Topic()), zap.Error(err))
				return
			}
			fmt.Fprintln(out, line)
		})
		token.Wait()
		if token.Error() != nil {
			return token.Error()
		}
		log.Info("console: subscribed", zap.String("topic", topic))
	}

	<-ctx.Done()
	log.Info("console: shutting down")
	return nil
}

func formatEvent(payload []byte) (string, error) {
	var ev acquisition.Event
	if err := json.Unmarshal(payload, &ev); err != nil {
		return "", err
	}
	f := ev.Fix
	switch ev.Kind {
	case acquisition.EventFix:
		return fmt.Sprintf(
			"[FIX ] %s lat=%s%s lon=%s%s gs=%skt trk=%s var=%s%s alt=%sft %s",
			ev.Time.Format("15:04:05"), f.Latitude, f.LatitudeDir, f.Longitude, f.LongitudeDir,
			f.GroundSpeedKnots, f.TrackTrueDeg, f.VariationDeg, f.VariationDir, f.AltitudeFeet, ev.Motion,
		), nil
	default:
		return fmt.Sprintf("[%-4s] %s empty_reads=%d", strings.ToUpper(string(ev.Kind)), ev.Time.Format("15:04:05"), ev.EmptyReads), nil
	}
}

func formatDisplay(payload []byte) (string, error) {
	var msg bus.DisplayMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return "", err
	}
	switch {
	case msg.Text != nil:
		return fmt.Sprintf("[DISP] %q", msg.Text.Text), nil
	case msg.Heading != nil:
		labels := display.RibbonLabels(msg.Heading.ValueDeg)
		return fmt.Sprintf("[HDG ] %.1f  %s", msg.Heading.ValueDeg, strings.Join(labels[:], " ")), nil
	default:
		return "", fmt.Errorf("display message without content")
	}
}
