// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package bus

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/relabs-tech/gps_matrix/internal/acquisition"
)

// NATS publishes fix events on subject.<kind>, e.g. gps.fix.timeout.
type NATS struct {
	conn    *nats.Conn
	subject string
	log     *zap.Logger
}

func NewNATS(conn *nats.Conn, subject string, log *zap.Logger) *NATS {
	return &NATS{conn: conn, subject: subject, log: log}
}

// DialNATS connects to url. Closing the returned connection is up to the
// caller.
func DialNATS(url, subject string, log *zap.Logger) (*NATS, *nats.Conn, error) {
	conn, err := nats.Connect(url, nats.Name("gps_matrix"))
	if err != nil {
		return nil, nil, fmt.Errorf("nats connect %s: %w", url, err)
	}
	log.Info("connected to NATS", zap.String("url", url), zap.String("subject", subject))
	return NewNATS(conn, subject, log), conn, nil
}

func (n *NATS) Publish(ctx context.Context, ev acquisition.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	subject := n.subject + "." + string(ev.Kind)
	if err := n.conn.Publish(subject, payload); err != nil {
		n.log.Error("publish event failed", zap.String("subject", subject), zap.Error(err))
		return err
	}
	return nil
}
