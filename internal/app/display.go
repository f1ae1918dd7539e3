// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/relabs-tech/gps_matrix/internal/acquisition"
	"github.com/relabs-tech/gps_matrix/internal/bus"
	"github.com/relabs-tech/gps_matrix/internal/config"
	"github.com/relabs-tech/gps_matrix/internal/display"
	"github.com/relabs-tech/gps_matrix/internal/gps"
	"github.com/relabs-tech/gps_matrix/internal/input"
	"github.com/relabs-tech/gps_matrix/internal/metrics"
	"github.com/relabs-tech/gps_matrix/internal/web"
)

// scrollInterval is the speed of scrolling texts, one pixel per tick.
const scrollInterval = 60 * time.Millisecond

// DisplayOptions selects where the NMEA stream comes from.
type DisplayOptions struct {
	// ReplayPath reads NMEA text from a file instead of the serial port.
	ReplayPath string
}

// RunDisplay wires the receiver, the panel and all publishers, then runs the
// acquisition loop until ctx is done or the user presses stop.
func RunDisplay(ctx context.Context, cfg *config.Config, log *zap.Logger, opts DisplayOptions) error {
	loopOpts, err := acquisitionOptions(cfg)
	if err != nil {
		return err
	}

	src, closeSrc, err := openSource(cfg, opts, log)
	if err != nil {
		return err
	}
	defer closeSrc.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	matrix := display.NewMatrix()
	sinks := display.Multi{matrix, display.LogSink{Log: log.Named("display")}}
	var pubs []acquisition.Publisher

	if cfg.MQTTBroker != "" {
		mq, disconnect, err := bus.DialMQTT(bus.MQTTOptions{
			Broker:       cfg.MQTTBroker,
			ClientID:     cfg.MQTTClientID,
			FixTopic:     cfg.TopicFix,
			DisplayTopic: cfg.TopicDisplay,
		}, log.Named("mqtt"))
		if err != nil {
			return err
		}
		defer disconnect()
		sinks = append(sinks, mq)
		pubs = append(pubs, mq)
	}

	if cfg.NATSURL != "" {
		nc, conn, err := bus.DialNATS(cfg.NATSURL, cfg.NATSSubject, log.Named("nats"))
		if err != nil {
			return err
		}
		defer conn.Close()
		pubs = append(pubs, nc)
	}

	g, ctx := errgroup.WithContext(ctx)

	if cfg.WebServerPort > 0 {
		srv := web.NewServer(log.Named("web"), matrix, reg, cfg.UTCOffsetHours)
		pubs = append(pubs, srv)
		g.Go(func() error {
			return srv.ListenAndServe(ctx, ":"+strconv.Itoa(cfg.WebServerPort))
		})
	}

	queue := input.NewQueue()
	buttons := input.Buttons{Next: cfg.ButtonNextPin, Prev: cfg.ButtonPrevPin, Stop: cfg.ButtonStopPin}
	if !buttons.Empty() {
		if err := input.WatchButtons(ctx, buttons, queue, log.Named("input")); err != nil {
			log.Warn("buttons unavailable, continuing without them", zap.Error(err))
		}
	}

	g.Go(func() error {
		scroll(ctx, matrix)
		return nil
	})

	loop := acquisition.New(src, sinks, log.Named("acquisition"), loopOpts).
		WithInputs(queue).
		WithPublishers(pubs...).
		WithMetrics(m)

	g.Go(func() error {
		err := loop.Run(ctx)
		if err == nil {
			// Cancelled; nothing to report.
			return context.Canceled
		}
		return err
	})

	err = g.Wait()
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, acquisition.ErrStopped):
		log.Info("display stopped", zap.Int("fixes", loop.State().Fixes))
		return nil
	default:
		return err
	}
}

func acquisitionOptions(cfg *config.Config) (acquisition.Options, error) {
	fn, err := display.ParseFunction(cfg.DisplayFunction)
	if err != nil {
		return acquisition.Options{}, err
	}
	return acquisition.Options{
		NoDataEvery:     cfg.NoDataSignalReads,
		LivenessTimeout: cfg.LivenessTimeoutReads,
		Backoff:         time.Duration(cfg.ReadBackoffMS) * time.Millisecond,
		MaxLoopCount:    cfg.MaxLoopCount,
		Reclaim:         cfg.ReclaimMemory,
		VerifyChecksum:  cfg.VerifyChecksum,
		Function:        fn,
	}, nil
}

// openSource returns the replay file when one is given, otherwise the serial
// port. A missing receiver is not fatal: the loop reports "no data" until
// the process is restarted with the device present.
func openSource(cfg *config.Config, opts DisplayOptions, log *zap.Logger) (gps.LineSource, io.Closer, error) {
	if opts.ReplayPath != "" {
		f, err := os.Open(opts.ReplayPath)
		if err != nil {
			return nil, nil, fmt.Errorf("open replay file: %w", err)
		}
		log.Info("replaying NMEA file", zap.String("path", opts.ReplayPath))
		return gps.NewReaderSource(f, cfg.GPSLineBuffer), f, nil
	}

	src, closer, err := gps.OpenSerial(gps.SerialOptions{
		PortName:    cfg.GPSSerialPort,
		BaudRate:    cfg.GPSBaudRate,
		PollTimeout: time.Duration(cfg.GPSPollTimeoutMS) * time.Millisecond,
		LineBuffer:  cfg.GPSLineBuffer,
	})
	if err != nil {
		log.Warn("GPS serial port unavailable", zap.String("port", cfg.GPSSerialPort), zap.Error(err))
		return src, closer, nil
	}
	log.Info("GPS serial port opened", zap.String("port", cfg.GPSSerialPort), zap.Int("baud", cfg.GPSBaudRate))
	return src, closer, nil
}

func scroll(ctx context.Context, m *display.Matrix) {
	t := time.NewTicker(scrollInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			m.Advance()
		}
	}
}
