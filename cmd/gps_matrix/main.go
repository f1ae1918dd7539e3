// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/relabs-tech/gps_matrix/internal/app"
	"github.com/relabs-tech/gps_matrix/internal/config"
)

var (
	ConfigPath string
	Debug      bool
	ReplayPath string
)

func main() {
	cliApp := &cli.App{
		Name:  "gps_matrix",
		Usage: "shows GPS position, ground speed, track and altitude on an LED matrix",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Usage:       "configuration file (KEY=VALUE or .yaml)",
				Aliases:     []string{"c"},
				Destination: &ConfigPath,
				EnvVars:     []string{"GPS_MATRIX_CONFIG"},
			},
			&cli.BoolFlag{
				Name:        "debug",
				Usage:       "development logging at debug level",
				Destination: &Debug,
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "read the GPS receiver and drive the display",
				Action: func(c *cli.Context) error {
					return withRuntime(c, func(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
						return app.RunDisplay(ctx, cfg, logger, app.DisplayOptions{})
					})
				},
			},
			{
				Name:  "replay",
				Usage: "drive the display from a file of recorded NMEA sentences",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:        "file",
						Usage:       "NMEA text file",
						Aliases:     []string{"f"},
						Destination: &ReplayPath,
						Required:    true,
					},
				},
				Action: func(c *cli.Context) error {
					return withRuntime(c, func(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
						return app.RunDisplay(ctx, cfg, logger, app.DisplayOptions{ReplayPath: ReplayPath})
					})
				},
			},
			{
				Name:  "console",
				Usage: "print fixes and display requests published over MQTT",
				Action: func(c *cli.Context) error {
					return withRuntime(c, func(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
						return app.RunConsoleMQTT(ctx, cfg, logger, os.Stdout)
					})
				},
			},
		},
	}

	if err := cliApp.Run(os.Args); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

// withRuntime sets up logging, configuration and signal handling for a
// command.
func withRuntime(c *cli.Context, run func(context.Context, *config.Config, *zap.Logger) error) error {
	var (
		logger *zap.Logger
		err    error
	)
	if Debug {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return err
	}
	defer logger.Sync()

	if err := config.InitGlobal(ConfigPath); err != nil {
		logger.Error("failed to load config", zap.String("path", ConfigPath), zap.Error(err))
		return err
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("starting gps_matrix", zap.String("command", c.Command.Name), zap.String("config", ConfigPath))
	if err := run(ctx, config.Get(), logger); err != nil {
		logger.Error("command failed", zap.Error(err))
		return err
	}
	return nil
}
