// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"bufio"
	"context"
	"io"

	"github.com/edaniels/golog"
	serial "github.com/jacobsa/go-serial/serial"
	"github.com/pkg/errors"

	"github.com/relabs-tech/dronetracker/internal/config"
	"github.com/relabs-tech/dronetracker/internal/gps"
)

// RunGPSProducer opens the GPS serial port, parses NMEA sentences, and
// publishes every RMC-completed fix as JSON to the location topic.
func RunGPSProducer(ctx context.Context, logger golog.Logger) error {
	cfg := config.Get()

	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDGPS, logger)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	serialOpts := serial.OpenOptions{
		PortName:              cfg.GPSSerialPort,
		BaudRate:              uint(cfg.GPSBaudRate),
		DataBits:              8,
		StopBits:              1,
		MinimumReadSize:       1,
		ParityMode:            serial.PARITY_NONE,
		InterCharacterTimeout: 0,
	}

	port, err := serial.Open(serialOpts)
	if err != nil {
		return errors.Wrapf(err, "open GPS serial port %s", cfg.GPSSerialPort)
	}
	logger.Infof("gps: serial port opened on %s at %d baud", serialOpts.PortName, serialOpts.BaudRate)

	// Closing the port unblocks the reader on shutdown.
	go func() {
		<-ctx.Done()
		port.Close()
	}()

	return streamFixes(ctx, port, logger, func(f gps.Fix) error {
		return publishJSON(client, cfg.TopicLocation, f)
	})
}

// streamFixes reads NMEA lines from r until it fails or ctx is done and hands
// every completed fix to publish.
func streamFixes(ctx context.Context, r io.Reader, logger golog.Logger, publish func(gps.Fix) error) error {
	reader := bufio.NewReader(r)
	var acc gps.Accumulator

	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			if ctx.Err() != nil {
				logger.Info("gps: shutting down")
				return nil
			}
			if errors.Is(err, io.EOF) && line == "" {
				return nil
			}
			if !errors.Is(err, io.EOF) {
				return errors.Wrap(err, "read GPS serial")
			}
		}

		fix, ok, perr := acc.Add(line)
		if perr != nil {
			// Noisy receivers emit partial sentences.
			logger.Debugw("gps: skipping line", "error", perr)
		} else if ok {
			if err := publish(fix); err != nil {
				logger.Warnw("gps: publish error", "error", err)
			} else {
				logger.Debugw("gps: published fix", "lat", fix.Latitude, "lon", fix.Longitude, "validity", fix.Validity)
			}
		}

		if err != nil {
			// io.EOF after a final unterminated line.
			return nil
		}
	}
}
