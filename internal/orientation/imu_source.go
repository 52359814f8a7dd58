// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package orientation

import (
	"fmt"

	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/devices/v3/mpu9250"
	"periph.io/x/host/v3"
)

type imuSource struct {
	imu *mpu9250.MPU9250
}

// NewIMUSource initializes an MPU9250 over SPI and returns a Source that
// reads roll/pitch from the accelerometer. Yaw stays 0 until the
// magnetometer is fused.
func NewIMUSource(spiDev, csPin string, calibrate bool) (Source, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("periph host init: %w", err)
	}

	cs := gpioreg.ByName(csPin)
	if cs == nil {
		return nil, fmt.Errorf("IMU CS pin %q not found", csPin)
	}

	tr, err := mpu9250.NewSpiTransport(spiDev, cs)
	if err != nil {
		return nil, fmt.Errorf("IMU SPI transport (%s): %w", spiDev, err)
	}

	imu, err := mpu9250.New(tr)
	if err != nil {
		return nil, fmt.Errorf("IMU new device: %w", err)
	}

	if err := imu.Init(); err != nil {
		return nil, fmt.Errorf("IMU init: %w", err)
	}

	// Self-test and calibration take a few seconds.
	if calibrate {
		if _, err := imu.SelfTest(); err != nil {
			return nil, fmt.Errorf("IMU self-test: %w", err)
		}
		if err := imu.Calibrate(); err != nil {
			return nil, fmt.Errorf("IMU calibrate: %w", err)
		}
	}

	return &imuSource{imu: imu}, nil
}

// Next reads the accelerometer and derives a tilt-only pose.
func (s *imuSource) Next() (Pose, error) {
	ax, err := s.imu.GetAccelerationX()
	if err != nil {
		return Pose{}, fmt.Errorf("IMU acc X: %w", err)
	}
	ay, err := s.imu.GetAccelerationY()
	if err != nil {
		return Pose{}, fmt.Errorf("IMU acc Y: %w", err)
	}
	az, err := s.imu.GetAccelerationZ()
	if err != nil {
		return Pose{}, fmt.Errorf("IMU acc Z: %w", err)
	}

	// Only the ratios matter, so raw counts are fine.
	return ComputePoseFromAccel(float64(ax), float64(ay), float64(az)), nil
}
