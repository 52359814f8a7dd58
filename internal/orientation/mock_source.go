// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package orientation

import (
	"math"
	"time"
)

type mockSource struct {
	start time.Time
	base  Pose
	now   func() time.Time
}

// NewMockSource creates a mock orientation source that sways smoothly around
// base and slowly pans in yaw.
func NewMockSource(base Pose) Source {
	return &mockSource{start: time.Now(), base: base, now: time.Now}
}

func (m *mockSource) Next() (Pose, error) {
	elapsed := m.now().Sub(m.start).Seconds()

	return Pose{
		Roll:  m.base.Roll + 5*math.Sin(elapsed),
		Pitch: m.base.Pitch + 3*math.Cos(elapsed*0.7),
		Yaw:   math.Mod(m.base.Yaw+elapsed*10, 360),
	}, nil
}
