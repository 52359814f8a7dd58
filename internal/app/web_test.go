// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/edaniels/golog"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"go.viam.com/test"

	"github.com/relabs-tech/dronetracker/internal/geodesy"
	"github.com/relabs-tech/dronetracker/internal/orientation"
	"github.com/relabs-tech/dronetracker/internal/overlay"
	"github.com/relabs-tech/dronetracker/internal/projection"
	"github.com/relabs-tech/dronetracker/internal/tracker"
)

// frameRecorder collects published frames; renders run on handler goroutines.
type frameRecorder struct {
	mu     sync.Mutex
	frames []tracker.Frame
}

func (r *frameRecorder) record(f tracker.Frame) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames = append(r.frames, f)
}

func (r *frameRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.frames)
}

func newTestServer(t *testing.T) (*overlayServer, *tracker.Tracker, *httptest.Server, *frameRecorder) {
	t.Helper()
	logger := golog.NewTestLogger(t)
	tr, err := tracker.New(tracker.Config{}, []overlay.Target{
		{ID: "north", Name: "North", Location: geodesy.GeoPoint{Latitude: 0.001}},
	}, logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, tr.SetViewport(projection.Viewport{Width: 1080, Height: 1920}), test.ShouldBeNil)

	published := &frameRecorder{}
	srv := newOverlayServer(tr, logger, published.record)
	ts := httptest.NewServer(srv.handler(""))
	t.Cleanup(ts.Close)
	return srv, tr, ts, published
}

func dial(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/overlay"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	test.That(t, err, test.ShouldBeNil)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) tracker.Frame {
	t.Helper()
	test.That(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)), test.ShouldBeNil)
	var f tracker.Frame
	test.That(t, conn.ReadJSON(&f), test.ShouldBeNil)
	return f
}

func TestOverlayEndpointBeforeFirstFrame(t *testing.T) {
	_, _, ts, _ := newTestServer(t)

	for _, path := range []string{"/api/overlay", "/api/transform"} {
		resp, err := http.Get(ts.URL + path)
		test.That(t, err, test.ShouldBeNil)
		resp.Body.Close()
		test.That(t, resp.StatusCode, test.ShouldEqual, http.StatusServiceUnavailable)
	}
}

func TestOverlayEndpoint(t *testing.T) {
	srv, tr, ts, published := newTestServer(t)
	test.That(t, tr.UpdateSample(orientation.RotationSample{Values: []float64{0, 0, 0, 1}}), test.ShouldBeNil)
	test.That(t, tr.UpdateLocation(geodesy.NewGeoPoint(0, 0, 0)), test.ShouldBeNil)
	srv.render()
	test.That(t, published.count(), test.ShouldEqual, 1)

	resp, err := http.Get(ts.URL + "/api/overlay")
	test.That(t, err, test.ShouldBeNil)
	defer resp.Body.Close()
	test.That(t, resp.StatusCode, test.ShouldEqual, http.StatusOK)
	test.That(t, resp.Header.Get("Content-Type"), test.ShouldEqual, "application/json")

	var f tracker.Frame
	test.That(t, json.NewDecoder(resp.Body).Decode(&f), test.ShouldBeNil)
	test.That(t, f.LocationAvailable, test.ShouldBeTrue)
	test.That(t, f.Points, test.ShouldHaveLength, 1)
	test.That(t, f.Points[0].Name, test.ShouldEqual, "North")
	test.That(t, f.Points[0].X, test.ShouldAlmostEqual, 540, 1e-6)

	resp2, err := http.Get(ts.URL + "/api/transform")
	test.That(t, err, test.ShouldBeNil)
	defer resp2.Body.Close()
	var m struct {
		Matrix [16]float64 `json:"matrix"`
	}
	test.That(t, json.NewDecoder(resp2.Body).Decode(&m), test.ShouldBeNil)
	test.That(t, m.Matrix, test.ShouldResemble, f.Transform)
}

func TestWebsocketPushesFrames(t *testing.T) {
	srv, tr, ts, _ := newTestServer(t)
	test.That(t, tr.UpdateSample(orientation.RotationSample{Values: []float64{0, 0, 0, 1}}), test.ShouldBeNil)
	srv.render()

	conn := dial(t, ts)
	// The latest frame is sent on connect.
	f := readFrame(t, conn)
	test.That(t, f.Width, test.ShouldEqual, 1080)
	test.That(t, f.LocationAvailable, test.ShouldBeFalse)

	// A layout callback rebuilds the projection and pushes a new frame.
	rot := 90
	test.That(t, conn.WriteJSON(clientMessage{Action: "viewport", Width: 1920, Height: 1080, Rotation: &rot}), test.ShouldBeNil)
	f = readFrame(t, conn)
	test.That(t, f.Width, test.ShouldEqual, 1920)
	test.That(t, f.Height, test.ShouldEqual, 1080)
	test.That(t, f.ScreenRotation, test.ShouldEqual, 90)

	rot = 180
	test.That(t, conn.WriteJSON(clientMessage{Action: "rotation", Rotation: &rot}), test.ShouldBeNil)
	f = readFrame(t, conn)
	test.That(t, f.ScreenRotation, test.ShouldEqual, 180)
	test.That(t, f.Width, test.ShouldEqual, 1920)
}

func TestWebsocketRejectsBadMessages(t *testing.T) {
	srv, tr, ts, _ := newTestServer(t)
	test.That(t, tr.UpdateSample(orientation.RotationSample{Values: []float64{0, 0, 0, 1}}), test.ShouldBeNil)
	srv.render()

	conn := dial(t, ts)
	readFrame(t, conn)

	for _, msg := range []clientMessage{
		{Action: "viewport", Width: 0, Height: 1080},
		{Action: "rotation"},
		{Action: "zoom"},
	} {
		test.That(t, conn.WriteJSON(msg), test.ShouldBeNil)
		test.That(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)), test.ShouldBeNil)
		var e serverError
		test.That(t, conn.ReadJSON(&e), test.ShouldBeNil)
		test.That(t, e.Type, test.ShouldEqual, "error")
		test.That(t, e.Message, test.ShouldNotBeEmpty)
	}

	// The degenerate layout left the previous projection in place.
	f, err := tr.Latest()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, f.Width, test.ShouldEqual, 1080)
	test.That(t, f.Height, test.ShouldEqual, 1920)
}

func TestWebsocketBadViewportKeepsRotation(t *testing.T) {
	srv, tr, _, _ := newTestServer(t)
	test.That(t, tr.UpdateSample(orientation.RotationSample{Values: []float64{0, 0, 0, 1}}), test.ShouldBeNil)

	rot := 90
	err := srv.apply(clientMessage{Action: "viewport", Width: 0, Height: 1920, Rotation: &rot})
	test.That(t, errors.Is(err, projection.ErrDegenerateViewport), test.ShouldBeTrue)
	test.That(t, tr.ScreenRotation(), test.ShouldEqual, orientation.Rotation0)

	bad := 45
	err = srv.apply(clientMessage{Action: "viewport", Width: 1920, Height: 1080, Rotation: &bad})
	test.That(t, err, test.ShouldNotBeNil)

	srv.render()
	f, err := tr.Latest()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, f.ScreenRotation, test.ShouldEqual, 0)
	test.That(t, f.Width, test.ShouldEqual, 1080)
	test.That(t, f.Height, test.ShouldEqual, 1920)

	// Without a rotation the current one is kept.
	test.That(t, srv.apply(clientMessage{Action: "rotation", Rotation: &rot}), test.ShouldBeNil)
	test.That(t, srv.apply(clientMessage{Action: "viewport", Width: 1920, Height: 1080}), test.ShouldBeNil)
	test.That(t, tr.ScreenRotation(), test.ShouldEqual, orientation.Rotation90)
}

func TestTargetsEndpoint(t *testing.T) {
	_, tr, ts, _ := newTestServer(t)
	test.That(t, tr.UpdateDrone(overlay.Target{ID: "d1", Name: "Scout", Location: geodesy.GeoPoint{Latitude: 0.002}}), test.ShouldBeNil)

	resp, err := http.Get(ts.URL + "/api/targets")
	test.That(t, err, test.ShouldBeNil)
	defer resp.Body.Close()
	var targets []overlay.Target
	test.That(t, json.NewDecoder(resp.Body).Decode(&targets), test.ShouldBeNil)
	test.That(t, targets, test.ShouldHaveLength, 2)
	test.That(t, targets[0].ID, test.ShouldEqual, "north")
	test.That(t, targets[1].ID, test.ShouldEqual, "d1")

	post, err := http.Post(ts.URL+"/api/targets", "application/json", strings.NewReader("{}"))
	test.That(t, err, test.ShouldBeNil)
	post.Body.Close()
	test.That(t, post.StatusCode, test.ShouldEqual, http.StatusMethodNotAllowed)
}
