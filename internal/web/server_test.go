package web

import (
	"context"
	"encoding/json"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap/zaptest"
	"gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"
	"gotest.tools/v3/poll"

	"github.com/relabs-tech/gps_matrix/internal/acquisition"
	"github.com/relabs-tech/gps_matrix/internal/display"
	"github.com/relabs-tech/gps_matrix/internal/gps"
	"github.com/relabs-tech/gps_matrix/internal/metrics"
)

func fixEvent() acquisition.Event {
	return acquisition.Event{
		Kind:     acquisition.EventFix,
		Time:     time.Date(2022, 11, 20, 15, 19, 48, 0, time.UTC),
		Fix:      gps.Fix{ID: "GPRMC", GroundSpeedKnots: "83.0", AltitudeFeet: "3000"},
		Motion:   gps.Flying.String(),
		Function: display.Track.String(),
	}
}

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	m.EmptyRead()

	matrix := display.NewMatrix()
	assert.NilError(t, matrix.ShowText(context.Background(), display.Text{Text: "GS 83"}))

	s := NewServer(zaptest.NewLogger(t), matrix, reg, 2)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return s, ts
}

func TestFixUnavailableBeforeFirstEvent(t *testing.T) {
	_, ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/fix")
	assert.NilError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, resp.StatusCode, http.StatusServiceUnavailable)
}

func TestFixReturnsLastEventWithLocalTime(t *testing.T) {
	s, ts := newTestServer(t)
	assert.NilError(t, s.Publish(context.Background(), fixEvent()))

	resp, err := http.Get(ts.URL + "/api/fix")
	assert.NilError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, resp.StatusCode, http.StatusOK)
	assert.Equal(t, resp.Header.Get("Content-Type"), "application/json")

	var st Status
	assert.NilError(t, json.NewDecoder(resp.Body).Decode(&st))
	assert.Equal(t, st.Kind, acquisition.EventFix)
	assert.Equal(t, st.Fix.AltitudeFeet, "3000")
	assert.Equal(t, st.LocalTime, "17:19:48")
	assert.Equal(t, st.UTCOffsetHours, 2.0)
}

func TestFramePNG(t *testing.T) {
	_, ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/frame.png")
	assert.NilError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, resp.Header.Get("Content-Type"), "image/png")

	img, err := png.Decode(resp.Body)
	assert.NilError(t, err)
	assert.Equal(t, img.Bounds().Dx(), display.MatrixWidth)
	assert.Equal(t, img.Bounds().Dy(), display.MatrixHeight)
}

func TestMetricsEndpoint(t *testing.T) {
	_, ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/metrics")
	assert.NilError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	assert.NilError(t, err)
	assert.Check(t, is.Contains(string(body), "gps_matrix_empty_reads_total 1"))
}

func TestOptionalRoutesDisabled(t *testing.T) {
	s := NewServer(zaptest.NewLogger(t), nil, nil, 0)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	for _, path := range []string{"/api/frame.png", "/metrics"} {
		resp, err := http.Get(ts.URL + path)
		assert.NilError(t, err)
		resp.Body.Close()
		assert.Equal(t, resp.StatusCode, http.StatusNotFound, path)
	}
}

func TestWebsocketReceivesEvents(t *testing.T) {
	s, ts := newTestServer(t)
	assert.NilError(t, s.Publish(context.Background(), fixEvent()))

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	assert.NilError(t, err)
	defer conn.Close()

	// The last event is replayed on connect.
	var first acquisition.Event
	assert.NilError(t, conn.ReadJSON(&first))
	assert.Equal(t, first.Kind, acquisition.EventFix)

	poll.WaitOn(t, func(poll.LogT) poll.Result {
		if s.Clients() == 1 {
			return poll.Success()
		}
		return poll.Continue("waiting for client registration")
	}, poll.WithTimeout(2*time.Second))

	ev := fixEvent()
	ev.Kind = acquisition.EventTimeout
	ev.EmptyReads = 1000
	assert.NilError(t, s.Publish(context.Background(), ev))

	var got acquisition.Event
	assert.NilError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	assert.NilError(t, conn.ReadJSON(&got))
	assert.Equal(t, got.Kind, acquisition.EventTimeout)
	assert.Equal(t, got.EmptyReads, 1000)

	conn.Close()
	poll.WaitOn(t, func(poll.LogT) poll.Result {
		if s.Clients() == 0 {
			return poll.Success()
		}
		return poll.Continue("waiting for client removal")
	}, poll.WithTimeout(2*time.Second))
}

func TestListenAndServeStopsOnCancel(t *testing.T) {
	s := NewServer(zaptest.NewLogger(t), nil, nil, 0)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.ListenAndServe(ctx, "127.0.0.1:0") }()

	cancel()
	select {
	case err := <-done:
		assert.NilError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
