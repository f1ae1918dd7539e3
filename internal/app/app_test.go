package app

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"gotest.tools/v3/assert"

	"github.com/relabs-tech/gps_matrix/internal/acquisition"
	"github.com/relabs-tech/gps_matrix/internal/config"
	"github.com/relabs-tech/gps_matrix/internal/display"
)

const replay = "$GPRMC,151948.00,A,5031.8614,N,00005.2524,E,83.0,315.1,201122,0.5,E*6A\r\n" +
	"$GPGGA,151948.00,5031.8614,N,00005.2524,E,1,05,0.0,914.4,M,0.0,M,0.0,0000*77\r\n"

func TestAcquisitionOptions(t *testing.T) {
	cfg := config.Default()
	cfg.ReadBackoffMS = 250
	cfg.ReclaimMemory = true
	cfg.DisplayFunction = "groundspeed"

	opts, err := acquisitionOptions(cfg)
	assert.NilError(t, err)
	assert.DeepEqual(t, opts, acquisition.Options{
		NoDataEvery:     100,
		LivenessTimeout: 1000,
		Backoff:         250 * time.Millisecond,
		MaxLoopCount:    14,
		Reclaim:         true,
		Function:        display.GroundSpeed,
	})

	cfg.DisplayFunction = "weather"
	_, err = acquisitionOptions(cfg)
	assert.ErrorContains(t, err, "weather")
}

func TestRunDisplayReplayUntilCancelled(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flight.nmea")
	assert.NilError(t, os.WriteFile(path, []byte(replay), 0o644))

	cfg := config.Default()
	cfg.ReadBackoffMS = 1
	cfg.NoDataSignalReads = 5
	cfg.LivenessTimeoutReads = 10

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	err := RunDisplay(ctx, cfg, zap.NewNop(), DisplayOptions{ReplayPath: path})
	assert.NilError(t, err)
}

func TestRunDisplayMissingReplayFile(t *testing.T) {
	err := RunDisplay(context.Background(), config.Default(), zaptest.NewLogger(t),
		DisplayOptions{ReplayPath: filepath.Join(t.TempDir(), "absent.nmea")})
	assert.ErrorContains(t, err, "open replay file")
}

func TestRunConsoleRequiresBroker(t *testing.T) {
	var out strings.Builder
	err := RunConsoleMQTT(context.Background(), config.Default(), zaptest.NewLogger(t), &out)
	assert.ErrorContains(t, err, "MQTT_BROKER")
}

func TestFormatEvent(t *testing.T) {
	tests := map[string]struct {
		payload string
		want    string
	}{
		"fix": {
			payload: `{"kind":"fix","time":"2022-11-20T15:19:48Z","motion":"flying","fix":{"lat":"5031.8614","lat_dir":"N","lon":"00005.2524","lon_dir":"E","speed_knots":"83.0","track_true":"315.1","variation":"0.5","variation_dir":"E","alt_ft":"3000"}}`,
			want:    "[FIX ] 15:19:48 lat=5031.8614N lon=00005.2524E gs=83.0kt trk=315.1 var=0.5E alt=3000ft flying",
		},
		"timeout": {
			payload: `{"kind":"timeout","time":"2022-11-20T15:19:48Z","empty_reads":1000}`,
			want:    "[TIMEOUT] 15:19:48 empty_reads=1000",
		},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			got, err := formatEvent([]byte(tc.payload))
			assert.NilError(t, err)
			assert.Equal(t, got, tc.want)
		})
	}

	_, err := formatEvent([]byte("{"))
	assert.Assert(t, err != nil)
}

func TestFormatDisplay(t *testing.T) {
	got, err := formatDisplay([]byte(`{"type":"text","text":{"text":"TRK MAG"}}`))
	assert.NilError(t, err)
	assert.Equal(t, got, `[DISP] "TRK MAG"`)

	got, err = formatDisplay([]byte(`{"type":"heading","heading":{"value_deg":314.6}}`))
	assert.NilError(t, err)
	assert.Equal(t, got, "[HDG ] 314.6  313 315 317")

	_, err = formatDisplay([]byte(`{"type":"text"}`))
	assert.ErrorContains(t, err, "without content")
}
