package config

import (
	"os"
	"path/filepath"
	"testing"

	"gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	assert.NilError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	assert.NilError(t, err)
	assert.DeepEqual(t, cfg, Default())
	assert.Equal(t, cfg.GPSBaudRate, 4800)
	assert.Equal(t, cfg.LivenessTimeoutReads, 1000)
	assert.Equal(t, cfg.DisplayFunction, "track")
}

func TestLoadKeyValue(t *testing.T) {
	path := writeFile(t, "gps_matrix.cfg", `
# receiver
GPS_SERIAL_PORT=/dev/ttyUSB0
GPS_BAUD_RATE = 9600
VERIFY_CHECKSUM=true
UTC_OFFSET_HOURS=5.5
DISPLAY_FUNCTION=Altitude
MQTT_BROKER=tcp://localhost:1883
WEB_SERVER_PORT=8080
BUTTON_STOP_PIN=GPIO26
`)
	cfg, err := Load(path)
	assert.NilError(t, err)
	assert.Equal(t, cfg.GPSSerialPort, "/dev/ttyUSB0")
	assert.Equal(t, cfg.GPSBaudRate, 9600)
	assert.Assert(t, cfg.VerifyChecksum)
	assert.Equal(t, cfg.UTCOffsetHours, 5.5)
	assert.Equal(t, cfg.DisplayFunction, "altitude")
	assert.Equal(t, cfg.MQTTBroker, "tcp://localhost:1883")
	assert.Equal(t, cfg.MQTTClientID, "gps-matrix")
	assert.Equal(t, cfg.WebServerPort, 8080)
	assert.Equal(t, cfg.ButtonStopPin, "GPIO26")
	assert.Equal(t, cfg.NoDataSignalReads, 100)
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "gps_matrix.yaml", `
gps_serial_port: /dev/ttyAMA0
gps_baud_rate: 38400
read_backoff_ms: 50
reclaim_memory: true
nats_url: nats://127.0.0.1:4222
`)
	cfg, err := Load(path)
	assert.NilError(t, err)
	assert.Equal(t, cfg.GPSSerialPort, "/dev/ttyAMA0")
	assert.Equal(t, cfg.GPSBaudRate, 38400)
	assert.Equal(t, cfg.ReadBackoffMS, 50)
	assert.Assert(t, cfg.ReclaimMemory)
	assert.Equal(t, cfg.NATSURL, "nats://127.0.0.1:4222")
	assert.Equal(t, cfg.NATSSubject, "gps")
}

func TestDisplayFunctionIsCaseInsensitive(t *testing.T) {
	yamlPath := writeFile(t, "gps_matrix.yaml", "display_function: GroundSpeed\n")
	cfg, err := Load(yamlPath)
	assert.NilError(t, err)
	assert.Equal(t, cfg.DisplayFunction, "groundspeed")

	t.Setenv("DISPLAY_FUNCTION", "Track")
	cfg, err = Load("")
	assert.NilError(t, err)
	assert.Equal(t, cfg.DisplayFunction, "track")
}

func TestEnvironmentOverridesFile(t *testing.T) {
	path := writeFile(t, "gps_matrix.cfg", "GPS_BAUD_RATE=9600\nMAX_LOOP_COUNT=20\n")
	t.Setenv("GPS_BAUD_RATE", "19200")
	t.Setenv("DISPLAY_FUNCTION", "position")

	cfg, err := Load(path)
	assert.NilError(t, err)
	assert.Equal(t, cfg.GPSBaudRate, 19200)
	assert.Equal(t, cfg.MaxLoopCount, 20)
	assert.Equal(t, cfg.DisplayFunction, "position")
}

func TestLoadErrors(t *testing.T) {
	tests := map[string]struct {
		name    string
		content string
		want    string
	}{
		"unknown key":      {name: "a.cfg", content: "IMU_LEFT_SPI_DEVICE=/dev/spidev0.0", want: `unknown config key: "IMU_LEFT_SPI_DEVICE"`},
		"missing equals":   {name: "a.cfg", content: "GPS_BAUD_RATE", want: "invalid config line 1"},
		"bad int":          {name: "a.cfg", content: "\nGPS_BAUD_RATE=fast", want: "config line 2: invalid GPS_BAUD_RATE"},
		"bad bool":         {name: "a.cfg", content: "VERIFY_CHECKSUM=maybe", want: "invalid VERIFY_CHECKSUM"},
		"baud":             {name: "a.cfg", content: "GPS_BAUD_RATE=1200", want: "GPS_BAUD_RATE must be one of"},
		"thresholds":       {name: "a.cfg", content: "NODATA_SIGNAL_READS=2000", want: "must not exceed LIVENESS_TIMEOUT_READS"},
		"utc offset":       {name: "a.cfg", content: "UTC_OFFSET_HOURS=15", want: "UTC_OFFSET_HOURS must be -12..14"},
		"function":         {name: "a.cfg", content: "DISPLAY_FUNCTION=weather", want: "DISPLAY_FUNCTION must be one of"},
		"line buffer":      {name: "a.cfg", content: "GPS_LINE_BUFFER=16", want: "GPS_LINE_BUFFER must be at least 82"},
		"yaml unknown key": {name: "a.yml", content: "imu_accel_range: 2\n", want: "invalid yaml config"},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeFile(t, tc.name, tc.content))
			assert.Check(t, is.ErrorContains(err, tc.want))
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.cfg"))
	assert.ErrorContains(t, err, "failed to open config file")
}

func TestInitGlobal(t *testing.T) {
	assert.NilError(t, InitGlobal(""))
	first := Get()
	assert.Assert(t, first != nil)

	// Later calls keep the first configuration.
	assert.NilError(t, InitGlobal("does-not-matter.cfg"))
	assert.Equal(t, Get(), first)
}
