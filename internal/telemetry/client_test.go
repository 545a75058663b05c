package telemetry

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/nerrad567/homelink/internal/device"
	"github.com/nerrad567/homelink/internal/infrastructure/config"
)

// fakeInflux accepts pings and captures line-protocol writes.
type fakeInflux struct {
	mu     sync.Mutex
	bodies []string
}

func (f *fakeInflux) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/ping":
			w.WriteHeader(http.StatusNoContent)
		case strings.HasSuffix(r.URL.Path, "/write"):
			data, _ := io.ReadAll(r.Body)
			f.mu.Lock()
			f.bodies = append(f.bodies, string(data))
			f.mu.Unlock()
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
}

func (f *fakeInflux) received() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return strings.Join(f.bodies, "\n")
}

func connectTestClient(t *testing.T) (*Client, *fakeInflux) {
	t.Helper()

	fake := &fakeInflux{}
	srv := httptest.NewServer(fake.handler())
	t.Cleanup(srv.Close)

	client, err := Connect(config.InfluxDBConfig{
		Enabled:       true,
		URL:           srv.URL,
		Token:         "test-token",
		Org:           "home",
		Bucket:        "devices",
		BatchSize:     1,
		FlushInterval: 1,
	})
	if err != nil {
		t.Fatalf("Connect() error: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })

	return client, fake
}

func TestConnectDisabled(t *testing.T) {
	_, err := Connect(config.InfluxDBConfig{Enabled: false})
	if !errors.Is(err, ErrDisabled) {
		t.Fatalf("Connect() error = %v, want ErrDisabled", err)
	}
}

func TestConnectUnreachable(t *testing.T) {
	_, err := Connect(config.InfluxDBConfig{
		Enabled: true,
		URL:     "http://127.0.0.1:1",
		Token:   "t",
	})
	if !errors.Is(err, ErrConnectionFailed) {
		t.Fatalf("Connect() error = %v, want ErrConnectionFailed", err)
	}
}

func TestWriteDeviceStateEncodesPolarity(t *testing.T) {
	client, fake := connectTestClient(t)

	// A closed door: raw status true, resolved reading inactive.
	client.WriteDeviceState(device.Record{
		ID: "door_1", Type: device.TypeDoor, Room: "Entrada", Status: true, Value: 0,
	})
	client.Flush()

	body := fake.received()
	if !strings.Contains(body, "device_state") {
		t.Fatalf("no device_state measurement in %q", body)
	}
	if !strings.Contains(body, "device_id=door_1") {
		t.Errorf("missing device tag in %q", body)
	}
	if !strings.Contains(body, "status=1") || !strings.Contains(body, "active=0") {
		t.Errorf("polarity fields wrong in %q", body)
	}
}

func TestHandleEventWritesSnapshot(t *testing.T) {
	client, fake := connectTestClient(t)

	client.HandleEvent(device.Event{
		Kind: device.EventLoaded,
		Devices: []device.Record{
			{ID: "light_1", Type: device.TypeLight, Room: "Salón", Status: true, Value: 3000},
			{ID: "tv_1", Type: device.TypeTV, Room: "Salón", Status: false},
		},
	})
	client.Flush()

	body := fake.received()
	for _, id := range []string{"light_1", "tv_1"} {
		if !strings.Contains(body, "device_id="+id) {
			t.Errorf("missing %s in %q", id, body)
		}
	}
}

func TestWritesDroppedAfterClose(t *testing.T) {
	client, fake := connectTestClient(t)

	if err := client.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}
	before := fake.received()

	client.WriteDeviceState(device.Record{ID: "light_1", Type: device.TypeLight})
	client.Flush()

	if got := fake.received(); got != before {
		t.Errorf("write accepted after close: %q", got)
	}

	if err := client.HealthCheck(context.Background()); !errors.Is(err, ErrNotConnected) {
		t.Errorf("HealthCheck() = %v, want ErrNotConnected", err)
	}
}
