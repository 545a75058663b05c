package session

import (
	"bufio"
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/homelink/internal/device"
	"github.com/nerrad567/homelink/internal/protocol"
)

// fakeServer is a minimal in-process stand-in for the smart-home server.
// It accepts one connection at a time and exposes received frames.
type fakeServer struct {
	t      *testing.T
	ln     net.Listener
	frames chan protocol.Frame

	mu   sync.Mutex
	conn net.Conn
}

func newFakeServer(t *testing.T) *fakeServer {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	s := &fakeServer{
		t:      t,
		ln:     ln,
		frames: make(chan protocol.Frame, 64),
	}
	go s.acceptLoop()
	t.Cleanup(s.close)
	return s
}

func (s *fakeServer) acceptLoop() {
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return
		}
		s.mu.Lock()
		s.conn = conn
		s.mu.Unlock()

		go s.readLoop(conn)
	}
}

func (s *fakeServer) readLoop(conn net.Conn) {
	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		if frame, ok := protocol.DecodeLine(scanner.Bytes()); ok {
			s.frames <- frame
		}
	}
}

// send writes one frame to the connected client.
func (s *fakeServer) send(frame protocol.Frame) {
	s.t.Helper()
	data, err := protocol.Encode(frame)
	if err != nil {
		s.t.Fatalf("encode: %v", err)
	}
	s.sendRaw(data)
}

// sendRaw writes raw bytes to the connected client.
func (s *fakeServer) sendRaw(data []byte) {
	s.t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		s.mu.Lock()
		conn := s.conn
		s.mu.Unlock()
		if conn != nil {
			if _, err := conn.Write(data); err != nil {
				s.t.Fatalf("server write: %v", err)
			}
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	s.t.Fatal("no client connected")
}

// expectFrame waits for the next frame with the given action.
func (s *fakeServer) expectFrame(action string) protocol.Frame {
	s.t.Helper()
	for {
		select {
		case frame := <-s.frames:
			if frame.Action == action {
				return frame
			}
			// Skip interleaved frames (e.g. DISCONNECT notices).
		case <-time.After(2 * time.Second):
			s.t.Fatalf("timed out waiting for %s frame", action)
			return protocol.Frame{}
		}
	}
}

func (s *fakeServer) dropClient() {
	s.mu.Lock()
	conn := s.conn
	s.conn = nil
	s.mu.Unlock()
	if conn != nil {
		conn.Close()
	}
}

func (s *fakeServer) close() {
	s.ln.Close()
	s.dropClient()
}

func (s *fakeServer) port() int {
	return s.ln.Addr().(*net.TCPAddr).Port
}

// newTestClient wires a client to the fake server.
func newTestClient(t *testing.T, srv *fakeServer) (*Client, *device.Store) {
	t.Helper()

	store := device.NewStore()
	t.Cleanup(store.Close)

	client := New(Config{
		Host:              "127.0.0.1",
		Port:              srv.port(),
		Username:          "admin",
		Password:          "secret",
		ConnectTimeout:    2 * time.Second,
		DisconnectTimeout: 2 * time.Second,
	}, store)
	t.Cleanup(func() { _ = client.Disconnect() })

	return client, store
}

// waitFor polls until cond holds or the deadline passes.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestConnectLoginDeviceListFlow(t *testing.T) {
	srv := newFakeServer(t)
	client, store := newTestClient(t, srv)

	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error: %v", err)
	}
	if client.State() != StateConnected {
		t.Fatalf("State() = %s, want connected", client.State())
	}

	// CONNECTED must trigger credential submission.
	srv.send(protocol.Frame{Action: protocol.ActionConnected})
	login := srv.expectFrame(protocol.ActionLogin)
	if login.Username != "admin" || login.Password != "secret" {
		t.Errorf("login frame = %+v, want configured credentials", login)
	}

	// LOGIN_SUCCESS must set the flag and request devices.
	srv.send(protocol.Frame{Action: protocol.ActionLoginSuccess, Username: "admin"})
	srv.expectFrame(protocol.ActionGetDevices)
	waitFor(t, "authenticated", client.Authenticated)

	// DEVICES_LIST replaces the cache wholesale.
	devices, err := protocol.EncodeDevices([]protocol.WireDevice{
		{ID: "light_1", Name: "Lámpara", Type: "light", Room: "Salón", Status: "true", Value: "3000"},
		{ID: "door_1", Name: "Puerta", Type: "door", Room: "Entrada", Status: "false", Value: "0"},
		{ID: "spk_1", Name: "Altavoz", Type: "speaker", Room: "Salón", Status: "true", Value: "1", Color: "CMD:PLAY"},
	})
	if err != nil {
		t.Fatalf("EncodeDevices: %v", err)
	}
	srv.send(protocol.Frame{Action: protocol.ActionDevicesList, Devices: devices})

	waitFor(t, "3 cached devices", func() bool { return store.Count() == 3 })
	rooms := store.Rooms()
	if len(rooms) != 2 || rooms[0] != "Entrada" || rooms[1] != "Salón" {
		t.Errorf("Rooms() = %v, want [Entrada Salón]", rooms)
	}
}

func TestConnectIsNoOpWhenConnected(t *testing.T) {
	srv := newFakeServer(t)
	client, _ := newTestClient(t, srv)

	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error: %v", err)
	}
	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("second Connect() error: %v", err)
	}
	if client.State() != StateConnected {
		t.Errorf("State() = %s, want connected", client.State())
	}
}

func TestConnectRefused(t *testing.T) {
	// Grab a port and close it so nothing is listening.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()

	store := device.NewStore()
	t.Cleanup(store.Close)
	client := New(Config{Host: "127.0.0.1", Port: port, Username: "u", ConnectTimeout: time.Second}, store)

	err = client.Connect(context.Background())
	if !errors.Is(err, ErrConnectFailed) {
		t.Fatalf("Connect() error = %v, want ErrConnectFailed", err)
	}
	if client.State() != StateDisconnected {
		t.Errorf("State() = %s, want disconnected", client.State())
	}
}

func TestSendWhileDisconnectedIsSilent(t *testing.T) {
	store := device.NewStore()
	t.Cleanup(store.Close)
	client := New(Config{Host: "127.0.0.1", Port: 1, Username: "u"}, store)

	// Must log and drop, never panic or error.
	client.Send(protocol.Frame{Action: protocol.ActionGetDevices})
	client.TurnOn("light_1")
}

func TestMalformedFramesLeaveCacheUnchanged(t *testing.T) {
	srv := newFakeServer(t)
	client, store := newTestClient(t, srv)

	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error: %v", err)
	}

	// Garbage, truncated JSON, and a bad embedded payload.
	srv.sendRaw([]byte("this is not json\n"))
	srv.sendRaw([]byte(`{"action":"DEVICES_LIST","devices":"[{bad`))
	srv.sendRaw([]byte("\n"))
	srv.sendRaw([]byte(`{"action":"DEVICE_CHANGED","device":"{not json}"}` + "\n"))

	// A well-formed update afterwards proves the session survived.
	raw, err := protocol.EncodeDevice(protocol.WireDevice{ID: "ok_1", Type: "light", Status: "true", Value: "1"})
	if err != nil {
		t.Fatalf("EncodeDevice: %v", err)
	}
	srv.send(protocol.Frame{Action: protocol.ActionDeviceChanged, Device: raw})

	waitFor(t, "surviving update", func() bool { return store.Count() == 1 })
	if _, ok := store.Get("ok_1"); !ok {
		t.Error("well-formed update missing after malformed frames")
	}
}

func TestUnknownActionIgnored(t *testing.T) {
	srv := newFakeServer(t)
	client, store := newTestClient(t, srv)

	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error: %v", err)
	}

	srv.sendRaw([]byte(`{"action":"SOME_FUTURE_THING","payload":"x"}` + "\n"))

	// Session must remain connected and cache untouched.
	time.Sleep(50 * time.Millisecond)
	if client.State() != StateConnected {
		t.Errorf("State() = %s, want connected", client.State())
	}
	if store.Count() != 0 {
		t.Errorf("Count() = %d, want 0", store.Count())
	}
}

func TestLastWriteWinsAcrossSession(t *testing.T) {
	srv := newFakeServer(t)
	client, store := newTestClient(t, srv)

	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error: %v", err)
	}

	for _, wire := range []protocol.WireDevice{
		{ID: "spk_1", Type: "speaker", Status: "true", Value: "10"},
		{ID: "spk_1", Type: "speaker", Status: "true", Value: "20"},
	} {
		raw, err := protocol.EncodeDevice(wire)
		if err != nil {
			t.Fatalf("EncodeDevice: %v", err)
		}
		srv.send(protocol.Frame{Action: protocol.ActionDeviceChanged, Device: raw})
	}

	waitFor(t, "final value", func() bool {
		rec, ok := store.Get("spk_1")
		return ok && rec.Value == 20
	})
}

func TestServerDropTransitionsDisconnected(t *testing.T) {
	srv := newFakeServer(t)
	client, _ := newTestClient(t, srv)

	var mu sync.Mutex
	var transitions []State
	client.OnStateChange(func(s State) {
		mu.Lock()
		transitions = append(transitions, s)
		mu.Unlock()
	})

	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error: %v", err)
	}

	srv.dropClient()

	waitFor(t, "disconnected state", func() bool { return client.State() == StateDisconnected })
	if client.Authenticated() {
		t.Error("Authenticated() must reset on disconnect")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(transitions) == 0 || transitions[len(transitions)-1] != StateDisconnected {
		t.Errorf("transitions = %v, want trailing disconnected", transitions)
	}
}

func TestDisconnectSendsNotice(t *testing.T) {
	srv := newFakeServer(t)
	client, _ := newTestClient(t, srv)

	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error: %v", err)
	}

	if err := client.Disconnect(); err != nil {
		t.Fatalf("Disconnect() error: %v", err)
	}
	srv.expectFrame(protocol.ActionDisconnect)

	if client.State() != StateDisconnected {
		t.Errorf("State() = %s, want disconnected", client.State())
	}

	// Disconnect again is a no-op.
	if err := client.Disconnect(); err != nil {
		t.Fatalf("second Disconnect() error: %v", err)
	}
}
