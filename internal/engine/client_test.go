package engine

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{}

// mockHost is an in-process engine host speaking the framed websocket
// protocol: Hello, Identify, Identified, then request/response with optional
// pushed events.
type mockHost struct {
	server      *httptest.Server
	sendHello   bool
	requireAuth bool
	password    string

	handlers map[string]func(req *Request) (interface{}, bool)

	identify chan IdentifyData
	conns    chan *websocket.Conn

	mu       sync.Mutex
	upgraded []*websocket.Conn
}

func newMockHost() *mockHost {
	m := &mockHost{
		sendHello: true,
		handlers:  make(map[string]func(*Request) (interface{}, bool)),
		identify:  make(chan IdentifyData, 1),
		conns:     make(chan *websocket.Conn, 1),
	}

	m.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		m.mu.Lock()
		m.upgraded = append(m.upgraded, conn)
		m.mu.Unlock()
		defer func() { _ = conn.Close() }()
		m.handleConnection(conn)
	}))
	return m
}

func (m *mockHost) url() string {
	return "ws" + strings.TrimPrefix(m.server.URL, "http")
}

func (m *mockHost) close() {
	// httptest.Server.Close does not close hijacked (upgraded) connections,
	// so close them explicitly to make the drop observable client-side.
	m.mu.Lock()
	for _, conn := range m.upgraded {
		_ = conn.Close()
	}
	m.mu.Unlock()
	m.server.Close()
}

// handle registers a canned response for one request type. ok=false produces
// a failed request status.
func (m *mockHost) handle(requestType string, fn func(*Request) (interface{}, bool)) {
	m.handlers[requestType] = fn
}

func (m *mockHost) handleConnection(conn *websocket.Conn) {
	if m.sendHello {
		hello := HelloData{HostVersion: "1.2.0", RPCVersion: 1}
		if m.requireAuth {
			hello.Authentication.Challenge = "testchallenge"
			hello.Authentication.Salt = "testsalt"
		}
		msg := Message{Op: OpHello}
		msg.D, _ = json.Marshal(hello)
		if err := conn.WriteJSON(msg); err != nil {
			return
		}
	}

	var identifyMsg Message
	if err := conn.ReadJSON(&identifyMsg); err != nil {
		return
	}
	var identify IdentifyData
	_ = json.Unmarshal(identifyMsg.D, &identify)
	select {
	case m.identify <- identify:
	default:
	}

	if m.requireAuth && identify.Authentication != expectedAuth(m.password, "testsalt", "testchallenge") {
		return // drop the connection, handshake times out client-side
	}

	identified := Message{Op: OpIdentified, D: json.RawMessage("{}")}
	if err := conn.WriteJSON(identified); err != nil {
		return
	}

	select {
	case m.conns <- conn:
	default:
	}

	for {
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}
		if msg.Op != OpRequest {
			continue
		}
		var req Request
		if err := json.Unmarshal(msg.D, &req); err != nil {
			return
		}

		resp := Response{RequestType: req.RequestType, RequestID: req.RequestID}
		resp.RequestStatus.Result = true
		resp.RequestStatus.Code = 100

		if fn, ok := m.handlers[req.RequestType]; ok {
			data, ok := fn(&req)
			if !ok {
				resp.RequestStatus.Result = false
				resp.RequestStatus.Code = 204
				resp.RequestStatus.Comment = "request refused"
			} else if data != nil {
				resp.ResponseData, _ = json.Marshal(data)
			}
		}

		out := Message{Op: OpRequestResponse}
		out.D, _ = json.Marshal(resp)
		if err := conn.WriteJSON(out); err != nil {
			return
		}
	}
}

// pushEvent sends an unsolicited event on the identified connection.
func (m *mockHost) pushEvent(t *testing.T, eventType string, data interface{}) {
	t.Helper()
	var conn *websocket.Conn
	select {
	case conn = <-m.conns:
	case <-time.After(2 * time.Second):
		t.Fatal("no identified connection to push on")
	}

	event := Event{EventType: eventType}
	event.EventData, _ = json.Marshal(data)
	msg := Message{Op: OpEvent}
	msg.D, _ = json.Marshal(event)
	if err := conn.WriteJSON(msg); err != nil {
		t.Fatalf("push event: %v", err)
	}
}

func expectedAuth(password, salt, challenge string) string {
	secret := sha256.Sum256([]byte(password + salt))
	secretB64 := base64.StdEncoding.EncodeToString(secret[:])
	auth := sha256.Sum256([]byte(secretB64 + challenge))
	return base64.StdEncoding.EncodeToString(auth[:])
}

func TestConnect_Handshake(t *testing.T) {
	host := newMockHost()
	defer host.close()

	client := NewClient(host.url(), "")
	if err := client.Connect(); err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer func() { _ = client.Disconnect() }()

	if !client.IsConnected() {
		t.Fatal("client does not report connected after handshake")
	}

	identify := <-host.identify
	if identify.RPCVersion != 1 {
		t.Fatalf("rpc version = %d", identify.RPCVersion)
	}
	if !strings.HasPrefix(identify.ChannelID, "wow-recorder-") {
		t.Fatalf("channel id = %q", identify.ChannelID)
	}
	if identify.Authentication != "" {
		t.Fatal("auth string sent to a host that did not demand one")
	}
}

func TestConnect_WithAuthentication(t *testing.T) {
	host := newMockHost()
	host.requireAuth = true
	host.password = "hunter2"
	defer host.close()

	client := NewClient(host.url(), "hunter2")
	if err := client.Connect(); err != nil {
		t.Fatalf("connect with auth: %v", err)
	}
	defer func() { _ = client.Disconnect() }()

	identify := <-host.identify
	want := expectedAuth("hunter2", "testsalt", "testchallenge")
	if identify.Authentication != want {
		t.Fatalf("auth = %q, want %q", identify.Authentication, want)
	}
}

func TestConnect_AlreadyConnected(t *testing.T) {
	host := newMockHost()
	defer host.close()

	client := NewClient(host.url(), "")
	if err := client.Connect(); err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer func() { _ = client.Disconnect() }()

	if err := client.Connect(); err == nil {
		t.Fatal("second connect on a live client must fail")
	}
}

func TestConnect_DialFailure(t *testing.T) {
	client := NewClient("ws://127.0.0.1:1", "")
	if err := client.Connect(); err == nil {
		t.Fatal("expected dial failure")
	}
}

func TestRequest_FailureStatus(t *testing.T) {
	host := newMockHost()
	host.handle("StartRecording", func(*Request) (interface{}, bool) {
		return nil, false
	})
	defer host.close()

	client := NewClient(host.url(), "")
	if err := client.Connect(); err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer func() { _ = client.Disconnect() }()

	err := client.StartRecording()
	if err == nil {
		t.Fatal("expected refused request to surface as an error")
	}
	if !strings.Contains(err.Error(), "request refused") {
		t.Fatalf("error %q does not carry the host comment", err)
	}
}

func TestRequest_NotConnected(t *testing.T) {
	client := NewClient("ws://localhost:4455", "")
	if err := client.StartRecording(); err == nil {
		t.Fatal("expected error on request before connect")
	}
}

// The orchestrator's size poll issues requests from its own goroutine while
// lifecycle calls run on another, so concurrent senders must be safe.
func TestRequest_ConcurrentSenders(t *testing.T) {
	host := newMockHost()
	defer host.close()

	client := NewClient(host.url(), "")
	if err := client.Connect(); err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer func() { _ = client.Disconnect() }()

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				if err := client.StartRecording(); err != nil {
					t.Errorf("request: %v", err)
					return
				}
			}
		}()
	}
	wg.Wait()
}

func TestOutputSignal_Dispatch(t *testing.T) {
	host := newMockHost()
	defer host.close()

	client := NewClient(host.url(), "")
	if err := client.Connect(); err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer func() { _ = client.Disconnect() }()

	got := make(chan Signal, 1)
	client.OnOutputSignal(func(sig Signal) { got <- sig })

	host.pushEvent(t, "OutputSignal", Signal{Type: SignalTypeRecording, Signal: SignalStart})

	select {
	case sig := <-got:
		if sig.Type != SignalTypeRecording || sig.Signal != SignalStart {
			t.Fatalf("signal = %+v", sig)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("signal never delivered")
	}
}

func TestOnDisconnected_FiresWhenHostCloses(t *testing.T) {
	host := newMockHost()

	client := NewClient(host.url(), "")
	if err := client.Connect(); err != nil {
		t.Fatalf("connect: %v", err)
	}

	dropped := make(chan struct{})
	client.OnDisconnected(func() { close(dropped) })

	host.close()

	select {
	case <-dropped:
	case <-time.After(2 * time.Second):
		t.Fatal("disconnect callback never fired")
	}
	if client.IsConnected() {
		t.Fatal("client still reports connected")
	}
}

func TestOnDisconnected_SilentOnClientDisconnect(t *testing.T) {
	host := newMockHost()
	defer host.close()

	client := NewClient(host.url(), "")
	if err := client.Connect(); err != nil {
		t.Fatalf("connect: %v", err)
	}

	fired := make(chan struct{}, 1)
	client.OnDisconnected(func() { fired <- struct{}{} })

	if err := client.Disconnect(); err != nil {
		t.Fatalf("disconnect: %v", err)
	}

	// An orderly client-side disconnect must not look like an engine drop.
	select {
	case <-fired:
		t.Fatal("disconnect callback fired on a clean Disconnect")
	case <-time.After(200 * time.Millisecond):
	}
}

func TestConnect_AfterDisconnect(t *testing.T) {
	host := newMockHost()
	defer host.close()

	client := NewClient(host.url(), "")
	if err := client.Connect(); err != nil {
		t.Fatalf("first connect: %v", err)
	}
	if err := client.Disconnect(); err != nil {
		t.Fatalf("disconnect: %v", err)
	}

	if err := client.Connect(); err != nil {
		t.Fatalf("reconnect: %v", err)
	}
	defer func() { _ = client.Disconnect() }()

	if err := client.StartRecording(); err != nil {
		t.Fatalf("request after reconnect: %v", err)
	}
}

func TestDisconnect_Idempotent(t *testing.T) {
	host := newMockHost()
	defer host.close()

	client := NewClient(host.url(), "")
	if err := client.Connect(); err != nil {
		t.Fatalf("connect: %v", err)
	}

	if err := client.Disconnect(); err != nil {
		t.Fatalf("first disconnect: %v", err)
	}
	if err := client.Disconnect(); err != nil {
		t.Fatalf("second disconnect: %v", err)
	}
	if client.IsConnected() {
		t.Fatal("client reports connected after disconnect")
	}
}
