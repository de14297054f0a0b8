// Package engine implements the wire client for the native capture/encode
// engine host. The host speaks a framed JSON protocol over a single websocket
// connection: a Hello/Identify handshake, request/response pairs correlated
// by request id, and unsolicited events carrying output signals.
package engine

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tdaugaard/wow-recorder/internal/logging"
)

const (
	handshakeTimeout = 10 * time.Second
	requestTimeout   = 10 * time.Second
)

// Client is a connection to the engine host. A process holds at most one live
// client; the recorder enforces this and the host rejects duplicate channel
// ids as a second line of defense.
type Client struct {
	url       string
	password  string
	channelID string

	mu         sync.RWMutex
	conn       *websocket.Conn
	connected  bool
	identified bool

	// The websocket permits one concurrent writer; every outgoing frame
	// goes through writeMu.
	writeMu sync.Mutex

	requestID   int
	requestIDMu sync.Mutex
	responses   map[int]chan *Response
	responseMu  sync.RWMutex

	onOutputSignal func(Signal)
	onDisconnected func()
	callbackMu     sync.RWMutex

	stopChan       chan struct{}
	identifiedChan chan struct{}
	helloChan      chan *HelloData
	helloErrChan   chan error

	logger *slog.Logger
}

// NewClient creates a client for the engine host at url. The channel id is
// derived from the process id so the host can detect duplicate connections
// from the same machine.
func NewClient(url, password string) *Client {
	return &Client{
		url:            url,
		password:       password,
		channelID:      "wow-recorder-" + strconv.Itoa(os.Getpid()),
		responses:      make(map[int]chan *Response),
		stopChan:       make(chan struct{}),
		identifiedChan: make(chan struct{}),
		helloChan:      make(chan *HelloData, 1),
		helloErrChan:   make(chan error, 1),
		logger:         logging.GetLogger("engine"),
	}
}

// Connect dials the host and completes the Hello/Identify handshake.
func (c *Client) Connect() error {
	c.mu.Lock()
	if c.connected {
		c.mu.Unlock()
		return errors.New("already connected")
	}
	// A previous Disconnect left the stop channel closed; arm a fresh one
	// for this connection.
	select {
	case <-c.stopChan:
		c.stopChan = make(chan struct{})
	default:
	}
	c.mu.Unlock()

	conn, _, err := websocket.DefaultDialer.Dial(c.url, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to engine host: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.connected = true
	stop := c.stopChan
	c.mu.Unlock()

	go c.readMessages(stop)

	select {
	case hello := <-c.helloChan:
		return c.identify(hello)
	case err := <-c.helloErrChan:
		c.teardown()
		return err
	case <-time.After(handshakeTimeout):
		c.teardown()
		return errors.New("timeout waiting for Hello message")
	}
}

// identify answers the host's Hello with the channel id and, when the host
// demands it, the challenge/salt authentication string.
func (c *Client) identify(hello *HelloData) error {
	identify := IdentifyData{
		RPCVersion: 1,
		ChannelID:  c.channelID,
	}

	if hello.Authentication.Challenge != "" && c.password != "" {
		// secret = base64(sha256(password + salt))
		secret := sha256.Sum256([]byte(c.password + hello.Authentication.Salt))
		secretB64 := base64.StdEncoding.EncodeToString(secret[:])

		// auth = base64(sha256(secret + challenge))
		auth := sha256.Sum256([]byte(secretB64 + hello.Authentication.Challenge))
		identify.Authentication = base64.StdEncoding.EncodeToString(auth[:])
	}

	msg := Message{Op: OpIdentify}
	msg.D, _ = json.Marshal(identify)

	if err := c.writeMessage(msg); err != nil {
		c.teardown()
		return err
	}

	select {
	case <-c.identifiedChan:
		c.mu.Lock()
		c.identified = true
		c.mu.Unlock()
		c.logger.Info("connected to engine host", "url", c.url, "host_version", hello.HostVersion)
		return nil
	case <-time.After(handshakeTimeout):
		c.teardown()
		return errors.New("timeout waiting for Identified message")
	}
}

// readMessages reads and dispatches frames until the connection drops. stop
// belongs to this connection; Connect re-arms the channel on reconnect.
func (c *Client) readMessages(stop <-chan struct{}) {
	defer func() {
		c.teardown()

		// A client-initiated Disconnect is not a drop; only an unexpected
		// exit notifies the owner.
		select {
		case <-stop:
			return
		default:
		}

		c.callbackMu.RLock()
		handler := c.onDisconnected
		c.callbackMu.RUnlock()
		if handler != nil {
			handler()
		}
	}()

	for {
		select {
		case <-stop:
			return
		default:
		}

		c.mu.RLock()
		conn := c.conn
		c.mu.RUnlock()
		if conn == nil {
			return
		}

		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			var closeErr *websocket.CloseError
			if errors.As(err, &closeErr) {
				c.logger.Warn("engine host closed connection", "code", closeErr.Code, "text", closeErr.Text)
			}
			return
		}

		switch msg.Op {
		case OpHello:
			var hello HelloData
			if err := json.Unmarshal(msg.D, &hello); err != nil {
				select {
				case c.helloErrChan <- err:
				default:
				}
				return
			}
			select {
			case c.helloChan <- &hello:
			default:
			}

		case OpIdentified:
			select {
			case c.identifiedChan <- struct{}{}:
			default:
			}

		case OpEvent:
			var event Event
			if err := json.Unmarshal(msg.D, &event); err == nil {
				c.handleEvent(&event)
			}

		case OpRequestResponse:
			var resp Response
			if err := json.Unmarshal(msg.D, &resp); err == nil {
				c.handleResponse(&resp)
			}
		}
	}
}

func (c *Client) handleEvent(event *Event) {
	switch event.EventType {
	case "OutputSignal":
		var sig Signal
		if err := json.Unmarshal(event.EventData, &sig); err != nil {
			c.logger.Warn("malformed output signal event", "error", err)
			return
		}
		c.logger.Debug("output signal", "type", sig.Type, "signal", sig.Signal)
		c.callbackMu.RLock()
		handler := c.onOutputSignal
		c.callbackMu.RUnlock()
		if handler != nil {
			handler(sig)
		}
	}
}

func (c *Client) handleResponse(resp *Response) {
	id, err := strconv.Atoi(resp.RequestID)
	if err != nil {
		c.logger.Warn("failed to parse request id", "request_id", resp.RequestID)
		return
	}

	c.responseMu.RLock()
	defer c.responseMu.RUnlock()
	if ch, ok := c.responses[id]; ok {
		ch <- resp
	}
}

// sendRequest sends one request and waits for the correlated response.
func (c *Client) sendRequest(requestType string, requestData interface{}) (*Response, error) {
	c.mu.RLock()
	if !c.connected || !c.identified {
		c.mu.RUnlock()
		return nil, errors.New("not connected")
	}
	c.mu.RUnlock()

	c.requestIDMu.Lock()
	c.requestID++
	id := c.requestID
	c.requestIDMu.Unlock()

	req := Request{
		RequestType: requestType,
		RequestID:   strconv.Itoa(id),
		RequestData: requestData,
	}

	msg := Message{Op: OpRequest}
	msg.D, _ = json.Marshal(req)

	respChan := make(chan *Response, 1)
	c.responseMu.Lock()
	c.responses[id] = respChan
	c.responseMu.Unlock()

	defer func() {
		c.responseMu.Lock()
		delete(c.responses, id)
		c.responseMu.Unlock()
	}()

	if err := c.writeMessage(msg); err != nil {
		return nil, err
	}

	select {
	case resp := <-respChan:
		if !resp.RequestStatus.Result {
			return nil, fmt.Errorf("engine request %s failed: %s (code %d)",
				requestType, resp.RequestStatus.Comment, resp.RequestStatus.Code)
		}
		return resp, nil
	case <-time.After(requestTimeout):
		return nil, fmt.Errorf("engine request %s timed out after %s", requestType, requestTimeout)
	}
}

// writeMessage sends one frame, serializing writers.
func (c *Client) writeMessage(msg Message) error {
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()
	if conn == nil {
		return errors.New("not connected")
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return conn.WriteJSON(msg)
}

// teardown closes the socket and resets connection state.
func (c *Client) teardown() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		if err := c.conn.Close(); err != nil {
			c.logger.Debug("failed to close connection", "error", err)
		}
		c.conn = nil
	}
	c.connected = false
	c.identified = false
}

// Disconnect closes the connection and stops the reader.
func (c *Client) Disconnect() error {
	c.mu.Lock()
	alreadyStopped := false
	select {
	case <-c.stopChan:
		alreadyStopped = true
	default:
		close(c.stopChan)
	}
	c.mu.Unlock()

	if alreadyStopped {
		return nil
	}
	c.teardown()
	return nil
}

// OnOutputSignal registers the callback invoked for every output signal event.
// Passing nil detaches the current callback.
func (c *Client) OnOutputSignal(handler func(Signal)) {
	c.callbackMu.Lock()
	c.onOutputSignal = handler
	c.callbackMu.Unlock()
}

// OnDisconnected registers a callback invoked when the connection drops.
func (c *Client) OnDisconnected(handler func()) {
	c.callbackMu.Lock()
	c.onDisconnected = handler
	c.callbackMu.Unlock()
}

// IsConnected reports whether the handshake has completed and the socket is up.
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected && c.identified
}
