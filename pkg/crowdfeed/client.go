package crowdfeed

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/teslashibe/go-venue-acoustics/pkg/protocol"
	"github.com/teslashibe/go-venue-acoustics/pkg/vecmath"
)

// Client publishes readings to a feed server
type Client struct {
	ws   *websocket.Conn
	wsMu sync.Mutex

	// Callbacks
	OnError func(data *protocol.ErrorData)
	OnPong  func(data *protocol.PongData)

	done chan struct{}
}

// Dial connects to a feed endpoint such as ws://host:8090/ws/crowd/door-1
func Dial(ctx context.Context, url string) (*Client, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	ws, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to feed server: %w", err)
	}

	c := &Client{ws: ws, done: make(chan struct{})}
	go c.handleMessages()
	return c, nil
}

// Done is closed when the connection's read loop ends
func (c *Client) Done() <-chan struct{} {
	return c.done
}

func (c *Client) handleMessages() {
	defer close(c.done)
	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			return
		}
		msg, err := protocol.ParseMessage(data)
		if err != nil {
			continue
		}
		switch msg.Type {
		case protocol.TypeError:
			if d, err := msg.GetErrorData(); err == nil && c.OnError != nil {
				c.OnError(d)
			}
		case protocol.TypePong:
			if d, err := msg.GetPongData(); err == nil && c.OnPong != nil {
				c.OnPong(d)
			}
		}
	}
}

func (c *Client) send(msg *protocol.Message, err error) error {
	if err != nil {
		return err
	}
	data, err := msg.Bytes()
	if err != nil {
		return err
	}
	c.wsMu.Lock()
	defer c.wsMu.Unlock()
	c.ws.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return c.ws.WriteMessage(websocket.TextMessage, data)
}

// SendCrowd publishes a bulk density and positions reading
func (c *Client) SendCrowd(density float64, positions []vecmath.Vec3) error {
	return c.send(protocol.NewCrowdMessage(density, positions))
}

// Join reports a person entering at pos
func (c *Client) Join(id string, pos vecmath.Vec3) error {
	return c.send(protocol.NewJoinMessage(id, pos))
}

// Leave reports a person leaving
func (c *Client) Leave(id string) error {
	return c.send(protocol.NewLeaveMessage(id))
}

// Move reports a person's new position
func (c *Client) Move(id string, pos vecmath.Vec3) error {
	return c.send(protocol.NewMoveMessage(id, pos))
}

// SendMovement publishes crowd movement intensity
func (c *Client) SendMovement(intensity float64) error {
	return c.send(protocol.NewMovementMessage(intensity))
}

// SendEnvironment publishes a weather reading
func (c *Client) SendEnvironment(d protocol.EnvironmentData) error {
	return c.send(protocol.NewEnvironmentMessage(d))
}

// Ping sends a health check
func (c *Client) Ping(id string) error {
	return c.send(protocol.NewPingMessage(id))
}

// Close sends a close frame and closes the connection
func (c *Client) Close() error {
	c.wsMu.Lock()
	c.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	c.wsMu.Unlock()
	return c.ws.Close()
}
