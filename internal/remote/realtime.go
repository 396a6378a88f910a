package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"
)

// heartbeatInterval keeps the realtime socket alive. The service drops
// connections that miss two consecutive heartbeats.
const heartbeatInterval = 30 * time.Second

// realtimeMessage is the phoenix-style frame used by the realtime service.
type realtimeMessage struct {
	Topic   string          `json:"topic"`
	Event   string          `json:"event"`
	Ref     string          `json:"ref,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// changePayload carries the changed row on INSERT/UPDATE events.
type changePayload struct {
	New struct {
		Data      json.RawMessage `json:"data"`
		UpdatedAt string          `json:"updated_at"`
	} `json:"new"`
	Record struct {
		Data json.RawMessage `json:"data"`
	} `json:"record"`
}

// Subscribe implements Backend.Subscribe. The subscription joins a topic
// filtered server-side to the user's row and delivers decoded envelopes
// until Close or ctx cancellation.
func (c *Client) Subscribe(ctx context.Context, userID string) (Subscription, error) {
	if c.Session() == "" {
		return nil, ErrNotSignedIn
	}

	wsURL, err := c.realtimeURL()
	if err != nil {
		return nil, err
	}

	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("realtime dial failed: %w", err)
	}

	subCtx, cancel := context.WithCancel(context.Background())
	sub := &subscription{
		conn:    conn,
		topic:   fmt.Sprintf("realtime:public:%s:user_id=eq.%s", Table, userID),
		changes: make(chan *Envelope, 16),
		ctx:     subCtx,
		cancel:  cancel,
		logger:  c.logger,
	}

	if err := sub.join(ctx); err != nil {
		cancel()
		_ = conn.Close(websocket.StatusNormalClosure, "join failed")
		return nil, err
	}

	sub.wg.Add(2)
	go sub.readLoop()
	go sub.heartbeatLoop()

	return sub, nil
}

// realtimeURL converts the project base URL to the websocket endpoint.
func (c *Client) realtimeURL() (string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid backend URL: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http":
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/realtime/v1/websocket"
	q := u.Query()
	q.Set("apikey", c.anonKey)
	q.Set("vsn", "1.0.0")
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// subscription is an open realtime channel for one user's row.
type subscription struct {
	conn    *websocket.Conn
	topic   string
	changes chan *Envelope
	logger  *log.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	closeOnce sync.Once
	refMu     sync.Mutex
	ref       int
}

func (s *subscription) nextRef() string {
	s.refMu.Lock()
	defer s.refMu.Unlock()
	s.ref++
	return strconv.Itoa(s.ref)
}

// join sends the channel join frame and waits for the reply.
func (s *subscription) join(ctx context.Context) error {
	join := realtimeMessage{
		Topic:   s.topic,
		Event:   "phx_join",
		Ref:     s.nextRef(),
		Payload: json.RawMessage(`{}`),
	}
	if err := s.write(ctx, join); err != nil {
		return fmt.Errorf("realtime join failed: %w", err)
	}

	// The first frame on the topic is the join reply.
	_, data, err := s.conn.Read(ctx)
	if err != nil {
		return fmt.Errorf("realtime join failed: %w", err)
	}
	var reply realtimeMessage
	if err := json.Unmarshal(data, &reply); err != nil {
		return fmt.Errorf("realtime join failed: %w", err)
	}
	if reply.Event != "phx_reply" {
		// Tolerate an early change frame racing the reply.
		s.deliver(reply)
	}
	return nil
}

func (s *subscription) write(ctx context.Context, msg realtimeMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return s.conn.Write(ctx, websocket.MessageText, data)
}

// readLoop decodes incoming frames and delivers row changes.
func (s *subscription) readLoop() {
	defer s.wg.Done()
	defer close(s.changes)

	for {
		_, data, err := s.conn.Read(s.ctx)
		if err != nil {
			if s.ctx.Err() == nil {
				s.logger.Printf("Realtime read ended: %v", err)
			}
			s.cancel()
			return
		}

		var msg realtimeMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			s.logger.Printf("Realtime frame discarded: %v", err)
			continue
		}
		s.deliver(msg)
	}
}

// deliver forwards INSERT/UPDATE frames as envelopes. A slow consumer
// drops notifications rather than blocking the read loop; a dropped
// frame is recovered by the next manual or periodic pull.
func (s *subscription) deliver(msg realtimeMessage) {
	switch msg.Event {
	case "INSERT", "UPDATE":
	default:
		return
	}

	var change changePayload
	if err := json.Unmarshal(msg.Payload, &change); err != nil {
		s.logger.Printf("Realtime payload discarded: %v", err)
		return
	}
	data := change.New.Data
	if len(data) == 0 {
		data = change.Record.Data
	}
	if len(data) == 0 {
		return
	}

	env, err := DecodeEnvelope(data)
	if err != nil {
		s.logger.Printf("Realtime envelope discarded: %v", err)
		return
	}

	select {
	case s.changes <- env:
	default:
		s.logger.Printf("Realtime change dropped: consumer not keeping up")
	}
}

// heartbeatLoop keeps the socket alive.
func (s *subscription) heartbeatLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			hb := realtimeMessage{
				Topic:   "phoenix",
				Event:   "heartbeat",
				Ref:     s.nextRef(),
				Payload: json.RawMessage(`{}`),
			}
			if err := s.write(s.ctx, hb); err != nil {
				if s.ctx.Err() == nil {
					s.logger.Printf("Realtime heartbeat failed: %v", err)
				}
				s.cancel()
				return
			}
		}
	}
}

// Changes implements Subscription.Changes.
func (s *subscription) Changes() <-chan *Envelope {
	return s.changes
}

// Close implements Subscription.Close.
func (s *subscription) Close() error {
	s.closeOnce.Do(func() {
		s.cancel()
		_ = s.conn.Close(websocket.StatusNormalClosure, "")
		s.wg.Wait()
	})
	return nil
}
