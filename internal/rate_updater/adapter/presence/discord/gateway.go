package discord

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
)

const (
	opDispatch     = 0
	opHeartbeat    = 1
	opIdentify     = 2
	opHello        = 10
	opHeartbeatAck = 11

	intentGuilds     = 1 << 0
	activityWatching = 3

	helloTimeout = 30 * time.Second
)

type inbound struct {
	Op int             `json:"op"`
	D  json.RawMessage `json:"d"`
	S  *int64          `json:"s"`
	T  string          `json:"t"`
}

type outbound struct {
	Op int `json:"op"`
	D  any `json:"d"`
}

type hello struct {
	HeartbeatInterval int64 `json:"heartbeat_interval"`
}

type identify struct {
	Token      string             `json:"token"`
	Intents    int                `json:"intents"`
	Properties identifyProperties `json:"properties"`
	Presence   presence           `json:"presence"`
}

type identifyProperties struct {
	OS      string `json:"os"`
	Browser string `json:"browser"`
	Device  string `json:"device"`
}

type presence struct {
	Since      *int64     `json:"since"`
	Activities []activity `json:"activities"`
	Status     string     `json:"status"`
	AFK        bool       `json:"afk"`
}

type activity struct {
	Name string `json:"name"`
	Type int    `json:"type"`
}

type ready struct {
	User struct {
		Username string `json:"username"`
		ID       string `json:"id"`
	} `json:"user"`
}

// Gateway keeps the bot session online and shows the custom status as a
// "Watching" activity. It does not reconnect; Run returns when the session ends.
type Gateway struct {
	url    string
	token  string
	status string
	dialer *websocket.Dialer
	seq    atomic.Int64
}

func NewGateway(url, token, status string) *Gateway {
	g := &Gateway{
		url:    url,
		token:  token,
		status: status,
		dialer: websocket.DefaultDialer,
	}
	g.seq.Store(-1)

	return g
}

func (g *Gateway) Run(ctx context.Context) error {
	const op = "discord.Gateway.Run"

	conn, _, err := g.dialer.DialContext(ctx, g.url, nil)
	if err != nil {
		return errors.Wrap(err, op)
	}
	defer conn.Close()

	// Unblocks any pending read once ctx is done.
	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetReadDeadline(time.Now())
	})
	defer func() { stop() }()

	if err := conn.SetReadDeadline(time.Now().Add(helloTimeout)); err != nil {
		return errors.Wrap(err, op)
	}

	var first inbound
	if err := conn.ReadJSON(&first); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return errors.Wrap(err, op)
	}
	if first.Op != opHello {
		return errors.Errorf("%s: expected hello, got op %d", op, first.Op)
	}

	var h hello
	if err := json.Unmarshal(first.D, &h); err != nil {
		return errors.Wrap(err, op)
	}
	if h.HeartbeatInterval <= 0 {
		return errors.Errorf("%s: invalid heartbeat interval %d", op, h.HeartbeatInterval)
	}

	if !stop() {
		return nil
	}
	if err := conn.SetReadDeadline(time.Time{}); err != nil {
		return errors.Wrap(err, op)
	}
	stop = context.AfterFunc(ctx, func() {
		_ = conn.SetReadDeadline(time.Now())
	})

	if err := conn.WriteJSON(outbound{Op: opIdentify, D: g.identify()}); err != nil {
		return errors.Wrap(err, op)
	}

	readErr := make(chan error, 1)
	beat := make(chan struct{}, 1)
	go g.readLoop(conn, beat, readErr)

	ticker := time.NewTicker(time.Duration(h.HeartbeatInterval) * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return nil

		case err := <-readErr:
			if ctx.Err() != nil {
				return nil
			}
			return errors.Wrap(err, op)

		case <-ticker.C:
			if err := g.heartbeat(conn); err != nil {
				return errors.Wrap(err, op)
			}

		case <-beat:
			if err := g.heartbeat(conn); err != nil {
				return errors.Wrap(err, op)
			}
		}
	}
}

func (g *Gateway) identify() identify {
	return identify{
		Token:   g.token,
		Intents: intentGuilds,
		Properties: identifyProperties{
			OS:      "linux",
			Browser: "ratepresence",
			Device:  "ratepresence",
		},
		Presence: presence{
			Activities: []activity{{Name: g.status, Type: activityWatching}},
			Status:     "online",
		},
	}
}

func (g *Gateway) heartbeat(conn *websocket.Conn) error {
	var d any
	if seq := g.seq.Load(); seq >= 0 {
		d = seq
	}
	return conn.WriteJSON(outbound{Op: opHeartbeat, D: d})
}

// readLoop is the only reader of conn; writes stay on the Run goroutine.
func (g *Gateway) readLoop(conn *websocket.Conn, beat chan<- struct{}, readErr chan<- error) {
	for {
		var msg inbound
		if err := conn.ReadJSON(&msg); err != nil {
			readErr <- err
			return
		}

		if msg.S != nil {
			g.seq.Store(*msg.S)
		}

		switch msg.Op {
		case opDispatch:
			if msg.T == "READY" {
				var r ready
				if err := json.Unmarshal(msg.D, &r); err == nil {
					slog.Info("logged in to chat gateway", "user", r.User.Username, "id", r.User.ID)
				}
			}
		case opHeartbeat:
			select {
			case beat <- struct{}{}:
			default:
			}
		case opHeartbeatAck:
			slog.Debug("gateway heartbeat acknowledged")
		}
	}
}
