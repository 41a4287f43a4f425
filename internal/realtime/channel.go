package realtime

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"

	"github.com/huybank/bankapp/internal/domain"
	"github.com/huybank/bankapp/internal/metrics"
)

const handshakeTimeout = 10 * time.Second

// State is the lifecycle phase of the push channel.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "disconnected"
	}
}

// Sink receives pushed events and state transitions. Calls arrive from the
// channel's actor goroutine, one at a time.
type Sink interface {
	OnEvent(event domain.NotificationEvent)
	OnStateChange(state State)
}

// subscribeFrame is the first frame sent after the websocket handshake.
// The bearer token rides in the frame, not in an HTTP header, because the
// backend authenticates the subscription, not the upgrade.
type subscribeFrame struct {
	Type        string `json:"type"`
	Destination string `json:"destination"`
	Token       string `json:"token"`
}

// --- Command types ---

type channelCmd interface{ channelCmd() }

type cmdConnect struct {
	accountNumber string
	token         string
}

func (cmdConnect) channelCmd() {}

type cmdDisconnect struct{}

func (cmdDisconnect) channelCmd() {}

type cmdConnectResult struct {
	gen  int
	conn *websocket.Conn
	err  error
}

func (cmdConnectResult) channelCmd() {}

type cmdConnLost struct {
	gen int
	err error
}

func (cmdConnLost) channelCmd() {}

type cmdEvent struct {
	gen   int
	event domain.NotificationEvent
}

func (cmdEvent) channelCmd() {}

type cmdRetry struct {
	gen int
}

func (cmdRetry) channelCmd() {}

type cmdGetState struct {
	replyCh chan State
}

func (cmdGetState) channelCmd() {}

type cmdStop struct{}

func (cmdStop) channelCmd() {}

// --- Channel ---

// Channel is the push notification connection for one account. All fields
// below cmdCh are owned by the actor goroutine.
type Channel struct {
	cmdCh chan channelCmd
	done  chan struct{}

	url        string
	sink       Sink
	clock      clockwork.Clock
	retryDelay time.Duration

	state         State
	accountNumber string
	token         string
	gen           int
	conn          *websocket.Conn
}

func NewChannel(url string, sink Sink, clock clockwork.Clock, retryDelay time.Duration) *Channel {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	ch := &Channel{
		cmdCh:      make(chan channelCmd, 64),
		done:       make(chan struct{}),
		url:        url,
		sink:       sink,
		clock:      clock,
		retryDelay: retryDelay,
		state:      StateDisconnected,
	}
	go ch.run()
	return ch
}

func (ch *Channel) run() {
	defer close(ch.done)
	for cmd := range ch.cmdCh {
		switch c := cmd.(type) {
		case cmdConnect:
			ch.handleConnect(c)
		case cmdDisconnect:
			ch.handleDisconnect()
		case cmdConnectResult:
			ch.handleConnectResult(c)
		case cmdConnLost:
			ch.handleConnLost(c)
		case cmdEvent:
			ch.handleEvent(c)
		case cmdRetry:
			ch.handleRetry(c)
		case cmdGetState:
			c.replyCh <- ch.state
		case cmdStop:
			ch.handleDisconnect()
			return
		}
	}
}

func (ch *Channel) handleConnect(c cmdConnect) {
	if ch.state != StateDisconnected {
		slog.Debug("Push channel connect ignored, already active", "state", ch.state.String())
		return
	}
	ch.accountNumber = c.accountNumber
	ch.token = c.token
	ch.dial()
}

func (ch *Channel) dial() {
	ch.setState(StateConnecting)
	ch.gen++
	gen := ch.gen
	url := ch.url
	frame := subscribeFrame{
		Type:        "SUBSCRIBE",
		Destination: "/queue/notifications/" + ch.accountNumber,
		Token:       ch.token,
	}

	go func() {
		dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}
		conn, _, err := dialer.Dial(url, nil)
		if err == nil {
			err = conn.WriteJSON(frame)
			if err != nil {
				conn.Close()
				conn = nil
			}
		}
		if !ch.send(cmdConnectResult{gen: gen, conn: conn, err: err}) && conn != nil {
			conn.Close()
		}
	}()
}

func (ch *Channel) handleConnectResult(c cmdConnectResult) {
	if c.gen != ch.gen || ch.state != StateConnecting {
		// A teardown overtook this attempt.
		if c.conn != nil {
			c.conn.Close()
		}
		return
	}

	if c.err != nil {
		slog.Warn("Push channel connect failed", "error", c.err)
		metrics.ChannelConnectsTotal.WithLabelValues("failed").Inc()
		ch.setState(StateDisconnected)
		ch.scheduleRetry()
		return
	}

	slog.Info("Push channel connected", "account_number", ch.accountNumber)
	metrics.ChannelConnectsTotal.WithLabelValues("connected").Inc()
	ch.conn = c.conn
	ch.setState(StateConnected)
	go ch.read(c.conn, c.gen)
}

// read pumps frames from the socket into the actor until the connection
// drops.
func (ch *Channel) read(conn *websocket.Conn, gen int) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			ch.send(cmdConnLost{gen: gen, err: err})
			return
		}

		var event domain.NotificationEvent
		if err := json.Unmarshal(data, &event); err != nil {
			slog.Warn("Dropping malformed push frame", "error", err)
			continue
		}
		if !ch.send(cmdEvent{gen: gen, event: event}) {
			return
		}
	}
}

func (ch *Channel) handleConnLost(c cmdConnLost) {
	if c.gen != ch.gen {
		return
	}
	slog.Warn("Push channel lost", "error", c.err)
	if ch.conn != nil {
		ch.conn.Close()
		ch.conn = nil
	}
	ch.setState(StateDisconnected)
	ch.scheduleRetry()
}

func (ch *Channel) handleEvent(c cmdEvent) {
	if c.gen != ch.gen {
		return
	}
	metrics.ChannelEventsTotal.Inc()
	ch.sink.OnEvent(c.event)
}

func (ch *Channel) scheduleRetry() {
	gen := ch.gen
	timer := ch.clock.NewTimer(ch.retryDelay)
	go func() {
		select {
		case <-timer.Chan():
			ch.send(cmdRetry{gen: gen})
		case <-ch.done:
			timer.Stop()
		}
	}()
}

func (ch *Channel) handleRetry(c cmdRetry) {
	if c.gen != ch.gen || ch.state != StateDisconnected || ch.accountNumber == "" {
		return
	}
	metrics.ChannelReconnectsTotal.Inc()
	slog.Info("Reconnecting push channel", "account_number", ch.accountNumber)
	ch.dial()
}

func (ch *Channel) handleDisconnect() {
	ch.gen++ // invalidates in-flight dials, readers and retry timers
	ch.accountNumber = ""
	ch.token = ""
	if ch.conn != nil {
		ch.conn.Close()
		ch.conn = nil
	}
	if ch.state != StateDisconnected {
		ch.setState(StateDisconnected)
	}
}

func (ch *Channel) setState(s State) {
	if ch.state == s {
		return
	}
	ch.state = s
	ch.sink.OnStateChange(s)
}

// --- Public API ---

// send delivers a command to the actor. Commands issued after Stop are
// dropped; no public method may block on a dead actor.
func (ch *Channel) send(cmd channelCmd) bool {
	select {
	case <-ch.done:
		return false
	case ch.cmdCh <- cmd:
		return true
	}
}

// Connect starts the channel for the given account. A no-op while a
// connection attempt or live connection exists.
func (ch *Channel) Connect(accountNumber, token string) {
	ch.send(cmdConnect{accountNumber: accountNumber, token: token})
}

// Disconnect tears the channel down and stops reconnecting.
func (ch *Channel) Disconnect() {
	ch.send(cmdDisconnect{})
}

// State reports the current lifecycle phase. A stopped channel reports
// disconnected.
func (ch *Channel) State() State {
	replyCh := make(chan State, 1)
	if !ch.send(cmdGetState{replyCh: replyCh}) {
		return StateDisconnected
	}
	select {
	case state := <-replyCh:
		return state
	case <-ch.done:
		return StateDisconnected
	}
}

// Stop terminates the actor. The channel cannot be reused afterwards;
// later commands are dropped.
func (ch *Channel) Stop() {
	ch.send(cmdStop{})
}
