package feed

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/6529-Collections/whale-monitor/internal/alert"
	"github.com/6529-Collections/whale-monitor/internal/classify"
	"github.com/6529-Collections/whale-monitor/internal/eth"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

type State int32

const (
	DefaultReadTimeout  = 90 * time.Second
	DefaultPingInterval = 30 * time.Second
)

const (
	Disconnected State = iota
	Connecting
	Subscribed
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Subscribed:
		return "subscribed"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

type Stats struct {
	State            string `json:"feed_state"`
	MessagesReceived uint64 `json:"messages_received"`
	MessagesSkipped  uint64 `json:"messages_skipped"`
	DecodeErrors     uint64 `json:"decode_errors"`
	RPCErrors        uint64 `json:"rpc_errors"`
	HandlerPanics    uint64 `json:"handler_panics"`
	AlertsSent       uint64 `json:"alerts_sent"`
	AlertsFailed     uint64 `json:"alerts_failed"`
	Reconnects       uint64 `json:"reconnects"`
}

// Subscriber owns the feed connection. Messages are handled one at a time,
// in arrival order: the next message is not read until every alert for the
// current one has been delivered or dropped.
type Subscriber struct {
	URL        string
	Dialer     Dialer
	Decoder    eth.TransactionDecoder
	Classifier classify.Classifier
	Formatter  alert.Formatter
	Sink       alert.Sink
	Backoff    Backoff
	// ReadTimeout bounds the silence between frames (messages or pongs)
	// before the connection is treated as dead. Zero disables it.
	ReadTimeout  time.Duration
	PingInterval time.Duration

	state            atomic.Int32
	messagesReceived atomic.Uint64
	messagesSkipped  atomic.Uint64
	decodeErrors     atomic.Uint64
	rpcErrors        atomic.Uint64
	handlerPanics    atomic.Uint64
	alertsSent       atomic.Uint64
	alertsFailed     atomic.Uint64
	reconnects       atomic.Uint64
}

func NewSubscriber(
	url string,
	decoder eth.TransactionDecoder,
	classifier classify.Classifier,
	formatter alert.Formatter,
	sink alert.Sink,
	maxBackoff time.Duration,
) *Subscriber {
	return &Subscriber{
		URL:        url,
		Dialer:     WebsocketDialer{HandshakeTimeout: 15 * time.Second},
		Decoder:    decoder,
		Classifier: classifier,
		Formatter:  formatter,
		Sink:       sink,
		Backoff:    DefaultBackoff(maxBackoff),

		ReadTimeout:  DefaultReadTimeout,
		PingInterval: DefaultPingInterval,
	}
}

func (s *Subscriber) State() State {
	return State(s.state.Load())
}

func (s *Subscriber) Stats() Stats {
	return Stats{
		State:            s.State().String(),
		MessagesReceived: s.messagesReceived.Load(),
		MessagesSkipped:  s.messagesSkipped.Load(),
		DecodeErrors:     s.decodeErrors.Load(),
		RPCErrors:        s.rpcErrors.Load(),
		HandlerPanics:    s.handlerPanics.Load(),
		AlertsSent:       s.alertsSent.Load(),
		AlertsFailed:     s.alertsFailed.Load(),
		Reconnects:       s.reconnects.Load(),
	}
}

func (s *Subscriber) setState(next State) {
	prev := State(s.state.Swap(int32(next)))
	if prev != next {
		zap.L().Info("Feed state changed",
			zap.Stringer("from", prev),
			zap.Stringer("to", next),
		)
	}
}

// Announce sends the startup message. Failures are logged, never returned.
func (s *Subscriber) Announce(ctx context.Context) {
	if err := s.Sink.Send(ctx, alert.Notification{Text: s.Formatter.Startup()}); err != nil {
		zap.L().Error("Failed to send startup announcement", zap.Error(err))
		return
	}
	zap.L().Info("Startup announcement sent")
}

// Run keeps the feed subscribed until ctx is cancelled, reconnecting with
// backoff whenever the connection drops or cannot be established.
func (s *Subscriber) Run(ctx context.Context) error {
	attempt := 0
	for {
		if ctx.Err() != nil {
			s.setState(Disconnected)
			return nil
		}

		subscribed, err := s.runOnce(ctx)
		s.setState(Disconnected)
		if ctx.Err() != nil {
			return nil
		}

		if subscribed {
			attempt = 0
		}
		attempt++
		delay := s.Backoff.Delay(attempt)
		zap.L().Warn("Feed connection closed, reconnecting",
			zap.Error(err),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", delay),
		)
		if sleepInterrupted(ctx, delay) {
			return nil
		}
		s.reconnects.Add(1)
	}
}

func (s *Subscriber) runOnce(ctx context.Context) (bool, error) {
	s.setState(Connecting)
	conn, err := s.Dialer.Dial(ctx, s.URL)
	if err != nil {
		return false, err
	}
	defer conn.Close()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()

	if err := conn.WriteJSON(minedTransactionsSubscription); err != nil {
		return false, fmt.Errorf("%w: sending subscription: %v", ErrConnection, err)
	}
	s.setState(Subscribed)
	zap.L().Info("Subscription request sent", zap.Strings("params", minedTransactionsSubscription.Params))

	if err := s.extendReadDeadline(conn); err != nil {
		return true, fmt.Errorf("%w: read deadline: %v", ErrConnection, err)
	}
	conn.SetPongHandler(func(string) error {
		return s.extendReadDeadline(conn)
	})
	if s.PingInterval > 0 {
		go s.keepAlive(conn, done)
	}

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return true, fmt.Errorf("%w: read: %v", ErrConnection, err)
		}
		if err := s.extendReadDeadline(conn); err != nil {
			return true, fmt.Errorf("%w: read deadline: %v", ErrConnection, err)
		}
		if err := s.HandleMessage(ctx, msg); err != nil {
			return false, err
		}
	}
}

func (s *Subscriber) extendReadDeadline(conn Conn) error {
	if s.ReadTimeout <= 0 {
		return nil
	}
	return conn.SetReadDeadline(time.Now().Add(s.ReadTimeout))
}

// keepAlive pings until done is closed. A failed ping closes conn so the read
// loop reports the drop.
func (s *Subscriber) keepAlive(conn Conn, done <-chan struct{}) {
	ticker := time.NewTicker(s.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(s.PingInterval)); err != nil {
				zap.L().Warn("Feed ping failed", zap.Error(err))
				_ = conn.Close()
				return
			}
		}
	}
}

// HandleMessage runs one raw feed message through decode, classify and
// delivery. Nothing that goes wrong here escapes to the read loop, except a
// JSON-RPC error reply from the feed, which is returned as an ErrConnection
// so the connection is re-established.
func (s *Subscriber) HandleMessage(ctx context.Context, raw []byte) error {
	s.messagesReceived.Add(1)
	defer func() {
		if r := recover(); r != nil {
			s.handlerPanics.Add(1)
			zap.L().Error("Recovered from panic while handling feed message",
				zap.Any("panic", r),
				zap.ByteString("message", raw),
			)
		}
	}()

	zap.L().Debug("Raw message received", zap.ByteString("message", raw))

	tx, decodeErr := s.Decoder.Decode(raw)
	if decodeErr != nil {
		var rpcErr *eth.RPCError
		if errors.As(decodeErr, &rpcErr) {
			s.rpcErrors.Add(1)
			zap.L().Error("Feed returned a JSON-RPC error, reconnecting", zap.Error(rpcErr))
			return fmt.Errorf("%w: %v", ErrConnection, rpcErr)
		}
		s.decodeErrors.Add(1)
		zap.L().Error("Failed to decode feed message", zap.Error(decodeErr))
		return nil
	}
	if tx == nil {
		s.messagesSkipped.Add(1)
		return nil
	}
	zap.L().Debug("Processing transaction", zap.String("txHash", tx.Hash))

	events := s.Classifier.Classify(ctx, *tx)
	for i := range events {
		s.deliver(ctx, &events[i])
	}
	return nil
}

func (s *Subscriber) deliver(ctx context.Context, ev *alert.Event) {
	n := alert.Notification{Text: s.Formatter.Format(*ev), Event: ev}
	if err := s.Sink.Send(ctx, n); err != nil {
		s.alertsFailed.Add(1)
		zap.L().Error("Failed to deliver whale alert",
			zap.Stringer("kind", ev.Kind),
			zap.String("txHash", ev.Tx.Hash),
			zap.Error(err),
		)
		return
	}
	s.alertsSent.Add(1)
	zap.L().Info("Whale alert delivered",
		zap.Stringer("kind", ev.Kind),
		zap.String("symbol", ev.Symbol),
		zap.String("amount", ev.Amount.String()),
		zap.String("txHash", ev.Tx.Hash),
	)
}
