package relay

import (
	"context"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/fasthttp/websocket"
	"github.com/pkg/errors"

	"github.com/sonirico/eventer"
)

type (
	dialParamsRepo interface {
		Get(ctx context.Context) (DialParams, error)
	}

	ErrAdapter func(*websocket.Conn, *http.Response, error) error

	ErrorAdapters struct {
		OnDial ErrAdapter
	}

	// WsConnection is a Connection over a websocket.
	WsConnection struct {
		errAdapters    ErrorAdapters
		dialParamsRepo dialParamsRepo
		logger         eventer.Logger
		dialer         *websocket.Dialer
		writeTimeout   time.Duration

		conn   *websocket.Conn
		connMu sync.Mutex

		closeChan       CloseChan
		closeOnce       sync.Once
		closeReason     error
		closeReasonOnce sync.Once
		closeReasonMu   sync.RWMutex

		recv chan<- Frame // frames received over the wire
		send chan Frame   // frames to be sent over the wire
	}
)

const defaultWriteTimeout = time.Second

func NewWebsocketConnection(
	dialer *websocket.Dialer,
	repo dialParamsRepo,
	logger eventer.Logger,
	recv chan<- Frame,
	adapters ErrorAdapters,
	writeTimeout time.Duration,
) *WsConnection {
	if writeTimeout <= 0 {
		writeTimeout = defaultWriteTimeout
	}

	return &WsConnection{
		errAdapters:    adapters,
		dialer:         dialer,
		dialParamsRepo: repo,
		writeTimeout:   writeTimeout,
		recv:           recv,
		send:           make(chan Frame),
		closeChan:      make(CloseChan),
		logger:         logger.WithField("net", "ws_connection"),
	}
}

func NewWebsocketFactory(
	logger eventer.Logger,
	dialer *websocket.Dialer,
	repo DialParamsRepo,
	adapters ErrorAdapters,
	writeTimeout time.Duration,
) ConnectionFactory {
	return func(_ context.Context, recv chan<- Frame) Connection {
		return NewWebsocketConnection(dialer, repo, logger, recv, adapters, writeTimeout)
	}
}

// Write hands f to the writer goroutine. It fails once the connection is closed.
func (w *WsConnection) Write(f Frame) error {
	select {
	case w.send <- f:
		return nil
	case <-w.closeChan:
		return errors.WithStack(ErrConnectionClosed)
	}
}

func (w *WsConnection) Close() {
	w.setCloseReason(ErrTerminated)
	w.safeClose()
}

// Open dials the peer and starts the reader and writer goroutines.
func (w *WsConnection) Open(ctx context.Context) error {
	p, err := w.dialParamsRepo.Get(ctx)
	if err != nil {
		return errors.Wrap(ErrCannotConnect, err.Error())
	}

	conn, resp, err := w.dialer.DialContext(ctx, p.URL.String(), p.Header)
	if err = w.handleDialError(p, conn, resp, err); err != nil {
		w.logger.Errorf("connection err to %s: %s", p.URL.String(), err)
		return err
	}

	w.logger.Debugf("success opening connection to %s", p.URL.String())

	w.connMu.Lock()
	w.conn = conn
	w.connMu.Unlock()

	// Control frames are surfaced as frames so the relay decides how to answer.
	conn.SetPingHandler(func(appData string) error {
		w.logger.Debugln("<= [PING]")
		w.deliver(NewPingFrame([]byte(appData)))
		return nil
	})

	conn.SetPongHandler(func(appData string) error {
		w.logger.Debugln("<= [PONG]")
		w.deliver(NewPongFrame([]byte(appData)))
		return nil
	})

	conn.SetCloseHandler(func(code int, text string) error {
		w.logger.Debugln("<= [CLOSE]")
		w.deliver(NewCloseFrame(code, []byte(text)))
		return nil
	})

	go w.read(conn)
	go w.write(ctx, conn)

	return nil
}

func (w *WsConnection) CloseChan() CloseChan {
	return w.closeChan
}

func (w *WsConnection) CloseErr() error {
	w.closeReasonMu.RLock()
	defer w.closeReasonMu.RUnlock()
	return w.closeReason
}

func (w *WsConnection) read(conn *websocket.Conn) {
	defer w.safeClose()

	for {
		messageType, bts, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				w.setCloseReason(errors.Wrap(ErrConnectionClosed, "closed by peer"))
			} else {
				w.setCloseReason(errors.Wrap(ErrConnectionClosed, "websocket read: "+err.Error()))
			}
			return
		}

		switch messageType {
		case websocket.BinaryMessage:
			w.logger.Debugln("<= [BIN]")
			w.deliver(NewBinaryFrame(bts))
		default:
			w.logger.Debugf("<= [DATA] %s", bts)
			w.deliver(NewDataFrame(bts))
		}
	}
}

func (w *WsConnection) write(ctx context.Context, conn *websocket.Conn) {
	defer w.safeClose()

	for {
		select {
		case <-w.closeChan:
			return
		case <-ctx.Done():
			w.setCloseReason(ErrTerminated)
			return
		case f := <-w.send:
			deadline := time.Now().Add(w.writeTimeout)
			_ = conn.SetWriteDeadline(deadline)

			var err error

			switch f.Type() {
			case PingFrame:
				w.logger.Debugln("=> [PING]")
				err = conn.WriteControl(websocket.PingMessage, f.Data(), deadline)
			case PongFrame:
				w.logger.Debugln("=> [PONG]")
				err = conn.WriteControl(websocket.PongMessage, f.Data(), deadline)
			case BinaryFrame:
				w.logger.Debugln("=> [BIN]")
				err = conn.WriteMessage(websocket.BinaryMessage, f.Data())
			case DataFrame:
				w.logger.Debugf("=> [DATA] %s", f.Data())
				err = conn.WriteMessage(websocket.TextMessage, f.Data())
			case CloseFrame:
				err = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(f.Code(), string(f.Data())), deadline)
			}

			if err != nil {
				w.logger.Errorf("error occurred on websocket write: %s", err)
				w.setCloseReason(errors.Wrap(ErrConnectionClosed, "websocket write: "+err.Error()))
				return
			}
		}
	}
}

// deliver pushes f to the relay unless the connection is going away.
func (w *WsConnection) deliver(f Frame) {
	select {
	case w.recv <- f:
	case <-w.closeChan:
	}
}

func (w *WsConnection) safeClose() {
	w.closeOnce.Do(w.close)
}

func (w *WsConnection) close() {
	close(w.closeChan)

	w.connMu.Lock()
	conn := w.conn
	w.connMu.Unlock()

	if conn == nil {
		return
	}

	_ = conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(w.writeTimeout),
	)
	_ = conn.Close()
}

// setCloseReason keeps the first reason only.
func (w *WsConnection) setCloseReason(err error) {
	w.closeReasonOnce.Do(func() {
		w.closeReasonMu.Lock()
		w.closeReason = err
		w.closeReasonMu.Unlock()
	})
}

func (w *WsConnection) handleDialError(p DialParams, conn *websocket.Conn, resp *http.Response, err error) error {
	if w.errAdapters.OnDial != nil {
		return w.errAdapters.OnDial(conn, resp, err)
	}

	if err == nil {
		return nil
	}

	// 1. HTTP errors: the handshake reached the server and was refused.
	if resp != nil {
		var msg string
		if resp.Body != nil {
			if bts, readErr := io.ReadAll(resp.Body); readErr == nil {
				msg = string(bts)
			}
		}

		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			return errors.Wrap(ErrRateLimit, msg)
		case resp.StatusCode >= 400 && resp.StatusCode < 500:
			return WrapUnrecoverableConnection(
				errors.Wrapf(ErrCannotConnect, "handshake rejected with %d: %s", resp.StatusCode, msg),
				p.URL,
			)
		}
	}

	// 2. Network errors
	return errors.Wrap(ErrCannotConnect, err.Error())
}
