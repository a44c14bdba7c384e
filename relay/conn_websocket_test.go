package relay

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/fasthttp/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sonirico/eventer"
)

func newTestServer(t *testing.T) (*httptest.Server, chan *websocket.Conn) {
	t.Helper()

	conns := make(chan *websocket.Conn, 4)
	upgrader := websocket.Upgrader{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		conns <- conn
	}))
	t.Cleanup(srv.Close)

	return srv, conns
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestWebsocketRelay(t *testing.T) {
	srv, conns := newTestServer(t)

	registry := eventer.New[string, greeting]()
	got := make(chan greeting, 1)
	registry.On("helloEvent", eventer.NewListener(func(g greeting) { got <- g }))

	cfg := DefaultConfig()
	cfg.URL = wsURL(srv)
	cfg.PingInterval = 0

	r, err := NewWebsocketRelay(registry, JSONCodec[greeting]{}, cfg)
	require.NoError(t, err)
	require.NoError(t, r.Open(context.Background()))
	defer r.Close()

	server := receive(t, conns)
	defer server.Close()

	t.Run("inbound envelope is dispatched", func(t *testing.T) {
		require.NoError(t, server.WriteMessage(websocket.TextMessage,
			[]byte(`{"event":"helloEvent","data":{"eventData":"Hello there!"}}`)))

		assert.Equal(t, greeting{EventData: "Hello there!"}, receive(t, got))
	})

	t.Run("outbound event is sent", func(t *testing.T) {
		require.NoError(t, r.Send("byeEvent", greeting{EventData: "bye"}))

		_ = server.SetReadDeadline(time.Now().Add(2 * time.Second))
		mt, data, err := server.ReadMessage()
		require.NoError(t, err)
		assert.Equal(t, websocket.TextMessage, mt)
		assert.JSONEq(t, `{"event":"byeEvent","data":{"eventData":"bye"}}`, string(data))
	})

	t.Run("ping is answered", func(t *testing.T) {
		pongs := make(chan string, 1)
		server.SetPongHandler(func(appData string) error {
			pongs <- appData
			return nil
		})
		go func() {
			for {
				if _, _, err := server.ReadMessage(); err != nil {
					return
				}
			}
		}()

		require.NoError(t, server.WriteControl(websocket.PingMessage, []byte("p1"), time.Now().Add(time.Second)))
		assert.Equal(t, "p1", receive(t, pongs))
	})
}

func TestWebsocketRelayReconnectsAfterPeerClose(t *testing.T) {
	srv, conns := newTestServer(t)

	cfg := DefaultConfig()
	cfg.URL = wsURL(srv)
	cfg.PingInterval = 0

	r, err := NewWebsocketRelay(eventer.New[string, greeting](), JSONCodec[greeting]{}, cfg, noBackoff())
	require.NoError(t, err)

	reconnects := make(chan Status, 1)
	disconnects := make(chan Status, 1)
	r.Lifecycle().
		On(EventReconnect, eventer.NewListener(func(s Status) { reconnects <- s })).
		On(EventDisconnect, eventer.NewListener(func(s Status) { disconnects <- s }))

	require.NoError(t, r.Open(context.Background()))
	defer r.Close()

	first := receive(t, conns)
	_ = first.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseGoingAway, "bye"), time.Now().Add(time.Second))
	_ = first.Close()

	assert.ErrorIs(t, receive(t, disconnects).Err, ErrConnectionClosed)

	second := receive(t, conns)
	defer second.Close()
	receive(t, reconnects)
}

func TestWebsocketDialErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		check  func(t *testing.T, err error)
	}{
		{
			name:   "rate limited",
			status: http.StatusTooManyRequests,
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrRateLimit)
			},
		},
		{
			name:   "forbidden",
			status: http.StatusForbidden,
			check: func(t *testing.T, err error) {
				var unrecoverable *UnrecoverableConnectionError
				assert.ErrorAs(t, err, &unrecoverable)
				assert.ErrorIs(t, err, ErrCannotConnect)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				http.Error(w, "go away", tt.status)
			}))
			defer srv.Close()

			cfg := DefaultConfig()
			cfg.URL = wsURL(srv)
			cfg.MaxConnectAttempts = 1

			r, err := NewWebsocketRelay(eventer.New[string, greeting](), JSONCodec[greeting]{}, cfg)
			require.NoError(t, err)

			err = r.Open(context.Background())
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}

func TestWebsocketConnectionCloseIsIdempotent(t *testing.T) {
	recv := make(chan Frame, 1)
	u := DialParams{}
	conn := NewWebsocketConnection(
		websocket.DefaultDialer,
		NewDialParamsRepo(eventer.NopLogger(), StaticDialParams(u)),
		eventer.NopLogger(),
		recv,
		ErrorAdapters{},
		0,
	)

	assert.NotPanics(t, func() {
		conn.Close()
		conn.Close()
	})
	assert.ErrorIs(t, conn.CloseErr(), ErrTerminated)
	assert.ErrorIs(t, conn.Write(NewDataFrame(nil)), ErrConnectionClosed)
}
