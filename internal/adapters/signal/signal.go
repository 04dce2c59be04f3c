package signal

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Standup/internal/adapters/capture"
	"github.com/dkeye/Standup/internal/adapters/rtc"
	"github.com/dkeye/Standup/internal/app"
)

var (
	ErrBackpressure = errors.New("backpressure")
	ErrClosed       = errors.New("connection closed")
)

type Options struct {
	ReadLimit    int64
	PingPeriod   time.Duration
	MaxClipBytes int
	ICE          webrtc.Configuration
}

// SignalWSController serves the browser's signal channel: state pushes,
// user intents, microphone chunks and WebRTC negotiation.
type SignalWSController struct {
	Sessions *app.Registry
	Limiter  *IntentRateLimiter
	API      *webrtc.API
	Opts     Options
}

func NewSignalWSController(sessions *app.Registry, limiter *IntentRateLimiter, api *webrtc.API, opts Options) *SignalWSController {
	if opts.PingPeriod <= 0 {
		opts.PingPeriod = 54 * time.Second
	}
	return &SignalWSController{
		Sessions: sessions,
		Limiter:  limiter,
		API:      api,
		Opts:     opts,
	}
}

type WsSignalConn struct {
	conn *websocket.Conn
	send chan []byte

	mu     sync.RWMutex
	closed bool
}

func (c *WsSignalConn) TrySend(f []byte) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrClosed
	}
	select {
	case c.send <- f:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *WsSignalConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

// client is one open signal channel and the capture devices it feeds.
type client struct {
	cid     app.ClientID
	conn    *WsSignalConn
	session *app.Session
	chunks  *capture.ChunkDevice
	track   *rtc.TrackDevice
	device  *capture.Fallback

	mu          sync.Mutex
	media       *rtc.Connection
	unsubscribe func()
}

func (cl *client) setMedia(mc *rtc.Connection) {
	cl.mu.Lock()
	old := cl.media
	cl.media = mc
	cl.mu.Unlock()
	if old != nil {
		old.Close()
	}
}

// dropMedia closes mc if it is still the client's connection.
func (cl *client) dropMedia(mc *rtc.Connection) {
	cl.mu.Lock()
	current := cl.media == mc
	if current {
		cl.media = nil
	}
	cl.mu.Unlock()
	if current {
		mc.Close()
	}
}

func (cl *client) currentMedia() *rtc.Connection {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	return cl.media
}

func (cl *client) close() {
	if cl.unsubscribe != nil {
		cl.unsubscribe()
	}
	cl.session.DetachDevice(cl.device)
	cl.setMedia(nil)
	cl.conn.Close()
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func (ctl *SignalWSController) HandleSignal(ctx context.Context, c *gin.Context) {
	cid := app.ClientID(c.GetString("client_token"))
	log.Info().Str("module", "signal").Str("cid", string(cid)).Msg("new WS connection")

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}
	if ctl.Opts.ReadLimit > 0 {
		ws.SetReadLimit(ctl.Opts.ReadLimit)
	}

	conn := &WsSignalConn{
		conn: ws,
		send: make(chan []byte, 32),
	}

	cl := &client{
		cid:     cid,
		conn:    conn,
		session: ctl.Sessions.GetOrCreate(cid),
		chunks:  capture.NewChunkDevice(ctl.Opts.MaxClipBytes),
		track:   rtc.NewTrackDevice(string(cid)),
	}
	cl.device = capture.NewFallback(cl.track, cl.chunks)
	cl.session.AttachDevice(cl.device)
	cl.unsubscribe = cl.session.Subscribe(func(v app.View) {
		ctl.sendJSON(conn, stateMessage{Type: "state", State: v})
	})

	ctx, cancel := context.WithCancel(ctx)
	go ctl.writePump(ctx, conn)
	go ctl.readPump(ctx, cancel, cl)
}

type stateMessage struct {
	Type  string   `json:"type"`
	State app.View `json:"state"`
}
