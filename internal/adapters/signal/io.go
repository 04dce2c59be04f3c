package signal

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Standup/internal/adapters/apierr"
)

const writeWait = 5 * time.Second

func (ctl *SignalWSController) writePump(ctx context.Context, c *WsSignalConn) {
	ping := time.NewTicker(ctl.Opts.PingPeriod)
	defer ping.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "signal").Msg("writePump ctx done")
			return
		case <-ping.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				log.Warn().Err(err).Str("module", "signal").Msg("writePump ping")
				return
			}
		case data, ok := <-c.send:
			if !ok {
				log.Info().Str("module", "signal").Msg("writePump channel closed")
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump write error")
				return
			}
		}
	}
}

func (ctl *SignalWSController) readPump(ctx context.Context, cancel context.CancelFunc, cl *client) {
	defer func() {
		log.Info().Str("module", "signal").Str("cid", string(cl.cid)).Msg("readPump closing")
		cancel()
		cl.close()
		ctl.Limiter.Forget(string(cl.cid))
	}()

	pongWait := ctl.Opts.PingPeriod * 10 / 9
	_ = cl.conn.conn.SetReadDeadline(time.Now().Add(pongWait))
	cl.conn.conn.SetPongHandler(func(string) error {
		return cl.conn.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "signal").Str("cid", string(cl.cid)).Msg("readPump ctx done")
			return
		default:
			mt, data, err := cl.conn.conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Error().Err(err).Str("module", "signal").Str("cid", string(cl.cid)).Msg("readPump read error")
				}
				return
			}
			_ = cl.conn.conn.SetReadDeadline(time.Now().Add(pongWait))
			if mt == websocket.BinaryMessage {
				if !cl.chunks.Write(data) {
					log.Debug().Str("module", "signal").Str("cid", string(cl.cid)).Int("size", len(data)).Msg("audio chunk outside capture")
				}
				continue
			}
			ctl.handleSignal(ctx, cl, data)
		}
	}
}

// unlimited message types are not counted against the intent rate limit.
var unlimited = map[string]bool{
	"ping":      true,
	"candidate": true,
	"capture":   true,
}

func (ctl *SignalWSController) handleSignal(ctx context.Context, cl *client, data []byte) {
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad json")
		ctl.sendError(cl.conn, apierr.CodeBadPayload)
		return
	}
	if !unlimited[env.Type] && !ctl.Limiter.Allow(string(cl.cid)) {
		log.Warn().Str("module", "signal").Str("cid", string(cl.cid)).Str("type", env.Type).Msg("intent rate limited")
		ctl.sendError(cl.conn, apierr.CodeRateLimited)
		return
	}

	switch env.Type {
	case "ping":
		ctl.handlePing(cl.conn)
	case "add_member":
		ctl.handleAddMember(cl, data)
	case "remove_member":
		ctl.handleRemoveMember(cl, data)
	case "build_queue":
		cl.session.BuildQueue()
	case "shuffle":
		cl.session.ShuffleQueue()
	case "rotate":
		cl.session.RotateQueue()
	case "dequeue":
		ctl.handleDequeue(cl, data)
	case "start":
		ctl.handleStart(ctx, cl, data)
	case "stop":
		ctl.handleStop(cl)
	case "save_preset":
		ctl.handleSavePreset(cl, data)
	case "load_preset":
		ctl.handleLoadPreset(cl, data)
	case "capture":
		ctl.handleCapture(cl, data)
	case "offer":
		ctl.handleOffer(ctx, cl, data)
	case "candidate":
		ctl.handleCandidate(cl, data)
	default:
		log.Warn().Str("module", "signal").Str("type", env.Type).Msg("unknown signal")
		ctl.sendError(cl.conn, apierr.CodeUnknownType)
	}
}

func (ctl *SignalWSController) sendJSON(c *WsSignalConn, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("sendJSON marshal")
		return
	}
	if err := c.TrySend(b); err != nil && !errors.Is(err, ErrClosed) {
		log.Warn().Err(err).Str("module", "signal").Msg("sendJSON dropped")
	}
}

func (ctl *SignalWSController) sendError(c *WsSignalConn, code string) {
	ctl.sendJSON(c, map[string]any{
		"type":  "error",
		"error": code,
	})
}

// reply sends err back as an error code. Nil errors send nothing.
func (ctl *SignalWSController) reply(c *WsSignalConn, err error) {
	if err == nil {
		return
	}
	ctl.sendError(c, apierr.Code(err))
}
