package signal

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Standup/internal/adapters/apierr"
	"github.com/dkeye/Standup/internal/adapters/capture"
	"github.com/dkeye/Standup/internal/domain"
)

func (ctl *SignalWSController) handlePing(
	conn *WsSignalConn,
) {
	resp := struct {
		Type string `json:"type"`
	}{
		Type: "pong",
	}
	ctl.sendJSON(conn, resp)
}

// decode unmarshals data into p, answering bad_payload on failure.
func (ctl *SignalWSController) decode(cl *client, data []byte, p any) bool {
	if err := json.Unmarshal(data, p); err != nil {
		log.Error().Err(err).Str("module", "signal").Str("cid", string(cl.cid)).Msg("bad payload")
		ctl.sendError(cl.conn, apierr.CodeBadPayload)
		return false
	}
	return true
}

func (ctl *SignalWSController) handleAddMember(cl *client, data []byte) {
	var p struct {
		Name      string `json:"name"`
		Role      string `json:"role"`
		TimeLimit int    `json:"time_limit"`
	}
	if !ctl.decode(cl, data, &p) {
		return
	}
	role, err := domain.ParseRole(p.Role)
	if err != nil {
		ctl.reply(cl.conn, err)
		return
	}
	_, _, err = cl.session.AddMember(p.Name, role, p.TimeLimit)
	ctl.reply(cl.conn, err)
}

type idPayload struct {
	ID string `json:"id"`
}

func (ctl *SignalWSController) handleRemoveMember(cl *client, data []byte) {
	var p idPayload
	if !ctl.decode(cl, data, &p) {
		return
	}
	ctl.reply(cl.conn, cl.session.RemoveMember(domain.MemberID(p.ID)))
}

func (ctl *SignalWSController) handleDequeue(cl *client, data []byte) {
	var p idPayload
	if !ctl.decode(cl, data, &p) {
		return
	}
	ctl.reply(cl.conn, cl.session.Dequeue(domain.MemberID(p.ID)))
}

func (ctl *SignalWSController) handleStart(ctx context.Context, cl *client, data []byte) {
	var p struct {
		MemberID string `json:"member_id"`
	}
	if !ctl.decode(cl, data, &p) {
		return
	}
	err := cl.session.StartRecording(ctx, domain.MemberID(p.MemberID))
	if err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("cid", string(cl.cid)).Msg("start")
	}
	ctl.reply(cl.conn, err)
}

func (ctl *SignalWSController) handleStop(cl *client) {
	_, _, err := cl.session.StopRecording()
	ctl.reply(cl.conn, err)
}

func (ctl *SignalWSController) handleSavePreset(cl *client, data []byte) {
	var p struct {
		Name string `json:"name"`
	}
	if !ctl.decode(cl, data, &p) {
		return
	}
	_, _, err := cl.session.SavePreset(p.Name)
	ctl.reply(cl.conn, err)
}

func (ctl *SignalWSController) handleLoadPreset(cl *client, data []byte) {
	var p idPayload
	if !ctl.decode(cl, data, &p) {
		return
	}
	ctl.reply(cl.conn, cl.session.LoadPreset(domain.PresetID(p.ID)))
}

// handleCapture records the microphone permission the browser got from
// getUserMedia. Start answers from it.
func (ctl *SignalWSController) handleCapture(cl *client, data []byte) {
	var p struct {
		State string `json:"state"`
		Mime  string `json:"mime"`
	}
	if !ctl.decode(cl, data, &p) {
		return
	}
	perm, ok := capture.ParsePermission(p.State)
	if !ok {
		ctl.sendError(cl.conn, apierr.CodeBadPayload)
		return
	}
	cl.chunks.Report(perm, p.Mime)
	log.Info().Str("module", "signal").Str("cid", string(cl.cid)).Str("state", p.State).Str("mime", p.Mime).Msg("capture state")
}
