package signal

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"freechat/internal/core"
	"freechat/internal/protocol"
)

func (ctl *Controller) handlePrivateMessage(sid core.SessionID, conn *WsConn, data []byte) {
	var p protocol.PrivateMessageIn
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad private_message payload")
		ctl.sendError(conn, "bad_payload")
		return
	}
	if p.To == "" || p.Text == "" {
		ctl.sendError(conn, "bad_payload")
		return
	}
	if !ctl.allow(sid, conn) {
		return
	}
	if err := ctl.coord.SendDirect(sid, p.To, p.Text); err != nil {
		ctl.sendError(conn, err.Error())
	}
}

func (ctl *Controller) handleDMHistoryRequest(sid core.SessionID, conn *WsConn, data []byte) {
	var p protocol.DMHistoryRequest
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad request_dm_history payload")
		ctl.sendError(conn, "bad_payload")
		return
	}
	ctl.coord.DirectHistory(sid, p.Target)
}

func (ctl *Controller) handleTyping(sid core.SessionID, conn *WsConn, data []byte) {
	var p protocol.DMTypingIn
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad dm_typing payload")
		ctl.sendError(conn, "bad_payload")
		return
	}
	if p.To == "" {
		return
	}
	ctl.coord.Typing(sid, p.To)
}
