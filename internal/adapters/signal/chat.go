package signal

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"freechat/internal/core"
	"freechat/internal/protocol"
)

func (ctl *Controller) handleSetUsername(sid core.SessionID, conn *WsConn, data []byte) {
	var p protocol.SetUsername
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad set_username payload")
		ctl.sendError(conn, "bad_payload")
		return
	}
	ctl.coord.SetName(sid, p.Name)
}

func (ctl *Controller) handleChatMessage(sid core.SessionID, conn *WsConn, data []byte) {
	var p protocol.ChatMessageIn
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad chat_message payload")
		ctl.sendError(conn, "bad_payload")
		return
	}
	if p.Text == "" {
		return
	}
	if !ctl.allow(sid, conn) {
		return
	}
	ctl.coord.PostPublic(sid, p.Text)
}
