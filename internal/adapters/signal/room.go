package signal

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"freechat/internal/core"
	"freechat/internal/domain"
	"freechat/internal/protocol"
)

func roomName(raw string) domain.RoomName {
	if len(raw) > domain.MaxRoomNameLen {
		raw = raw[:domain.MaxRoomNameLen]
	}
	return domain.RoomName(raw)
}

func (ctl *Controller) handleJoinRoom(sid core.SessionID, conn *WsConn, data []byte) {
	var p protocol.JoinRoom
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad join_room payload")
		ctl.sendError(conn, "bad_payload")
		return
	}
	if p.Room == "" {
		ctl.sendError(conn, "empty room name")
		return
	}
	log.Info().Str("module", "signal").Str("sid", string(sid)).Str("room", p.Room).Msg("join")
	ctl.coord.JoinRoom(sid, roomName(p.Room))
}

func (ctl *Controller) handleRoomMessage(sid core.SessionID, conn *WsConn, data []byte) {
	var p protocol.RoomMessageIn
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad room_message payload")
		ctl.sendError(conn, "bad_payload")
		return
	}
	if p.Room == "" || p.Text == "" {
		ctl.sendError(conn, "bad_payload")
		return
	}
	if !ctl.allow(sid, conn) {
		return
	}
	if err := ctl.coord.PostRoom(sid, roomName(p.Room), p.Text); err != nil {
		ctl.sendError(conn, err.Error())
	}
}

func (ctl *Controller) handleKickUser(sid core.SessionID, conn *WsConn, data []byte) {
	var p protocol.KickUser
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad kick_user payload")
		ctl.sendError(conn, "bad_payload")
		return
	}
	if p.Room == "" || p.Target == "" {
		ctl.sendError(conn, "bad_payload")
		return
	}
	log.Info().Str("module", "signal").Str("sid", string(sid)).Str("room", p.Room).Str("target", p.Target).Msg("kick")
	if err := ctl.coord.Kick(sid, roomName(p.Room), p.Target); err != nil {
		ctl.sendError(conn, err.Error())
	}
}
