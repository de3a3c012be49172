package app

import (
	"sort"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"freechat/internal/core"
	"freechat/internal/domain"
	"freechat/internal/protocol"
)

// roomState is a room plus its connection-lifetime membership. Rooms
// are created lazily on first join and live for the process lifetime;
// only the log survives a restart.
type roomState struct {
	meta    domain.Room
	members map[core.SessionID]struct{}
	log     *core.BoundedLog[domain.Message]
}

// JoinRoom adds the caller to the room, creating it if absent. The
// joiner alone receives the room history, then every member (joiner
// included) gets the updated membership set.
func (c *Coordinator) JoinRoom(sid core.SessionID, name domain.RoomName) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, ok := c.sessions[sid]
	if !ok {
		return
	}
	r, ok := c.rooms[name]
	if !ok {
		r = &roomState{
			meta:    domain.Room{Name: name, Creator: s.user.ID},
			members: make(map[core.SessionID]struct{}),
			log:     core.NewBoundedLog[domain.Message](c.capacity),
		}
		c.rooms[name] = r
		log.Info().Str("module", "app").Str("room", string(name)).Str("creator", string(s.user.ID)).Msg("room created")
	}
	// A room restored from disk has no creator; the first joiner
	// after restart claims it.
	if r.meta.Creator == "" {
		r.meta.Creator = s.user.ID
	}
	r.members[sid] = struct{}{}

	c.send(s.conn, protocol.RoomHistory{
		Type:     protocol.TypeRoomHistory,
		Room:     string(name),
		Messages: r.log.Snapshot(),
	})
	c.broadcastRoomMembers(r)
}

// PostRoom appends a message to the room log and fans it out to the
// current members. Posting requires membership.
func (c *Coordinator) PostRoom(sid core.SessionID, name domain.RoomName, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, ok := c.sessions[sid]
	if !ok {
		return nil
	}
	r, ok := c.rooms[name]
	if !ok {
		return ErrRoomNotFound
	}
	if _, member := r.members[sid]; !member {
		return ErrNotMember
	}

	msg := domain.Message{
		Sender:    s.user.DisplayName(),
		Text:      text,
		Timestamp: c.now(),
	}
	r.log.Append(msg)
	c.persist()

	frame := protocol.RoomMessageOut{Type: protocol.TypeRoomMessage, Room: string(name), Message: msg}
	for member := range r.members {
		c.send(c.sessions[member].conn, frame)
	}
	return nil
}

// Kick removes every member currently using the target display name.
// Only the room creator may kick. Each removed session gets exactly
// one kicked notification naming the room, then the remaining members
// see the updated set.
func (c *Coordinator) Kick(sid core.SessionID, name domain.RoomName, target string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, ok := c.sessions[sid]
	if !ok {
		return nil
	}
	r, ok := c.rooms[name]
	if !ok {
		return ErrRoomNotFound
	}
	if r.meta.Creator != s.user.ID {
		return ErrNotRoomCreator
	}

	var kicked []core.SessionID
	for member := range r.members {
		if c.sessions[member].user.DisplayName() == target {
			kicked = append(kicked, member)
		}
	}
	if len(kicked) == 0 {
		return ErrTargetNotMember
	}

	frame := protocol.Kicked{Type: protocol.TypeKicked, Room: string(name)}
	for _, member := range kicked {
		delete(r.members, member)
		c.send(c.sessions[member].conn, frame)
	}
	c.broadcastRoomMembers(r)
	log.Info().Str("module", "app").Str("room", string(name)).Str("target", target).Msg("member kicked")
	return nil
}

func (c *Coordinator) broadcastRoomMembers(r *roomState) {
	names := lo.FilterMap(lo.Keys(r.members), func(sid core.SessionID, _ int) (string, bool) {
		s, ok := c.sessions[sid]
		if !ok {
			return "", false
		}
		return s.user.DisplayName(), true
	})
	sort.Strings(names)

	frame := protocol.RoomMembers{
		Type:    protocol.TypeRoomMembers,
		Room:    string(r.meta.Name),
		Members: names,
	}
	for member := range r.members {
		c.send(c.sessions[member].conn, frame)
	}
}
