package app

import (
	"github.com/rs/zerolog/log"

	"freechat/internal/core"
	"freechat/internal/domain"
	"freechat/internal/protocol"
)

// SendDirect routes one private message. The target must be online
// under that display name, otherwise nothing is logged and the caller
// gets ErrRecipientOffline to surface to the sender.
func (c *Coordinator) SendDirect(sid core.SessionID, to, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, ok := c.sessions[sid]
	if !ok {
		return nil
	}
	targets := c.sessionsNamed(to)
	if len(targets) == 0 {
		return ErrRecipientOffline
	}

	from := s.user.DisplayName()
	dm := domain.DirectMessage{
		From:      from,
		To:        to,
		Text:      text,
		Timestamp: c.now(),
	}
	key := domain.PairKey(from, to)
	l, ok := c.direct[key]
	if !ok {
		l = core.NewBoundedLog[domain.DirectMessage](c.capacity)
		c.direct[key] = l
	}
	l.Append(dm)
	c.persist()

	frame := protocol.PrivateMessageOut{Type: protocol.TypePrivateMessage, DirectMessage: dm}
	c.send(s.conn, frame)
	for _, target := range targets {
		if target == sid {
			continue
		}
		c.send(c.sessions[target].conn, frame)
	}
	log.Debug().Str("module", "app").Str("from", from).Str("to", to).Msg("direct message delivered")
	return nil
}

// DirectHistory sends the caller the full pair log with the other
// participant, empty if the pair never exchanged a message.
func (c *Coordinator) DirectHistory(sid core.SessionID, other string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, ok := c.sessions[sid]
	if !ok {
		return
	}
	messages := []domain.DirectMessage{}
	if l, ok := c.direct[domain.PairKey(s.user.DisplayName(), other)]; ok {
		messages = l.Snapshot()
	}
	c.send(s.conn, protocol.DMHistory{
		Type:     protocol.TypeDMHistory,
		Target:   other,
		Messages: messages,
	})
}

// Typing relays an ephemeral typing signal to the target's
// connections. Nothing is stored and an offline target is ignored; the
// receiving side owns the auto-clear timeout.
func (c *Coordinator) Typing(sid core.SessionID, to string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, ok := c.sessions[sid]
	if !ok {
		return
	}
	frame := protocol.DMTypingOut{Type: protocol.TypeDMTyping, From: s.user.DisplayName()}
	for _, target := range c.sessionsNamed(to) {
		if target == sid {
			continue
		}
		c.send(c.sessions[target].conn, frame)
	}
}

// sessionsNamed lists the sessions currently using a display name, in
// connect order.
func (c *Coordinator) sessionsNamed(name string) []core.SessionID {
	out := make([]core.SessionID, 0, 1)
	for _, id := range c.order {
		if c.sessions[id].user.DisplayName() == name {
			out = append(out, id)
		}
	}
	return out
}
