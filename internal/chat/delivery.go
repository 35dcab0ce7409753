package chat

import (
	"github.com/kingrea/chathub/internal/domain"
	"github.com/kingrea/chathub/internal/ids"
	"github.com/kingrea/chathub/internal/seed"
)

// reconcileLoopLocked makes the delivery loop match the current identity
// and room: at most one loop, bound to exactly that pair, and none when
// either is missing. Callers hold s.mu.
func (s *Store) reconcileLoopLocked() {
	if s.closed || !s.simulation.Enabled || s.identity == nil || s.state.CurrentRoomID == "" {
		s.stopLoopLocked()
		return
	}
	if s.loop != nil && s.loop.identityID == s.identity.ID && s.loop.roomID == s.state.CurrentRoomID {
		return
	}
	s.stopLoopLocked()
	s.loopGen++
	l := &deliveryLoop{
		identityID: s.identity.ID,
		roomID:     s.state.CurrentRoomID,
		gen:        s.loopGen,
		ticker:     s.clock.NewTicker(s.simulation.Interval),
		stop:       make(chan struct{}),
	}
	s.loop = l
	go s.runLoop(l)
}

func (s *Store) stopLoopLocked() {
	if s.loop == nil {
		return
	}
	s.loop.ticker.Stop()
	close(s.loop.stop)
	s.loop = nil
}

func (s *Store) runLoop(l *deliveryLoop) {
	for {
		select {
		case <-l.stop:
			return
		case <-l.ticker.C():
			s.tick(l.gen)
		}
	}
}

// tick rolls for one inbound message from an online roster member other
// than the identity.
func (s *Store) tick(gen uint64) {
	s.mu.Lock()
	if s.loop == nil || s.loop.gen != gen {
		s.mu.Unlock()
		return
	}
	if s.random.Float64() >= s.simulation.Probability {
		s.mu.Unlock()
		return
	}
	var candidates []domain.User
	for _, u := range s.state.Roster {
		if u.Status == domain.StatusOnline && u.ID != s.identity.ID {
			candidates = append(candidates, u)
		}
	}
	if len(candidates) == 0 {
		s.mu.Unlock()
		return
	}
	author := candidates[s.random.IntN(len(candidates))]
	content := seed.CannedReplies[s.random.IntN(len(seed.CannedReplies))]
	now := s.clock.Now()
	s.applyLocked([]action{addMessage{domain.Message{
		ID:         ids.Message(now),
		Content:    content,
		UserID:     author.ID,
		Username:   author.Username,
		UserAvatar: author.Avatar,
		RoomID:     s.loop.roomID,
		Timestamp:  now,
		Kind:       domain.KindText,
		Reactions:  []domain.Reaction{},
	}}})
}

// DeliveryRoom reports the room the simulated delivery loop is posting
// into, if it is running.
func (s *Store) DeliveryRoom() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loop == nil {
		return "", false
	}
	return s.loop.roomID, true
}
