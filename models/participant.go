package models

import (
	"sort"
	"sync"
)

// ResponseSender sends messages to a connected client.
type ResponseSender interface {
	Send(msg any)

	// Close reports reason to the client and closes its connection once the
	// messages sent before are delivered.
	Close(reason error)
}

// A scene participant, a client streaming entity poses over a websocket.
type Participant struct {
	ID        uint32
	Responder ResponseSender

	mutex     sync.Mutex
	entityIDs map[uint32]struct{}
}

func (p *Participant) AddEntity(e *Entity) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if p.entityIDs == nil {
		p.entityIDs = make(map[uint32]struct{})
	}
	p.entityIDs[e.ID] = struct{}{}
}

func (p *Participant) RemoveEntity(e *Entity) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	delete(p.entityIDs, e.ID)
}

// EntityIDs returns the ids of the entities added by the participant, sorted.
func (p *Participant) EntityIDs() []uint32 {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	ids := make([]uint32, 0, len(p.entityIDs))
	for id := range p.entityIDs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return ids[i] < ids[j]
	})
	return ids
}

func (p *Participant) clearEntities() {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	p.entityIDs = nil
}
