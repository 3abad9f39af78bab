package game

import (
	"sync"

	"github.com/rs/zerolog/log"
)

// RoomInfo is the public snapshot of a live room, served by the room
// listing endpoint.
type RoomInfo struct {
	RoomId      string `json:"room_id"`
	RoomType    string `json:"room_type"`
	PlayerCount int    `json:"player_count"`
	Phase       string `json:"phase"`
}

// Registry owns the live orchestrators, one per room id. Rooms come
// into existence on first join and are torn down when the last player
// leaves.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]*Orchestrator

	cfg  Config
	deps Deps
}

func NewRegistry(cfg Config, deps Deps) *Registry {
	return &Registry{
		rooms: make(map[string]*Orchestrator),
		cfg:   cfg,
		deps:  deps,
	}
}

// GetOrCreate returns the room's orchestrator, creating it on first
// use. The room type is fixed at creation; later callers with a
// different type get the existing room unchanged.
func (r *Registry) GetOrCreate(roomId, roomType string) *Orchestrator {
	r.mu.RLock()
	o, ok := r.rooms[roomId]
	r.mu.RUnlock()
	if ok {
		return o
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if o, ok := r.rooms[roomId]; ok {
		return o
	}
	cfg := r.cfg
	cfg.RoomType = roomType
	o = NewOrchestrator(roomId, cfg, r.deps)
	r.rooms[roomId] = o
	log.Info().Str("module", "game").Str("room", roomId).Str("room_type", roomType).Msg("room created")
	return o
}

func (r *Registry) Get(roomId string) (*Orchestrator, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	o, ok := r.rooms[roomId]
	return o, ok
}

// RemoveIfEmpty tears the room down when nobody is left in it. Returns
// whether the room was removed.
func (r *Registry) RemoveIfEmpty(roomId string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.rooms[roomId]
	if !ok || o.PlayerCount() > 0 {
		return false
	}
	o.Close()
	delete(r.rooms, roomId)
	log.Info().Str("module", "game").Str("room", roomId).Msg("room removed")
	return true
}

// Snapshot lists every live room, for the room listing endpoint.
func (r *Registry) Snapshot() []RoomInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	infos := make([]RoomInfo, 0, len(r.rooms))
	for id, o := range r.rooms {
		infos = append(infos, RoomInfo{
			RoomId:      id,
			RoomType:    o.RoomType(),
			PlayerCount: o.PlayerCount(),
			Phase:       o.Phase().String(),
		})
	}
	return infos
}

// Close tears down every room; used on server shutdown.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, o := range r.rooms {
		o.Close()
		delete(r.rooms, id)
	}
}
