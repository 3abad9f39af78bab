package game

// player tracks one attached session and its per-round flags. The
// flags are cleared at every round start; the response/vote values are
// the literal submissions of the current round.
type player struct {
	id        string
	name      string
	responded bool
	voted     bool
	response  string
	vote      Side
}

// roster holds the players currently attached to one room. It is owned
// by the room's orchestrator and only ever touched under its lock.
type roster struct {
	players map[string]*player
}

func newRoster() *roster {
	return &roster{players: make(map[string]*player)}
}

// add inserts a player with cleared flags. Returns false if the id is
// already present (no state change).
func (r *roster) add(id, name string) bool {
	if _, ok := r.players[id]; ok {
		return false
	}
	r.players[id] = &player{id: id, name: name}
	return true
}

func (r *roster) remove(id string) bool {
	if _, ok := r.players[id]; !ok {
		return false
	}
	delete(r.players, id)
	return true
}

func (r *roster) get(id string) (*player, bool) {
	p, ok := r.players[id]
	return p, ok
}

func (r *roster) count() int {
	return len(r.players)
}

func (r *roster) resetFlags() {
	for _, p := range r.players {
		p.responded = false
		p.voted = false
		p.response = ""
		p.vote = ""
	}
}

func (r *roster) names() []string {
	names := make([]string, 0, len(r.players))
	for _, p := range r.players {
		names = append(names, p.name)
	}
	return names
}
