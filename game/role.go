package game

// Role identifies which side authored a response. Every round holds
// exactly one response per role.
type Role int

const (
	RoleHuman Role = iota
	RoleAI
)

func (r Role) String() string {
	if r == RoleHuman {
		return "human"
	}
	return "ai"
}

// Side is a blind vote target: the left or right displayed response.
type Side string

const (
	SideLeft  Side = "left"
	SideRight Side = "right"
)

func (s Side) Valid() bool {
	return s == SideLeft || s == SideRight
}
