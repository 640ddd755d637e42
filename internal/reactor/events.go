package reactor

import (
	"fmt"

	"github.com/tutu-network/swimcluster/internal/membership"
)

// EventKind names the five cluster events spec §6 requires.
type EventKind int

const (
	MemberJoined EventKind = iota
	MemberWentUp
	MemberSuspectedDown
	MemberWentDown
	MemberLeft
)

func (k EventKind) String() string {
	switch k {
	case MemberJoined:
		return "MemberJoined"
	case MemberWentUp:
		return "MemberWentUp"
	case MemberSuspectedDown:
		return "MemberSuspectedDown"
	case MemberWentDown:
		return "MemberWentDown"
	case MemberLeft:
		return "MemberLeft"
	default:
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
}

// Event pairs an event kind with the Member snapshot it concerns, carried
// in the state its name implies (§6, §8 invariant 5).
type Event struct {
	Kind   EventKind
	Member membership.Member
}

// eventForState is the pure function from a member's current state to the
// event kind it implies (Alive->WentUp, Suspect->SuspectedDown,
// Down->WentDown, Left->Left), kept verbatim from the original's
// determine_member_event (SPEC_FULL §D.5). Used only for "changed"
// members — newly "added" members always emit MemberJoined regardless of
// their initial state, since that event carries no implied state of its
// own.
func eventForState(state membership.State) EventKind {
	switch state {
	case membership.Alive:
		return MemberWentUp
	case membership.Suspect:
		return MemberSuspectedDown
	case membership.Down:
		return MemberWentDown
	case membership.Left:
		return MemberLeft
	default:
		// InternalInvariantViolation (§7): an event must always map to a
		// known state; reaching here is always a bug.
		panic(fmt.Sprintf("reactor: no event kind for state %v", state))
	}
}
