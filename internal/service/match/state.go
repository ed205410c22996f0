package match

import "github.com/bvilove/datebot/internal/db"

// State is where a dating stands in its reaction lifecycle.
type State string

const (
	StateCreated         State = "created"
	StateAwaitingPartner State = "awaiting_partner"
	StateClosed          State = "closed"
	StateMutual          State = "mutual"
)

// StateOf derives the state from the two reaction columns.
//
//	Created --initiator dislikes--> Closed
//	Created --initiator likes-----> AwaitingPartner
//	AwaitingPartner --partner dislikes--> Closed
//	AwaitingPartner --partner likes-----> Mutual
//
// An initiator dislike closes the dating regardless of any partner reaction
// written afterwards.
func StateOf(d *db.Dating) State {
	switch {
	case d.InitiatorReaction == nil:
		return StateCreated
	case !*d.InitiatorReaction:
		return StateClosed
	case d.PartnerReaction == nil:
		return StateAwaitingPartner
	case *d.PartnerReaction:
		return StateMutual
	default:
		return StateClosed
	}
}

// Terminal reports whether no further reaction is expected.
func (s State) Terminal() bool {
	return s == StateClosed || s == StateMutual
}
