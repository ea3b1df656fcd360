package chatnet

import "fmt"

// JoinStatus returns the status of a member created by a self-service join
func JoinStatus(t ChatType) (MemberStatus, error) {
	switch t {
	case ChatPublicGroup, ChatPublicChannel:
		return StatusNormal, nil
	case ChatPrivateGroup, ChatPrivateChannel:
		return StatusRequested, nil
	case ChatPeer:
		return "", fmt.Errorf("peer chats have fixed membership: %w", ErrInvalidState)
	default:
		return "", fmt.Errorf("unknown chat type %q: %w", t, ErrInvalidState)
	}
}

// Active reports whether the member still holds a place in the chat
func (s MemberStatus) Active() bool {
	return s == StatusNormal || s == StatusRequested
}

// Terminal reports whether no handler can move the member out of s
func (s MemberStatus) Terminal() bool {
	return s == StatusExpelled || s == StatusBlocked || s == StatusLeft
}

// Transition checks moving a member from `from` to `to`.
// changed is false when the member already has status `to`.
func Transition(from, to MemberStatus) (changed bool, err error) {
	if from == to && to.Terminal() {
		return false, nil
	}
	if !to.Terminal() {
		return false, fmt.Errorf("cannot move member to %s: %w", to, ErrInvalidState)
	}
	if !from.Active() {
		return false, fmt.Errorf("member is %s, cannot become %s: %w", from, to, ErrInvalidState)
	}
	return true, nil
}
