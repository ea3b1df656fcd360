package chatnet

import (
	"context"
	"fmt"
	"time"

	"github.com/samber/lo"
)

// handler holds the state of one running transaction
type handler struct {
	tx        Tx
	caller    string
	now       time.Time
	newID     func() string
	authorize bool
	events    []Event
}

func (h *handler) dispatch(ctx context.Context, t Transaction) error {
	switch t := t.(type) {
	case SendMessageToChat:
		return h.sendMessageToChat(ctx, t)
	case StartNewPeerChat:
		return h.startNewPeerChat(ctx, t)
	case StartNewGroupChat:
		return h.startNewGroupChat(ctx, t)
	case JoinToChat:
		return h.joinToChat(ctx, t)
	case AddOtherUserToChat:
		return h.addOtherUserToChat(ctx, t)
	case ExpelMemberFromChat:
		return h.setMemberStatus(ctx, t.Chat, t.Member, StatusExpelled)
	case BlockMember:
		return h.setMemberStatus(ctx, t.Chat, t.Member, StatusBlocked)
	case LeaveChat:
		return h.leaveChat(ctx, t)
	case DeleteMessage:
		return h.deleteMessage(ctx, t)
	default:
		return fmt.Errorf("unsupported transaction %T: %w", t, ErrInvalidTransaction)
	}
}

func (h *handler) emit(typ EventType, chat, subject Ref, status MemberStatus) {
	h.events = append(h.events, Event{
		Type:    typ,
		Chat:    chat,
		Subject: subject,
		Status:  status,
		Actor:   h.caller,
	})
}

func (h *handler) user(ctx context.Context, id string) (User, error) {
	u, err := h.tx.Users().Get(ctx, id)
	if err != nil {
		return User{}, fmt.Errorf("user %s: %w", id, err)
	}
	return u, nil
}

func (h *handler) chat(ctx context.Context, ref Ref) (Chat, error) {
	c, err := h.tx.Chats().Get(ctx, ref.ID)
	if err != nil {
		return Chat{}, fmt.Errorf("chat %s: %w", ref.ID, err)
	}
	return c, nil
}

// members dereferences the chat's member list in join order
func (h *handler) members(ctx context.Context, chat Chat) ([]Member, error) {
	members := make([]Member, 0, len(chat.MemberList))
	for _, ref := range chat.MemberList {
		m, err := h.tx.Members().Get(ctx, ref.ID)
		if err != nil {
			return nil, fmt.Errorf("member %s of chat %s: %w", ref.ID, chat.ID, err)
		}
		members = append(members, m)
	}
	return members, nil
}

func activeMembership(members []Member, userID string) (Member, bool) {
	return lo.Find(members, func(m Member) bool {
		return m.User.ID == userID && m.Status.Active()
	})
}

func blockedIn(members []Member, userID string) bool {
	return lo.ContainsBy(members, func(m Member) bool {
		return m.User.ID == userID && m.Status == StatusBlocked
	})
}

// requireOwner fails unless the caller is a NORMAL owner of the chat
func (h *handler) requireOwner(members []Member, chat Chat) error {
	if !h.authorize {
		return nil
	}
	m, ok := activeMembership(members, h.caller)
	if !ok || m.Type != MemberOwner || m.Status != StatusNormal {
		return fmt.Errorf("%s is not an owner of chat %s: %w", h.caller, chat.ID, ErrUnauthorized)
	}
	return nil
}

func (h *handler) newMember(typ MemberType, status MemberStatus, user string) Member {
	return Member{
		ID:      h.newID(),
		Type:    typ,
		Status:  status,
		AddedAt: h.now,
		User:    UserRef(user),
	}
}

// appendMember persists a new member and appends it to the chat. The chat itself is not written.
func (h *handler) appendMember(ctx context.Context, chat *Chat, m Member) error {
	if err := h.tx.Members().Add(ctx, m); err != nil {
		return fmt.Errorf("add member %s: %w", m.ID, err)
	}
	chat.MemberList = append(chat.MemberList, MemberRef(m.ID))
	h.emit(EventMemberCreated, ChatRef(chat.ID), MemberRef(m.ID), m.Status)
	return nil
}

func (h *handler) sendMessageToChat(ctx context.Context, t SendMessageToChat) error {
	if _, err := h.user(ctx, h.caller); err != nil {
		return err
	}
	chat, err := h.chat(ctx, t.Chat)
	if err != nil {
		return err
	}
	if h.authorize {
		members, err := h.members(ctx, chat)
		if err != nil {
			return err
		}
		m, ok := activeMembership(members, h.caller)
		if !ok || m.Status != StatusNormal {
			return fmt.Errorf("%s cannot post to chat %s: %w", h.caller, chat.ID, ErrUnauthorized)
		}
	}

	id := t.Message.ID
	if id == "" {
		id = h.newID()
	}
	msg := Message{
		ID:       id,
		Content:  t.Message.Content,
		CreateAt: h.now,
		Owner:    UserRef(h.caller),
	}
	if err := h.tx.Messages().Add(ctx, msg); err != nil {
		return fmt.Errorf("add message %s: %w", msg.ID, err)
	}

	chat.MessageList = append(chat.MessageList, MessageRef(msg.ID))
	if err := h.tx.Chats().Update(ctx, chat); err != nil {
		return fmt.Errorf("update chat %s: %w", chat.ID, err)
	}
	h.emit(EventMessageSent, ChatRef(chat.ID), MessageRef(msg.ID), "")
	return nil
}

func (h *handler) startNewPeerChat(ctx context.Context, t StartNewPeerChat) error {
	if t.PeerUser.ID == h.caller {
		return fmt.Errorf("cannot start a peer chat with yourself: %w", ErrInvalidTransaction)
	}
	if _, err := h.user(ctx, h.caller); err != nil {
		return err
	}
	if _, err := h.user(ctx, t.PeerUser.ID); err != nil {
		return err
	}
	return h.createChat(ctx, t.NewChatID, t.NewChatTitle, ChatPeer,
		h.newMember(MemberOwner, StatusNormal, h.caller),
		h.newMember(MemberNormal, StatusNormal, t.PeerUser.ID),
	)
}

func (h *handler) startNewGroupChat(ctx context.Context, t StartNewGroupChat) error {
	if t.Type == ChatPeer {
		return fmt.Errorf("use StartNewPeerChat for peer chats: %w", ErrInvalidTransaction)
	}
	if _, err := h.user(ctx, h.caller); err != nil {
		return err
	}
	return h.createChat(ctx, t.NewChatID, t.NewChatTitle, t.Type,
		h.newMember(MemberOwner, StatusNormal, h.caller),
	)
}

// createChat persists the members, the chat, and appends the chat to the network singleton
func (h *handler) createChat(ctx context.Context, id, title string, typ ChatType, members ...Member) error {
	network, err := h.tx.Networks().Get(ctx, NetworkID)
	if err != nil {
		return fmt.Errorf("chat network %s: %w", NetworkID, err)
	}

	chat := Chat{
		ID:          id,
		Title:       title,
		CreateAt:    h.now,
		Type:        typ,
		MemberList:  make([]Ref, 0, len(members)),
		MessageList: []Ref{},
	}
	for _, m := range members {
		if err := h.appendMember(ctx, &chat, m); err != nil {
			return err
		}
	}
	if err := h.tx.Chats().Add(ctx, chat); err != nil {
		return fmt.Errorf("add chat %s: %w", chat.ID, err)
	}

	network.ChatList = append(network.ChatList, ChatRef(chat.ID))
	if err := h.tx.Networks().Update(ctx, network); err != nil {
		return fmt.Errorf("update chat network %s: %w", network.ID, err)
	}
	h.emit(EventChatCreated, ChatRef(chat.ID), ChatRef(chat.ID), "")
	return nil
}

func (h *handler) joinToChat(ctx context.Context, t JoinToChat) error {
	if _, err := h.user(ctx, h.caller); err != nil {
		return err
	}
	chat, err := h.chat(ctx, t.Chat)
	if err != nil {
		return err
	}
	status, err := JoinStatus(chat.Type)
	if err != nil {
		return fmt.Errorf("join chat %s: %w", chat.ID, err)
	}
	members, err := h.members(ctx, chat)
	if err != nil {
		return err
	}
	if _, ok := activeMembership(members, h.caller); ok {
		return fmt.Errorf("%s is already a member of chat %s: %w", h.caller, chat.ID, ErrInvalidState)
	}
	if blockedIn(members, h.caller) {
		return fmt.Errorf("%s is blocked in chat %s: %w", h.caller, chat.ID, ErrUnauthorized)
	}

	if err := h.appendMember(ctx, &chat, h.newMember(MemberNormal, status, h.caller)); err != nil {
		return err
	}
	if err := h.tx.Chats().Update(ctx, chat); err != nil {
		return fmt.Errorf("update chat %s: %w", chat.ID, err)
	}
	return nil
}

func (h *handler) addOtherUserToChat(ctx context.Context, t AddOtherUserToChat) error {
	if _, err := h.user(ctx, h.caller); err != nil {
		return err
	}
	chat, err := h.chat(ctx, t.Chat)
	if err != nil {
		return err
	}
	if chat.Type == ChatPeer {
		return fmt.Errorf("peer chat %s has fixed membership: %w", chat.ID, ErrInvalidState)
	}
	members, err := h.members(ctx, chat)
	if err != nil {
		return err
	}
	if err := h.requireOwner(members, chat); err != nil {
		return err
	}
	if _, err := h.user(ctx, t.OtherUser.ID); err != nil {
		return err
	}
	if _, ok := activeMembership(members, t.OtherUser.ID); ok {
		return fmt.Errorf("%s is already a member of chat %s: %w", t.OtherUser.ID, chat.ID, ErrInvalidState)
	}
	if blockedIn(members, t.OtherUser.ID) {
		return fmt.Errorf("%s is blocked in chat %s: %w", t.OtherUser.ID, chat.ID, ErrInvalidState)
	}

	if err := h.appendMember(ctx, &chat, h.newMember(MemberNormal, StatusNormal, t.OtherUser.ID)); err != nil {
		return err
	}
	if err := h.tx.Chats().Update(ctx, chat); err != nil {
		return fmt.Errorf("update chat %s: %w", chat.ID, err)
	}
	return nil
}

// setMemberStatus drives the expel and block transitions.
// Applying the status a member already has succeeds without writing.
func (h *handler) setMemberStatus(ctx context.Context, chatRef, memberRef Ref, to MemberStatus) error {
	if _, err := h.user(ctx, h.caller); err != nil {
		return err
	}
	chat, err := h.chat(ctx, chatRef)
	if err != nil {
		return err
	}
	if !lo.Contains(chat.MemberList, memberRef) {
		return fmt.Errorf("member %s does not belong to chat %s: %w", memberRef.ID, chat.ID, ErrNotFound)
	}
	members, err := h.members(ctx, chat)
	if err != nil {
		return err
	}
	if err := h.requireOwner(members, chat); err != nil {
		return err
	}

	member, _ := lo.Find(members, func(m Member) bool { return m.ID == memberRef.ID })
	if member.Type == MemberOwner {
		return fmt.Errorf("owner of chat %s cannot become %s: %w", chat.ID, to, ErrInvalidState)
	}
	changed, err := Transition(member.Status, to)
	if err != nil || !changed {
		return err
	}
	return h.writeStatus(ctx, chat, member, to)
}

func (h *handler) writeStatus(ctx context.Context, chat Chat, member Member, to MemberStatus) error {
	member.Status = to
	if err := h.tx.Members().Update(ctx, member); err != nil {
		return fmt.Errorf("update member %s: %w", member.ID, err)
	}
	if err := h.tx.Chats().Update(ctx, chat); err != nil {
		return fmt.Errorf("update chat %s: %w", chat.ID, err)
	}
	h.emit(EventMemberStatusChanged, ChatRef(chat.ID), MemberRef(member.ID), to)
	return nil
}

func (h *handler) leaveChat(ctx context.Context, t LeaveChat) error {
	chat, err := h.chat(ctx, t.Chat)
	if err != nil {
		return err
	}
	members, err := h.members(ctx, chat)
	if err != nil {
		return err
	}
	member, ok := activeMembership(members, h.caller)
	if !ok {
		return fmt.Errorf("%s has no membership in chat %s: %w", h.caller, chat.ID, ErrNotFound)
	}
	if _, err := Transition(member.Status, StatusLeft); err != nil {
		return err
	}
	return h.writeStatus(ctx, chat, member, StatusLeft)
}

func (h *handler) deleteMessage(ctx context.Context, t DeleteMessage) error {
	chat, err := h.chat(ctx, t.Chat)
	if err != nil {
		return err
	}
	msg, err := h.tx.Messages().Get(ctx, t.Message.ID)
	if err != nil {
		return fmt.Errorf("message %s: %w", t.Message.ID, err)
	}
	if h.authorize && msg.Owner.ID != h.caller {
		// owners only moderate messages posted to their own chat
		if !lo.Contains(chat.MessageList, MessageRef(msg.ID)) {
			return fmt.Errorf("message %s is not in chat %s: %w", msg.ID, chat.ID, ErrUnauthorized)
		}
		members, err := h.members(ctx, chat)
		if err != nil {
			return err
		}
		if err := h.requireOwner(members, chat); err != nil {
			return fmt.Errorf("only the author or an owner may delete message %s: %w", msg.ID, ErrUnauthorized)
		}
	}

	chat.MessageList = RemoveElement(chat.MessageList, MessageRef(msg.ID))
	if err := h.tx.Chats().Update(ctx, chat); err != nil {
		return fmt.Errorf("update chat %s: %w", chat.ID, err)
	}
	if err := h.tx.Messages().Remove(ctx, msg.ID); err != nil {
		return fmt.Errorf("remove message %s: %w", msg.ID, err)
	}
	h.emit(EventMessageDeleted, ChatRef(chat.ID), MessageRef(msg.ID), "")
	return nil
}
