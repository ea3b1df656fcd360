package chatnet

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Transaction is one of the closed set of operations defined in this file
type Transaction interface {
	Name() string
	checkRefs() error
}

var validate = validator.New()

// Validate checks field presence and shape before a transaction is dispatched
func Validate(t Transaction) error {
	if t == nil {
		return fmt.Errorf("nil transaction: %w", ErrInvalidTransaction)
	}
	if err := validate.Struct(t); err != nil {
		return fmt.Errorf("%s: %v: %w", t.Name(), err, ErrInvalidTransaction)
	}
	if err := t.checkRefs(); err != nil {
		return fmt.Errorf("%s: %w", t.Name(), err)
	}
	return nil
}

func expectRef(field string, r Ref, t EntityType) error {
	if r.Type != t {
		return fmt.Errorf("field %q must reference %s, got %s: %w", field, t, r.Type, ErrInvalidTransaction)
	}
	return nil
}

type MessageInput struct {
	// ID is optional, a new identifier is generated when empty
	ID      string `json:"id" validate:"omitempty,max=256"`
	Content string `json:"content" validate:"required,max=4096"`
}

type SendMessageToChat struct {
	Chat    Ref          `json:"chat"`
	Message MessageInput `json:"message"`
}

func (SendMessageToChat) Name() string { return "SendMessageToChat" }

func (t SendMessageToChat) checkRefs() error { return expectRef("chat", t.Chat, TypeChat) }

type StartNewPeerChat struct {
	NewChatID    string `json:"newChatId" validate:"required,max=256"`
	NewChatTitle string `json:"newChatTitle" validate:"max=256"`
	PeerUser     Ref    `json:"peerUser"`
}

func (StartNewPeerChat) Name() string { return "StartNewPeerChat" }

func (t StartNewPeerChat) checkRefs() error { return expectRef("peerUser", t.PeerUser, TypeUser) }

type StartNewGroupChat struct {
	NewChatID    string   `json:"newChatId" validate:"required,max=256"`
	NewChatTitle string   `json:"newChatTitle" validate:"max=256"`
	Type         ChatType `json:"type" validate:"required,oneof=PUBLIC_GROUP PRIVATE_GROUP PUBLIC_CHANNEL PRIVATE_CHANNEL"`
}

func (StartNewGroupChat) Name() string { return "StartNewGroupChat" }

func (StartNewGroupChat) checkRefs() error { return nil }

type JoinToChat struct {
	Chat Ref `json:"chat"`
}

func (JoinToChat) Name() string { return "JoinToChat" }

func (t JoinToChat) checkRefs() error { return expectRef("chat", t.Chat, TypeChat) }

type AddOtherUserToChat struct {
	Chat      Ref `json:"chat"`
	OtherUser Ref `json:"otherUser"`
}

func (AddOtherUserToChat) Name() string { return "AddOtherUserToChat" }

func (t AddOtherUserToChat) checkRefs() error {
	if err := expectRef("chat", t.Chat, TypeChat); err != nil {
		return err
	}
	return expectRef("otherUser", t.OtherUser, TypeUser)
}

type ExpelMemberFromChat struct {
	Chat   Ref `json:"chat"`
	Member Ref `json:"member"`
}

func (ExpelMemberFromChat) Name() string { return "ExpelMemberFromChat" }

func (t ExpelMemberFromChat) checkRefs() error {
	if err := expectRef("chat", t.Chat, TypeChat); err != nil {
		return err
	}
	return expectRef("member", t.Member, TypeMember)
}

type BlockMember struct {
	Chat   Ref `json:"chat"`
	Member Ref `json:"member"`
}

func (BlockMember) Name() string { return "BlockMember" }

func (t BlockMember) checkRefs() error {
	if err := expectRef("chat", t.Chat, TypeChat); err != nil {
		return err
	}
	return expectRef("member", t.Member, TypeMember)
}

type LeaveChat struct {
	Chat Ref `json:"chat"`
}

func (LeaveChat) Name() string { return "LeaveChat" }

func (t LeaveChat) checkRefs() error { return expectRef("chat", t.Chat, TypeChat) }

type DeleteMessage struct {
	Chat    Ref `json:"chat"`
	Message Ref `json:"message"`
}

func (DeleteMessage) Name() string { return "DeleteMessage" }

func (t DeleteMessage) checkRefs() error {
	if err := expectRef("chat", t.Chat, TypeChat); err != nil {
		return err
	}
	return expectRef("message", t.Message, TypeMessage)
}
