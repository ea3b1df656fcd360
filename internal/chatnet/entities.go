package chatnet

import (
	"fmt"
	"strings"
	"time"
)

// NetworkID is the key of the ChatNetwork singleton
const NetworkID = "mainchatnetid001"

// EntityType names a registry
type EntityType string

const (
	TypeUser        EntityType = "User"
	TypeMember      EntityType = "Member"
	TypeMessage     EntityType = "Message"
	TypeChat        EntityType = "Chat"
	TypeChatNetwork EntityType = "ChatNetwork"
)

// Entity is anything stored in a Registry
type Entity interface {
	Key() string
}

// Ref is a relationship to another entity. Two refs are equal when both type and id match.
type Ref struct {
	Type EntityType `json:"type" validate:"required"`
	ID   string     `json:"id" validate:"required,max=256"`
}

func (r Ref) String() string {
	return string(r.Type) + "#" + r.ID
}

// ParseRef parses "Type#id" or a bare id into a Ref of the expected type
func ParseRef(s string, expected EntityType) (Ref, error) {
	if s == "" {
		return Ref{}, fmt.Errorf("empty reference: %w", ErrInvalidTransaction)
	}
	i := strings.IndexByte(s, '#')
	if i < 0 {
		return Ref{Type: expected, ID: s}, nil
	}
	t, id := EntityType(s[:i]), s[i+1:]
	if t != expected {
		return Ref{}, fmt.Errorf("reference %q must point to %s: %w", s, expected, ErrInvalidTransaction)
	}
	if id == "" {
		return Ref{}, fmt.Errorf("reference %q has no id: %w", s, ErrInvalidTransaction)
	}
	return Ref{Type: t, ID: id}, nil
}

func UserRef(id string) Ref    { return Ref{Type: TypeUser, ID: id} }
func MemberRef(id string) Ref  { return Ref{Type: TypeMember, ID: id} }
func MessageRef(id string) Ref { return Ref{Type: TypeMessage, ID: id} }
func ChatRef(id string) Ref    { return Ref{Type: TypeChat, ID: id} }

type MemberType string

const (
	MemberOwner  MemberType = "OWNER"
	MemberNormal MemberType = "NORMAL"
)

type MemberStatus string

const (
	StatusNormal    MemberStatus = "NORMAL"
	StatusRequested MemberStatus = "REQUESTED"
	StatusExpelled  MemberStatus = "EXPELLED"
	StatusBlocked   MemberStatus = "BLOCKED"
	StatusLeft      MemberStatus = "LEFT"
)

type ChatType string

const (
	ChatPeer           ChatType = "PEER"
	ChatPublicGroup    ChatType = "PUBLIC_GROUP"
	ChatPrivateGroup   ChatType = "PRIVATE_GROUP"
	ChatPublicChannel  ChatType = "PUBLIC_CHANNEL"
	ChatPrivateChannel ChatType = "PRIVATE_CHANNEL"
)

type User struct {
	ID        string `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

func (u User) Key() string { return u.ID }

// Member is one user's relationship to one chat
type Member struct {
	ID      string       `json:"id"`
	Type    MemberType   `json:"type"`
	Status  MemberStatus `json:"status"`
	AddedAt time.Time    `json:"addedAt"`
	User    Ref          `json:"user"`
}

func (m Member) Key() string { return m.ID }

type Message struct {
	ID       string    `json:"id"`
	Content  string    `json:"content"`
	CreateAt time.Time `json:"createAt"`
	Owner    Ref       `json:"owner"`
}

func (m Message) Key() string { return m.ID }

// Chat is the root aggregate of a conversation. MemberList is in join order, MessageList in send order.
type Chat struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	CreateAt    time.Time `json:"createAt"`
	Type        ChatType  `json:"type"`
	MemberList  []Ref     `json:"memberList"`
	MessageList []Ref     `json:"messageList"`
}

func (c Chat) Key() string { return c.ID }

type ChatNetwork struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	ChatList []Ref  `json:"chatList"`
}

func (n ChatNetwork) Key() string { return n.ID }

// RemoveElement removes the first element equal to elem, keeping the order of the rest.
// It is a no-op when elem is absent.
func RemoveElement[T comparable](list []T, elem T) []T {
	for i, v := range list {
		if v == elem {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}
