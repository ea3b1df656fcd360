// Package txcodec decodes transaction envelopes into chatnet transactions.
//
// An envelope looks like
//
//	{"caller": "alice@example.com", "transaction": "JoinToChat", "payload": {"chat": "Chat#c1"}}
//
// References are either "Type#id" strings, bare ids or {"type": ..., "id": ...} objects.
package txcodec

import (
	"chatnet/internal/chatnet"
	"fmt"

	"github.com/valyala/fastjson"
)

// Envelope is a decoded transaction together with the identity submitting it
type Envelope struct {
	Caller      string
	Transaction chatnet.Transaction
}

// Decoder is safe for concurrent use
type Decoder struct {
	pool fastjson.ParserPool
}

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf(format+": %w", append(args, chatnet.ErrInvalidTransaction)...)
}

// Decode validates presence and types of every field of the named transaction
func (d *Decoder) Decode(body []byte) (Envelope, error) {
	if len(body) == 0 {
		return Envelope{}, invalid("no body provided")
	}

	parser := d.pool.Get()
	defer d.pool.Put(parser)

	v, err := parser.ParseBytes(body)
	if err != nil {
		return Envelope{}, invalid("malformed JSON")
	}
	if v.Type() != fastjson.TypeObject {
		return Envelope{}, invalid("envelope must be an object")
	}

	caller, err := str(v, "caller")
	if err != nil {
		return Envelope{}, err
	}
	name, err := str(v, "transaction")
	if err != nil {
		return Envelope{}, err
	}
	if !v.Exists("payload") {
		return Envelope{}, invalid("missing field %q", "payload")
	}
	payload := v.Get("payload")
	if payload.Type() != fastjson.TypeObject {
		return Envelope{}, invalid("field %q must be an object", "payload")
	}

	tx, err := decodeTransaction(name, payload)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{Caller: caller, Transaction: tx}, nil
}

// Names lists the transactions Decode understands
var Names = []string{
	chatnet.SendMessageToChat{}.Name(),
	chatnet.StartNewPeerChat{}.Name(),
	chatnet.StartNewGroupChat{}.Name(),
	chatnet.JoinToChat{}.Name(),
	chatnet.AddOtherUserToChat{}.Name(),
	chatnet.ExpelMemberFromChat{}.Name(),
	chatnet.BlockMember{}.Name(),
	chatnet.LeaveChat{}.Name(),
	chatnet.DeleteMessage{}.Name(),
}

func decodeTransaction(name string, p *fastjson.Value) (chatnet.Transaction, error) {
	switch name {
	case "SendMessageToChat":
		chat, err := ref(p, "chat", chatnet.TypeChat)
		if err != nil {
			return nil, err
		}
		msg, err := message(p, "message")
		if err != nil {
			return nil, err
		}
		return chatnet.SendMessageToChat{Chat: chat, Message: msg}, nil

	case "StartNewPeerChat":
		id, title, err := newChat(p)
		if err != nil {
			return nil, err
		}
		peer, err := ref(p, "peerUser", chatnet.TypeUser)
		if err != nil {
			return nil, err
		}
		return chatnet.StartNewPeerChat{NewChatID: id, NewChatTitle: title, PeerUser: peer}, nil

	case "StartNewGroupChat":
		id, title, err := newChat(p)
		if err != nil {
			return nil, err
		}
		typ, err := str(p, "type")
		if err != nil {
			return nil, err
		}
		return chatnet.StartNewGroupChat{NewChatID: id, NewChatTitle: title, Type: chatnet.ChatType(typ)}, nil

	case "JoinToChat":
		chat, err := ref(p, "chat", chatnet.TypeChat)
		if err != nil {
			return nil, err
		}
		return chatnet.JoinToChat{Chat: chat}, nil

	case "AddOtherUserToChat":
		chat, err := ref(p, "chat", chatnet.TypeChat)
		if err != nil {
			return nil, err
		}
		other, err := ref(p, "otherUser", chatnet.TypeUser)
		if err != nil {
			return nil, err
		}
		return chatnet.AddOtherUserToChat{Chat: chat, OtherUser: other}, nil

	case "ExpelMemberFromChat", "BlockMember":
		chat, err := ref(p, "chat", chatnet.TypeChat)
		if err != nil {
			return nil, err
		}
		member, err := ref(p, "member", chatnet.TypeMember)
		if err != nil {
			return nil, err
		}
		if name == "BlockMember" {
			return chatnet.BlockMember{Chat: chat, Member: member}, nil
		}
		return chatnet.ExpelMemberFromChat{Chat: chat, Member: member}, nil

	case "LeaveChat":
		chat, err := ref(p, "chat", chatnet.TypeChat)
		if err != nil {
			return nil, err
		}
		return chatnet.LeaveChat{Chat: chat}, nil

	case "DeleteMessage":
		chat, err := ref(p, "chat", chatnet.TypeChat)
		if err != nil {
			return nil, err
		}
		msg, err := ref(p, "message", chatnet.TypeMessage)
		if err != nil {
			return nil, err
		}
		return chatnet.DeleteMessage{Chat: chat, Message: msg}, nil

	default:
		return nil, invalid("unknown transaction %q", name)
	}
}

func newChat(p *fastjson.Value) (id, title string, err error) {
	if id, err = str(p, "newChatId"); err != nil {
		return "", "", err
	}
	if p.Exists("newChatTitle") {
		if title, err = anyStr(p, "newChatTitle"); err != nil {
			return "", "", err
		}
	}
	return id, title, nil
}

// str returns a required non-empty string field
func str(v *fastjson.Value, field string) (string, error) {
	if !v.Exists(field) {
		return "", invalid("missing field %q", field)
	}
	s, err := anyStr(v, field)
	if err != nil {
		return "", err
	}
	if len(s) == 0 {
		return "", invalid("field %q must have non-zero length", field)
	}
	return s, nil
}

func anyStr(v *fastjson.Value, field string) (string, error) {
	b, err := v.Get(field).StringBytes()
	if err != nil {
		return "", invalid("field %q must be a string", field)
	}
	return string(b), nil
}

func ref(v *fastjson.Value, field string, expected chatnet.EntityType) (chatnet.Ref, error) {
	if !v.Exists(field) {
		return chatnet.Ref{}, invalid("missing field %q", field)
	}
	f := v.Get(field)
	switch f.Type() {
	case fastjson.TypeString:
		r, err := chatnet.ParseRef(string(f.GetStringBytes()), expected)
		if err != nil {
			return chatnet.Ref{}, fmt.Errorf("field %q: %w", field, err)
		}
		return r, nil
	case fastjson.TypeObject:
		typ, err := str(f, "type")
		if err != nil {
			return chatnet.Ref{}, fmt.Errorf("field %q: %w", field, err)
		}
		id, err := str(f, "id")
		if err != nil {
			return chatnet.Ref{}, fmt.Errorf("field %q: %w", field, err)
		}
		if chatnet.EntityType(typ) != expected {
			return chatnet.Ref{}, invalid("field %q must reference %s", field, expected)
		}
		return chatnet.Ref{Type: expected, ID: id}, nil
	default:
		return chatnet.Ref{}, invalid("field %q must be a reference string or object", field)
	}
}

func message(v *fastjson.Value, field string) (chatnet.MessageInput, error) {
	if !v.Exists(field) {
		return chatnet.MessageInput{}, invalid("missing field %q", field)
	}
	f := v.Get(field)
	if f.Type() != fastjson.TypeObject {
		return chatnet.MessageInput{}, invalid("field %q must be an object", field)
	}
	content, err := str(f, "content")
	if err != nil {
		return chatnet.MessageInput{}, fmt.Errorf("field %q: %w", field, err)
	}
	var id string
	if f.Exists("id") {
		if id, err = anyStr(f, "id"); err != nil {
			return chatnet.MessageInput{}, fmt.Errorf("field %q: %w", field, err)
		}
	}
	return chatnet.MessageInput{ID: id, Content: content}, nil
}
