package txcodec

import (
	"chatnet/internal/chatnet"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	var d Decoder
	cases := map[string]chatnet.Transaction{
		`{"caller":"a","transaction":"SendMessageToChat","payload":{"chat":"Chat#c1","message":{"id":"m1","content":"hi"}}}`: chatnet.SendMessageToChat{
			Chat: chatnet.ChatRef("c1"), Message: chatnet.MessageInput{ID: "m1", Content: "hi"},
		},
		`{"caller":"a","transaction":"StartNewPeerChat","payload":{"newChatId":"p","peerUser":{"type":"User","id":"b"}}}`: chatnet.StartNewPeerChat{
			NewChatID: "p", PeerUser: chatnet.UserRef("b"),
		},
		`{"caller":"a","transaction":"StartNewGroupChat","payload":{"newChatId":"g","newChatTitle":"","type":"PRIVATE_GROUP"}}`: chatnet.StartNewGroupChat{
			NewChatID: "g", Type: chatnet.ChatPrivateGroup,
		},
		`{"caller":"a","transaction":"JoinToChat","payload":{"chat":"c1"}}`: chatnet.JoinToChat{
			Chat: chatnet.ChatRef("c1"),
		},
		`{"caller":"a","transaction":"AddOtherUserToChat","payload":{"chat":"c1","otherUser":"User#b"}}`: chatnet.AddOtherUserToChat{
			Chat: chatnet.ChatRef("c1"), OtherUser: chatnet.UserRef("b"),
		},
		`{"caller":"a","transaction":"ExpelMemberFromChat","payload":{"chat":"c1","member":"m"}}`: chatnet.ExpelMemberFromChat{
			Chat: chatnet.ChatRef("c1"), Member: chatnet.MemberRef("m"),
		},
		`{"caller":"a","transaction":"BlockMember","payload":{"chat":"c1","member":"m"}}`: chatnet.BlockMember{
			Chat: chatnet.ChatRef("c1"), Member: chatnet.MemberRef("m"),
		},
		`{"caller":"a","transaction":"LeaveChat","payload":{"chat":"c1"}}`: chatnet.LeaveChat{
			Chat: chatnet.ChatRef("c1"),
		},
		`{"caller":"a","transaction":"DeleteMessage","payload":{"chat":"c1","message":"Message#x"}}`: chatnet.DeleteMessage{
			Chat: chatnet.ChatRef("c1"), Message: chatnet.MessageRef("x"),
		},
	}
	for body, expected := range cases {
		env, err := d.Decode([]byte(body))
		require.NoError(t, err, body)
		require.Equal(t, "a", env.Caller)
		require.Equal(t, expected, env.Transaction)
	}
}

func TestDecodeInvalid(t *testing.T) {
	var d Decoder
	bodies := []string{
		``,
		`{`,
		`[]`,
		`{"transaction":"JoinToChat","payload":{"chat":"c1"}}`,
		`{"caller":"","transaction":"JoinToChat","payload":{"chat":"c1"}}`,
		`{"caller":1,"transaction":"JoinToChat","payload":{"chat":"c1"}}`,
		`{"caller":"a","transaction":"RenameChat","payload":{}}`,
		`{"caller":"a","transaction":"JoinToChat"}`,
		`{"caller":"a","transaction":"JoinToChat","payload":"c1"}`,
		`{"caller":"a","transaction":"JoinToChat","payload":{}}`,
		`{"caller":"a","transaction":"JoinToChat","payload":{"chat":"User#c1"}}`,
		`{"caller":"a","transaction":"JoinToChat","payload":{"chat":{"type":"Member","id":"c1"}}}`,
		`{"caller":"a","transaction":"JoinToChat","payload":{"chat":42}}`,
		`{"caller":"a","transaction":"SendMessageToChat","payload":{"chat":"c1","message":{"content":""}}}`,
		`{"caller":"a","transaction":"SendMessageToChat","payload":{"chat":"c1","message":"hi"}}`,
		`{"caller":"a","transaction":"StartNewGroupChat","payload":{"newChatId":"g"}}`,
		`{"caller":"a","transaction":"StartNewPeerChat","payload":{"newChatId":"p","newChatTitle":3,"peerUser":"b"}}`,
	}
	for _, body := range bodies {
		_, err := d.Decode([]byte(body))
		require.ErrorIs(t, err, chatnet.ErrInvalidTransaction, body)
	}
}

func TestNames(t *testing.T) {
	require.Len(t, Names, 9)
	require.Contains(t, Names, "BlockMember")
}
