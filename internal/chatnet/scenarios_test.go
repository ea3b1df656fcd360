package chatnet_test

import (
	"chatnet/internal/chatnet"
	th "chatnet/internal/testing"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestScenarioPublicGroup(t *testing.T) {
	f := bootstrap(t)
	f.group(alice, "C1", chatnet.ChatPublicGroup)

	f.mustSubmit(bob, chatnet.JoinToChat{Chat: chatnet.ChatRef("C1")})
	v := f.view("C1")
	require.Len(t, v.Members, 2)
	require.Equal(t, chatnet.UserRef(alice), v.Members[0].User)
	require.Equal(t, chatnet.MemberOwner, v.Members[0].Type)
	require.Equal(t, chatnet.StatusNormal, v.Members[0].Status)
	require.Equal(t, chatnet.UserRef(bob), v.Members[1].User)
	require.Equal(t, chatnet.MemberNormal, v.Members[1].Type)
	require.Equal(t, chatnet.StatusNormal, v.Members[1].Status)

	f.mustSubmit(alice, chatnet.SendMessageToChat{Chat: chatnet.ChatRef("C1"), Message: chatnet.MessageInput{ID: "hi-1", Content: "hi"}})
	require.Len(t, f.view("C1").Chat.MessageList, 1)

	f.mustSubmit(alice, chatnet.DeleteMessage{Chat: chatnet.ChatRef("C1"), Message: chatnet.MessageRef("hi-1")})
	require.Len(t, f.view("C1").Chat.MessageList, 0)
	require.Equal(t, 0, f.store.Len(chatnet.TypeMessage))
}

func TestScenarioPrivateGroup(t *testing.T) {
	f := bootstrap(t)
	f.group(alice, "C2", chatnet.ChatPrivateGroup)

	f.mustSubmit(bob, chatnet.JoinToChat{Chat: chatnet.ChatRef("C2")})
	require.Equal(t, chatnet.StatusRequested, f.memberOf("C2", bob).Status)
}

func TestScenarioPeerChat(t *testing.T) {
	f := bootstrap(t)
	f.group(carol, "earlier", chatnet.ChatPublicChannel)

	f.mustSubmit(alice, chatnet.StartNewPeerChat{NewChatID: "AB", NewChatTitle: "alice and bob", PeerUser: chatnet.UserRef(bob)})

	require.Len(t, f.view("AB").Chat.MemberList, 2)
	list := f.network().ChatList
	require.Equal(t, []chatnet.Ref{chatnet.ChatRef("earlier"), chatnet.ChatRef("AB")}, list)
}

func TestScenarioManyPeerChats(t *testing.T) {
	f := bootstrap(t)

	var expected []chatnet.Ref
	for i, pair := range th.PeerPairs([]string{alice, bob, carol}) {
		id := "peer-" + pair[1]
		f.mustSubmit(pair[0], chatnet.StartNewPeerChat{NewChatID: id, PeerUser: chatnet.UserRef(pair[1])})
		expected = append(expected, chatnet.ChatRef(id))

		v := f.view(id)
		require.Equal(t, chatnet.ChatPeer, v.Chat.Type)
		require.Equal(t, chatnet.UserRef(pair[0]), v.Members[0].User)
		require.Equal(t, chatnet.UserRef(pair[1]), v.Members[1].User)
		require.Len(t, f.network().ChatList, i+1)
	}
	require.Equal(t, expected, f.network().ChatList)

	// peer chats cannot be joined by a third user
	err := f.submit(carol, chatnet.JoinToChat{Chat: chatnet.ChatRef("peer-" + bob)})
	require.ErrorIs(t, err, chatnet.ErrInvalidState)
}
