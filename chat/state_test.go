package chat_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smarttavern/tavern-host-sdk/chat"
)

func Test_State_ActiveCharacterFallback(t *testing.T) {
	s := chat.NewState()
	s.PutCharacter(chat.Character{Name: "alice", AvatarPath: "/avatars/alice.png"})
	s.PutCharacter(chat.Character{Name: "bob"})
	s.SetActiveCharacter("alice")

	c, ok := s.Character("")
	require.True(t, ok)
	assert.Equal(t, "alice", c.Name)

	c, ok = s.Character("bob")
	require.True(t, ok)
	assert.Equal(t, "bob", c.Name)

	_, ok = s.Character("carol")
	assert.False(t, ok)

	assert.Equal(t, "/avatars/alice.png", s.CharAvatarPath())
}

func Test_State_WorldBooksAlwaysCollection(t *testing.T) {
	s := chat.NewState()
	s.PutWorldBook(chat.WorldBook{Name: "lore", Entries: []chat.WorldBookEntry{
		{Keys: []string{"castle"}, Content: "The castle is haunted.", Enabled: true},
	}})

	assert.Len(t, s.WorldBooks(""), 1)
	assert.Len(t, s.WorldBooks("lore"), 1)
	assert.Empty(t, s.WorldBooks("absent"))
}

func Test_State_SettingsSnapshotsAreCopies(t *testing.T) {
	s := chat.NewState()
	s.SetChatSettings(map[string]any{"max_context": 8192})

	snap := s.ChatSettings()
	snap["max_context"] = 0

	assert.Equal(t, 8192, s.ChatSettingsField("max_context"))
	assert.Nil(t, s.ChatSettingsField("absent"))
}

func Test_VarStore_RoundTrip(t *testing.T) {
	v, err := chat.NewVarStore()
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, v.Set(ctx, "affection", 3))

	got, err := v.Get(ctx, "affection")
	require.NoError(t, err)
	assert.Equal(t, 3, got)

	_, err = v.Get(ctx, "absent")
	assert.ErrorIs(t, err, chat.ErrVariableNotFound)
}

func Test_VarStore_GetMany(t *testing.T) {
	v, err := chat.NewVarStore()
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, v.SetMany(ctx, map[string]any{"a": 1, "b": 2}))

	got, err := v.GetMany(ctx, "a", "absent")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"a": 1}, got)

	all, err := v.GetMany(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func Test_VarStore_GetJSON(t *testing.T) {
	v, err := chat.NewVarStore()
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, v.Set(ctx, "mood", "cheerful"))

	raw, err := v.GetJSON(ctx, "mood")
	require.NoError(t, err)
	assert.JSONEq(t, `"cheerful"`, string(raw))

	raw, err = v.GetJSON(ctx, "")
	require.NoError(t, err)
	assert.JSONEq(t, `{"mood":"cheerful"}`, string(raw))
}

func Test_VarStore_DeleteIdempotent(t *testing.T) {
	v, err := chat.NewVarStore()
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, v.Set(ctx, "x", 1))
	require.NoError(t, v.Delete(ctx, "x"))
	require.NoError(t, v.Delete(ctx, "x"))
	assert.Equal(t, 0, v.Len())
}

func Test_VarStore_Persistence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vars.yaml")
	ctx := context.Background()

	v1, err := chat.NewVarStore(chat.WithVarStorePath(path))
	require.NoError(t, err)
	require.NoError(t, v1.Set(ctx, "affection", 5))
	require.NoError(t, v1.DeleteMany(ctx, []string{"absent"}))

	v2, err := chat.NewVarStore(chat.WithVarStorePath(path))
	require.NoError(t, err)
	got, err := v2.Get(ctx, "affection")
	require.NoError(t, err)
	assert.EqualValues(t, 5, got)
}

func Test_VarStore_EmptyKeyRejected(t *testing.T) {
	v, err := chat.NewVarStore()
	require.NoError(t, err)

	assert.Error(t, v.Set(context.Background(), "", 1))
	assert.Error(t, v.SetMany(context.Background(), map[string]any{"": 1}))
}
