package loader_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/smarttavern/tavern-host-sdk/loader"
)

func Test_SlotID(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   string
	}{
		{"plain path", "plugins/foo", "plg:plugins/foo"},
		{"dots and dashes kept", "plugins/my-ext.v2", "plg:plugins/my-ext.v2"},
		{"spaces replaced", "plugins/my ext", "plg:plugins/my_ext"},
		{"unicode replaced", "plugins/扩展", "plg:plugins/__"},
		{"special chars replaced", "plugins/a@b#c", "plg:plugins/a_b_c"},
		{"empty", "", "plg:"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, loader.SlotID(tt.source))
		})
	}
}

func Test_SlotID_Deterministic(t *testing.T) {
	assert.Equal(t, loader.SlotID("plugins/foo"), loader.SlotID("plugins/foo"),
		"same source must always map to the same slot")
}
