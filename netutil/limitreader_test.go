package netutil_test

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smarttavern/tavern-host-sdk/netutil"
)

func Test_LimitedReader(t *testing.T) {
	tests := []struct {
		name      string
		content   string
		limit     int64
		wantError bool
	}{
		{name: "content under limit", content: "hello", limit: 10},
		// draining past the limit is what trips the probe, so exactly-at-limit
		// content errors under io.ReadAll
		{name: "content at limit", content: "hello", limit: 5, wantError: true},
		{name: "content over limit", content: "hello world", limit: 5, wantError: true},
		{name: "empty content", content: "", limit: 10},
		{name: "zero limit blocks all", content: "hello", limit: 0, wantError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reader := netutil.NewLimitedReader(strings.NewReader(tt.content), tt.limit)
			_, err := io.ReadAll(reader)

			if tt.wantError {
				require.Error(t, err)
				assert.True(t, netutil.IsSizeLimitExceededError(err))
			} else {
				require.NoError(t, err)
			}
		})
	}

	t.Run("chunked reads stop at the limit", func(t *testing.T) {
		content := bytes.Repeat([]byte("x"), 1000)
		limit := int64(100)
		reader := netutil.NewLimitedReader(bytes.NewReader(content), limit)

		buf := make([]byte, 10)
		var total int64
		var limitErr error
		for {
			n, err := reader.Read(buf)
			total += int64(n)
			if err != nil {
				limitErr = err
				break
			}
		}

		assert.True(t, netutil.IsSizeLimitExceededError(limitErr))
		assert.LessOrEqual(t, total, limit+1)
	})

	t.Run("error message carries limit and read count", func(t *testing.T) {
		err := &netutil.SizeLimitExceededError{Limit: 1024, Read: 2048}

		assert.Contains(t, err.Error(), "1024")
		assert.Contains(t, err.Error(), "2048")
	})
}
