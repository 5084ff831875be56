package shortcode

import (
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCodeLengthAndAlphabet(t *testing.T) {
	for _, length := range []int{1, 6, 8, 16} {
		g := NewGenerator(length)
		for i := 0; i < 200; i++ {
			code, err := g.NewCode()
			require.NoError(t, err)
			assert.Len(t, code, length)
			for _, r := range code {
				assert.True(t, strings.ContainsRune(Charset, r), "unexpected char %q in %q", r, code)
			}
		}
	}
}

func TestNewGeneratorDefaultLength(t *testing.T) {
	for _, n := range []int{0, -3} {
		code, err := NewGenerator(n).NewCode()
		require.NoError(t, err)
		assert.Len(t, code, DefaultLength)
	}
	assert.Len(t, Charset, 62)
}

func TestNewCodeIsRandom(t *testing.T) {
	g := NewGenerator(8)
	seen := make(map[string]struct{}, 500)
	for i := 0; i < 500; i++ {
		code, err := g.NewCode()
		require.NoError(t, err)
		seen[code] = struct{}{}
	}
	assert.Len(t, seen, 500)
}

func TestNewClickToken(t *testing.T) {
	g := NewGenerator(6)
	now := time.UnixMilli(1700000000123)

	token, err := g.NewClickToken(now)
	require.NoError(t, err)

	assert.Regexp(t, regexp.MustCompile(`^1700000000123-[0-9a-z]{6}$`), token)
}
