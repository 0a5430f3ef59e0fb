package programs

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNames(t *testing.T) {
	require.Equal(t, []string{"countdown", "factorial", "floordiv", "sum"}, Names())
}

func TestGet(t *testing.T) {
	ex, ok := Get("factorial")
	require.True(t, ok)
	require.Equal(t, "factorial.asm", ex.Filename())
	require.Equal(t, "120\n", ex.Expected)
	require.True(t, strings.Contains(ex.Code, "CALL fact 1"))

	_, ok = Get("missing")
	require.False(t, ok)
}

func TestAllHaveCode(t *testing.T) {
	all := All()
	require.Len(t, all, 4)
	for _, ex := range all {
		require.NotEmpty(t, ex.Code, ex.Name)
		require.NotEmpty(t, ex.Description, ex.Name)
		require.NotEmpty(t, ex.Expected, ex.Name)
		require.Equal(t, ex.Lines(), Lines(ex.Name))
	}
	require.Nil(t, Lines("missing"))
}
