package status

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPage_InitialRenderHasNoLevel(t *testing.T) {
	p, err := NewPage("192.168.1.20", "81")
	require.NoError(t, err)

	body := string(p.Bytes())
	assert.Contains(t, body, `<span id="level"></span>`)
	assert.Contains(t, body, `"192.168.1.20"`)
	assert.Contains(t, body, `"81"`)

	_, ok := p.Level()
	assert.False(t, ok)
}

func TestPage_Render(t *testing.T) {
	p, err := NewPage("", "81")
	require.NoError(t, err)

	require.NoError(t, p.Render(57))
	assert.Contains(t, string(p.Bytes()), `<span id="level">57% </span>`)

	l, ok := p.Level()
	assert.True(t, ok)
	assert.Equal(t, 57, l)

	require.NoError(t, p.Render(0))
	assert.Contains(t, string(p.Bytes()), `<span id="level">0% </span>`)
}

func TestPage_EscapesAddress(t *testing.T) {
	p, err := NewPage(`"</script><b>`, "81")
	require.NoError(t, err)
	assert.NotContains(t, string(p.Bytes()), `"</script><b>`)
}
