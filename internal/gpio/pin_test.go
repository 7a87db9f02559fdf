package gpio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pocketfw/reactor/internal/loop"
)

func TestConfig_Validate(t *testing.T) {
	valid := []Config{
		{Mode: ModeInput},
		{Mode: ModeInput, Pull: PullUp},
		{Mode: ModeOutputPushPull},
		{Mode: ModeOutputOpenDrain, Pull: PullDown},
		{Mode: ModeAnalog},
		{Mode: ModeInterrupt, Edge: EdgeRising},
		{Mode: ModeInterrupt, Pull: PullUp, Edge: EdgeBoth},
	}
	for _, cfg := range valid {
		assert.NoError(t, cfg.Validate("PA7"), "%+v", cfg)
	}

	invalid := []Config{
		{},
		{Mode: "out"},
		{Mode: ModeInput, Pull: "strong"},
		{Mode: ModeInput, Edge: EdgeRising},
		{Mode: ModeInterrupt},
		{Mode: ModeInterrupt, Edge: "level"},
		{Mode: ModeAnalog, Pull: PullUp},
	}
	for _, cfg := range invalid {
		err := cfg.Validate("PA7")
		require.Error(t, err, "%+v", cfg)
		var ce *ConfigError
		assert.ErrorAs(t, err, &ce)
	}
}

func TestNewPin_RejectsBadConfig(t *testing.T) {
	_, err := NewPin("PA7", Config{Mode: "sideways"})
	require.Error(t, err)

	_, err = NewPin("", Config{Mode: ModeInput})
	require.Error(t, err)

	p, err := NewPin("PA7", Config{Mode: ModeInput})
	require.NoError(t, err)
	assert.Equal(t, PullNo, p.Config().Pull, "empty pull defaults to no")
}

func TestPin_WriteRequiresOutputMode(t *testing.T) {
	in, err := NewPin("PA4", Config{Mode: ModeInput})
	require.NoError(t, err)
	assert.Error(t, in.Write(true))

	out, err := NewPin("PA7", Config{Mode: ModeOutputPushPull})
	require.NoError(t, err)
	require.NoError(t, out.Write(true))
	assert.True(t, out.Read())
	require.NoError(t, out.Write(false))
	assert.False(t, out.Read())
}

func TestPin_Bind(t *testing.T) {
	l := loop.New()

	out, err := NewPin("PA4", Config{Mode: ModeOutputPushPull})
	require.NoError(t, err)
	_, err = out.Bind(l)
	assert.Error(t, err, "bind requires interrupt mode")

	p, err := NewPin("PA7", Config{Mode: ModeInterrupt, Edge: EdgeRising})
	require.NoError(t, err)
	irq, err := p.Bind(l)
	require.NoError(t, err)
	assert.Equal(t, "PA7", irq.Contract().Name())
	assert.Equal(t, loop.KindInterrupt, irq.Contract().Kind())

	_, err = p.Bind(l)
	assert.Error(t, err, "second bind must fail")
}

func TestPin_RaiseEdge_Filtering(t *testing.T) {
	l := loop.New()

	rising, err := NewPin("PA7", Config{Mode: ModeInterrupt, Edge: EdgeRising})
	require.NoError(t, err)
	irq, err := rising.Bind(l)
	require.NoError(t, err)

	require.NoError(t, rising.RaiseEdge(true))
	require.NoError(t, rising.RaiseEdge(false))
	require.NoError(t, rising.RaiseEdge(true))
	assert.Equal(t, int64(2), irq.Pending(), "falling edges filtered out")
	assert.True(t, rising.Read(), "level follows the last edge")

	both, err := NewPin("PB2", Config{Mode: ModeInterrupt, Edge: EdgeBoth})
	require.NoError(t, err)
	irqBoth, err := both.Bind(l)
	require.NoError(t, err)

	require.NoError(t, both.RaiseEdge(true))
	require.NoError(t, both.RaiseEdge(false))
	assert.Equal(t, int64(2), irqBoth.Pending())
}

func TestPin_RaiseEdge_UnboundIsQuiet(t *testing.T) {
	p, err := NewPin("PA7", Config{Mode: ModeInterrupt, Edge: EdgeFalling})
	require.NoError(t, err)

	require.NoError(t, p.RaiseEdge(false), "raising on an unbound pin only records the level")
	assert.False(t, p.Read())

	in, err := NewPin("PA4", Config{Mode: ModeInput})
	require.NoError(t, err)
	assert.Error(t, in.RaiseEdge(true), "edges require interrupt mode")
}
