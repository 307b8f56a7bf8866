package resources_test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/km-arc/go-binding/framework/container"
	"github.com/km-arc/go-binding/framework/observation"
	"github.com/km-arc/go-binding/framework/resources"
)

type fakeBinding struct {
	mode    observation.BindingMode
	changes int
}

func (b *fakeBinding) Locator() observation.ServiceLocator                 { return nil }
func (b *fakeBinding) Mode() observation.BindingMode                       { return b.mode }
func (b *fakeBinding) SetMode(m observation.BindingMode)                   { b.mode = m }
func (b *fakeBinding) HandleChange(_, _ any, _ observation.LifecycleFlags) { b.changes++ }

func TestKeys(t *testing.T) {
	assert.Equal(t, "binding-behavior:signal", resources.BehaviorKey("signal"))
	assert.Equal(t, "value-converter:upper", resources.ConverterKey("upper"))
}

func TestModeBehaviors(t *testing.T) {
	behaviors := []*resources.ModeBehavior{
		resources.OneTimeBehavior,
		resources.ToViewBehavior,
		resources.FromViewBehavior,
		resources.TwoWayBehavior,
	}
	initial := []observation.BindingMode{
		observation.OneTime, observation.ToView, observation.FromView, observation.TwoWay, observation.Default,
	}

	for _, b := range behaviors {
		for _, init := range initial {
			t.Run(fmt.Sprintf("%s over %s", b.Mode(), init), func(t *testing.T) {
				binding := &fakeBinding{mode: init}
				require.NoError(t, b.Bind(0, nil, binding))
				assert.Equal(t, b.Mode(), binding.mode)

				require.NoError(t, b.Unbind(0, nil, binding))
				assert.Equal(t, init, binding.mode)
			})
		}
	}
}

func TestModeBehavior_UnbindWithoutBindKeepsMode(t *testing.T) {
	binding := &fakeBinding{mode: observation.ToView}
	require.NoError(t, resources.TwoWayBehavior.Unbind(0, nil, binding))
	assert.Equal(t, observation.ToView, binding.mode)
}

func TestSignalBehavior(t *testing.T) {
	signaler := observation.NewSignaler()
	b := resources.NewSignalBehavior(signaler)
	binding := &fakeBinding{}

	assert.Error(t, b.Bind(0, nil, binding))
	require.NoError(t, b.Bind(0, nil, binding, "a", "b"))
	assert.Equal(t, 1, signaler.ListenerCount("a"))

	signaler.DispatchSignal("b", 0)
	assert.Equal(t, 1, binding.changes)

	require.NoError(t, b.Unbind(0, nil, binding))
	require.NoError(t, b.Unbind(0, nil, binding))
	assert.Equal(t, 0, signaler.ListenerCount("a"))
	assert.Equal(t, 0, signaler.ListenerCount("b"))
}

func TestBuiltinsAndLookup(t *testing.T) {
	c := container.New()
	require.NoError(t, c.Register(resources.Builtins))

	b, err := resources.GetBehavior(c, "twoWay")
	require.NoError(t, err)
	assert.Same(t, resources.TwoWayBehavior, b)

	sig, err := resources.GetBehavior(c, "signal")
	require.NoError(t, err)
	assert.IsType(t, &resources.SignalBehavior{}, sig)

	missing, err := resources.GetBehavior(c, "debounce")
	require.NoError(t, err)
	assert.Nil(t, missing)

	assert.Contains(t, c.Resources(), "binding-behavior:oneTime")
}

func TestConverters(t *testing.T) {
	c := container.New()
	upper := &resources.ConverterFuncs{
		To: func(v any, _ ...any) (any, error) { return strings.ToUpper(fmt.Sprint(v)), nil },
	}
	require.NoError(t, c.Register(resources.ConverterInstance("upper", upper)))

	conv, err := resources.GetConverter(c, "upper")
	require.NoError(t, err)
	to, ok := conv.(resources.ToViewConverter)
	require.True(t, ok)
	out, err := to.ToView("abc")
	require.NoError(t, err)
	assert.Equal(t, "ABC", out)

	back, err := upper.FromView("x")
	require.NoError(t, err)
	assert.Equal(t, "x", back)

	none, err := resources.GetConverter(c, "lower")
	require.NoError(t, err)
	assert.Nil(t, none)
}
