package beans

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clock interface{ Now() string }
type fixedClock struct{ at string }

func (f fixedClock) Now() string { return f.at }

type autowiredByType struct {
	Clock clock
}

type autowiredByName struct {
	MyClock clock `bean:"specificClock"`
}

type autowiredGroup struct {
	Greeters []greeter `bean:",group=greeters"`
}

type autowiredOptional struct {
	Clock clock `bean:",optional"`
}

func TestAutowire_ByType(t *testing.T) {
	c := New()
	require.NoError(t, c.RegisterDefinition(NewBeanDefinition("clock", reflect.TypeOf((*clock)(nil)).Elem(),
		func(r DependencyResolver) (any, error) { return fixedClock{at: "now"}, nil })))

	def := NewBeanDefinition("consumer", reflect.TypeOf(&autowiredByType{}),
		func(r DependencyResolver) (any, error) { return &autowiredByType{}, nil })
	def.Autowire = AutowireByType
	require.NoError(t, c.RegisterDefinition(def))
	require.NoError(t, c.Refresh())

	v, err := c.GetBean("consumer")
	require.NoError(t, err)
	assert.Equal(t, "now", v.(*autowiredByType).Clock.Now())
}

func TestAutowire_ByName(t *testing.T) {
	c := New()
	require.NoError(t, c.RegisterDefinition(NewBeanDefinition("specificClock", reflect.TypeOf((*clock)(nil)).Elem(),
		func(r DependencyResolver) (any, error) { return fixedClock{at: "named"}, nil })))

	def := NewBeanDefinition("consumer", reflect.TypeOf(&autowiredByName{}),
		func(r DependencyResolver) (any, error) { return &autowiredByName{}, nil })
	def.Autowire = AutowireByName
	require.NoError(t, c.RegisterDefinition(def))
	require.NoError(t, c.Refresh())

	v, err := c.GetBean("consumer")
	require.NoError(t, err)
	assert.Equal(t, "named", v.(*autowiredByName).MyClock.Now())
}

func TestAutowire_Group(t *testing.T) {
	c := New()
	greeterType := reflect.TypeOf((*greeter)(nil)).Elem()
	require.NoError(t, c.RegisterDefinition(NewBeanDefinition("english", greeterType,
		func(r DependencyResolver) (any, error) { return englishGreeter{}, nil })))
	require.NoError(t, c.RegisterDefinition(NewBeanDefinition("french", greeterType,
		func(r DependencyResolver) (any, error) { return frenchGreeter{}, nil })))

	def := NewBeanDefinition("consumer", reflect.TypeOf(&autowiredGroup{}),
		func(r DependencyResolver) (any, error) { return &autowiredGroup{}, nil })
	def.Autowire = AutowireByType
	require.NoError(t, c.RegisterDefinition(def))
	require.NoError(t, c.Refresh())

	v, err := c.GetBean("consumer")
	require.NoError(t, err)
	assert.Len(t, v.(*autowiredGroup).Greeters, 2)
}

func TestAutowire_OptionalMissingDependencyLeavesFieldUnset(t *testing.T) {
	c := New()
	def := NewBeanDefinition("consumer", reflect.TypeOf(&autowiredOptional{}),
		func(r DependencyResolver) (any, error) { return &autowiredOptional{}, nil })
	def.Autowire = AutowireByType
	require.NoError(t, c.RegisterDefinition(def))
	require.NoError(t, c.Refresh())

	v, err := c.GetBean("consumer")
	require.NoError(t, err)
	assert.Nil(t, v.(*autowiredOptional).Clock)
}

func TestInvokeStruct_AutowiresArbitraryStruct(t *testing.T) {
	c := New()
	require.NoError(t, c.RegisterDefinition(NewBeanDefinition("clock", reflect.TypeOf((*clock)(nil)).Elem(),
		func(r DependencyResolver) (any, error) { return fixedClock{at: "now"}, nil })))
	require.NoError(t, c.Refresh())

	target := &autowiredByType{}
	require.NoError(t, InvokeStruct(c, target))
	assert.Equal(t, "now", target.Clock.Now())
}
