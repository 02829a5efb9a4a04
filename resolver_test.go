package beans

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContainer_GroupOrdersByPriorityThenOrderThenRegistration(t *testing.T) {
	c := New()
	greeterType := reflect.TypeOf((*greeter)(nil)).Elem()

	low := NewBeanDefinition("low", greeterType,
		func(r DependencyResolver) (any, error) { return englishGreeter{}, nil })
	low.Order = 10
	require.NoError(t, c.RegisterDefinition(low))

	high := NewBeanDefinition("high", greeterType,
		func(r DependencyResolver) (any, error) { return frenchGreeter{}, nil })
	high.Order = 1
	require.NoError(t, c.RegisterDefinition(high))

	prio := NewBeanDefinition("prio", greeterType,
		func(r DependencyResolver) (any, error) { return englishGreeter{}, nil })
	prio.Priority = true
	require.NoError(t, c.RegisterDefinition(prio))

	require.NoError(t, c.Refresh())
	names := c.GetBeanNamesForType(greeterType)
	assert.Equal(t, []string{"prio", "high", "low"}, names)
}

func TestContainer_DependsOnCreatesDependencyFirst(t *testing.T) {
	c := New()
	var order []string
	require.NoError(t, c.RegisterDefinition(NewBeanDefinition("first", reflect.TypeOf(&widget{}),
		func(r DependencyResolver) (any, error) {
			order = append(order, "first")
			return &widget{Name: "first"}, nil
		})))
	second := NewBeanDefinition("second", reflect.TypeOf(&widget{}),
		func(r DependencyResolver) (any, error) {
			order = append(order, "second")
			return &widget{Name: "second"}, nil
		})
	second.DependsOn = []string{"first"}
	require.NoError(t, c.RegisterDefinition(second))
	require.NoError(t, c.Refresh())

	require.Len(t, order, 2)
	assert.Equal(t, "first", order[0])
	assert.Equal(t, "second", order[1])
}

func TestContainer_GroupResolvesAllCandidates(t *testing.T) {
	c := New()
	greeterType := reflect.TypeOf((*greeter)(nil)).Elem()
	require.NoError(t, c.RegisterDefinition(NewBeanDefinition("english", greeterType,
		func(r DependencyResolver) (any, error) { return englishGreeter{}, nil })))
	require.NoError(t, c.RegisterDefinition(NewBeanDefinition("french", greeterType,
		func(r DependencyResolver) (any, error) { return frenchGreeter{}, nil })))

	var greetings []string
	require.NoError(t, c.RegisterDefinition(NewBeanDefinition("aggregator", nil,
		func(r DependencyResolver) (any, error) {
			all, err := r.Group(greeterType)
			if err != nil {
				return nil, err
			}
			for _, g := range all {
				greetings = append(greetings, g.(greeter).Greet())
			}
			return "aggregator", nil
		})))

	require.NoError(t, c.Refresh())
	assert.ElementsMatch(t, []string{"hello", "bonjour"}, greetings)
}

func TestContainer_LazyResolutionDefersLookup(t *testing.T) {
	c := New()
	created := false
	widgetDef := NewBeanDefinition("widget", reflect.TypeOf(&widget{}),
		func(r DependencyResolver) (any, error) {
			created = true
			return &widget{Name: "gizmo"}, nil
		})
	widgetDef.Lazy = true
	require.NoError(t, c.RegisterDefinition(widgetDef))

	require.NoError(t, c.RegisterDefinition(NewBeanDefinition("consumer", nil,
		func(r DependencyResolver) (any, error) {
			lazy := r.Lazy(reflect.TypeOf(&widget{}))
			assert.False(t, created, "lazy resolution must not eagerly create the target")
			v, err := lazy()
			if err != nil {
				return nil, err
			}
			assert.True(t, created)
			return v, nil
		})))

	require.NoError(t, c.Refresh())
}

func TestContainer_LazyDefinitionNotCreatedDuringRefresh(t *testing.T) {
	c := New()
	created := false
	def := NewBeanDefinition("widget", reflect.TypeOf(&widget{}),
		func(r DependencyResolver) (any, error) {
			created = true
			return &widget{Name: "gizmo"}, nil
		})
	def.Lazy = true
	require.NoError(t, c.RegisterDefinition(def))
	require.NoError(t, c.Refresh())

	assert.False(t, created)
	_, err := c.GetBean("widget")
	require.NoError(t, err)
	assert.True(t, created)
}
