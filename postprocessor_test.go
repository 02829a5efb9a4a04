package beans

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingProcessor struct {
	events *[]string
}

func (p recordingProcessor) BeforeInstantiation(beanName string, def *BeanDefinition) (any, error) {
	*p.events = append(*p.events, "before-instantiation:"+beanName)
	return nil, nil
}

func (p recordingProcessor) AfterInstantiation(beanName string, instance any) (bool, error) {
	*p.events = append(*p.events, "after-instantiation:"+beanName)
	return true, nil
}

func (p recordingProcessor) PostProcessProperties(beanName string, instance any, props []PropertyValue) ([]PropertyValue, error) {
	*p.events = append(*p.events, "post-process-properties:"+beanName)
	return props, nil
}

func (p recordingProcessor) BeforeInitialization(beanName string, instance any) (any, error) {
	*p.events = append(*p.events, "before-init:"+beanName)
	return instance, nil
}

func (p recordingProcessor) AfterInitialization(beanName string, instance any) (any, error) {
	*p.events = append(*p.events, "after-init:"+beanName)
	return instance, nil
}

func TestContainer_InstanceHooksRunInOrder(t *testing.T) {
	c := New()
	var events []string
	c.RegisterProcessor(recordingProcessor{events: &events})

	require.NoError(t, c.RegisterDefinition(NewBeanDefinition("widget", reflect.TypeOf(&widget{}),
		func(r DependencyResolver) (any, error) {
			events = append(events, "constructor:widget")
			return &widget{Name: "gizmo"}, nil
		})))
	require.NoError(t, c.Refresh())

	assert.Equal(t, []string{
		"before-instantiation:widget",
		"constructor:widget",
		"after-instantiation:widget",
		"post-process-properties:widget",
		"before-init:widget",
		"after-init:widget",
	}, events)
}

type orderedBeanPostProcessor struct {
	name   string
	order  int
	events *[]string
}

func (p orderedBeanPostProcessor) Order() int { return p.order }
func (p orderedBeanPostProcessor) BeforeInitialization(beanName string, instance any) (any, error) {
	*p.events = append(*p.events, p.name)
	return instance, nil
}
func (p orderedBeanPostProcessor) AfterInitialization(beanName string, instance any) (any, error) {
	return instance, nil
}

type priorityBeanPostProcessor struct {
	name   string
	prio   int
	events *[]string
}

func (p priorityBeanPostProcessor) PriorityOrder() int { return p.prio }
func (p priorityBeanPostProcessor) BeforeInitialization(beanName string, instance any) (any, error) {
	*p.events = append(*p.events, p.name)
	return instance, nil
}
func (p priorityBeanPostProcessor) AfterInitialization(beanName string, instance any) (any, error) {
	return instance, nil
}

// PriorityOrdered processors must run ahead of every Ordered processor
// regardless of registration order, and Ordered processors must run by
// ascending numeric Order among themselves (spec §4.7).
func TestContainer_PriorityAndOrderedProcessorsDispatchInTierOrder(t *testing.T) {
	c := New()
	var events []string

	c.RegisterProcessor(orderedBeanPostProcessor{name: "ordered-high", order: 10, events: &events})
	c.RegisterProcessor(priorityBeanPostProcessor{name: "priority-low", prio: 5, events: &events})
	c.RegisterProcessor(orderedBeanPostProcessor{name: "ordered-low", order: 1, events: &events})
	c.RegisterProcessor(priorityBeanPostProcessor{name: "priority-high", prio: 1, events: &events})

	require.NoError(t, c.RegisterDefinition(NewBeanDefinition("widget", reflect.TypeOf(&widget{}),
		func(r DependencyResolver) (any, error) { return &widget{Name: "gizmo"}, nil })))
	require.NoError(t, c.Refresh())

	assert.Equal(t, []string{"priority-high", "priority-low", "ordered-low", "ordered-high"}, events)
}

type shortCircuitProcessor struct{}

func (shortCircuitProcessor) BeforeInstantiation(beanName string, def *BeanDefinition) (any, error) {
	if beanName == "shortcut" {
		return &widget{Name: "pre-built"}, nil
	}
	return nil, nil
}
func (shortCircuitProcessor) AfterInstantiation(beanName string, instance any) (bool, error) {
	return true, nil
}
func (shortCircuitProcessor) PostProcessProperties(beanName string, instance any, props []PropertyValue) ([]PropertyValue, error) {
	return props, nil
}

func TestContainer_BeforeInstantiationShortCircuit(t *testing.T) {
	c := New()
	c.RegisterProcessor(shortCircuitProcessor{})

	constructorCalled := false
	require.NoError(t, c.RegisterDefinition(NewBeanDefinition("shortcut", reflect.TypeOf(&widget{}),
		func(r DependencyResolver) (any, error) {
			constructorCalled = true
			return &widget{Name: "should-not-happen"}, nil
		})))
	require.NoError(t, c.Refresh())

	v, err := c.GetBean("shortcut")
	require.NoError(t, err)
	assert.Equal(t, "pre-built", v.(*widget).Name)
	assert.False(t, constructorCalled)
}

type destructionTrackingProcessor struct{ destroyed *[]string }

func (p destructionTrackingProcessor) RequiresDestruction(beanName string, instance any) bool {
	return true
}
func (p destructionTrackingProcessor) BeforeDestruction(beanName string, instance any) error {
	*p.destroyed = append(*p.destroyed, beanName)
	return nil
}

func TestContainer_DestructionAwareProcessorRunsOnClose(t *testing.T) {
	c := New()
	var destroyed []string
	c.RegisterProcessor(destructionTrackingProcessor{destroyed: &destroyed})

	require.NoError(t, c.RegisterDefinition(NewBeanDefinition("widget", reflect.TypeOf(&widget{}),
		func(r DependencyResolver) (any, error) { return &widget{Name: "gizmo"}, nil })))
	require.NoError(t, c.Refresh())

	require.NoError(t, c.Close())
	assert.Equal(t, []string{"widget"}, destroyed)
}
