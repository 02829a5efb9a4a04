package beans

import (
	"reflect"
	"sync"
)

// Decorator wraps an already-initialized bean instance, most commonly to
// install a proxy. Decorators registered for the same type run in
// registration order, first-registered wrapping innermost — the same
// ordering rule as decorator.go's applyDecorators in the teacher.
type Decorator func(instance any) (any, error)

// decoratorChain is installed as a BeanPostProcessor by New so that
// RegisterDecorator needs no separate pipeline wiring; it is the concrete
// mechanism behind SPEC_FULL.md's supplemented "late proxy substitution"
// feature and spec §9's note that a late decision to wrap can still be
// honored, since it runs in the ordinary AfterInitialization hook rather
// than requiring definition-time knowledge that wrapping will happen.
type decoratorChain struct {
	mu      sync.RWMutex
	byType  map[reflect.Type][]Decorator
}

func newDecoratorChain() *decoratorChain {
	return &decoratorChain{byType: make(map[reflect.Type][]Decorator)}
}

func (d *decoratorChain) register(t reflect.Type, dec Decorator) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.byType[t] = append(d.byType[t], dec)
}

func (d *decoratorChain) BeforeInitialization(beanName string, instance any) (any, error) {
	return instance, nil
}

func (d *decoratorChain) AfterInitialization(beanName string, instance any) (any, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	instanceType := reflect.TypeOf(instance)
	current := instance
	for t, decorators := range d.byType {
		if instanceType == nil || !instanceType.AssignableTo(t) {
			continue
		}
		for _, dec := range decorators {
			decorated, err := dec(current)
			if err != nil {
				return nil, err
			}
			current = decorated
		}
	}
	return current, nil
}

// RegisterDecorator installs dec to run whenever a bean assignable to t
// finishes initialization.
func (c *Container) RegisterDecorator(t reflect.Type, dec Decorator) {
	c.decorators.register(t, dec)
}
