package beans

import (
	"fmt"
	"reflect"

	"github.com/gobeans/container/internal/metadata"
)

// setNamedField assigns value into instance's exported field named
// fieldName, using internal/metadata's struct analysis so a
// `bean:"otherName"` tag is honored the same way explicit PropertyValues
// and implicit autowiring both expect.
//
// Grounded on danpasecinic/needle's autowire.go InvokeStruct field-setting
// path (CanSet/AssignableTo validation before Set).
func setNamedField(instance any, fieldName string, value any) error {
	rv := reflect.ValueOf(instance)
	for rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return fmt.Errorf("beans: cannot set property %q on nil instance", fieldName)
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return fmt.Errorf("beans: cannot set property %q: instance is not a struct", fieldName)
	}

	var field reflect.Value
	for _, f := range metadata.New().AnalyzeStruct(rv.Type()).Fields {
		if f.Name == fieldName {
			field = rv.Field(f.Index)
			break
		}
	}
	if !field.IsValid() {
		return fmt.Errorf("beans: no field %q on %s", fieldName, rv.Type())
	}
	if !field.CanSet() {
		return fmt.Errorf("beans: field %q on %s is not settable (unexported?)", fieldName, rv.Type())
	}

	valueRV := reflect.ValueOf(value)
	if !valueRV.IsValid() {
		field.Set(reflect.Zero(field.Type()))
		return nil
	}
	if !valueRV.Type().AssignableTo(field.Type()) {
		if valueRV.Type().ConvertibleTo(field.Type()) {
			valueRV = valueRV.Convert(field.Type())
		} else {
			return fmt.Errorf("beans: cannot assign %s to field %q of type %s", valueRV.Type(), fieldName, field.Type())
		}
	}
	field.Set(valueRV)
	return nil
}

// autowireRemainingFields fills every autowirable field not already set
// explicitly, resolving by type (AutowireByType) or by bean name matching
// the field's tag/field name (AutowireByName).
func autowireRemainingFields(instance any, mode AutowireMode, alreadySet map[string]bool, resolver DependencyResolver, analyzer *metadata.Analyzer) error {
	rv := reflect.ValueOf(instance)
	for rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil
	}

	info := analyzer.AnalyzeStruct(rv.Type())
	for _, f := range info.Fields {
		if alreadySet[f.Name] {
			continue
		}
		field := rv.Field(f.Index)
		if !field.CanSet() || !field.IsZero() {
			continue
		}

		if f.Tag.Group != "" {
			values, err := resolver.Group(field.Type().Elem())
			if err != nil {
				if f.Tag.Optional {
					continue
				}
				return err
			}
			slice := reflect.MakeSlice(field.Type(), 0, len(values))
			for _, v := range values {
				slice = reflect.Append(slice, reflect.ValueOf(v))
			}
			field.Set(slice)
			continue
		}

		var value any
		var err error
		switch mode {
		case AutowireByName:
			value, err = resolver.ByName(f.Name)
		default:
			// f.Name is passed as the injection-point name so a same-type
			// candidate whose bean name matches the field wins ahead of a
			// qualifier match, per spec §4.6 step 5(d)'s tie-break order.
			value, err = resolver.ByTypeQualified(f.Type, f.Name, f.Tag.Qualifier)
		}
		if err != nil {
			if f.Tag.Optional {
				continue
			}
			return err
		}
		valueRV := reflect.ValueOf(value)
		if valueRV.IsValid() && valueRV.Type().AssignableTo(field.Type()) {
			field.Set(valueRV)
		}
	}
	return nil
}

// InvokeStruct autowires the exported fields of an arbitrary struct value
// against c (honoring any `bean` tags on them), without requiring the struct itself
// to be a registered bean definition. This is the struct-based autowiring
// surface named in SPEC_FULL.md's supplemented features, grounded
// directly on danpasecinic/needle's InvokeStruct[T].
func InvokeStruct[T any](c *Container, target *T) error {
	resolver := &containerResolver{c: c, requestingBean: fmt.Sprintf("%T", target), stack: &resolutionStack{}}
	return autowireRemainingFields(target, AutowireByType, map[string]bool{}, resolver, c.metadata)
}
