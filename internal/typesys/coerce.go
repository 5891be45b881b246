package typesys

import (
	"errors"
	"fmt"
	"reflect"
)

// ErrNotCoercible is returned when a runtime value cannot be converted to
// the requested class.
var ErrNotCoercible = errors.New("value not coercible")

// Coerce converts value so that it can be passed where dst is expected.
// Classes without a GoType accept the value unchanged.
func Coerce(value any, dst *Class) (any, error) {
	if dst == nil || dst.GoType == nil || dst.Kind == KindAny || dst.Kind == KindVoid {
		return value, nil
	}

	if value == nil {
		return reflect.Zero(dst.GoType).Interface(), nil
	}

	converted, err := coerceValue(reflect.ValueOf(value), dst.GoType)
	if err != nil {
		return nil, fmt.Errorf("%w: %T to %s", err, value, dst.Name)
	}

	return converted.Interface(), nil
}

// CoerceValue converts v to the target Go type following the same rules as
// Coerce.
func CoerceValue(v reflect.Value, target reflect.Type) (reflect.Value, error) {
	return coerceValue(v, target)
}

func coerceValue(v reflect.Value, target reflect.Type) (reflect.Value, error) {
	if !v.IsValid() {
		return reflect.Zero(target), nil
	}

	if v.Type() == target {
		return v, nil
	}

	if v.Kind() == reflect.Interface && !v.IsNil() {
		return coerceValue(v.Elem(), target)
	}

	if target.Kind() == reflect.Interface {
		if v.Type().Implements(target) {
			out := reflect.New(target).Elem()
			out.Set(v)

			return out, nil
		}

		return reflect.Value{}, ErrNotCoercible
	}

	if v.Type().AssignableTo(target) {
		return v, nil
	}

	// Boxing: allocate a pointer holding the converted primitive.
	if target.Kind() == reflect.Pointer && v.Kind() != reflect.Pointer {
		inner, err := coerceValue(v, target.Elem())
		if err != nil {
			return reflect.Value{}, err
		}

		ptr := reflect.New(target.Elem())
		ptr.Elem().Set(inner)

		return ptr, nil
	}

	// Unboxing.
	if v.Kind() == reflect.Pointer && target.Kind() != reflect.Pointer {
		if v.IsNil() {
			return reflect.Value{}, fmt.Errorf("%w: nil pointer", ErrNotCoercible)
		}

		return coerceValue(v.Elem(), target)
	}

	if v.Kind() == reflect.Slice && target.Kind() == reflect.Slice {
		out := reflect.MakeSlice(target, v.Len(), v.Len())

		for i := range v.Len() {
			elem, err := coerceValue(v.Index(i), target.Elem())
			if err != nil {
				return reflect.Value{}, err
			}

			out.Index(i).Set(elem)
		}

		return out, nil
	}

	if numericKind(v.Kind()) && numericKind(target.Kind()) {
		return v.Convert(target), nil
	}

	if v.Kind() == target.Kind() && v.Type().ConvertibleTo(target) {
		return v.Convert(target), nil
	}

	return reflect.Value{}, ErrNotCoercible
}

func numericKind(kind reflect.Kind) bool {
	switch kind {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	default:
		return false
	}
}
