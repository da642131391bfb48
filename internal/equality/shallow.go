package equality

import (
	"math"
	"math/cmplx"
	"reflect"
)

// ShouldUpdate reports whether a subscriber whose projection moved from old
// to next must be notified.
func ShouldUpdate(old, next any) bool {
	return !Shallow(old, next)
}

// Shallow reports whether a and b are the same at depth one.
//
// Comparison rules:
//   - Values of different dynamic types are different.
//   - Scalars compare by value; NaN is equal to NaN.
//   - Slices and arrays compare element by element using [identical].
//   - Maps compare key by key; a key missing on either side is a mismatch.
//   - Structs compare field by field, exported and unexported.
//   - Pointers to structs are the same if they are equal pointers or if both
//     pointees compare shallowly.
//   - nil and non-nil containers are different, so a nil slice is not the
//     same as an empty one.
func Shallow(a, b any) bool {
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	if !va.IsValid() || !vb.IsValid() {
		return va.IsValid() == vb.IsValid()
	}
	if va.Type() != vb.Type() {
		return false
	}

	switch va.Kind() {
	case reflect.Slice:
		if va.IsNil() != vb.IsNil() {
			return false
		}
		if va.Pointer() == vb.Pointer() && va.Len() == vb.Len() {
			return true
		}
		return sameElements(va, vb)
	case reflect.Array:
		return sameElements(va, vb)
	case reflect.Map:
		if va.IsNil() != vb.IsNil() {
			return false
		}
		// same map; NaN keys never match through MapIndex
		if va.Pointer() == vb.Pointer() {
			return true
		}
		return sameEntries(va, vb)
	case reflect.Struct:
		return sameFields(va, vb)
	case reflect.Pointer:
		if va.Pointer() == vb.Pointer() {
			return true
		}
		if va.IsNil() || vb.IsNil() || va.Elem().Kind() != reflect.Struct {
			return false
		}
		return sameFields(va.Elem(), vb.Elem())
	default:
		return identical(va, vb)
	}
}

func sameElements(a, b reflect.Value) bool {
	if a.Len() != b.Len() {
		return false
	}
	for i := 0; i < a.Len(); i++ {
		if !identical(a.Index(i), b.Index(i)) {
			return false
		}
	}
	return true
}

func sameEntries(a, b reflect.Value) bool {
	if a.Len() != b.Len() {
		return false
	}
	iter := a.MapRange()
	for iter.Next() {
		other := b.MapIndex(iter.Key())
		if !other.IsValid() {
			return false
		}
		if !identical(iter.Value(), other) {
			return false
		}
	}
	return true
}

func sameFields(a, b reflect.Value) bool {
	for i := 0; i < a.NumField(); i++ {
		if !identical(a.Field(i), b.Field(i)) {
			return false
		}
	}
	return true
}

// identical compares two values one level below the top of a projection.
//
// Reference kinds (slices, maps, funcs, channels, pointers) are identical only
// when they share the same reference. Struct and array values are walked field
// by field or element by element with the same rules, so references inside
// them are still compared by identity. Other kinds use ==.
func identical(a, b reflect.Value) bool {
	if a.Kind() == reflect.Interface {
		a = a.Elem()
	}
	if b.Kind() == reflect.Interface {
		b = b.Elem()
	}
	if !a.IsValid() || !b.IsValid() {
		return a.IsValid() == b.IsValid()
	}
	if a.Type() != b.Type() {
		return false
	}

	switch a.Kind() {
	case reflect.Float32, reflect.Float64:
		x, y := a.Float(), b.Float()
		return x == y || (math.IsNaN(x) && math.IsNaN(y))
	case reflect.Complex64, reflect.Complex128:
		x, y := a.Complex(), b.Complex()
		return x == y || (cmplx.IsNaN(x) && cmplx.IsNaN(y))
	case reflect.Slice:
		return a.Len() == b.Len() && a.Pointer() == b.Pointer()
	case reflect.Map, reflect.Func, reflect.Chan, reflect.Pointer, reflect.UnsafePointer:
		return a.Pointer() == b.Pointer()
	case reflect.Struct:
		for i := 0; i < a.NumField(); i++ {
			if !identical(a.Field(i), b.Field(i)) {
				return false
			}
		}
		return true
	case reflect.Array:
		for i := 0; i < a.Len(); i++ {
			if !identical(a.Index(i), b.Index(i)) {
				return false
			}
		}
		return true
	}

	if !a.Comparable() || !b.Comparable() {
		return false
	}
	return a.Equal(b)
}
