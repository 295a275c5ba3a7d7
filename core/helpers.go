// Package core provides the fundamental building blocks of the MedicalSystem ORM.
// This file contains helper functions for reflection: field selectors,
// offset lookups, and value extraction from entity structs.
package core

import (
	"reflect"
	"strings"
	"unsafe"
)

// offsetOf returns the memory offset of a struct field selected by the given
// selector function.
//
// Example:
//
//	offset := offsetOf(func(p *Patient) *string { return &p.FirstName })
func offsetOf[T any, F any](selector func(*T) *F) uintptr {
	var zero T
	base := uintptr(unsafe.Pointer(&zero))
	ptr := selector(&zero)
	return uintptr(unsafe.Pointer(ptr)) - base
}

// fieldNameFromSelectorFor resolves a selector function to the Go struct
// field name it points at.
//
// The selector is invoked against a freshly allocated *T and the offset of
// the returned pointer is matched against the struct's visible fields.
func fieldNameFromSelectorFor[T any](selector any) string {
	if selector == nil {
		return ""
	}
	selectorValue := reflect.ValueOf(selector)
	if selectorValue.Kind() != reflect.Func {
		panic("core: selector must be a function")
	}

	typ := reflect.TypeOf((*T)(nil)).Elem()
	if typ.Kind() == reflect.Pointer {
		typ = typ.Elem()
	}
	arg := reflect.New(typ) // *T

	// execute the selector and obtain its return value
	out := selectorValue.Call([]reflect.Value{arg})
	if len(out) == 0 {
		panic("core: selector must return a pointer to a field")
	}
	ret := out[0]
	if ret.Kind() == reflect.Interface {
		ret = ret.Elem()
	}
	if ret.Kind() != reflect.Pointer {
		panic("core: selector must return a pointer to a field")
	}

	// calculate offset of the returned pointer relative to *T
	basePtr := arg.Pointer()
	fieldPtr := ret.Pointer()
	offset := uintptr(fieldPtr - basePtr)

	// find the field whose offset matches
	for _, sf := range reflect.VisibleFields(typ) {
		if sf.Offset == offset {
			return sf.Name
		}
	}
	return ""
}

// FieldName returns the Go struct field name given a selector function.
//
// Example:
//
//	name := core.FieldName(func(p *Patient) *string { return &p.FirstName })
func FieldName[L any, F any](selector func(*L) *F) string {
	return fieldNameFromSelectorFor[L](selector)
}

// columnValue extracts the driver-native value of one mapped column from an
// entity, applying the type map conversion (nil pointers to NULL, enums to
// ordinals).
func columnValue(entity any, field *Field) any {
	value := reflect.ValueOf(entity)
	if value.Kind() == reflect.Pointer {
		value = value.Elem()
	}

	fv := value.FieldByName(field.StructFieldName)
	if !fv.IsValid() {
		return nil
	}
	if fv.Kind() == reflect.Pointer && fv.IsNil() {
		return nil
	}
	return ToDB(fv.Interface())
}

// equalFold is a shorthand for case-insensitive string comparison.
func equalFold(a, b string) bool {
	return strings.EqualFold(a, b)
}

// quoteIdent renders a double-quoted SQL identifier.
func quoteIdent(name string) string {
	return `"` + name + `"`
}

// isIntegerKind reports whether the type (after pointer unwrapping) has an
// integer kind.
func isIntegerKind(t reflect.Type) bool {
	if t == nil {
		return false
	}
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	}
	return false
}
