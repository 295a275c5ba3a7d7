// Package core provides the fundamental building blocks of the MedicalSystem ORM.
// This file defines the type map: the translation between Go field types and
// PostgreSQL column types, plus value conversion to and from driver-native
// representations.
package core

import (
	"fmt"
	"reflect"
	"time"

	"github.com/google/uuid"
)

var (
	timeType      = reflect.TypeOf(time.Time{})
	uuidType      = reflect.TypeOf(uuid.UUID{})
	byteSliceType = reflect.TypeOf([]byte(nil))
)

// SQLTypeFor maps a Go type to its PostgreSQL column type.
//
// Pointer types unwrap to their element type. Strings become VARCHAR(n)
// when a length is given and TEXT otherwise. Named integer types (enums)
// are stored as INTEGER ordinals. Types with no mapping fall back to TEXT;
// DECIMAL, CHAR(1) and TIMESTAMPTZ are reachable through the SQLType
// field option.
func SQLTypeFor(t reflect.Type, length int) string {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	switch t {
	case timeType:
		return "TIMESTAMP"
	case uuidType:
		return "UUID"
	case byteSliceType:
		return "BYTEA"
	}

	switch t.Kind() {
	case reflect.Int, reflect.Int32:
		return "INTEGER"
	case reflect.Int64:
		return "BIGINT"
	case reflect.Int8, reflect.Int16:
		return "SMALLINT"
	case reflect.Uint, reflect.Uint32:
		return "INTEGER"
	case reflect.Uint64:
		return "BIGINT"
	case reflect.Uint8, reflect.Uint16:
		return "SMALLINT"
	case reflect.Float32:
		return "REAL"
	case reflect.Float64:
		return "DOUBLE PRECISION"
	case reflect.Bool:
		return "BOOLEAN"
	case reflect.String:
		if length > 0 {
			return fmt.Sprintf("VARCHAR(%d)", length)
		}
		return "TEXT"
	}
	return "TEXT"
}

// isNavigation reports whether a field type is a navigation member rather
// than a mapped column: containers (slices, arrays, maps) and entity
// structs. Byte slices, time.Time and uuid.UUID are scalar column types.
func isNavigation(t reflect.Type) bool {
	if t == nil {
		return false
	}
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.Slice, reflect.Array:
		return t.Elem().Kind() != reflect.Uint8
	case reflect.Map, reflect.Chan, reflect.Func, reflect.Interface:
		return true
	case reflect.Struct:
		return t != timeType && t != uuidType
	}
	return false
}

// ToDB converts an application value to its driver-native representation.
//
// Nil pointers become SQL NULL and other pointers are dereferenced. Named
// integer types (enums) are flattened to their int64 ordinal, and other
// named integer or string types to their underlying value; everything else
// passes through unchanged.
func ToDB(value any) any {
	if value == nil {
		return nil
	}
	rv := reflect.ValueOf(value)
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}

	t := rv.Type()
	if t == timeType || t == uuidType || t == byteSliceType {
		return rv.Interface()
	}
	// Named (non-predeclared) scalar types flatten to their underlying kind
	// so the driver never sees application enums.
	if t.PkgPath() != "" {
		switch t.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			return rv.Int()
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			return int64(rv.Uint())
		case reflect.String:
			return rv.String()
		}
	}
	return rv.Interface()
}

// FromDB converts a driver-native value into the given target type.
//
// SQL NULL becomes the zero value (nil for pointers); enums are
// reconstructed from their integer ordinal; other values follow the
// assignment and conversion rules of setFieldFromDB.
func FromDB(value any, target reflect.Type) (any, error) {
	out := reflect.New(target).Elem()
	if err := setFieldFromDB(out, value); err != nil {
		return nil, err
	}
	return out.Interface(), nil
}

// setFieldFromDB assigns a driver-native value to a struct field, with
// support for:
//  1. Exact type matching
//  2. Value → pointer conversions (e.g. time.Time → *time.Time)
//  3. Pointer → value conversions (e.g. *time.Time → time.Time)
//  4. Convertible types (e.g. int64 → application enum)
func setFieldFromDB(field reflect.Value, dbValue any) error {
	if !field.IsValid() || !field.CanSet() {
		return nil
	}

	if dbValue == nil {
		// NULL: nil for pointers, zero value otherwise
		field.Set(reflect.Zero(field.Type()))
		return nil
	}

	rv := reflect.ValueOf(dbValue)

	// 1) exact type match
	if rv.Type().AssignableTo(field.Type()) {
		field.Set(rv)
		return nil
	}

	// 2) value → pointer
	if field.Kind() == reflect.Pointer && rv.Type().AssignableTo(field.Type().Elem()) {
		ptr := reflect.New(field.Type().Elem())
		ptr.Elem().Set(rv)
		field.Set(ptr)
		return nil
	}

	// 3) pointer → value
	if rv.Kind() == reflect.Pointer && !rv.IsNil() && rv.Type().Elem().AssignableTo(field.Type()) {
		field.Set(rv.Elem())
		return nil
	}

	// 4) convertible types
	if rv.Type().ConvertibleTo(field.Type()) {
		field.Set(rv.Convert(field.Type()))
		return nil
	}
	if field.Kind() == reflect.Pointer && rv.Type().ConvertibleTo(field.Type().Elem()) {
		ptr := reflect.New(field.Type().Elem())
		ptr.Elem().Set(rv.Convert(field.Type().Elem()))
		field.Set(ptr)
		return nil
	}

	return NewMetadataError("", fmt.Sprintf("cannot assign %s to field of type %s", rv.Type(), field.Type()))
}
