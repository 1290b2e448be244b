package mystore

import (
	"fmt"
	"reflect"
	"sort"
	"time"
)

// filterAndSort evaluates datastore-like filters on values that are held locally.
// Only equality is supported.
func filterAndSort[T any](values []T, filters []Filter, orderByField string) ([]T, error) {
	result := make([]T, 0, len(values))
	for _, v := range values {
		match, err := matches(v, filters)
		if err != nil {
			return nil, err
		}
		if match {
			result = append(result, v)
		}
	}

	if orderByField == "" {
		return result, nil
	}

	var sortErr error
	sort.SliceStable(result, func(i, j int) bool {
		less, err := lessByField(result[i], result[j], orderByField)
		if err != nil {
			sortErr = err
		}
		return less
	})
	if sortErr != nil {
		return nil, sortErr
	}

	return result, nil
}

func matches[T any](value T, filters []Filter) (bool, error) {
	for _, f := range filters {
		if f.Compare != "=" {
			return false, fmt.Errorf("unsupported comparison '%s' on field %s", f.Compare, f.Field)
		}
		field, err := fieldByName(value, f.Field)
		if err != nil {
			return false, err
		}
		if !reflect.DeepEqual(field.Interface(), f.Value) {
			return false, nil
		}
	}
	return true, nil
}

func lessByField[T any](a, b T, name string) (bool, error) {
	fa, err := fieldByName(a, name)
	if err != nil {
		return false, err
	}
	fb, err := fieldByName(b, name)
	if err != nil {
		return false, err
	}

	if ta, ok := fa.Interface().(time.Time); ok {
		return ta.Before(fb.Interface().(time.Time)), nil
	}

	switch fa.Kind() {
	case reflect.String:
		return fa.String() < fb.String(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return fa.Int() < fb.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return fa.Uint() < fb.Uint(), nil
	case reflect.Bool:
		return !fa.Bool() && fb.Bool(), nil
	default:
		return false, fmt.Errorf("cannot order on field %s of kind %s", name, fa.Kind())
	}
}

func fieldByName[T any](value T, name string) (reflect.Value, error) {
	v := reflect.Indirect(reflect.ValueOf(value))
	if v.Kind() != reflect.Struct {
		return reflect.Value{}, fmt.Errorf("cannot filter on %s: %T is not a struct", name, value)
	}
	field := v.FieldByName(name)
	if !field.IsValid() {
		return reflect.Value{}, fmt.Errorf("type %T has no field %s", value, name)
	}
	return field, nil
}
