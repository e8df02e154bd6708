package assert

import (
	"fmt"
	"reflect"
)

// NotNil panics when value is nil, including a nil pointer, map, slice,
// func or chan stored in an interface. `name` describes the value in the
// panic message.
func NotNil(value any, name ...string) {
	if !isNil(value) {
		return
	}
	if len(name) > 0 {
		panic(fmt.Sprintf("expected %s to be not nil", name[0]))
	}
	panic("expected value to be not nil")
}

func isNil(value any) bool {
	if value == nil {
		return true
	}
	v := reflect.ValueOf(value)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return v.IsNil()
	}
	return false
}

func NotEmptyStr(str string, name ...string) {
	if str != "" {
		return
	}
	if len(name) > 0 {
		panic(fmt.Sprintf("expected %s to be non-empty", name[0]))
	}
	panic("expected string to be non-empty")
}
