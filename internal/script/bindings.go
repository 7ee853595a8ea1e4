package script

import (
	"fmt"
	"strings"
)

// ValidationError 脚本值校验失败，只中止触发它的那一次提取
type ValidationError struct {
	Key    string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Key == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Key, e.Reason)
}

func invalid(key, format string, args ...interface{}) error {
	return &ValidationError{Key: key, Reason: fmt.Sprintf(format, args...)}
}

// ToObject 从 Bindings 或引擎作用域按键取值
// 值缺失（或为 null）时返回默认值；无默认值则报错
func ToObject(src interface{}, key string, def ...interface{}) (interface{}, error) {
	var (
		v  interface{}
		ok bool
	)
	if b, isMap := asBindings(src); isMap && b != nil {
		v, ok = b[key]
	} else if scope, isScope := src.(Scope); isScope && scope != nil {
		v, ok = scope.Lookup(key)
	} else {
		return nil, invalid("", "invalid object of type %T", src)
	}
	if !ok || v == nil {
		if len(def) == 0 || def[0] == nil {
			return nil, invalid(key, "the key doesn't exist")
		}
		return def[0], nil
	}
	return v, nil
}

// ToBoolean 取布尔值
func ToBoolean(src interface{}, key string, def ...bool) (bool, error) {
	v, err := ToObject(src, key, firstOf(def)...)
	if err != nil {
		return false, err
	}
	b, ok := v.(bool)
	if !ok {
		return false, invalid(key, "the value is not a boolean")
	}
	return b, nil
}

// ToInteger 取整数值；浮点数仅在无小数部分时接受
func ToInteger(src interface{}, key string, def ...int) (int, error) {
	v, err := ToObject(src, key, firstOf(def)...)
	if err != nil {
		return 0, err
	}
	n, ok := asInt(v)
	if !ok {
		return 0, invalid(key, "the value is not an integer")
	}
	return n, nil
}

// ToString 取非空字符串（全空白视为空）
func ToString(src interface{}, key string, def ...string) (string, error) {
	v, err := ToObject(src, key, firstOf(def)...)
	if err != nil {
		return "", err
	}
	s, ok := v.(string)
	if !ok {
		return "", invalid(key, "the value is not a string")
	}
	if strings.TrimSpace(s) == "" {
		return "", invalid(key, "the value cannot be empty")
	}
	return s, nil
}

// ToBindings 取嵌套对象
func ToBindings(src interface{}, key string, def ...Bindings) (Bindings, error) {
	var d []interface{}
	if len(def) > 0 && def[0] != nil {
		d = []interface{}{def[0]}
	}
	v, err := ToObject(src, key, d...)
	if err != nil {
		return nil, err
	}
	b, ok := asBindings(v)
	if !ok {
		return nil, invalid(key, "the value is not a script object")
	}
	return b, nil
}

func firstOf[T any](def []T) []interface{} {
	if len(def) == 0 {
		return nil
	}
	return []interface{}{def[0]}
}
