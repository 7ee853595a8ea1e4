package script

import (
	"fmt"
	"math"
)

// Bindings 脚本对象（字符串键）
type Bindings map[string]interface{}

// Scope 脚本引擎的全局作用域
type Scope interface {
	Lookup(key string) (interface{}, bool)
}

// Kind 脚本值的类型标签
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindText
	KindMap
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "boolean"
	case KindNumber:
		return "number"
	case KindText:
		return "string"
	case KindMap:
		return "object"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Value 驱动传入 Add/Set 的带标签值
type Value struct {
	kind Kind
	b    bool
	n    float64
	s    string
	m    Bindings
}

// Null 空值，Add/Set 收到时不做任何操作
func Null() Value { return Value{} }

// Bool 布尔值
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Number 数值
func Number(n float64) Value { return Value{kind: KindNumber, n: n} }

// Text 字符串值
func Text(s string) Value { return Value{kind: KindText, s: s} }

// Map 结构化值；nil 视为空值
func Map(m Bindings) Value {
	if m == nil {
		return Null()
	}
	return Value{kind: KindMap, m: m}
}

// Kind 值的类别
func (v Value) Kind() Kind { return v.kind }

// IsNull 是否为空值
func (v Value) IsNull() bool { return v.kind == KindNull }

// Bool 布尔内容，非布尔值返回 false
func (v Value) Bool() bool { return v.b }

// Number 数值内容
func (v Value) Number() float64 { return v.n }

// Text 字符串内容
func (v Value) Text() string { return v.s }

// Map 结构化内容
func (v Value) Map() Bindings { return v.m }

// ValueOf 将脚本宿主交来的原始值转换为带标签值
func ValueOf(raw interface{}) (Value, error) {
	switch x := raw.(type) {
	case nil:
		return Null(), nil
	case Value:
		return x, nil
	case bool:
		return Bool(x), nil
	case string:
		return Text(x), nil
	case Bindings:
		return Map(x), nil
	case map[string]interface{}:
		return Map(Bindings(x)), nil
	}
	if n, ok := asNumber(raw); ok {
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return Value{}, &ValidationError{Reason: fmt.Sprintf("number %v is not finite", n)}
		}
		return Number(n), nil
	}
	return Value{}, &ValidationError{Reason: fmt.Sprintf("unsupported script value of type %T", raw)}
}

func asNumber(raw interface{}) (float64, bool) {
	switch x := raw.(type) {
	case int:
		return float64(x), true
	case int8:
		return float64(x), true
	case int16:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case uint:
		return float64(x), true
	case uint8:
		return float64(x), true
	case uint16:
		return float64(x), true
	case uint32:
		return float64(x), true
	case uint64:
		return float64(x), true
	case float32:
		return float64(x), true
	case float64:
		return x, true
	}
	return 0, false
}

// asInt 只接受整数值（浮点数须无小数部分）
func asInt(raw interface{}) (int, bool) {
	n, ok := asNumber(raw)
	if !ok || math.IsNaN(n) || math.IsInf(n, 0) || n != math.Trunc(n) {
		return 0, false
	}
	if n > math.MaxInt32 || n < math.MinInt32 {
		return 0, false
	}
	return int(n), true
}

func asBindings(raw interface{}) (Bindings, bool) {
	switch x := raw.(type) {
	case Bindings:
		return x, true
	case map[string]interface{}:
		return Bindings(x), true
	}
	return nil, false
}
