package corvid

import (
	"fmt"
	"reflect"
	"strconv"

	"github.com/corvid-lang/corvid/pkg/engine"
)

// Marshaller handles conversion between Go and Corvid values.
type Marshaller struct{}

func NewMarshaller() *Marshaller {
	return &Marshaller{}
}

// ToValue converts a Go value to a Corvid value.
func (m *Marshaller) ToValue(val interface{}) (engine.Value, error) {
	if val == nil {
		return engine.Null(), nil
	}

	// Check if already a Value
	if v, ok := val.(engine.Value); ok {
		return v, nil
	}
	if o, ok := val.(engine.Object); ok {
		return engine.ObjVal(o), nil
	}

	// Unpack interface if it's contained in one
	v := reflect.ValueOf(val)
	if v.Kind() == reflect.Interface {
		v = v.Elem()
	}
	if !v.IsValid() {
		return engine.Null(), nil
	}

	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return engine.IntVal(v.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return engine.IntVal(int64(v.Uint())), nil
	case reflect.Float32, reflect.Float64:
		return engine.FloatVal(v.Float()), nil
	case reflect.Bool:
		return engine.BoolVal(v.Bool()), nil
	case reflect.String:
		return engine.StrVal(v.String()), nil
	case reflect.Slice, reflect.Array:
		return m.sliceToObject(v)
	case reflect.Map:
		return m.mapToObject(v)
	case reflect.Struct:
		return m.structToObject(v)
	case reflect.Ptr:
		if v.IsNil() {
			return engine.Null(), nil
		}
		if v.Elem().Kind() == reflect.Struct {
			return m.structToObject(v.Elem())
		}
		return m.ToValue(v.Elem().Interface())
	default:
		return engine.Undefined(), fmt.Errorf("unsupported type for conversion: %s", v.Type())
	}
}

// FromValue converts a Corvid value to a Go value.
// targetType is optional; if provided, tries to convert to that type.
func (m *Marshaller) FromValue(v engine.Value, targetType reflect.Type) (interface{}, error) {
	// If target type is engine.Value, return as is
	if targetType != nil && targetType == reflect.TypeOf(engine.Value{}) {
		return v, nil
	}

	switch v.Kind {
	case engine.KindUndefined, engine.KindNull:
		return nil, nil
	case engine.KindBool:
		return v.AsBool(), nil
	case engine.KindInt:
		if targetType != nil {
			switch targetType.Kind() {
			case reflect.Int:
				return int(v.AsInt()), nil
			case reflect.Int64:
				return v.AsInt(), nil
			case reflect.Float64:
				return float64(v.AsInt()), nil
			}
		}
		return int(v.AsInt()), nil // Default to int
	case engine.KindFloat:
		return v.AsFloat(), nil
	case engine.KindString:
		return v.AsString(), nil
	case engine.KindObject:
		if po, ok := v.Obj.(*engine.PlainObject); ok {
			return m.objectToMap(po, targetType)
		}
		// Callables and other heap kinds cross the boundary by reference.
		return v.Obj, nil
	case engine.KindLightFunc:
		return v, nil
	default:
		return nil, fmt.Errorf("unsupported value kind %d", v.Kind)
	}
}

func (m *Marshaller) sliceToObject(v reflect.Value) (engine.Value, error) {
	obj := engine.NewPlainObject()
	for i := 0; i < v.Len(); i++ {
		el, err := m.ToValue(v.Index(i).Interface())
		if err != nil {
			return engine.Undefined(), err
		}
		obj.Set(strconv.Itoa(i), el)
	}
	obj.Set("length", engine.IntVal(int64(v.Len())))
	return engine.ObjVal(obj), nil
}

func (m *Marshaller) mapToObject(v reflect.Value) (engine.Value, error) {
	obj := engine.NewPlainObject()
	iter := v.MapRange()
	for iter.Next() {
		key, ok := iter.Key().Interface().(string)
		if !ok {
			return engine.Undefined(), fmt.Errorf("map key must be string, got %s", iter.Key().Type())
		}
		val, err := m.ToValue(iter.Value().Interface())
		if err != nil {
			return engine.Undefined(), fmt.Errorf("map value: %w", err)
		}
		obj.Set(key, val)
	}
	return engine.ObjVal(obj), nil
}

func (m *Marshaller) structToObject(v reflect.Value) (engine.Value, error) {
	obj := engine.NewPlainObject()
	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		field := t.Field(i)
		if field.PkgPath != "" { // Skip unexported fields
			continue
		}
		val, err := m.ToValue(v.Field(i).Interface())
		if err != nil {
			return engine.Undefined(), err
		}
		obj.Set(field.Name, val)
	}
	return engine.ObjVal(obj), nil
}

func (m *Marshaller) objectToMap(o *engine.PlainObject, targetType reflect.Type) (interface{}, error) {
	// If target type is a concrete map type, convert to that
	if targetType != nil && targetType.Kind() == reflect.Map {
		if targetType.Key().Kind() != reflect.String {
			return nil, fmt.Errorf("map key must be string, got %s", targetType.Key())
		}
		valType := targetType.Elem()
		result := reflect.MakeMapWithSize(targetType, 0)
		for name, pv := range o.Own() {
			val, err := m.FromValue(pv, valType)
			if err != nil {
				return nil, fmt.Errorf("property %q: %w", name, err)
			}
			vv := reflect.ValueOf(val)
			if val == nil {
				vv = reflect.Zero(valType)
			} else if !vv.Type().AssignableTo(valType) {
				if !vv.Type().ConvertibleTo(valType) {
					return nil, fmt.Errorf("cannot convert %s to %s", vv.Type(), valType)
				}
				vv = vv.Convert(valType)
			}
			result.SetMapIndex(reflect.ValueOf(name), vv)
		}
		return result.Interface(), nil
	}

	// Default: map[string]interface{}
	result := make(map[string]interface{})
	for name, pv := range o.Own() {
		val, err := m.FromValue(pv, nil)
		if err != nil {
			return nil, fmt.Errorf("property %q: %w", name, err)
		}
		result[name] = val
	}
	return result, nil
}
