package protocol

import (
	"bytes"
	"fmt"
	"reflect"
)

const tagName = "mc"

// taggedFields calls fn for every struct field carrying an mc tag, in declaration order.
func taggedFields(v reflect.Value, fn func(name, tag string, fv reflect.Value) error) error {
	t := v.Type()
	for i := range t.NumField() {
		field := t.Field(i)
		tag := field.Tag.Get(tagName)
		if tag == "" || tag == "-" {
			continue
		}
		if err := fn(field.Name, tag, v.Field(i)); err != nil {
			return err
		}
	}
	return nil
}

// Marshal encodes a Packet struct into bytes using mc struct tags.
func Marshal(p Packet) ([]byte, error) {
	v := reflect.ValueOf(p)
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return nil, fmt.Errorf("marshal: expected struct, got %s", v.Kind())
	}

	var buf bytes.Buffer
	err := taggedFields(v, func(name, tag string, fv reflect.Value) error {
		if err := WriteField(&buf, tag, fv.Interface()); err != nil {
			return fmt.Errorf("marshal field %s: %w", name, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes bytes into a Packet struct using mc struct tags.
// Bytes left over after the last field are a shape error.
func Unmarshal(data []byte, p Packet) error {
	v := reflect.ValueOf(p)
	if v.Kind() != reflect.Ptr || v.IsNil() {
		return fmt.Errorf("unmarshal: expected non-nil pointer, got %T", p)
	}
	v = v.Elem()
	if v.Kind() != reflect.Struct {
		return fmt.Errorf("unmarshal: expected pointer to struct, got pointer to %s", v.Kind())
	}

	r := bytes.NewReader(data)
	err := taggedFields(v, func(name, tag string, fv reflect.Value) error {
		val, err := ReadField(r, tag)
		if err != nil {
			return fmt.Errorf("unmarshal field %s: %w", name, err)
		}
		rv := reflect.ValueOf(val)
		if !rv.Type().AssignableTo(fv.Type()) {
			return fmt.Errorf("unmarshal field %s: cannot assign %s to %s", name, rv.Type(), fv.Type())
		}
		fv.Set(rv)
		return nil
	})
	if err != nil {
		return err
	}
	if r.Len() != 0 {
		return fmt.Errorf("unmarshal 0x%02X: %d trailing bytes: %w", p.PacketID(), r.Len(), ErrBadShape)
	}
	return nil
}
