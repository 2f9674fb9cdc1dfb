package message

import "encoding/binary"

// FieldType tags the encoding of a TLV field value.
type FieldType uint8

const (
	FieldBool   FieldType = 1
	FieldInt32  FieldType = 2
	FieldUint32 FieldType = 3
	FieldString FieldType = 4
	FieldBytes  FieldType = 5
	FieldStruct FieldType = 6
)

// Field is one TLV entry of an encoded payload.
type Field struct {
	ID    uint16    `json:"id"`
	Type  FieldType `json:"type"`
	Value []byte    `json:"value"`
}

// NewFieldBool creates a bool TLV field.
func NewFieldBool(id uint16, v bool) Field {
	b := byte(0)
	if v {
		b = 1
	}
	return Field{ID: id, Type: FieldBool, Value: []byte{b}}
}

// NewFieldInt32 creates a signed 32-bit TLV field.
func NewFieldInt32(id uint16, v int32) Field {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, uint32(v))
	return Field{ID: id, Type: FieldInt32, Value: buf}
}

// NewFieldUint32 creates an unsigned 32-bit TLV field.
func NewFieldUint32(id uint16, v uint32) Field {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, v)
	return Field{ID: id, Type: FieldUint32, Value: buf}
}

// NewFieldString creates a string TLV field.
func NewFieldString(id uint16, v string) Field {
	return Field{ID: id, Type: FieldString, Value: []byte(v)}
}

// NewFieldBytes creates a bytes TLV field.
func NewFieldBytes(id uint16, v []byte) Field {
	buf := make([]byte, len(v))
	copy(buf, v)
	return Field{ID: id, Type: FieldBytes, Value: buf}
}

// NewFieldStruct creates a field holding nested TLV fields.
func NewFieldStruct(id uint16, nested []Field) Field {
	return Field{ID: id, Type: FieldStruct, Value: appendFields(nil, nested)}
}

func (f Field) Bool() (bool, error) {
	if f.Type != FieldBool {
		return false, ErrFieldTypeMismatch
	}
	if len(f.Value) != 1 {
		return false, ErrInvalidLength
	}
	return f.Value[0] != 0, nil
}

func (f Field) Int32() (int32, error) {
	if f.Type != FieldInt32 {
		return 0, ErrFieldTypeMismatch
	}
	if len(f.Value) != 4 {
		return 0, ErrInvalidLength
	}
	return int32(binary.BigEndian.Uint32(f.Value)), nil
}

func (f Field) Uint32() (uint32, error) {
	if f.Type != FieldUint32 {
		return 0, ErrFieldTypeMismatch
	}
	if len(f.Value) != 4 {
		return 0, ErrInvalidLength
	}
	return binary.BigEndian.Uint32(f.Value), nil
}

func (f Field) Text() (string, error) {
	if f.Type != FieldString {
		return "", ErrFieldTypeMismatch
	}
	return string(f.Value), nil
}

func (f Field) Bytes() ([]byte, error) {
	if f.Type != FieldBytes {
		return nil, ErrFieldTypeMismatch
	}
	out := make([]byte, len(f.Value))
	copy(out, f.Value)
	return out, nil
}

// Nested parses a struct field into its TLV fields.
func (f Field) Nested() ([]Field, error) {
	if f.Type != FieldStruct {
		return nil, ErrFieldTypeMismatch
	}
	return parseFields(f.Value)
}

const fieldHeaderSize = 7

func appendFields(dst []byte, fields []Field) []byte {
	for _, f := range fields {
		var hdr [fieldHeaderSize]byte
		binary.BigEndian.PutUint16(hdr[0:2], f.ID)
		hdr[2] = byte(f.Type)
		binary.BigEndian.PutUint32(hdr[3:7], uint32(len(f.Value)))
		dst = append(dst, hdr[:]...)
		dst = append(dst, f.Value...)
	}
	return dst
}

func parseFields(buf []byte) ([]Field, error) {
	var out []Field
	for len(buf) > 0 {
		if len(buf) < fieldHeaderSize {
			return nil, ErrTruncated
		}
		id := binary.BigEndian.Uint16(buf[0:2])
		typ := FieldType(buf[2])
		n := binary.BigEndian.Uint32(buf[3:7])
		buf = buf[fieldHeaderSize:]
		if uint64(n) > uint64(len(buf)) {
			return nil, ErrTruncated
		}
		val := make([]byte, n)
		copy(val, buf[:n])
		out = append(out, Field{ID: id, Type: typ, Value: val})
		buf = buf[n:]
	}
	return out, nil
}
