package message

import (
	"encoding/binary"
	"fmt"
	"reflect"
	"strconv"
	"sync"
)

// Wire frame: magic(2) version(1) kind(4) length(4) followed by TLV fields.
const (
	Magic       uint16 = 0x4F4D
	WireVersion uint8  = 1
	HeaderSize         = 11

	MaxPayloadSize = 1 << 20
)

// Encode renders an envelope in the binary wire form. Zero-valued fields are
// omitted; decoding restores them as zero values.
func Encode(e Envelope) ([]byte, error) {
	if e.Payload == nil {
		return nil, invalid("missing payload")
	}
	if e.Payload.Kind() != e.Kind {
		return nil, fmt.Errorf("%w: %s payload for kind %s", ErrInvalidPayload, e.Payload.Kind(), e.Kind)
	}

	var fields []Field
	if u, ok := e.Payload.(Unrecognized); ok {
		fields = u.Fields
	} else {
		var err error
		fields, err = marshalStruct(reflect.ValueOf(e.Payload))
		if err != nil {
			return nil, err
		}
	}

	body := appendFields(nil, fields)
	if len(body) > MaxPayloadSize {
		return nil, ErrInvalidLength
	}
	out := make([]byte, HeaderSize, HeaderSize+len(body))
	binary.BigEndian.PutUint16(out[0:2], Magic)
	out[2] = WireVersion
	binary.BigEndian.PutUint32(out[3:7], uint32(e.Kind))
	binary.BigEndian.PutUint32(out[7:11], uint32(len(body)))
	return append(out, body...), nil
}

// Decode parses one frame. Kinds unknown to this build decode to Unrecognized;
// unknown field ids inside a known kind are skipped.
func Decode(buf []byte) (Envelope, error) {
	if len(buf) < HeaderSize {
		return Envelope{}, ErrTruncated
	}
	if binary.BigEndian.Uint16(buf[0:2]) != Magic {
		return Envelope{}, ErrInvalidMagic
	}
	if buf[2] != WireVersion {
		return Envelope{}, ErrUnsupportedVersion
	}
	kind := Kind(int32(binary.BigEndian.Uint32(buf[3:7])))
	n := binary.BigEndian.Uint32(buf[7:11])
	if n > MaxPayloadSize {
		return Envelope{}, ErrInvalidLength
	}
	body := buf[HeaderSize:]
	if uint64(len(body)) < uint64(n) {
		return Envelope{}, ErrTruncated
	}
	if uint64(len(body)) > uint64(n) {
		return Envelope{}, ErrInvalidLength
	}

	fields, err := parseFields(body)
	if err != nil {
		return Envelope{}, err
	}

	v, ok := zeroPayload(kind)
	if !ok {
		return Envelope{Kind: kind, Payload: Unrecognized{Code: kind, Fields: fields}}, nil
	}
	if err := unmarshalStruct(v, fields); err != nil {
		return Envelope{}, fmt.Errorf("decode %s: %w", kind, err)
	}
	return Envelope{Kind: kind, Payload: v.Interface().(Payload)}, nil
}

type wireField struct {
	index int
	id    uint16
}

var wireLayouts sync.Map // reflect.Type -> []wireField

func layoutOf(t reflect.Type) []wireField {
	if v, ok := wireLayouts.Load(t); ok {
		return v.([]wireField)
	}
	var out []wireField
	for i := 0; i < t.NumField(); i++ {
		tag := t.Field(i).Tag.Get("wire")
		if tag == "" || tag == "-" {
			continue
		}
		id, err := strconv.ParseUint(tag, 10, 16)
		if err != nil {
			panic(fmt.Sprintf("message: bad wire tag %q on %s.%s", tag, t.Name(), t.Field(i).Name))
		}
		out = append(out, wireField{index: i, id: uint16(id)})
	}
	wireLayouts.Store(t, out)
	return out
}

func marshalStruct(v reflect.Value) ([]Field, error) {
	var out []Field
	for _, wf := range layoutOf(v.Type()) {
		fv := v.Field(wf.index)
		if fv.IsZero() {
			continue
		}
		switch fv.Kind() {
		case reflect.String:
			out = append(out, NewFieldString(wf.id, fv.String()))
		case reflect.Bool:
			out = append(out, NewFieldBool(wf.id, fv.Bool()))
		case reflect.Int32:
			out = append(out, NewFieldInt32(wf.id, int32(fv.Int())))
		case reflect.Uint32:
			out = append(out, NewFieldUint32(wf.id, uint32(fv.Uint())))
		case reflect.Slice:
			if fv.Type().Elem().Kind() != reflect.Uint8 {
				return nil, fmt.Errorf("%w: unsupported slice %s", ErrFieldTypeMismatch, fv.Type())
			}
			out = append(out, NewFieldBytes(wf.id, fv.Bytes()))
		case reflect.Struct:
			nested, err := marshalStruct(fv)
			if err != nil {
				return nil, err
			}
			out = append(out, NewFieldStruct(wf.id, nested))
		default:
			return nil, fmt.Errorf("%w: unsupported kind %s", ErrFieldTypeMismatch, fv.Kind())
		}
	}
	return out, nil
}

func unmarshalStruct(v reflect.Value, fields []Field) error {
	byID := make(map[uint16]int)
	for _, wf := range layoutOf(v.Type()) {
		byID[wf.id] = wf.index
	}
	for _, f := range fields {
		idx, ok := byID[f.ID]
		if !ok {
			continue
		}
		fv := v.Field(idx)
		switch fv.Kind() {
		case reflect.String:
			s, err := f.Text()
			if err != nil {
				return fieldErr(f, err)
			}
			fv.SetString(s)
		case reflect.Bool:
			b, err := f.Bool()
			if err != nil {
				return fieldErr(f, err)
			}
			fv.SetBool(b)
		case reflect.Int32:
			n, err := f.Int32()
			if err != nil {
				return fieldErr(f, err)
			}
			fv.SetInt(int64(n))
		case reflect.Uint32:
			n, err := f.Uint32()
			if err != nil {
				return fieldErr(f, err)
			}
			fv.SetUint(uint64(n))
		case reflect.Slice:
			b, err := f.Bytes()
			if err != nil {
				return fieldErr(f, err)
			}
			fv.SetBytes(b)
		case reflect.Struct:
			nested, err := f.Nested()
			if err != nil {
				return fieldErr(f, err)
			}
			if err := unmarshalStruct(fv, nested); err != nil {
				return err
			}
		}
	}
	return nil
}

func fieldErr(f Field, err error) error {
	return fmt.Errorf("field %d: %w", f.ID, err)
}
