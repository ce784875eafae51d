package proto

import (
	"encoding/binary"
	"math"
	"reflect"
)

// ProtocolReader decodes values in the packed little-endian layout used by
// the server's C structures. After the first error all reads return zero
// values.
type ProtocolReader struct {
	buf []byte
	pos int
	err error
}

// NewReader returns a reader over b.
func NewReader(b []byte) *ProtocolReader {
	return &ProtocolReader{buf: b}
}

func (p *ProtocolReader) Err() error { return p.err }

// Remaining returns the number of unread bytes.
func (p *ProtocolReader) Remaining() int { return len(p.buf) - p.pos }

func (p *ProtocolReader) setErr(err error) {
	if p.err == nil {
		p.err = err
	}
}

func (p *ProtocolReader) next(n int) []byte {
	if p.err != nil {
		return nil
	}
	if p.pos+n > len(p.buf) {
		p.setErr(errShortRead)
		p.pos = len(p.buf)
		return nil
	}
	b := p.buf[p.pos : p.pos+n]
	p.pos += n
	return b
}

func (p *ProtocolReader) advance(n int) {
	p.next(n)
}

func (p *ProtocolReader) byte() byte {
	b := p.next(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (p *ProtocolReader) uint16() uint16 {
	b := p.next(2)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint16(b)
}

func (p *ProtocolReader) uint32() uint32 {
	b := p.next(4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

func (p *ProtocolReader) uint64() uint64 {
	b := p.next(8)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint64(b)
}

func (p *ProtocolReader) value(v reflect.Value) {
	switch v.Kind() {
	case reflect.Bool:
		v.SetBool(p.byte() != 0)
	case reflect.Uint8:
		v.SetUint(uint64(p.byte()))
	case reflect.Int8:
		v.SetInt(int64(int8(p.byte())))
	case reflect.Uint16:
		v.SetUint(uint64(p.uint16()))
	case reflect.Int16:
		v.SetInt(int64(int16(p.uint16())))
	case reflect.Uint32:
		v.SetUint(uint64(p.uint32()))
	case reflect.Int32:
		v.SetInt(int64(int32(p.uint32())))
	case reflect.Uint64:
		v.SetUint(p.uint64())
	case reflect.Int64:
		v.SetInt(int64(p.uint64()))
	case reflect.Float32:
		v.SetFloat(float64(math.Float32frombits(p.uint32())))
	case reflect.Float64:
		v.SetFloat(math.Float64frombits(p.uint64()))
	case reflect.Array:
		if v.Type().Elem().Kind() == reflect.Uint8 {
			b := p.next(v.Len())
			if b != nil {
				reflect.Copy(v, reflect.ValueOf(b))
			}
			return
		}
		for i := 0; i < v.Len() && p.err == nil; i++ {
			p.value(v.Index(i))
		}
	case reflect.Slice:
		rest := p.next(p.Remaining())
		v.SetBytes(append([]byte(nil), rest...))
	case reflect.Struct:
		t := v.Type()
		for i := 0; i < v.NumField() && p.err == nil; i++ {
			if t.Field(i).Tag.Get("cras") == "-" {
				continue
			}
			p.value(v.Field(i))
		}
	default:
		panic("cras: cannot decode " + v.Type().String())
	}
}

// Decode reads the fields of the struct pointed to by out.
func (p *ProtocolReader) Decode(out interface{}) error {
	p.value(reflect.ValueOf(out).Elem())
	return p.err
}

// Size returns the encoded size of a value of type t. Trailing byte slices
// count as empty.
func Size(t reflect.Type) int {
	switch t.Kind() {
	case reflect.Bool, reflect.Uint8, reflect.Int8:
		return 1
	case reflect.Uint16, reflect.Int16:
		return 2
	case reflect.Uint32, reflect.Int32, reflect.Float32:
		return 4
	case reflect.Uint64, reflect.Int64, reflect.Float64:
		return 8
	case reflect.Array:
		return t.Len() * Size(t.Elem())
	case reflect.Slice:
		return 0
	case reflect.Struct:
		n := 0
		for i := 0; i < t.NumField(); i++ {
			if t.Field(i).Tag.Get("cras") == "-" {
				continue
			}
			n += Size(t.Field(i).Type)
		}
		return n
	}
	panic("cras: cannot size " + t.String())
}

// Offset returns the encoded offset of the named field of struct type t.
func Offset(t reflect.Type, field string) int {
	n := 0
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.Name == field {
			return n
		}
		if f.Tag.Get("cras") == "-" {
			continue
		}
		n += Size(f.Type)
	}
	panic("cras: no field " + field + " in " + t.String())
}

func hasTrailingSlice(t reflect.Type) bool {
	return t.Kind() == reflect.Struct && t.NumField() > 0 && t.Field(t.NumField()-1).Type.Kind() == reflect.Slice
}
