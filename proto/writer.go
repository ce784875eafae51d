package proto

import (
	"encoding/binary"
	"math"
	"reflect"
)

// ProtocolWriter encodes values in the packed little-endian layout used by
// the server's C structures.
type ProtocolWriter struct {
	buf []byte
}

func (p *ProtocolWriter) Bytes() []byte { return p.buf }

func (p *ProtocolWriter) Reset() { p.buf = p.buf[:0] }

func (p *ProtocolWriter) byte(b byte) {
	p.buf = append(p.buf, b)
}

func (p *ProtocolWriter) uint16(u uint16) {
	p.buf = binary.LittleEndian.AppendUint16(p.buf, u)
}

func (p *ProtocolWriter) uint32(u uint32) {
	p.buf = binary.LittleEndian.AppendUint32(p.buf, u)
}

func (p *ProtocolWriter) uint64(u uint64) {
	p.buf = binary.LittleEndian.AppendUint64(p.buf, u)
}

// putUint32 overwrites a previously written value.
func (p *ProtocolWriter) putUint32(pos int, u uint32) {
	binary.LittleEndian.PutUint32(p.buf[pos:], u)
}

func (p *ProtocolWriter) value(v reflect.Value) {
	switch v.Kind() {
	case reflect.Bool:
		if v.Bool() {
			p.byte(1)
		} else {
			p.byte(0)
		}
	case reflect.Uint8:
		p.byte(byte(v.Uint()))
	case reflect.Int8:
		p.byte(byte(v.Int()))
	case reflect.Uint16:
		p.uint16(uint16(v.Uint()))
	case reflect.Int16:
		p.uint16(uint16(v.Int()))
	case reflect.Uint32:
		p.uint32(uint32(v.Uint()))
	case reflect.Int32:
		p.uint32(uint32(v.Int()))
	case reflect.Uint64:
		p.uint64(v.Uint())
	case reflect.Int64:
		p.uint64(uint64(v.Int()))
	case reflect.Float32:
		p.uint32(math.Float32bits(float32(v.Float())))
	case reflect.Float64:
		p.uint64(math.Float64bits(v.Float()))
	case reflect.Array:
		if v.Type().Elem().Kind() == reflect.Uint8 {
			for i := 0; i < v.Len(); i++ {
				p.byte(byte(v.Index(i).Uint()))
			}
			return
		}
		for i := 0; i < v.Len(); i++ {
			p.value(v.Index(i))
		}
	case reflect.Slice:
		// only a trailing byte slice is allowed; it takes the rest of the message
		p.buf = append(p.buf, v.Bytes()...)
	case reflect.Struct:
		t := v.Type()
		for i := 0; i < v.NumField(); i++ {
			if t.Field(i).Tag.Get("cras") == "-" {
				continue
			}
			p.value(v.Field(i))
		}
	default:
		panic("cras: cannot encode " + v.Type().String())
	}
}

// Marshal encodes a message with its header.
func Marshal(msg RequestArgs) []byte {
	var w ProtocolWriter
	w.message(msg.command(), msg)
	return w.Bytes()
}

// MarshalReply encodes a server message with its header. It is used by
// test servers.
func MarshalReply(msg Reply) []byte {
	var w ProtocolWriter
	w.message(msg.IsReply(), msg)
	return w.Bytes()
}

func (p *ProtocolWriter) message(id uint32, msg interface{}) {
	start := len(p.buf)
	p.uint32(0) // length, filled in below
	p.uint32(id)
	if msg != nil {
		p.value(reflect.Indirect(reflect.ValueOf(msg)))
	}
	p.putUint32(start, uint32(len(p.buf)-start))
}
