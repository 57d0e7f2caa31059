package domain

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
)

// Kind is the declared scalar type of a data point.
type Kind uint8

const (
	KindBool Kind = iota + 1
	KindByte
	KindInt16
	KindInt32
	KindInt64
	KindFloat
	KindDouble
	KindString
)

// Category mirrors how monitoring consumers classify a data item: discrete
// events versus continuous samples.
type Category string

const (
	CategoryEvent  Category = "event"
	CategorySample Category = "sample"
)

// WireType is the OPC UA built-in type id carried in a variant encoding mask.
type WireType uint8

const (
	WireBoolean WireType = 1
	WireByte    WireType = 3
	WireInt16   WireType = 4
	WireInt32   WireType = 6
	WireInt64   WireType = 8
	WireFloat   WireType = 10
	WireDouble  WireType = 11
	WireString  WireType = 12
)

// RawScalar is a single scalar as the read client received it: the wire type
// plus its little-endian binary body, without the variant mask byte.
type RawScalar struct {
	Type WireType
	Body []byte
}

type kindSpec struct {
	name     string
	wire     WireType
	width    int // 0 for variable-length kinds
	category Category
}

var kindTable = map[Kind]kindSpec{
	KindBool:   {name: "bool", wire: WireBoolean, width: 1, category: CategoryEvent},
	KindByte:   {name: "byte", wire: WireByte, width: 1, category: CategoryEvent},
	KindInt16:  {name: "int16", wire: WireInt16, width: 2, category: CategoryEvent},
	KindInt32:  {name: "int32", wire: WireInt32, width: 4, category: CategoryEvent},
	KindInt64:  {name: "int64", wire: WireInt64, width: 8, category: CategoryEvent},
	KindFloat:  {name: "float", wire: WireFloat, width: 4, category: CategorySample},
	KindDouble: {name: "double", wire: WireDouble, width: 8, category: CategorySample},
	KindString: {name: "string", wire: WireString, category: CategoryEvent},
}

// Kinds lists every supported kind in declaration order.
func Kinds() []Kind {
	return []Kind{KindBool, KindByte, KindInt16, KindInt32, KindInt64, KindFloat, KindDouble, KindString}
}

// ParseKind maps a configuration type name onto a Kind.
func ParseKind(name string) (Kind, error) {
	for _, k := range Kinds() {
		if kindTable[k].name == name {
			return k, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownKind, name)
}

func (k Kind) Valid() bool {
	_, ok := kindTable[k]
	return ok
}

func (k Kind) String() string {
	if info, ok := kindTable[k]; ok {
		return info.name
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

func (k Kind) Category() Category { return kindTable[k].category }

// Wire returns the wire type a raw scalar must carry to decode as k.
func (k Kind) Wire() WireType { return kindTable[k].wire }

func (k Kind) MarshalText() ([]byte, error) {
	if k == 0 {
		return []byte{}, nil
	}
	if !k.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownKind, uint8(k))
	}
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*k = 0
		return nil
	}
	parsed, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// TypedValue is a decoded scalar tagged with its kind and the identifier it
// was read from. Fixed-width payloads share bits; strings use text.
type TypedValue struct {
	Kind       Kind
	Identifier string

	bits uint64
	text string
}

func BoolValue(id string, v bool) TypedValue {
	var b uint64
	if v {
		b = 1
	}
	return TypedValue{Kind: KindBool, Identifier: id, bits: b}
}

func ByteValue(id string, v uint8) TypedValue {
	return TypedValue{Kind: KindByte, Identifier: id, bits: uint64(v)}
}

func Int16Value(id string, v int16) TypedValue {
	return TypedValue{Kind: KindInt16, Identifier: id, bits: uint64(uint16(v))}
}

func Int32Value(id string, v int32) TypedValue {
	return TypedValue{Kind: KindInt32, Identifier: id, bits: uint64(uint32(v))}
}

func Int64Value(id string, v int64) TypedValue {
	return TypedValue{Kind: KindInt64, Identifier: id, bits: uint64(v)}
}

func FloatValue(id string, v float32) TypedValue {
	return TypedValue{Kind: KindFloat, Identifier: id, bits: uint64(math.Float32bits(v))}
}

func DoubleValue(id string, v float64) TypedValue {
	return TypedValue{Kind: KindDouble, Identifier: id, bits: math.Float64bits(v)}
}

func StringValue(id string, v string) TypedValue {
	return TypedValue{Kind: KindString, Identifier: id, text: v}
}

func (v TypedValue) Bool() (bool, bool)     { return v.bits != 0, v.Kind == KindBool }
func (v TypedValue) Byte() (uint8, bool)    { return uint8(v.bits), v.Kind == KindByte }
func (v TypedValue) Int16() (int16, bool)   { return int16(uint16(v.bits)), v.Kind == KindInt16 }
func (v TypedValue) Int32() (int32, bool)   { return int32(uint32(v.bits)), v.Kind == KindInt32 }
func (v TypedValue) Int64() (int64, bool)   { return int64(v.bits), v.Kind == KindInt64 }
func (v TypedValue) Text() (string, bool)   { return v.text, v.Kind == KindString }
func (v TypedValue) Float() (float32, bool) { return math.Float32frombits(uint32(v.bits)), v.Kind == KindFloat }
func (v TypedValue) Double() (float64, bool) {
	return math.Float64frombits(v.bits), v.Kind == KindDouble
}

// Number projects the payload onto float64. Strings are not numeric.
func (v TypedValue) Number() (float64, bool) {
	switch v.Kind {
	case KindBool, KindByte:
		return float64(v.bits), true
	case KindInt16:
		n, _ := v.Int16()
		return float64(n), true
	case KindInt32:
		n, _ := v.Int32()
		return float64(n), true
	case KindInt64:
		n, _ := v.Int64()
		return float64(n), true
	case KindFloat:
		f, _ := v.Float()
		return float64(f), true
	case KindDouble:
		return v.Double()
	default:
		return 0, false
	}
}

// Format renders the payload the way it is handed to consumers. Booleans are
// integer events, so they render as 1 or 0.
func (v TypedValue) Format() string {
	switch v.Kind {
	case KindBool, KindByte:
		return strconv.FormatUint(v.bits, 10)
	case KindInt16, KindInt32:
		n, _ := v.Number()
		return strconv.FormatInt(int64(n), 10)
	case KindInt64:
		return strconv.FormatInt(int64(v.bits), 10)
	case KindFloat:
		f, _ := v.Float()
		return strconv.FormatFloat(float64(f), 'g', -1, 32)
	case KindDouble:
		d, _ := v.Double()
		return strconv.FormatFloat(d, 'g', -1, 64)
	case KindString:
		return v.text
	default:
		return ""
	}
}

func (v TypedValue) String() string {
	return fmt.Sprintf("%s(%s)=%s", v.Kind, v.Identifier, v.Format())
}

// Decode interprets raw as kind. The wire type must match exactly; fixed-width
// bodies are reinterpreted bit for bit without range checks.
func Decode(kind Kind, identifier string, raw RawScalar) (TypedValue, error) {
	info, ok := kindTable[kind]
	if !ok {
		return TypedValue{}, fmt.Errorf("%w: %d", ErrUnknownKind, uint8(kind))
	}
	if raw.Type != info.wire {
		return TypedValue{}, fmt.Errorf("%w: %s declared %s, remote sent wire type %d",
			ErrConversionFailed, identifier, kind, raw.Type)
	}
	if info.width > 0 && len(raw.Body) < info.width {
		return TypedValue{}, fmt.Errorf("%w: %s body has %d bytes, %s needs %d",
			ErrReadFailed, identifier, len(raw.Body), kind, info.width)
	}

	b := raw.Body
	switch kind {
	case KindBool:
		return BoolValue(identifier, b[0] != 0), nil
	case KindByte:
		return ByteValue(identifier, b[0]), nil
	case KindInt16:
		return Int16Value(identifier, int16(binary.LittleEndian.Uint16(b))), nil
	case KindInt32:
		return Int32Value(identifier, int32(binary.LittleEndian.Uint32(b))), nil
	case KindInt64:
		return Int64Value(identifier, int64(binary.LittleEndian.Uint64(b))), nil
	case KindFloat:
		return FloatValue(identifier, math.Float32frombits(binary.LittleEndian.Uint32(b))), nil
	case KindDouble:
		return DoubleValue(identifier, math.Float64frombits(binary.LittleEndian.Uint64(b))), nil
	case KindString:
		s, err := decodeString(identifier, b)
		if err != nil {
			return TypedValue{}, err
		}
		return StringValue(identifier, s), nil
	default:
		return TypedValue{}, fmt.Errorf("%w: %d", ErrUnknownKind, uint8(kind))
	}
}

// decodeString copies exactly the number of bytes announced by the int32
// length prefix. A negative length is the protocol's null string.
func decodeString(identifier string, b []byte) (string, error) {
	if len(b) < 4 {
		return "", fmt.Errorf("%w: %s string body missing length prefix", ErrReadFailed, identifier)
	}
	n := int32(binary.LittleEndian.Uint32(b[:4]))
	if n < 0 {
		return "", nil
	}
	payload := b[4:]
	if int64(n) > int64(len(payload)) {
		return "", fmt.Errorf("%w: %s string length %d exceeds %d available bytes",
			ErrReadFailed, identifier, n, len(payload))
	}
	return string(payload[:n]), nil
}

// Encode is the inverse of Decode. The read client never needs it; tests and
// simulators use it to build raw scalars.
func Encode(v TypedValue) RawScalar {
	info := kindTable[v.Kind]
	if v.Kind == KindString {
		body := make([]byte, 4+len(v.text))
		binary.LittleEndian.PutUint32(body, uint32(len(v.text)))
		copy(body[4:], v.text)
		return RawScalar{Type: info.wire, Body: body}
	}
	body := make([]byte, 8)
	binary.LittleEndian.PutUint64(body, v.bits)
	return RawScalar{Type: info.wire, Body: body[:info.width]}
}
