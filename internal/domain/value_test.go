package domain

import (
	"encoding/binary"
	"errors"
	"math"
	"testing"
)

func TestDecodeRoundTripAllKinds(t *testing.T) {
	cases := []TypedValue{
		BoolValue("b", true),
		ByteValue("y", 0xAB),
		Int16Value("i16", -1234),
		Int32Value("i32", -42),
		Int64Value("i64", math.MinInt64+7),
		FloatValue("f", 3.5),
		DoubleValue("d", -2.25e10),
		StringValue("s", "spindle ok"),
	}

	for _, want := range cases {
		raw := Encode(want)
		if raw.Type != want.Kind.Wire() {
			t.Fatalf("%s: expected wire type %d, got %d", want.Kind, want.Kind.Wire(), raw.Type)
		}
		got, err := Decode(want.Kind, want.Identifier, raw)
		if err != nil {
			t.Fatalf("%s: decode: %v", want.Kind, err)
		}
		if got.Kind != want.Kind {
			t.Fatalf("expected kind %s, got %s", want.Kind, got.Kind)
		}
		if got != want {
			t.Fatalf("%s: expected %v, got %v", want.Kind, want, got)
		}
	}
}

func TestDecodeReinterpretsBits(t *testing.T) {
	got, err := Decode(KindInt16, "n", RawScalar{Type: WireInt16, Body: []byte{0xFF, 0xFF}})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if v, ok := got.Int16(); !ok || v != -1 {
		t.Fatalf("expected -1, got %d ok=%v", v, ok)
	}

	nan := make([]byte, 8)
	binary.LittleEndian.PutUint64(nan, math.Float64bits(math.NaN()))
	got, err = Decode(KindDouble, "d", RawScalar{Type: WireDouble, Body: nan})
	if err != nil {
		t.Fatalf("decode NaN: %v", err)
	}
	if d, _ := got.Double(); !math.IsNaN(d) {
		t.Fatalf("expected NaN to pass through, got %v", d)
	}
}

func TestDecodeWireMismatchIsConversionFailure(t *testing.T) {
	raw := Encode(StringValue("n1", "42"))
	_, err := Decode(KindInt32, "n1", raw)
	if !errors.Is(err, ErrConversionFailed) {
		t.Fatalf("expected ErrConversionFailed, got %v", err)
	}
}

func TestDecodeShortBody(t *testing.T) {
	_, err := Decode(KindInt64, "n", RawScalar{Type: WireInt64, Body: []byte{1, 2, 3}})
	if !errors.Is(err, ErrReadFailed) {
		t.Fatalf("expected ErrReadFailed, got %v", err)
	}
}

func TestDecodeStringLengthExceedsPayload(t *testing.T) {
	body := make([]byte, 4+3)
	binary.LittleEndian.PutUint32(body, 10)
	copy(body[4:], "abc")

	got, err := Decode(KindString, "s1", RawScalar{Type: WireString, Body: body})
	if !errors.Is(err, ErrReadFailed) {
		t.Fatalf("expected ErrReadFailed, got %v (value %v)", err, got)
	}
	if got != (TypedValue{}) {
		t.Fatalf("expected zero value on failure, got %v", got)
	}
}

func TestDecodeStringUsesLengthNotTerminator(t *testing.T) {
	body := make([]byte, 4+6)
	binary.LittleEndian.PutUint32(body, 4)
	copy(body[4:], "ab\x00dXX")

	got, err := Decode(KindString, "s", RawScalar{Type: WireString, Body: body})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if s, _ := got.Text(); s != "ab\x00d" {
		t.Fatalf("expected 4 bytes including NUL, got %q", s)
	}
}

func TestDecodeNullString(t *testing.T) {
	body := []byte{0xFF, 0xFF, 0xFF, 0xFF}
	got, err := Decode(KindString, "s", RawScalar{Type: WireString, Body: body})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if s, ok := got.Text(); !ok || s != "" {
		t.Fatalf("expected empty string, got %q ok=%v", s, ok)
	}
}

func TestParseKind(t *testing.T) {
	for _, k := range Kinds() {
		got, err := ParseKind(k.String())
		if err != nil || got != k {
			t.Fatalf("ParseKind(%q) = %v, %v", k.String(), got, err)
		}
	}
	if _, err := ParseKind("uint32"); !errors.Is(err, ErrUnknownKind) {
		t.Fatalf("expected ErrUnknownKind, got %v", err)
	}
}

func TestAccessorsCheckKind(t *testing.T) {
	v := Int32Value("n", 7)
	if _, ok := v.Text(); ok {
		t.Fatalf("Text should not succeed on an int32 value")
	}
	if n, ok := v.Int32(); !ok || n != 7 {
		t.Fatalf("expected 7, got %d ok=%v", n, ok)
	}
}

func TestFormatAndCategory(t *testing.T) {
	cases := []struct {
		v        TypedValue
		text     string
		category Category
	}{
		{BoolValue("b", true), "1", CategoryEvent},
		{Int64Value("n", -9), "-9", CategoryEvent},
		{FloatValue("f", 1.5), "1.5", CategorySample},
		{DoubleValue("d", 0.1), "0.1", CategorySample},
		{StringValue("s", "RUN"), "RUN", CategoryEvent},
	}
	for _, tc := range cases {
		if got := tc.v.Format(); got != tc.text {
			t.Fatalf("%s: expected %q, got %q", tc.v.Kind, tc.text, got)
		}
		if got := tc.v.Kind.Category(); got != tc.category {
			t.Fatalf("%s: expected category %s, got %s", tc.v.Kind, tc.category, got)
		}
	}
}

func TestKindTextMarshalling(t *testing.T) {
	b, err := KindDouble.MarshalText()
	if err != nil || string(b) != "double" {
		t.Fatalf("MarshalText = %q, %v", b, err)
	}
	var k Kind
	if err := k.UnmarshalText([]byte("int16")); err != nil || k != KindInt16 {
		t.Fatalf("UnmarshalText = %v, %v", k, err)
	}
}
