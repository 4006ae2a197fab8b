package pcb

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/bits-and-blooms/bitset"
)

// SetBits is the width of every set value.
const SetBits = 256

// SetSize is the storage size of a set in bytes.
const SetSize = SetBits / 8

// Value is a compile-time value. Kind is one of KindInteger, KindReal,
// KindBoolean, KindChar, KindScalarMember, KindStringConst, KindSet and
// KindPointer (nil). Booleans, chars and scalar members keep their ordinal
// in Int.
type Value struct {
	Kind Kind
	Int  int64
	Real float64
	Str  string
	Set  *bitset.BitSet
}

func IntValue(x int64) Value     { return Value{Kind: KindInteger, Int: x} }
func RealValue(x float64) Value  { return Value{Kind: KindReal, Real: x} }
func CharValue(c byte) Value     { return Value{Kind: KindChar, Int: int64(c)} }
func StringValue(s string) Value { return Value{Kind: KindStringConst, Str: s} }
func NilValue() Value            { return Value{Kind: KindPointer} }

func BoolValue(b bool) Value {
	v := Value{Kind: KindBoolean}
	if b {
		v.Int = 1
	}
	return v
}

// MemberValue is the value of the n-th member of an enumeration.
func MemberValue(n int64) Value {
	return Value{Kind: KindScalarMember, Int: n}
}

// EmptySet returns a set value with no bit set.
func EmptySet() Value {
	return Value{Kind: KindSet, Set: bitset.New(SetBits)}
}

// SetValue returns a set with bits lo..hi set; bits outside the set width
// are dropped and reported through clamped.
func SetValue(lo, hi int64) (v Value, clamped bool) {
	v = EmptySet()
	clamped = v.AddRange(lo, hi)
	return v, clamped
}

// AddRange sets bits lo..hi of set value v. It reports whether any bit lay
// outside the set width.
func (v Value) AddRange(lo, hi int64) (clamped bool) {
	if hi < lo {
		return false
	}
	if lo < 0 || hi >= SetBits {
		clamped = true
		lo, hi = max(lo, 0), min(hi, SetBits-1)
	}
	for i := lo; i <= hi; i++ {
		v.Set.Set(uint(i))
	}
	return clamped
}

func (v Value) Bool() bool {
	return v.Int != 0
}

func (v Value) IsNumeric() bool {
	return v.Kind == KindInteger || v.Kind == KindReal
}

// AsReal returns v as a real number.
func (v Value) AsReal() float64 {
	if v.Kind == KindReal {
		return v.Real
	}
	return float64(v.Int)
}

// IsOrdinal reports whether v has an ordinal number.
func (v Value) IsOrdinal() bool {
	switch v.Kind {
	case KindInteger, KindBoolean, KindChar, KindScalarMember:
		return true
	}
	return false
}

// AsString returns a string or char value as a string.
func (v Value) AsString() string {
	if v.Kind == KindChar {
		return string([]byte{byte(v.Int)})
	}
	return v.Str
}

// SetBytes returns the storage image of a set value: bit i is bit i%8 of
// byte i/8.
func (v Value) SetBytes() []byte {
	b := make([]byte, SetSize)
	if v.Set == nil {
		return b
	}
	for i, ok := v.Set.NextSet(0); ok && i < SetBits; i, ok = v.Set.NextSet(i + 1) {
		b[i/8] |= 1 << (i % 8)
	}
	return b
}

func (v Value) String() string {
	switch v.Kind {
	case KindInteger, KindScalarMember:
		return strconv.FormatInt(v.Int, 10)
	case KindReal:
		return strconv.FormatFloat(v.Real, 'g', -1, 64)
	case KindBoolean:
		return strconv.FormatBool(v.Bool())
	case KindChar:
		return fmt.Sprintf("#%d", v.Int)
	case KindStringConst:
		return strconv.Quote(v.Str)
	case KindPointer:
		return "nil"
	case KindSet:
		var parts []string
		if v.Set != nil {
			for i, ok := v.Set.NextSet(0); ok; i, ok = v.Set.NextSet(i + 1) {
				parts = append(parts, strconv.Itoa(int(i)))
			}
		}
		return "[" + strings.Join(parts, ",") + "]"
	}
	return "?"
}
