package types

import (
	"encoding/json"
	"math/big"
	"reflect"
	"strconv"
)

// BigInt wraps *big.Int with string-based JSON marshaling so voting power
// values survive transport without precision loss or scientific notation.
type BigInt struct {
	*big.Int
}

// NewBigInt creates a new BigInt from a *big.Int
func NewBigInt(i *big.Int) *BigInt {
	if i == nil {
		return nil
	}
	return &BigInt{Int: i}
}

// NewBigIntFromInt64 creates a new BigInt from an int64
func NewBigIntFromInt64(i int64) *BigInt {
	return &BigInt{Int: big.NewInt(i)}
}

// MarshalJSON implements json.Marshaler interface
func (b *BigInt) MarshalJSON() ([]byte, error) {
	if b == nil || b.Int == nil {
		return []byte("null"), nil
	}
	return json.Marshal(b.Int.String())
}

// UnmarshalJSON implements json.Unmarshaler interface
func (b *BigInt) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		b.Int = nil
		return nil
	}

	// Only accept string format for large integers
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return &json.UnmarshalTypeError{
			Value:  string(data),
			Type:   reflect.TypeOf(""),
			Struct: "BigInt",
			Field:  "Int",
		}
	}

	i, ok := new(big.Int).SetString(str, 10)
	if !ok {
		return &json.UnmarshalTypeError{
			Value:  "string",
			Type:   reflect.TypeOf(big.Int{}),
			Struct: "BigInt",
			Field:  "Int",
		}
	}
	b.Int = i
	return nil
}

// String implements fmt.Stringer interface
func (b *BigInt) String() string {
	if b == nil || b.Int == nil {
		return "<nil>"
	}
	return b.Int.String()
}

// Add adds x and y and stores the result in b
func (b *BigInt) Add(x, y *BigInt) *BigInt {
	if b == nil {
		b = &BigInt{Int: new(big.Int)}
	}
	if b.Int == nil {
		b.Int = new(big.Int)
	}
	if x == nil || x.Int == nil {
		x = &BigInt{Int: big.NewInt(0)}
	}
	if y == nil || y.Int == nil {
		y = &BigInt{Int: big.NewInt(0)}
	}
	b.Int.Add(x.Int, y.Int)
	return b
}

// Cmp compares b and x and returns:
//
//	-1 if b <  x
//	 0 if b == x
//	+1 if b >  x
func (b *BigInt) Cmp(x *BigInt) int {
	if b == nil || b.Int == nil {
		b = &BigInt{Int: big.NewInt(0)}
	}
	if x == nil || x.Int == nil {
		x = &BigInt{Int: big.NewInt(0)}
	}
	return b.Int.Cmp(x.Int)
}

// GreaterOrEqual returns true if b is greater than or equal to x
func (b *BigInt) GreaterOrEqual(x *BigInt) bool {
	return b.Cmp(x) >= 0
}

// IsZero returns true if the value is zero or unset
func (b *BigInt) IsZero() bool {
	return b == nil || b.Int == nil || b.Sign() == 0
}

// Clone creates a copy of the BigInt
func (b *BigInt) Clone() *BigInt {
	if b == nil || b.Int == nil {
		return nil
	}
	return &BigInt{Int: new(big.Int).Set(b.Int)}
}

// MulCeilPercent returns ceil(b * pct / 100). It is used to derive the
// power required to finalize a task from the total power at its creation
// checkpoint; rounding up keeps the bar at least the configured fraction.
func (b *BigInt) MulCeilPercent(pct uint64) *BigInt {
	if b == nil || b.Int == nil {
		return &BigInt{Int: big.NewInt(0)}
	}
	num := new(big.Int).Mul(b.Int, new(big.Int).SetUint64(pct))
	num.Add(num, big.NewInt(99))
	return &BigInt{Int: num.Div(num, big.NewInt(100))}
}

// ParseBigInt parses a base-10 string as a BigInt
func ParseBigInt(s string) (*BigInt, error) {
	i, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, &strconv.NumError{
			Func: "ParseBigInt",
			Num:  s,
			Err:  strconv.ErrSyntax,
		}
	}
	return &BigInt{Int: i}, nil
}

// MustParseBigInt parses a base-10 string as a BigInt, panicking on error
func MustParseBigInt(s string) *BigInt {
	b, err := ParseBigInt(s)
	if err != nil {
		panic(err)
	}
	return b
}
