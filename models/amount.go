package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
)

// Amount is an ingredient quantity parsed once on ingress. The original textual
// form is kept so the value serializes back exactly as it arrived.
type Amount struct {
	Value float64
	// Valid is false when the text carried no leading number ("a pinch").
	Valid bool

	raw    string
	quoted bool
}

var leadingNumber = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?`)

// ParseAmount reads the leading decimal number of s, ignoring surrounding space
// and any trailing text.
func ParseAmount(s string) Amount {
	a := Amount{raw: s, quoted: true}
	m := leadingNumber.FindString(strings.TrimSpace(s))
	if m == "" {
		return a
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil || math.IsInf(v, 0) || math.IsNaN(v) {
		return a
	}
	a.Value, a.Valid = v, true
	return a
}

func NumberAmount(v float64) Amount {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return Amount{}
	}
	return Amount{Value: v, Valid: true, raw: strconv.FormatFloat(v, 'f', -1, 64)}
}

// Quantity is the numeric contribution of a: zero when unparsed.
func (a Amount) Quantity() float64 {
	if !a.Valid {
		return 0
	}
	return a.Value
}

func (a Amount) String() string {
	if a.raw != "" || a.quoted {
		return a.raw
	}
	if a.Valid {
		return strconv.FormatFloat(a.Value, 'f', -1, 64)
	}
	return ""
}

func (a Amount) MarshalJSON() ([]byte, error) {
	if a.quoted || !a.Valid {
		return json.Marshal(a.String())
	}
	return []byte(a.String()), nil
}

func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*a = Amount{}
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = ParseAmount(s)
	default:
		v, err := strconv.ParseFloat(string(data), 64)
		if err != nil {
			return fmt.Errorf("amount: %w", err)
		}
		*a = Amount{Value: v, Valid: true, raw: string(data)}
	}
	return nil
}

func (a Amount) MarshalBSONValue() (bsontype.Type, []byte, error) {
	if a.quoted || !a.Valid {
		return bson.MarshalValue(a.String())
	}
	return bson.MarshalValue(a.Value)
}

func (a *Amount) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	rv := bson.RawValue{Type: t, Value: data}
	switch t {
	case bsontype.String:
		*a = ParseAmount(rv.StringValue())
	case bsontype.Double:
		*a = NumberAmount(rv.Double())
	case bsontype.Int32:
		*a = NumberAmount(float64(rv.Int32()))
	case bsontype.Int64:
		*a = NumberAmount(float64(rv.Int64()))
	case bsontype.Null, bsontype.Undefined:
		*a = Amount{}
	default:
		return fmt.Errorf("amount: unsupported bson type %s", t)
	}
	return nil
}
