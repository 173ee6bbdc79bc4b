package cells

import (
	"database/sql/driver"
	"encoding"
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"reflect"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"chxlsx/pkg/contracts/domain"
)

// Classify returns the semantic kind of a raw column value.
// Pointers are dereferenced; a nil pointer is Null.
func Classify(v interface{}) domain.ValueKind {
	v = normalize(v)
	switch val := v.(type) {
	case nil:
		return domain.KindNull
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, *big.Int:
		return domain.KindInteger
	case decimal.Decimal:
		return domain.KindDecimal
	case float32, float64:
		return domain.KindFloat
	case time.Time:
		return domain.KindDateTime
	case bool:
		return domain.KindBoolean
	case string:
		return domain.KindString
	case []byte:
		if utf8.Valid(val) {
			return domain.KindString
		}
		return domain.KindOther
	default:
		return domain.KindOther
	}
}

// Map converts one raw database value into a typed cell. It never fails:
// values of unknown kinds are written as their JSON serialization.
func Map(v interface{}) domain.Cell {
	raw := v
	v = normalize(v)
	kind := Classify(v)

	switch kind {
	case domain.KindNull:
		return domain.Cell{Type: domain.CellTypeText, Kind: kind, Text: "", Value: ""}
	case domain.KindInteger:
		return integerCell(v)
	case domain.KindDecimal:
		d := v.(decimal.Decimal)
		// Stored numbers are IEEE doubles; Text keeps every digit.
		return domain.Cell{Type: domain.CellTypeNumber, Kind: kind, Text: d.String(), Value: d.InexactFloat64()}
	case domain.KindFloat:
		return floatCell(v)
	case domain.KindDateTime:
		serial := DateSerial(v.(time.Time))
		return domain.Cell{
			Type:    domain.CellTypeDate,
			Kind:    kind,
			Text:    strconv.FormatFloat(serial, 'f', -1, 64),
			Value:   serial,
			StyleID: domain.DateStyleID,
		}
	case domain.KindBoolean:
		return domain.Cell{Type: domain.CellTypeBoolean, Kind: kind, Text: formatBool(v.(bool)), Value: v}
	case domain.KindString:
		s, ok := v.(string)
		if !ok {
			s = string(v.([]byte))
		}
		return domain.Cell{Type: domain.CellTypeText, Kind: kind, Text: s, Value: s}
	default:
		s := serialize(raw, v)
		return domain.Cell{Type: domain.CellTypeText, Kind: domain.KindOther, Text: s, Value: s}
	}
}

// MapRow maps every value of a result row
func MapRow(values []interface{}) domain.Row {
	row := make(domain.Row, len(values))
	for i, v := range values {
		row[i] = Map(v)
	}
	return row
}

// normalize dereferences pointers and unwraps the database/sql Null*
// wrappers into their driver values. Big integers stay behind a pointer
// since their methods have pointer receivers.
func normalize(v interface{}) interface{} {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	if !rv.IsValid() {
		return nil
	}
	v = rv.Interface()
	if n, ok := v.(big.Int); ok {
		return &n
	}
	if valuer, ok := v.(driver.Valuer); ok && rv.Type().PkgPath() == "database/sql" {
		inner, err := valuer.Value()
		if err != nil {
			return v
		}
		return normalize(inner)
	}
	return v
}

func integerCell(v interface{}) domain.Cell {
	var text string
	switch n := v.(type) {
	case int:
		text = strconv.FormatInt(int64(n), 10)
	case int8:
		text = strconv.FormatInt(int64(n), 10)
	case int16:
		text = strconv.FormatInt(int64(n), 10)
	case int32:
		text = strconv.FormatInt(int64(n), 10)
	case int64:
		text = strconv.FormatInt(n, 10)
	case uint:
		text = strconv.FormatUint(uint64(n), 10)
	case uint8:
		text = strconv.FormatUint(uint64(n), 10)
	case uint16:
		text = strconv.FormatUint(uint64(n), 10)
	case uint32:
		text = strconv.FormatUint(uint64(n), 10)
	case uint64:
		text = strconv.FormatUint(n, 10)
	case *big.Int:
		return bigIntCell(n)
	}
	return domain.Cell{Type: domain.CellTypeNumber, Kind: domain.KindInteger, Text: text, Value: v}
}

// bigIntCell maps the 128 and 256 bit integer columns. Values outside the
// 64 bit range are stored as doubles, like decimals.
func bigIntCell(n *big.Int) domain.Cell {
	var value interface{}
	switch {
	case n.IsInt64():
		value = n.Int64()
	case n.IsUint64():
		value = n.Uint64()
	default:
		value, _ = new(big.Float).SetInt(n).Float64()
	}
	return domain.Cell{Type: domain.CellTypeNumber, Kind: domain.KindInteger, Text: n.String(), Value: value}
}

// floatCell writes finite floats as numbers. NaN and infinities have no
// spreadsheet number form and become text.
func floatCell(v interface{}) domain.Cell {
	var f float64
	bitSize := 64
	switch n := v.(type) {
	case float32:
		f, bitSize = float64(n), 32
	case float64:
		f = n
	}
	text := strconv.FormatFloat(f, 'f', -1, bitSize)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return domain.Cell{Type: domain.CellTypeText, Kind: domain.KindFloat, Text: text, Value: text}
	}
	return domain.Cell{Type: domain.CellTypeNumber, Kind: domain.KindFloat, Text: text, Value: v}
}

func formatBool(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

// serialize renders an unrecognized value as JSON, falling back to fmt
// formatting for values JSON cannot represent. Marshalers and Stringers are
// looked up on the value as scanned so pointer receivers still apply.
func serialize(raw, v interface{}) string {
	switch m := raw.(type) {
	case json.Marshaler, encoding.TextMarshaler:
		if data, err := json.Marshal(m); err == nil {
			return string(data)
		}
	case fmt.Stringer:
		if data, err := json.Marshal(m.String()); err == nil {
			return string(data)
		}
	}

	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}
