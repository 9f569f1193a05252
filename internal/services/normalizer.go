package services

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"pharmacy-intelligence-service/internal/models"
)

// Canonical field keys a connector field map may bind to raw column names.
const (
	FieldSKU                 = "sku"
	FieldProductName         = "productName"
	FieldGenericName         = "genericName"
	FieldBatchNumber         = "batchNumber"
	FieldQuantity            = "quantity"
	FieldExpiry              = "expiry"
	FieldDistributorName     = "distributorName"
	FieldDistributorContact  = "distributorContact"
	FieldDistributorLocation = "distributorLocation"
)

// expiryLayouts are tried in order when parsing raw expiry values. External
// systems report dates in whatever shape their schema uses.
var expiryLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02-Jan-2006",
	"2006/01/02",
}

// NormalizeRawRows converts arbitrary raw rows into sync records using the
// connector's field map. Rows missing a product name or a numeric quantity
// are dropped, not errors: partial garbage from an external schema must never
// fail the batch. Input order is preserved for the surviving rows.
func NormalizeRawRows(rows []models.RawRow, fieldMap map[string]string) []models.SyncRecord {
	records := make([]models.SyncRecord, 0, len(rows))
	for _, row := range rows {
		productName := readString(row, fieldMap[FieldProductName])
		quantity := readNumber(row, fieldMap[FieldQuantity])
		if productName == nil || math.IsNaN(quantity) || math.IsInf(quantity, 0) {
			continue
		}

		records = append(records, models.SyncRecord{
			SKU:                 readString(row, fieldMap[FieldSKU]),
			ProductName:         *productName,
			GenericName:         readString(row, fieldMap[FieldGenericName]),
			BatchNumber:         readString(row, fieldMap[FieldBatchNumber]),
			Quantity:            clampQuantity(quantity),
			Expiry:              readDate(row, fieldMap[FieldExpiry]),
			DistributorName:     readString(row, fieldMap[FieldDistributorName]),
			DistributorContact:  readString(row, fieldMap[FieldDistributorContact]),
			DistributorLocation: readString(row, fieldMap[FieldDistributorLocation]),
		})
	}
	return records
}

// clampQuantity floors a raw quantity into [0, MaxInt32]. A float beyond the
// int range converts to an implementation-defined (negative on amd64) value,
// so oversized readings saturate instead of converting directly.
func clampQuantity(raw float64) int {
	floored := math.Floor(raw)
	if floored < 0 {
		return 0
	}
	if floored > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(floored)
}

// readString reads a mapped column as trimmed text. Unmapped columns, absent
// values and all-whitespace values all mean "no value".
func readString(row models.RawRow, key string) *string {
	if key == "" {
		return nil
	}
	value, ok := row[key]
	if !ok || value == nil {
		return nil
	}
	text := strings.TrimSpace(toText(value))
	if text == "" {
		return nil
	}
	return &text
}

// readNumber reads a mapped column as a number, accepting numeric and
// numeric-string values. Anything else yields NaN.
func readNumber(row models.RawRow, key string) float64 {
	if key == "" {
		return math.NaN()
	}
	switch v := row[key].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int32:
		return float64(v)
	case int64:
		return float64(v)
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return math.NaN()
		}
		return n
	default:
		return math.NaN()
	}
}

// readDate reads a mapped column as a calendar date and normalizes it to an
// ISO-8601 UTC instant string. Unparseable values mean "no value".
func readDate(row models.RawRow, key string) *string {
	if key == "" {
		return nil
	}
	value, ok := row[key]
	if !ok || value == nil {
		return nil
	}
	var parsed time.Time
	if t, isTime := value.(time.Time); isTime {
		parsed = t
	} else {
		text := strings.TrimSpace(toText(value))
		if text == "" {
			return nil
		}
		var err error
		for _, layout := range expiryLayouts {
			if parsed, err = time.Parse(layout, text); err == nil {
				break
			}
		}
		if err != nil {
			return nil
		}
	}
	iso := FormatISOInstant(parsed)
	return &iso
}

// FormatISOInstant renders a time as a millisecond-precision UTC instant,
// the normalized expiry representation sync records carry.
func FormatISOInstant(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z")
}

// ParseExpiry parses a sync record's expiry string back into a time. Records
// arriving through the API may use any supported layout, not just the
// normalized one.
func ParseExpiry(value *string) *time.Time {
	if value == nil {
		return nil
	}
	text := strings.TrimSpace(*value)
	if text == "" {
		return nil
	}
	for _, layout := range expiryLayouts {
		if t, err := time.Parse(layout, text); err == nil {
			u := t.UTC()
			return &u
		}
	}
	return nil
}

func toText(value interface{}) string {
	switch v := value.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprintf("%v", v)
	}
}
