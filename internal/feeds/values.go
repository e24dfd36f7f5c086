package feeds

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// flexString accepts a JSON string or number, collectors are not consistent
// about identifier types
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("expected string or number, got %s", data)
	}
	*f = flexString(n.String())
	return nil
}

// propertyString renders a scalar GeoJSON property as a tag value. Absent,
// null and non-scalar values give nil.
func propertyString(props map[string]interface{}, key string) *string {
	v, ok := props[key]
	if !ok || v == nil {
		return nil
	}
	var s string
	switch val := v.(type) {
	case string:
		s = val
	case float64:
		s = strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		s = strconv.FormatBool(val)
	case json.Number:
		s = val.String()
	default:
		return nil
	}
	return &s
}

// propertyInt64 reads an integer identifier that may be encoded as a number or a string
func propertyInt64(props map[string]interface{}, key string) (int64, bool) {
	switch val := props[key].(type) {
	case float64:
		if val != math.Trunc(val) {
			return 0, false
		}
		return int64(val), true
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(val), 10, 64)
		return n, err == nil
	case json.Number:
		n, err := val.Int64()
		return n, err == nil
	}
	return 0, false
}
