package utils

import "strconv"

// ToStringMap flattens a decoded JSON object into string values.
// Numbers are rendered without an exponent so a Telegram user id
// round-trips exactly; nested values are dropped.
func ToStringMap(m map[string]any) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		switch value := v.(type) {
		case string:
			out[k] = value
		case float64:
			out[k] = strconv.FormatFloat(value, 'f', -1, 64)
		case bool:
			out[k] = strconv.FormatBool(value)
		case nil:
			// skip
		}
	}
	return out
}
