package engine

import (
	"encoding/json"
	"fmt"
)

// maxErrorUnwrap bounds how many wrapper layers normalizeError peels off.
// Deeper payloads are rendered as JSON from that point.
const maxErrorUnwrap = 3

// normalizeError flattens an error payload into a message. It unwraps
// {"error": ...} and {"message": ...} objects and JSON-encoded strings.
func normalizeError(v interface{}) string {
	if err, ok := v.(error); ok {
		v = err.Error()
	}
	for depth := 0; depth < maxErrorUnwrap; depth++ {
		switch t := v.(type) {
		case nil:
			return "unknown error"
		case string:
			var decoded interface{}
			if err := json.Unmarshal([]byte(t), &decoded); err != nil {
				return t
			}
			switch d := decoded.(type) {
			case map[string]interface{}, string:
				v = d
			default:
				return t
			}
		case map[string]interface{}:
			if inner, ok := t["error"]; ok && inner != nil {
				v = inner
				continue
			}
			if inner, ok := t["message"]; ok && inner != nil {
				v = inner
				continue
			}
			return render(t)
		default:
			return render(t)
		}
	}
	if s, ok := v.(string); ok {
		return s
	}
	return render(v)
}

func render(v interface{}) string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}
