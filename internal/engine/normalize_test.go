package engine

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeError(t *testing.T) {
	cases := []struct {
		name string
		in   interface{}
		want string
	}{
		{name: "plain string", in: "boom", want: "boom"},
		{name: "go error", in: errors.New("bad input"), want: "bad input"},
		{name: "nil", in: nil, want: "unknown error"},
		{name: "error field", in: map[string]interface{}{"error": "nested"}, want: "nested"},
		{name: "message field", in: map[string]interface{}{"message": "msg"}, want: "msg"},
		{name: "json string", in: `{"error":{"message":"deep"}}`, want: "deep"},
		{name: "json quoted string", in: `"quoted"`, want: "quoted"},
		{name: "numeric string stays", in: "42", want: "42"},
		{name: "object without known keys", in: map[string]interface{}{"code": 7}, want: `{"code":7}`},
		{name: "number", in: 3.5, want: "3.5"},
		{
			name: "depth limited",
			in: map[string]interface{}{"error": map[string]interface{}{"error": map[string]interface{}{
				"error": map[string]interface{}{"message": "too deep"},
			}}},
			want: `{"message":"too deep"}`,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, normalizeError(tc.in))
		})
	}
}
