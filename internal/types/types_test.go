package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHasPayload(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want bool
	}{
		{name: "absent", raw: `{"event":"connect"}`, want: false},
		{name: "null", raw: `{"event":"connect","data":null}`, want: false},
		{name: "object", raw: `{"event":"connect","data":{"clientId":"abc"}}`, want: true},
		{name: "empty object", raw: `{"event":"connect","data":{}}`, want: true},
		{name: "string", raw: `{"event":"response","data":"hi"}`, want: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var env Envelope
			require.NoError(t, json.Unmarshal([]byte(tc.raw), &env))
			assert.Equal(t, tc.want, HasPayload(env.Data))
		})
	}
}

func TestNewEnvelope_NilPayloadOmitsData(t *testing.T) {
	env, err := NewEnvelope("ping", nil)
	require.NoError(t, err)

	b, err := json.Marshal(env)
	require.NoError(t, err)
	assert.JSONEq(t, `{"event":"ping"}`, string(b))
}

func TestNewEnvelope_UnmarshalablePayload(t *testing.T) {
	_, err := NewEnvelope("bad", make(chan int))
	require.Error(t, err)
}
