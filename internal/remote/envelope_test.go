package remote

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeEnvelope(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		wantKind  EnvelopeKind
		wantNames []string
	}{
		{
			name:      "text wrapped",
			raw:       `{"jsonrpc":"2.0","id":"1","result":{"content":[{"type":"text","text":"{\"data\":{\"metrics\":[{\"name\":\"heart_rate\",\"units\":\"count/min\",\"data\":[]}]}}"}]}}`,
			wantKind:  EnvelopeTextWrapped,
			wantNames: []string{"heart_rate"},
		},
		{
			name:      "text item skipped when not json",
			raw:       `{"result":{"content":[{"type":"text","text":"oops"}],"data":{"metrics":[{"name":"step_count"}]}}}`,
			wantKind:  EnvelopeDirect,
			wantNames: []string{"step_count"},
		},
		{
			name:      "non text content ignored",
			raw:       `{"result":{"content":[{"type":"image","text":"{\"data\":{\"metrics\":[{\"name\":\"x\"}]}}"}]}}`,
			wantKind:  EnvelopeEmpty,
			wantNames: nil,
		},
		{
			name:      "result data",
			raw:       `{"result":{"data":{"metrics":[{"name":"active_energy"},{"name":"sleep_analysis"}]}}}`,
			wantKind:  EnvelopeDirect,
			wantNames: []string{"active_energy", "sleep_analysis"},
		},
		{
			name:      "top level data",
			raw:       `{"data":{"metrics":[{"name":"weight_body_mass"}]}}`,
			wantKind:  EnvelopeDirect,
			wantNames: []string{"weight_body_mass"},
		},
		{
			name:      "empty text metrics fall through to direct",
			raw:       `{"result":{"content":[{"type":"text","text":"{\"data\":{\"metrics\":[]}}"}],"data":{"metrics":[{"name":"vo2_max"}]}}}`,
			wantKind:  EnvelopeDirect,
			wantNames: []string{"vo2_max"},
		},
		{
			name:     "no metrics anywhere",
			raw:      `{"jsonrpc":"2.0","id":"1","result":{"content":[]}}`,
			wantKind: EnvelopeEmpty,
		},
		{
			name:     "result not an object",
			raw:      `{"result":"ok"}`,
			wantKind: EnvelopeEmpty,
		},
		{
			name:     "null error is not an error",
			raw:      `{"error":null,"result":{}}`,
			wantKind: EnvelopeEmpty,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env, err := DecodeEnvelope([]byte(tt.raw))
			require.NoError(t, err)
			assert.Equal(t, tt.wantKind, env.Kind)

			var names []string
			for _, m := range env.Metrics {
				names = append(names, m.Name)
			}
			assert.Equal(t, tt.wantNames, names)
		})
	}
}

func TestDecodeEnvelope_Samples(t *testing.T) {
	raw := `{"result":{"data":{"metrics":[{"name":"heart_rate","units":"count/min","data":[{"date":"2024-01-02 08:30:00 -0500","Avg":61,"source":"Watch"}]}]}}}`

	env, err := DecodeEnvelope([]byte(raw))
	require.NoError(t, err)
	require.Len(t, env.Metrics, 1)

	m := env.Metrics[0]
	assert.Equal(t, "count/min", m.Units)
	require.Len(t, m.Data, 1)
	assert.Equal(t, "2024-01-02 08:30:00 -0500", m.Data[0]["date"])
	assert.InDelta(t, 61.0, m.Data[0]["Avg"], 0.0001)
}

func TestDecodeEnvelope_Errors(t *testing.T) {
	tests := []struct {
		name        string
		raw         string
		wantMessage string
		wantCode    int
	}{
		{
			name:        "json-rpc error object",
			raw:         `{"jsonrpc":"2.0","id":"1","error":{"code":-32602,"message":"invalid date range"}}`,
			wantMessage: "invalid date range",
			wantCode:    -32602,
		},
		{
			name:        "error string",
			raw:         `{"error":"tool not found"}`,
			wantMessage: "tool not found",
		},
		{
			name:        "error of another shape",
			raw:         `{"error":[1, 2]}`,
			wantMessage: "[1,2]",
		},
		{
			name:        "error wins over data",
			raw:         `{"error":"busy","data":{"metrics":[{"name":"x"}]}}`,
			wantMessage: "busy",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeEnvelope([]byte(tt.raw))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrProtocol))

			var perr *ProtocolError
			require.True(t, errors.As(err, &perr))
			assert.Equal(t, tt.wantMessage, perr.Message)
			assert.Equal(t, tt.wantCode, perr.Code)
		})
	}
}

func TestDecodeEnvelope_Malformed(t *testing.T) {
	for _, raw := range []string{"", "not json", `{"result":`} {
		_, err := DecodeEnvelope([]byte(raw))
		assert.ErrorIs(t, err, ErrMalformedResponse, "input %q", raw)
	}
}

func TestEnvelopeKind_String(t *testing.T) {
	assert.Equal(t, "text-wrapped", EnvelopeTextWrapped.String())
	assert.Equal(t, "direct", EnvelopeDirect.String())
	assert.Equal(t, "empty", EnvelopeEmpty.String())
}
