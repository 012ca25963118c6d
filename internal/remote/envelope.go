package remote

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Metric is one named series returned by the device.
//
// Each entry in Data is a raw sample: a "date" (or "startDate") timestamp
// plus numeric and string members that vary per metric.
type Metric struct {
	Name  string           `json:"name"`
	Units string           `json:"units"`
	Data  []map[string]any `json:"data"`
}

// EnvelopeKind identifies which response shape carried the metrics.
type EnvelopeKind int

const (
	// EnvelopeEmpty means no shape yielded a non-empty metrics list.
	EnvelopeEmpty EnvelopeKind = iota
	// EnvelopeTextWrapped is result.content[] with a "text" item whose
	// text is itself a JSON document holding data.metrics.
	EnvelopeTextWrapped
	// EnvelopeDirect is result.data.metrics, or data.metrics at the top level.
	EnvelopeDirect
)

func (k EnvelopeKind) String() string {
	switch k {
	case EnvelopeTextWrapped:
		return "text-wrapped"
	case EnvelopeDirect:
		return "direct"
	default:
		return "empty"
	}
}

// Envelope is a decoded device response.
type Envelope struct {
	Kind    EnvelopeKind
	Metrics []Metric
}

type responseDoc struct {
	Error  json.RawMessage `json:"error"`
	Result json.RawMessage `json:"result"`
	Data   *metricsPayload `json:"data"`
}

type resultDoc struct {
	Content []contentItem   `json:"content"`
	Data    *metricsPayload `json:"data"`
}

type contentItem struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type metricsPayload struct {
	Metrics []Metric `json:"metrics"`
}

type textPayload struct {
	Data *metricsPayload `json:"data"`
}

type errorDoc struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// DecodeEnvelope parses a raw device response.
//
// Shapes are tried in order: text-wrapped content, result.data, then
// top-level data. The first one with a non-empty metrics list wins.
// Text items that fail to parse are skipped. An "error" member yields a
// *ProtocolError; invalid JSON yields an error wrapping ErrMalformedResponse.
func DecodeEnvelope(raw []byte) (Envelope, error) {
	var doc responseDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return Envelope{}, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}

	if len(doc.Error) > 0 && !bytes.Equal(doc.Error, []byte("null")) {
		return Envelope{}, decodeProtocolError(doc.Error)
	}

	var result resultDoc
	if len(doc.Result) > 0 {
		// A result that is not an object has nothing we can use.
		_ = json.Unmarshal(doc.Result, &result)
	}

	for _, item := range result.Content {
		if item.Type != "text" {
			continue
		}
		var inner textPayload
		if err := json.Unmarshal([]byte(item.Text), &inner); err != nil {
			continue
		}
		if inner.Data != nil && len(inner.Data.Metrics) > 0 {
			return Envelope{Kind: EnvelopeTextWrapped, Metrics: inner.Data.Metrics}, nil
		}
	}

	if result.Data != nil && len(result.Data.Metrics) > 0 {
		return Envelope{Kind: EnvelopeDirect, Metrics: result.Data.Metrics}, nil
	}

	if doc.Data != nil && len(doc.Data.Metrics) > 0 {
		return Envelope{Kind: EnvelopeDirect, Metrics: doc.Data.Metrics}, nil
	}

	return Envelope{Kind: EnvelopeEmpty}, nil
}

func decodeProtocolError(raw json.RawMessage) *ProtocolError {
	var obj errorDoc
	if err := json.Unmarshal(raw, &obj); err == nil && (obj.Message != "" || obj.Code != 0) {
		return &ProtocolError{Code: obj.Code, Message: obj.Message}
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return &ProtocolError{Message: s}
	}

	var compact bytes.Buffer
	if err := json.Compact(&compact, raw); err != nil {
		return &ProtocolError{Message: string(raw)}
	}
	return &ProtocolError{Message: compact.String()}
}
