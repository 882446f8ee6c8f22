// Package streaming defines the JSON messages exchanged with a LiveLink relay.
package streaming

import (
	"encoding/json"
	"fmt"

	"github.com/OCAP2/facecsv/pkg/core"
)

// Message type constants matching the relay protocol.
const (
	TypeSubscribe      = "subscribe"
	TypeSubjectStatic  = "subject_static"
	TypeSubjectFrame   = "subject_frame"
	TypeSubjectRemoved = "subject_removed"
	TypeReset          = "reset"
)

// Envelope wraps every message sent over the WebSocket.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// SubscribePayload asks the relay for a subset of subjects. Empty means all.
type SubscribePayload struct {
	Subjects []string `json:"subjects,omitempty"`
}

// SubjectStaticPayload carries a subject's property names.
type SubjectStaticPayload struct {
	Subject       string   `json:"subject"`
	PropertyNames []string `json:"propertyNames"`
}

// FrameTime is the wire form of core.QualifiedFrameTime.
type FrameTime struct {
	Frame    int64   `json:"frame"`
	SubFrame float64 `json:"subFrame"`
	RateNum  int32   `json:"rateNum"`
	RateDen  int32   `json:"rateDen"`
}

// SubjectFramePayload carries one frame of property values.
type SubjectFramePayload struct {
	Subject string    `json:"subject"`
	Time    FrameTime `json:"time"`
	Values  []float64 `json:"values"`
}

// SubjectRemovedPayload announces that a subject left the relay.
type SubjectRemovedPayload struct {
	Subject string `json:"subject"`
}

// ToCore converts the wire time into the domain type.
func (t FrameTime) ToCore() core.QualifiedFrameTime {
	return core.QualifiedFrameTime{
		Frame:    t.Frame,
		SubFrame: t.SubFrame,
		Rate:     core.FrameRate{Numerator: t.RateNum, Denominator: t.RateDen},
	}
}

// FrameTimeFromCore converts a domain frame time into its wire form.
func FrameTimeFromCore(t core.QualifiedFrameTime) FrameTime {
	return FrameTime{
		Frame:    t.Frame,
		SubFrame: t.SubFrame,
		RateNum:  t.Rate.Numerator,
		RateDen:  t.Rate.Denominator,
	}
}

// Encode marshals payload into an envelope of the given type.
func Encode(msgType string, payload any) ([]byte, error) {
	env := Envelope{Type: msgType}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal %s payload: %w", msgType, err)
		}
		env.Payload = raw
	}
	return json.Marshal(env)
}

// Decode unmarshals an envelope payload into v.
func Decode(env Envelope, v any) error {
	if len(env.Payload) == 0 {
		return fmt.Errorf("empty %s payload", env.Type)
	}
	if err := json.Unmarshal(env.Payload, v); err != nil {
		return fmt.Errorf("unmarshal %s payload: %w", env.Type, err)
	}
	return nil
}
