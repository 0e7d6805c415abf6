// Package msgs defines the messages published by altimeter daemons.
package msgs

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang/protobuf/proto"
	structpb "github.com/golang/protobuf/ptypes/struct"

	"github.com/robotalks/altimeter.go/pkg/altimeter"
)

// Field names in encoded readings.
const (
	FieldAltitude = "altitude"
	FieldMode     = "mode"
	FieldGround   = "ground"
	FieldTime     = "time_ms"
)

// ErrMissingField indicates a required field is absent.
type ErrMissingField struct {
	Field string
}

// Error implements error.
func (e *ErrMissingField) Error() string {
	return fmt.Sprintf("missing field: %s", e.Field)
}

// ErrBadField indicates a field has unexpected type.
var ErrBadField = errors.New("bad field type")

// Reading is the published form of an altitude reading.
type Reading struct {
	Altitude int32     `json:"altitude"`
	Mode     string    `json:"mode"`
	Ground   *int32    `json:"ground,omitempty"`
	Time     time.Time `json:"time"`
}

// Meta describes a publishing altimeter.
type Meta struct {
	Description string            `json:"description,omitempty"`
	Device      string            `json:"device,omitempty"`
	Labels      map[string]string `json:"labels,omitempty"`
}

// ReadingFrom converts a loop message.
func ReadingFrom(msg *altimeter.ReadingMsg) Reading {
	r := Reading{
		Altitude: msg.Altitude,
		Mode:     msg.Mode.String(),
		Time:     msg.Time,
	}
	if msg.HasGround {
		ground := msg.Ground
		r.Ground = &ground
	}
	return r
}

func numberValue(v float64) *structpb.Value {
	return &structpb.Value{Kind: &structpb.Value_NumberValue{NumberValue: v}}
}

// Encode serializes the reading as a protobuf Struct.
func (r Reading) Encode() ([]byte, error) {
	s := &structpb.Struct{Fields: map[string]*structpb.Value{
		FieldAltitude: numberValue(float64(r.Altitude)),
		FieldMode:     {Kind: &structpb.Value_StringValue{StringValue: r.Mode}},
		FieldTime:     numberValue(float64(r.Time.UnixNano() / int64(time.Millisecond))),
	}}
	if r.Ground != nil {
		s.Fields[FieldGround] = numberValue(float64(*r.Ground))
	}
	return proto.Marshal(s)
}

// DecodeReading parses bytes produced by Encode.
func DecodeReading(data []byte) (r Reading, err error) {
	var s structpb.Struct
	if err = proto.Unmarshal(data, &s); err != nil {
		return
	}
	num := func(name string) (float64, error) {
		v, ok := s.Fields[name]
		if !ok {
			return 0, &ErrMissingField{Field: name}
		}
		n, ok := v.Kind.(*structpb.Value_NumberValue)
		if !ok {
			return 0, fmt.Errorf("%s: %w", name, ErrBadField)
		}
		return n.NumberValue, nil
	}
	alt, err := num(FieldAltitude)
	if err != nil {
		return
	}
	r.Altitude = int32(alt)
	ms, err := num(FieldTime)
	if err != nil {
		return
	}
	r.Time = time.Unix(0, int64(ms)*int64(time.Millisecond))
	if v, ok := s.Fields[FieldMode]; ok {
		mode, ok := v.Kind.(*structpb.Value_StringValue)
		if !ok {
			err = fmt.Errorf("%s: %w", FieldMode, ErrBadField)
			return
		}
		r.Mode = mode.StringValue
	}
	if _, ok := s.Fields[FieldGround]; ok {
		var ground float64
		if ground, err = num(FieldGround); err != nil {
			return
		}
		g := int32(ground)
		r.Ground = &g
	}
	return
}

// String formats the reading for display.
func (r Reading) String() string {
	s := fmt.Sprintf("%d (%s)", r.Altitude, r.Mode)
	if r.Ground != nil {
		s += fmt.Sprintf(" ground=%d", *r.Ground)
	}
	return s
}
