// Package validate decodes and checks raw sensor payloads before they reach the ingestion service.
package validate

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/project-queyk/queyk-backend/internal/platform/apperr"
	"github.com/project-queyk/queyk-backend/internal/reading/domain"
)

// Payload is the wire shape of a reading submitted by the sensor. Pointers distinguish
// "missing" from zero values.
type Payload struct {
	SIAverage      *float64 `json:"siAverage" validate:"required"`
	SIMinimum      *float64 `json:"siMinimum" validate:"required"`
	SIMaximum      *float64 `json:"siMaximum" validate:"required"`
	Battery        *float64 `json:"battery" validate:"required,gte=0,lte=100"`
	SignalStrength *string  `json:"signalStrength" validate:"required"`
}

// Validator checks payloads with go-playground/validator, reporting problems by JSON field name.
type Validator struct {
	v *validator.Validate
}

// New returns a Validator.
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &Validator{v: v}
}

// Validate decodes raw JSON into reading fields. It returns an *apperr.ValidationError listing
// every problem when the payload is malformed.
func (v *Validator) Validate(raw []byte) (domain.Fields, error) {
	var p Payload
	dec := json.NewDecoder(bytes.NewReader(raw))
	if err := dec.Decode(&p); err != nil {
		return domain.Fields{}, apperr.Invalid(decodeProblem(err))
	}
	return v.Fields(p)
}

// Fields checks an already-decoded payload.
func (v *Validator) Fields(p Payload) (domain.Fields, error) {
	if problems := v.Struct(p); len(problems) > 0 {
		return domain.Fields{}, apperr.Invalid(problems...)
	}
	if *p.SIMinimum > *p.SIMaximum {
		return domain.Fields{}, apperr.Invalid("siMinimum: must not exceed siMaximum")
	}
	return domain.Fields{
		SIAverage:      *p.SIAverage,
		SIMinimum:      *p.SIMinimum,
		SIMaximum:      *p.SIMaximum,
		Battery:        *p.Battery,
		SignalStrength: *p.SignalStrength,
	}, nil
}

// Struct validates any tagged struct and returns its problems as "field: message" strings.
func (v *Validator) Struct(s any) []string {
	err := v.v.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []string{err.Error()}
	}
	out := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, fe.Field()+": "+message(fe))
	}
	return out
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gte":
		return "must be at least " + fe.Param()
	case "lte":
		return "must be at most " + fe.Param()
	case "gt":
		return "must be greater than " + fe.Param()
	default:
		return "failed " + fe.Tag()
	}
}

func decodeProblem(err error) string {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		return fmt.Sprintf("%s: must be a %s", typeErr.Field, typeErr.Type.Kind())
	}
	return "body: " + err.Error()
}
