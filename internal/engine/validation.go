package engine

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/spigell/skill-matcher/internal/failure"
)

type occupationArgs struct {
	PersonID       string   `json:"personId" validate:"required"`
	OccupationIDs  []string `json:"occupationIds"`
	ThresholdScore float64  `json:"thresholdScore" validate:"gte=0,lte=1"`
}

type skillArgs struct {
	PersonID     string `json:"personId" validate:"required"`
	OccupationID string `json:"occupationId" validate:"required"`
}

type pageArgs struct {
	Limit  int `json:"limit" validate:"gte=1,lte=1000"`
	Offset int `json:"offset" validate:"gte=0"`
}

var validate = newValidator()

func newValidator() func(any) error {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})

	return func(s any) error {
		err := v.Struct(s)
		if err == nil {
			return nil
		}

		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
			return failure.Invalid("request", err.Error())
		}

		fe := fieldErrs[0]
		return failure.Invalid(fe.Field(), describe(fe))
	}
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gte":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "lte":
		return fmt.Sprintf("must be at most %s", fe.Param())
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}
