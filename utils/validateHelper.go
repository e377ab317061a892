package utils

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
	})
	return validate
}

// ValidateStruct runs `validate` struct tags and flattens failures into one error.
func ValidateStruct(input any) error {
	err := getValidator().Struct(input)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fields := ProcessValidationErrors(verrs)
	parts := make([]string, 0, len(fields))
	for _, ve := range verrs {
		parts = append(parts, fmt.Sprintf("%s: %s", ve.Field(), fields[ve.Field()]))
	}
	return errors.New("invalid input: " + strings.Join(parts, ", "))
}

func ProcessValidationErrors(err error) map[string]string {
	errorResponse := make(map[string]string)
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return errorResponse
	}
	for _, ve := range verrs {
		errorResponse[ve.Field()] = ve.Tag()
	}
	return errorResponse
}
