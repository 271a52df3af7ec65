package types

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// MaxTitleLength bounds board, column, card and subtask titles (in runes).
const MaxTitleLength = 500

// entityValidate is shared by every entity type. Initialized in init() with
// custom validators.
var entityValidate *validator.Validate

func init() {
	entityValidate = validator.New()
	_ = entityValidate.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
}

// Validate checks if the board has valid field values.
func (b *Board) Validate() error {
	return validateStruct(b)
}

// Validate checks if the column has valid field values.
func (c *Column) Validate() error {
	return validateStruct(c)
}

// Validate checks if the card has valid field values, dependencies included.
func (c *Card) Validate() error {
	if err := validateStruct(c); err != nil {
		return err
	}
	for i, dep := range c.Dependencies {
		if err := dep.Validate(); err != nil {
			return fmt.Errorf("dependency %d: %w", i, err)
		}
	}
	return nil
}

// Validate checks if the subtask has valid field values.
func (s *Subtask) Validate() error {
	return validateStruct(s)
}

// validateStruct runs the struct tags and rewrites the first failure into a
// short message naming the field.
func validateStruct(v any) error {
	err := entityValidate.Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return err
	}
	fe := fieldErrs[0]
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required", "notblank":
		return fmt.Errorf("%s is required", field)
	case "max":
		if fe.Kind().String() == "string" {
			return fmt.Errorf("%s must be %s characters or less (got %d)", field, fe.Param(), len([]rune(fe.Value().(string))))
		}
		return fmt.Errorf("%s must be at most %s", field, fe.Param())
	case "gte":
		return fmt.Errorf("%s must be at least %s (got %v)", field, fe.Param(), fe.Value())
	case "lte":
		return fmt.Errorf("%s must be at most %s (got %v)", field, fe.Param(), fe.Value())
	}
	return fmt.Errorf("%s is invalid (%s)", field, fe.Tag())
}
