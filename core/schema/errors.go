package schema

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUndefinedField  = errors.New("undefined field")
	ErrSchemaNotFound  = errors.New("no schema found")
	ErrInvalidSchema   = errors.New("invalid schema")
	ErrUnknownTypeName = errors.New("unknown field type")
)

type UndefinedFieldError struct {
	Field string
}

func (err UndefinedFieldError) Error() string {
	return fmt.Sprintf("undefined field %q", err.Field)
}

func (err UndefinedFieldError) Is(target error) bool {
	return target == ErrUndefinedField
}

// ConfigError is returned by the loaders when a schema file is malformed.
type ConfigError struct {
	Path string
	Kind string
	Name string
	Msg  string
}

func (err ConfigError) Error() string {
	var s strings.Builder
	s.WriteString(err.Msg)
	if err.Name != "" {
		s.WriteString(fmt.Sprintf(" in %s %q", err.Kind, err.Name))
	} else if err.Kind != "" {
		s.WriteString(", in " + err.Kind)
	}
	if err.Path != "" {
		s.WriteString(fmt.Sprintf(" in %q", err.Path))
	}
	return s.String()
}

func (err ConfigError) Is(target error) bool {
	return target == ErrInvalidSchema
}
