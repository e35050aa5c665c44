package entity

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Validate checks a record against the entity schema and returns
// human-readable warnings. Validation never rejects a record: callers log
// the warnings and proceed, so partial LLM output still gets saved.
func (r *Record) Validate() []string {
	var warnings []string

	if err := validate.Struct(r); err != nil {
		var fields validator.ValidationErrors
		if errors.As(err, &fields) {
			for _, fe := range fields {
				warnings = append(warnings, "missing required field: "+strings.ToLower(fe.Field()))
			}
		}
	}

	for i, rel := range r.Relationships {
		switch {
		case rel.Target == "" || rel.Type == "":
			warnings = append(warnings, fmt.Sprintf("relationship %d is missing target or type", i))
		case !IsLinkType(rel.Type):
			warnings = append(warnings, fmt.Sprintf("relationship %d has unrecognized type %q", i, rel.Type))
		}
	}

	return warnings
}
