package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/goliatone/go-formflow/pkg/flow"
	"github.com/goliatone/go-formflow/pkg/visibility"
)

// Rule declares how a single field is validated. Tag uses the
// go-playground/validator syntax (`required,email`, `min=3`, `oneof=a b`);
// Pattern is an optional regular expression the stringified value must match.
type Rule struct {
	Field   string
	Tag     string
	Pattern string
}

// Issue is a field-level validation failure.
type Issue struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Validator computes flow.Errors for a full value set. Blank values of fields
// without a `required` tag are valid.
type Validator struct {
	validate *validator.Validate
	rules    []compiledRule
}

type compiledRule struct {
	field    string
	tag      string
	required bool
	pattern  *regexp.Regexp
}

// Option configures a Validator.
type Option func(*Validator)

// WithValidate supplies a preconfigured validator instance, e.g. one with
// custom validation functions registered.
func WithValidate(v *validator.Validate) Option {
	return func(val *Validator) {
		if v != nil {
			val.validate = v
		}
	}
}

// New compiles rules. Unknown tags and invalid patterns are reported up front
// so they fail at startup rather than on the first keystroke.
func New(rules []Rule, opts ...Option) (*Validator, error) {
	v := &Validator{}
	for _, opt := range opts {
		if opt != nil {
			opt(v)
		}
	}
	if v.validate == nil {
		v.validate = validator.New()
	}

	var errs []error
	seen := make(map[string]struct{}, len(rules))
	for _, rule := range rules {
		field := strings.TrimSpace(rule.Field)
		if field == "" {
			errs = append(errs, errors.New("validation: rule field is required"))
			continue
		}
		if _, dup := seen[field]; dup {
			errs = append(errs, fmt.Errorf("validation: field %q has more than one rule", field))
			continue
		}
		seen[field] = struct{}{}

		compiled := compiledRule{field: field, tag: strings.TrimSpace(rule.Tag)}
		if compiled.tag != "" {
			if err := v.checkTag(compiled.tag); err != nil {
				errs = append(errs, fmt.Errorf("validation: field %q: %w", field, err))
				continue
			}
			for _, part := range strings.Split(compiled.tag, ",") {
				if strings.TrimSpace(part) == "required" {
					compiled.required = true
				}
			}
		}
		if pattern := strings.TrimSpace(rule.Pattern); pattern != "" {
			re, err := regexp.Compile(pattern)
			if err != nil {
				errs = append(errs, fmt.Errorf("validation: field %q: pattern: %w", field, err))
				continue
			}
			compiled.pattern = re
		}
		v.rules = append(v.rules, compiled)
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return v, nil
}

// checkTag runs the tag once against an empty value; the validator panics on
// undefined tags.
func (v *Validator) checkTag(tag string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("invalid tag %q: %v", tag, r)
		}
	}()
	_ = v.validate.Var("", tag)
	return nil
}

// Validate implements flow.Validator.
func (v *Validator) Validate(values flow.Values) flow.Errors {
	errs := flow.Errors{}
	if v == nil {
		return errs
	}
	for _, rule := range v.rules {
		if msg := v.check(rule, values[rule.field]); msg != "" {
			errs[rule.field] = msg
		}
	}
	return errs
}

// ValidateField returns the message for value, or "" when it is valid or the
// field has no rule.
func (v *Validator) ValidateField(field string, value any) string {
	if v == nil {
		return ""
	}
	for _, rule := range v.rules {
		if rule.field == field {
			return v.check(rule, value)
		}
	}
	return ""
}

// Issues returns the failures for values in rule declaration order.
func (v *Validator) Issues(values flow.Values) []Issue {
	if v == nil {
		return nil
	}
	var out []Issue
	for _, rule := range v.rules {
		if msg := v.check(rule, values[rule.field]); msg != "" {
			out = append(out, Issue{Field: rule.field, Message: msg})
		}
	}
	return out
}

// Required reports whether field carries a `required` tag.
func (v *Validator) Required(field string) bool {
	if v == nil {
		return false
	}
	for _, rule := range v.rules {
		if rule.field == field {
			return rule.required
		}
	}
	return false
}

func (v *Validator) check(rule compiledRule, value any) string {
	if visibility.Blank(value) {
		if rule.required {
			return "required"
		}
		return ""
	}

	if rule.tag != "" {
		if err := v.validate.Var(value, rule.tag); err != nil {
			var fieldErrs validator.ValidationErrors
			if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
				return message(fieldErrs[0])
			}
			return strings.TrimSpace(err.Error())
		}
	}

	if rule.pattern != nil && !rule.pattern.MatchString(fmt.Sprint(value)) {
		return "does not match required pattern"
	}
	return ""
}

func message(fe validator.FieldError) string {
	param := fe.Param()
	switch fe.Tag() {
	case "required":
		return "required"
	case "email":
		return "must be a valid email"
	case "url", "uri", "http_url":
		return "must be a valid URL"
	case "min", "gte":
		return "min " + param
	case "max", "lte":
		return "max " + param
	case "gt":
		return "must be greater than " + param
	case "lt":
		return "must be less than " + param
	case "len":
		return "length must be " + param
	case "oneof":
		return "must be one of: " + param
	case "numeric", "number":
		return "must be numeric"
	case "alpha":
		return "must contain letters only"
	case "alphanum":
		return "must contain letters and digits only"
	default:
		return fmt.Sprintf("failed %q validation", fe.Tag())
	}
}

var _ flow.Validator = (*Validator)(nil)
