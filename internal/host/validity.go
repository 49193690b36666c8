package host

import "regexp"

// Validity answers a validity query against a form element's current
// attributes: required drives valueMissing, pattern (whole-string match)
// drives patternMismatch. Unknown fields, nil elements and invalid
// patterns degrade to nil or a passing check rather than erroring.
func Validity(el Element, field string) any {
	if el == nil {
		return nil
	}
	value, _ := el.Attr("value")
	_, required := el.Attr("required")
	pattern, hasPattern := el.Attr("pattern")

	valueMissing := required && value == ""
	patternMismatch := false
	if hasPattern && value != "" {
		if re, err := regexp.Compile("^(?:" + pattern + ")$"); err == nil {
			patternMismatch = !re.MatchString(value)
		}
	}

	switch field {
	case "valid":
		return !valueMissing && !patternMismatch
	case "valueMissing":
		return valueMissing
	case "patternMismatch":
		return patternMismatch
	case "value":
		return value
	default:
		return nil
	}
}
