package symbol

import "strings"

// CreonConverter maps six-digit KRX stock codes to the "A"-prefixed codes the
// terminal uses. Internal symbols for this broker are the prefixed codes.
type CreonConverter struct{}

func (CreonConverter) ToExchange(internal string) string {
	s := strings.ToUpper(strings.TrimSpace(internal))
	if s == "" {
		return ""
	}
	if len(s) == 6 && isDigits(s) {
		return "A" + s
	}
	return s
}

func (CreonConverter) FromExchange(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}

func (CreonConverter) Format() Format {
	return FormatCreon
}

var Creon = CreonConverter{}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
