package diag

import (
	"fmt"
	"strings"
)

// Severity ranks a diagnostic. Higher values are more severe.
type Severity uint8

const (
	SevInfo Severity = iota
	// SevWarning marks definitions left out on purpose, e.g. by [skip].
	SevWarning
	// SevError marks a definition that was not translated.
	SevError
)

var severityNames = [...]string{
	SevInfo:    "INFO",
	SevWarning: "WARNING",
	SevError:   "ERROR",
}

func (s Severity) String() string {
	if int(s) < len(severityNames) {
		return severityNames[s]
	}
	return "UNKNOWN"
}

// ParseSeverity accepts the names printed by String in any case, and "warn".
func ParseSeverity(s string) (Severity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "info":
		return SevInfo, nil
	case "warning", "warn":
		return SevWarning, nil
	case "error":
		return SevError, nil
	}
	return SevInfo, fmt.Errorf("unknown severity %q (must be info, warning or error)", s)
}
