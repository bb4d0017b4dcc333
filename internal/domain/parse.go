package domain

import (
	"strings"

	"github.com/spec-kit/maintenance-service/pkg/util/errorutil"
)

func normalize(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}

func ParseStatus(raw string) (Status, error) {
	s := Status(normalize(raw))
	if !s.Valid() {
		return "", errorutil.NewValidationError("invalid status", map[string]any{"status": raw})
	}
	return s, nil
}

func ParseCategory(raw string) (Category, error) {
	c := Category(normalize(raw))
	if !c.Valid() {
		return "", errorutil.NewValidationError("invalid category", map[string]any{"category": raw})
	}
	return c, nil
}

func ParsePriority(raw string) (Priority, error) {
	p := Priority(normalize(raw))
	if !p.Valid() {
		return "", errorutil.NewValidationError("invalid priority", map[string]any{"priority": raw})
	}
	return p, nil
}

func ParseRole(raw string) (Role, error) {
	r := Role(normalize(raw))
	if !r.Valid() {
		return "", errorutil.NewValidationError("invalid role", map[string]any{"role": raw})
	}
	return r, nil
}

func ParseAction(raw string) (Action, error) {
	a := Action(normalize(raw))
	if !a.Valid() {
		return "", errorutil.NewValidationError("invalid action", map[string]any{"action": raw})
	}
	return a, nil
}
