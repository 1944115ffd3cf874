// Package template expands $var and ${var} placeholders in prompts and
// tool input mappings against the run's state.
package template

import (
	"fmt"
	"regexp"
	"strings"
)

// Regular expressions for variable patterns.
var (
	// bracePattern matches ${varname} - varname can contain alphanumeric and underscore.
	bracePattern = regexp.MustCompile(`\$\{([a-zA-Z_][a-zA-Z0-9_]*)\}`)

	// dollarPattern matches $varname where varname is followed by a non-word character
	// or end of string. This prevents $input from matching inside $inputMapping.
	dollarPattern = regexp.MustCompile(`\$([a-zA-Z_][a-zA-Z0-9_]*)(?:\b|$)`)
)

// Expander expands variable patterns in strings.
//
// Create with NewExpander() and configure with Option functions.
// Expander is safe for concurrent use after construction.
type Expander struct {
	missingAction MissingAction
	braceStyle    bool
	dollarStyle   bool
}

// NewExpander creates a new Expander with the given options.
//
// Default configuration:
//   - MissingAction: MissingKeep (keep placeholders as-is)
//   - BraceStyle: enabled (${var})
//   - DollarStyle: enabled ($var)
func NewExpander(opts ...Option) *Expander {
	e := &Expander{
		missingAction: MissingKeep,
		braceStyle:    true,
		dollarStyle:   true,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Expand expands variable patterns in s using the provided vars.
//
// Errors are only returned when MissingAction is MissingError and
// a variable is not found.
func (e *Expander) Expand(s string, vars map[string]any) (string, error) {
	if s == "" {
		return "", nil
	}

	result := s
	var missingVars []string

	replace := func(match, varName string) string {
		if val, ok := vars[varName]; ok {
			return fmt.Sprintf("%v", val)
		}
		switch e.missingAction {
		case MissingEmpty:
			return ""
		case MissingError:
			missingVars = append(missingVars, varName)
			return match // kept; error returned below
		default: // MissingKeep
			return match
		}
	}

	// ${var} patterns first (more specific), then $var.
	if e.braceStyle {
		result = bracePattern.ReplaceAllStringFunc(result, func(match string) string {
			return replace(match, match[2:len(match)-1])
		})
	}
	if e.dollarStyle {
		result = dollarPattern.ReplaceAllStringFunc(result, func(match string) string {
			return replace(match, match[1:])
		})
	}

	if len(missingVars) > 0 {
		return result, &UndefinedVariableError{Names: missingVars}
	}

	return result, nil
}

// ExpandMap expands variable patterns in all string values of a map
// recursively. Non-string values are copied as-is; nested maps
// (map[string]any) are expanded recursively.
func (e *Expander) ExpandMap(m map[string]any, vars map[string]any) (map[string]any, error) {
	if m == nil {
		return nil, nil
	}

	result := make(map[string]any, len(m))
	for k, v := range m {
		expanded, err := e.expandValue(v, vars)
		if err != nil {
			return nil, err
		}
		result[k] = expanded
	}
	return result, nil
}

// expandValue expands a single value, handling strings and nested maps.
func (e *Expander) expandValue(v any, vars map[string]any) (any, error) {
	switch val := v.(type) {
	case string:
		return e.Expand(val, vars)
	case map[string]any:
		return e.ExpandMap(val, vars)
	default:
		return v, nil
	}
}

// UndefinedVariableError is returned when MissingError is set and
// one or more variables are not found.
type UndefinedVariableError struct {
	// Names is the list of undefined variable names.
	Names []string
}

// Error implements the error interface.
func (e *UndefinedVariableError) Error() string {
	if len(e.Names) == 1 {
		return fmt.Sprintf("undefined variable: %s", e.Names[0])
	}
	return fmt.Sprintf("undefined variables: %s", strings.Join(e.Names, ", "))
}

// defaultExpander is the package-level expander with default settings.
var defaultExpander = NewExpander()

// Expand expands variable patterns in s using the default expander.
// Uses MissingKeep behavior (missing variables stay as-is).
func Expand(s string, vars map[string]any) string {
	// Default expander never returns errors (MissingKeep).
	result, _ := defaultExpander.Expand(s, vars)
	return result
}

// ExpandMap expands variable patterns in all string values using the
// default expander. Uses MissingKeep behavior; nested maps are expanded
// recursively.
func ExpandMap(m map[string]any, vars map[string]any) map[string]any {
	// Default expander never returns errors (MissingKeep).
	result, _ := defaultExpander.ExpandMap(m, vars)
	return result
}
