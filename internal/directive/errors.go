package directive

import (
	"strings"
)

// ConfigurationError reports an invalid combination of reconciliation
// options or harness arguments.
type ConfigurationError struct {
	Msg string
}

func (e *ConfigurationError) Error() string {
	return e.Msg
}

// ArgumentError reports positional arguments the test harness did not
// consume, usually because the test selector flag was forgotten.
type ArgumentError struct {
	Residual []string
}

func (e *ArgumentError) Error() string {
	quoted := make([]string, len(e.Residual))
	for i, a := range e.Residual {
		quoted[i] = "'" + a + "'"
	}
	return "unexpected arguments: " + strings.Join(quoted, ", ") + "; did you forget --tests"
}

// As lets errors.As match an ArgumentError as a ConfigurationError.
func (e *ArgumentError) As(target any) bool {
	if ce, ok := target.(**ConfigurationError); ok {
		*ce = &ConfigurationError{Msg: e.Error()}
		return true
	}
	return false
}

// CheckResidual returns an *ArgumentError when residual is non-empty.
func CheckResidual(residual []string) error {
	if len(residual) == 0 {
		return nil
	}
	return &ArgumentError{Residual: append([]string(nil), residual...)}
}
