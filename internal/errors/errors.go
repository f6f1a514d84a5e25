package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// ErrorType represents the category of error
type ErrorType string

const (
	ErrorTypeTransport           ErrorType = "Transport"
	ErrorTypeConfigParse         ErrorType = "ConfigParse"
	ErrorTypeResourceUnavailable ErrorType = "ResourceUnavailable"
	ErrorTypeWorkflow            ErrorType = "Workflow"
	ErrorTypeConfigNotFound      ErrorType = "ConfigNotFound"
	ErrorTypeConfiguration       ErrorType = "Configuration"
)

// KaksonenError represents a workflow error with actionable guidance
type KaksonenError struct {
	Type      ErrorType
	Host      string
	Message   string
	Cause     string
	Detail    string
	Solutions []string
	Verify    string
	Help      string
	Err       error
}

// Error implements the error interface
func (e *KaksonenError) Error() string {
	var sb strings.Builder

	if e.Host != "" {
		sb.WriteString(e.Host)
		sb.WriteString(": ")
	}
	sb.WriteString(e.Message)

	if e.Cause != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Cause)
	} else if e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}

	return sb.String()
}

// Unwrap returns the underlying error
func (e *KaksonenError) Unwrap() error {
	return e.Err
}

// Format implements fmt.Formatter for custom formatting
func (e *KaksonenError) Format(f fmt.State, verb rune) {
	switch verb {
	case 's':
		fmt.Fprintf(f, "%s", e.Error())
	case 'v':
		if f.Flag('+') {
			fmt.Fprintf(f, "[%s] %s", e.Type, e.Error())
			if e.Detail != "" {
				fmt.Fprintf(f, "\n%s", e.Detail)
			}
		} else {
			fmt.Fprintf(f, "%s", e.Error())
		}
	case 'q':
		fmt.Fprintf(f, "%q", e.Error())
	}
}

// New creates a new KaksonenError
func New(errType ErrorType, message string) *KaksonenError {
	return &KaksonenError{
		Type:    errType,
		Message: message,
	}
}

// Wrap creates a new KaksonenError around err
func Wrap(errType ErrorType, err error, message string) *KaksonenError {
	return &KaksonenError{
		Type:    errType,
		Message: message,
		Err:     err,
	}
}

// WithHost records the host the error happened on
func (e *KaksonenError) WithHost(host string) *KaksonenError {
	e.Host = host
	return e
}

// WithCause adds cause information
func (e *KaksonenError) WithCause(cause string) *KaksonenError {
	e.Cause = cause
	return e
}

// WithDetail attaches remote diagnostic output
func (e *KaksonenError) WithDetail(detail string) *KaksonenError {
	e.Detail = detail
	return e
}

// WithSolutions adds solution steps
func (e *KaksonenError) WithSolutions(solutions ...string) *KaksonenError {
	e.Solutions = append(e.Solutions, solutions...)
	return e
}

// WithVerify adds verification command
func (e *KaksonenError) WithVerify(verify string) *KaksonenError {
	e.Verify = verify
	return e
}

// WithHelp adds help command
func (e *KaksonenError) WithHelp(help string) *KaksonenError {
	e.Help = help
	return e
}

// IsType reports whether any error in err's chain is a KaksonenError of type t
func IsType(err error, t ErrorType) bool {
	for err != nil {
		var kerr *KaksonenError
		if !stderrors.As(err, &kerr) {
			return false
		}
		if kerr.Type == t {
			return true
		}
		err = kerr.Err
	}
	return false
}

// IsUserError checks if error requires user action
func IsUserError(err error) bool {
	var kerr *KaksonenError
	return stderrors.As(err, &kerr)
}

// GetExitCode returns appropriate exit code for error type
func GetExitCode(err error) int {
	var kerr *KaksonenError
	if !stderrors.As(err, &kerr) {
		return 1
	}

	switch kerr.Type {
	case ErrorTypeTransport:
		return 69 // EX_UNAVAILABLE
	case ErrorTypeConfiguration, ErrorTypeConfigNotFound:
		return 78 // EX_CONFIG
	case ErrorTypeWorkflow:
		return 70 // EX_SOFTWARE
	default:
		return 1
	}
}
