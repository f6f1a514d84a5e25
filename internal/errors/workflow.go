package errors

import (
	"fmt"
	"strings"
)

// TransportError wraps a failure of the remote transport on host
func TransportError(host string, err error) *KaksonenError {
	e := Wrap(ErrorTypeTransport, err, "remote command failed").WithHost(host)
	if err != nil && strings.Contains(err.Error(), "unable to authenticate") {
		e.WithCause("SSH authentication was rejected")
		e.WithSolutions(
			"Check ssh.user and ssh.key in your kaksonen config",
			fmt.Sprintf("ssh %s true", host),
		)
	}
	return e
}

// ConfigParseError reports an option file that could not be parsed
func ConfigParseError(path string, err error) *KaksonenError {
	return Wrap(ErrorTypeConfigParse, err, fmt.Sprintf("cannot parse %s", path))
}

// ResourceUnavailableError reports a missing or unusable remote reading
func ResourceUnavailableError(host, message string) *KaksonenError {
	return New(ErrorTypeResourceUnavailable, message).WithHost(host)
}

// WorkflowError reports a failed capture or replay step
func WorkflowError(host, message string, err error) *KaksonenError {
	return Wrap(ErrorTypeWorkflow, err, message).WithHost(host)
}

// ConfigNotFoundError reports that no root option file exists on host
func ConfigNotFoundError(host string, candidates []string) *KaksonenError {
	e := New(ErrorTypeConfigNotFound, "root my.cnf not found").WithHost(host)
	e.WithCause(fmt.Sprintf("none of %s exist", strings.Join(candidates, ", ")))
	e.WithSolutions(
		"Add the server's option file location to mysql.config_candidates",
		"Check that the SSH user can read the option files",
	)
	e.WithVerify(fmt.Sprintf("ssh %s mysqld --verbose --help | grep -A1 'Default options'", host))
	return e
}

// ConfigurationError reports invalid kaksonen configuration
func ConfigurationError(message string) *KaksonenError {
	e := New(ErrorTypeConfiguration, message)
	e.WithHelp("kaksonen --help")
	return e
}
