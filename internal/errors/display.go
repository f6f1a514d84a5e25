package errors

import (
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/viper"
)

// DisplayError formats and displays an error with enhanced formatting
func DisplayError(err error) {
	FprintError(os.Stderr, err)
}

// FprintError writes err to w using the same layout as DisplayError
func FprintError(w io.Writer, err error) {
	color.NoColor = colorDisabled()

	var kerr *KaksonenError
	if !stderrors.As(err, &kerr) {
		fmt.Fprintf(w, "%s\n", color.RedString("Error: %v", err))
		return
	}

	colorFunc := getErrorStyle(kerr.Type)

	fmt.Fprintf(w, "\n%s\n", colorFunc(kerr.Message))

	if kerr.Host != "" {
		fmt.Fprintf(w, "   %s %s\n", color.CyanString("Host:"), color.HiBlackString(kerr.Host))
	}

	cause := kerr.Cause
	if cause == "" && kerr.Err != nil {
		cause = kerr.Err.Error()
	}
	if cause != "" {
		fmt.Fprintf(w, "   %s %s\n", color.YellowString("Cause:"), color.HiBlackString(cause))
	}

	if kerr.Detail != "" {
		fmt.Fprintf(w, "\n   %s\n", color.HiBlackString("Remote log:"))
		for _, line := range strings.Split(strings.TrimRight(kerr.Detail, "\n"), "\n") {
			fmt.Fprintf(w, "   | %s\n", line)
		}
	}

	if len(kerr.Solutions) > 0 {
		fmt.Fprintf(w, "\n   %s\n", color.GreenString("Solutions:"))
		for i, solution := range kerr.Solutions {
			fmt.Fprintf(w, "   %s %s\n", color.HiBlackString(fmt.Sprintf("%d.", i+1)), solution)
		}
	}

	if kerr.Verify != "" {
		fmt.Fprintf(w, "\n   %s %s\n", color.BlueString("Verify:"), color.HiWhiteString(kerr.Verify))
	}

	if kerr.Help != "" {
		fmt.Fprintf(w, "   %s %s\n", color.MagentaString("Help:"), color.HiWhiteString(kerr.Help))
	}

	fmt.Fprintln(w)
}

// getErrorStyle returns the appropriate color function for an error type
func getErrorStyle(errType ErrorType) func(format string, a ...interface{}) string {
	switch errType {
	case ErrorTypeTransport:
		return color.RedString
	case ErrorTypeConfiguration, ErrorTypeConfigNotFound:
		return color.YellowString
	case ErrorTypeConfigParse:
		return color.MagentaString
	case ErrorTypeResourceUnavailable:
		return color.CyanString
	default:
		return color.RedString
	}
}

// FormatErrorWithContext formats an error with additional context for CI/CD environments
func FormatErrorWithContext(err error, context map[string]string) string {
	var sb strings.Builder

	var kerr *KaksonenError
	if !stderrors.As(err, &kerr) {
		sb.WriteString(fmt.Sprintf("Error: %v\n", err))
		return sb.String()
	}

	sb.WriteString(fmt.Sprintf("Error: %s\n", kerr.Message))
	sb.WriteString(fmt.Sprintf("Type: %s\n", kerr.Type))

	if kerr.Host != "" {
		sb.WriteString(fmt.Sprintf("Host: %s\n", kerr.Host))
	}
	if kerr.Cause != "" {
		sb.WriteString(fmt.Sprintf("Cause: %s\n", kerr.Cause))
	}

	if len(context) > 0 {
		sb.WriteString("\nContext:\n")
		for k, v := range context {
			sb.WriteString(fmt.Sprintf("  %s: %s\n", k, v))
		}
	}

	if len(kerr.Solutions) > 0 {
		sb.WriteString("\nSolutions:\n")
		for i, solution := range kerr.Solutions {
			sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, solution))
		}
	}

	if kerr.Verify != "" {
		sb.WriteString(fmt.Sprintf("\nVerify: %s\n", kerr.Verify))
	}

	return sb.String()
}

// DisplayWarning shows a warning message with appropriate formatting
func DisplayWarning(message string) {
	color.NoColor = colorDisabled()
	fmt.Fprintf(os.Stderr, "Warning: %s\n", color.YellowString(message))
}

// DisplaySuccess shows a success message with appropriate formatting
func DisplaySuccess(message string) {
	color.NoColor = colorDisabled()
	fmt.Fprintf(os.Stderr, "Success: %s\n", color.GreenString(message))
}

func colorDisabled() bool {
	if os.Getenv("NO_COLOR") != "" || os.Getenv("KAKSONEN_NO_COLOR") != "" {
		return true
	}
	return getViperBool("output.no_color")
}

// getViperBool safely gets a boolean value from viper
func getViperBool(key string) bool {
	if viper.IsSet(key) {
		return viper.GetBool(key)
	}
	return false
}
