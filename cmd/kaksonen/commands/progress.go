package commands

import (
	"os"

	"golang.org/x/term"

	"github.com/yairfalse/kaksonen/internal/app"
	"github.com/yairfalse/kaksonen/internal/output"
)

// startSpinner shows a spinner on an interactive stderr while a long step
// runs. The returned func stops it.
func startSpinner(a *app.App, title string) func() {
	cfg := a.Config()
	if cfg.Output.Format != string(output.FormatTable) || !term.IsTerminal(int(os.Stderr.Fd())) {
		return func() {}
	}

	spinner := output.NewSpinner(os.Stderr, title, cfg.Output.NoColor)
	spinner.Start()
	return func() {
		elapsed := spinner.Stop()
		a.Logger().WithField("elapsed", elapsed.String()).Debug(title + " finished")
	}
}
