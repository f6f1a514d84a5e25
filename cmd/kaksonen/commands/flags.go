package commands

import (
	kerrors "github.com/yairfalse/kaksonen/internal/errors"
)

func invalidFlag(name, reason string) error {
	return kerrors.ConfigurationError("invalid --" + name).WithCause(reason)
}
