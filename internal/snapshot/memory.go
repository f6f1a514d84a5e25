package snapshot

import (
	"context"
	"errors"
	"strconv"
	"strings"

	kerrors "github.com/yairfalse/kaksonen/internal/errors"
	"github.com/yairfalse/kaksonen/internal/remote"
)

// memAvailableCommand prints available memory in kB. Kernels since 3.14
// report MemAvailable directly; older ones get the same estimate the kernel
// uses: free + file cache + reclaimable slab minus the zone low watermarks.
const memAvailableCommand = `awk -v low=$(grep low /proc/zoneinfo | awk '{k+=$2}END{print k}') ` +
	`'{a[$1]=$2}END{m=a["MemFree:"]+a["Active(file):"]+a["Inactive(file):"]+a["SReclaimable:"]-low*4; ` +
	`if ("MemAvailable:" in a) m=a["MemAvailable:"]; print m}' /proc/meminfo`

// MemAvailable returns the memory available on exec's host in bytes.
//
// The reading is an estimate. A query that exits non-zero, or an empty or
// unusable reading, fails with a ResourceUnavailable error; transport
// failures are returned as they are.
func MemAvailable(ctx context.Context, exec remote.Executor) (uint64, error) {
	result, err := exec.Execute(ctx, memAvailableCommand)
	if err != nil {
		var exitErr *remote.ExitError
		if errors.As(err, &exitErr) {
			return 0, kerrors.ResourceUnavailableError(exec.Host(), "cannot get available memory").
				WithCause(exitErr.Error())
		}
		return 0, err
	}
	return parseMemAvailable(exec.Host(), result.Stdout)
}

func parseMemAvailable(host, stdout string) (uint64, error) {
	value := strings.TrimSpace(stdout)
	if value == "" {
		return 0, kerrors.ResourceUnavailableError(host, "cannot get available memory")
	}

	kb, err := strconv.ParseInt(value, 10, 64)
	if err != nil || kb <= 0 {
		return 0, kerrors.ResourceUnavailableError(host, "cannot get available memory").
			WithCause("unexpected reading " + strconv.Quote(value))
	}

	return uint64(kb) * 1024, nil
}
