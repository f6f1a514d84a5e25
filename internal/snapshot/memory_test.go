package snapshot

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	kerrors "github.com/yairfalse/kaksonen/internal/errors"
	"github.com/yairfalse/kaksonen/internal/remote"
	"github.com/yairfalse/kaksonen/internal/remote/remotetest"
)

func memHost(stdout string) *remotetest.Host {
	return remotetest.NewHost("10.0.0.2", 22).
		Handle("awk", func(string) (remote.Result, error) {
			return remote.Result{Stdout: stdout}, nil
		})
}

func TestMemAvailable(t *testing.T) {
	got, err := MemAvailable(context.Background(), memHost("8000000\n"))
	require.NoError(t, err)
	assert.Equal(t, uint64(8000000*1024), got)
}

func TestMemAvailableUnusableReading(t *testing.T) {
	for _, stdout := range []string{"", "\n", "n/a", "-12", "0"} {
		_, err := MemAvailable(context.Background(), memHost(stdout))
		require.Error(t, err, "reading %q", stdout)
		assert.True(t, kerrors.IsType(err, kerrors.ErrorTypeResourceUnavailable), "reading %q", stdout)
	}
}

func TestMemAvailableQueryExitsNonZero(t *testing.T) {
	host := remotetest.NewHost("10.0.0.2", 22).
		Handle("awk", func(string) (remote.Result, error) {
			return remote.Result{}, &remote.ExitError{Command: "awk", Status: 2, Stderr: "awk: cannot open /proc/meminfo"}
		})

	_, err := MemAvailable(context.Background(), host)
	require.Error(t, err)
	assert.True(t, kerrors.IsType(err, kerrors.ErrorTypeResourceUnavailable))
	assert.Contains(t, err.Error(), "status 2")
}

func TestMemAvailableTransportFailure(t *testing.T) {
	host := remotetest.NewHost("10.0.0.2", 22).
		Handle("awk", func(string) (remote.Result, error) {
			return remote.Result{}, errors.New("connection reset")
		})

	_, err := MemAvailable(context.Background(), host)
	require.Error(t, err)
	assert.True(t, kerrors.IsType(err, kerrors.ErrorTypeTransport))
	assert.False(t, kerrors.IsType(err, kerrors.ErrorTypeResourceUnavailable))
}
