package mycnf

import (
	"context"
	"errors"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockResolver struct {
	mock.Mock
}

func (m *mockResolver) LookupIP(ctx context.Context, network, host string) ([]net.IP, error) {
	args := m.Called(ctx, network, host)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]net.IP), args.Error(1)
}

func TestServerIDLiteralAddress(t *testing.T) {
	tests := []struct {
		host string
		want uint32
	}{
		{"192.168.1.10", 3232235786},
		{"10.0.0.2", 167772162},
		{"0.0.0.1", 1},
		{"255.255.255.255", 4294967295},
	}

	for _, tt := range tests {
		t.Run(tt.host, func(t *testing.T) {
			resolver := new(mockResolver)

			got, err := ServerID(context.Background(), resolver, tt.host)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)

			resolver.AssertNotCalled(t, "LookupIP", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestServerIDResolvesNames(t *testing.T) {
	ctx := context.Background()
	resolver := new(mockResolver)
	resolver.On("LookupIP", ctx, "ip4", "db2.example.com").
		Return([]net.IP{net.ParseIP("10.0.0.2")}, nil).Once()

	got, err := ServerID(ctx, resolver, "db2.example.com")
	require.NoError(t, err)
	assert.Equal(t, uint32(167772162), got)

	resolver.AssertExpectations(t)
}

func TestServerIDIsDeterministic(t *testing.T) {
	ctx := context.Background()
	resolver := new(mockResolver)
	resolver.On("LookupIP", ctx, "ip4", "db3").
		Return([]net.IP{net.ParseIP("172.16.5.4")}, nil)

	first, err := ServerID(ctx, resolver, "db3")
	require.NoError(t, err)
	second, err := ServerID(ctx, resolver, "db3")
	require.NoError(t, err)
	literal, err := ServerID(ctx, resolver, "172.16.5.4")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, first, literal)
}

func TestServerIDErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("resolution failure", func(t *testing.T) {
		resolver := new(mockResolver)
		resolver.On("LookupIP", ctx, "ip4", "nowhere.invalid").
			Return(nil, errors.New("no such host"))

		_, err := ServerID(ctx, resolver, "nowhere.invalid")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no such host")
	})

	t.Run("only IPv6 answers", func(t *testing.T) {
		resolver := new(mockResolver)
		resolver.On("LookupIP", ctx, "ip4", "v6only").
			Return([]net.IP{net.ParseIP("2001:db8::1")}, nil)

		_, err := ServerID(ctx, resolver, "v6only")
		require.Error(t, err)
	})

	t.Run("IPv6 literal", func(t *testing.T) {
		_, err := ServerID(ctx, new(mockResolver), "2001:db8::1")
		require.Error(t, err)
	})
}
