package sysinfo

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUname(t *testing.T) {
	sys, err := Uname()
	require.NoError(t, err)

	assert.NotEmpty(t, sys.Sysname)
	assert.NotEmpty(t, sys.Machine)

	host, err := os.Hostname()
	require.NoError(t, err)
	assert.Equal(t, host, sys.Nodename)
}

func TestResourceUsageNonNegative(t *testing.T) {
	// Burn a little CPU so user time is observable on coarse clocks.
	sum := 0
	for i := range 5_000_000 {
		sum += i % 7
	}
	assert.Positive(t, sum)

	u, err := ResourceUsage()
	require.NoError(t, err)

	assert.GreaterOrEqual(t, u.User, time.Duration(0))
	assert.GreaterOrEqual(t, u.System, time.Duration(0))
	assert.GreaterOrEqual(t, u.ChildUser, time.Duration(0))
	assert.GreaterOrEqual(t, u.ChildSystem, time.Duration(0))
}

func TestUsageSub(t *testing.T) {
	a := Usage{User: 3 * time.Second, System: 2 * time.Second, ChildUser: time.Second}
	b := Usage{User: time.Second, System: time.Second}

	assert.Equal(t, Usage{
		User:      2 * time.Second,
		System:    time.Second,
		ChildUser: time.Second,
	}, a.Sub(b))
}

func TestResidentMemory(t *testing.T) {
	rss, err := ResidentMemory()
	require.NoError(t, err)
	assert.Positive(t, rss)
}
