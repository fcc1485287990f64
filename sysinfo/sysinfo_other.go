//go:build !unix

package sysinfo

import (
	"os"
	"runtime"
	"time"
)

// Uname returns what the platform exposes without uname(2).
func Uname() (System, error) {
	host, err := os.Hostname()
	if err != nil {
		host = "unknown"
	}

	return System{
		Sysname:  runtime.GOOS,
		Nodename: host,
		Machine:  runtime.GOARCH,
	}, nil
}

// Child times are not available; they are reported as zero.
func childTimes() (time.Duration, time.Duration, error) {
	return 0, 0, nil
}
