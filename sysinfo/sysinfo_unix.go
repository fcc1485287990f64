//go:build unix

package sysinfo

import (
	"fmt"
	"time"

	"golang.org/x/sys/unix"
)

// Uname returns the kernel identification of the host.
func Uname() (System, error) {
	var u unix.Utsname
	if err := unix.Uname(&u); err != nil {
		return System{}, fmt.Errorf("uname: %w", err)
	}

	return System{
		Sysname:  unix.ByteSliceToString(u.Sysname[:]),
		Nodename: unix.ByteSliceToString(u.Nodename[:]),
		Release:  unix.ByteSliceToString(u.Release[:]),
		Version:  unix.ByteSliceToString(u.Version[:]),
		Machine:  unix.ByteSliceToString(u.Machine[:]),
	}, nil
}

func childTimes() (time.Duration, time.Duration, error) {
	var ru unix.Rusage
	if err := unix.Getrusage(unix.RUSAGE_CHILDREN, &ru); err != nil {
		return 0, 0, err
	}

	return time.Duration(ru.Utime.Nano()), time.Duration(ru.Stime.Nano()), nil
}
