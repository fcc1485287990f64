// Package sysinfo reports the host identity and the resource usage of the
// current process and its waited-for children.
package sysinfo

import (
	"fmt"
	"os"
	"time"

	"github.com/shirou/gopsutil/v3/process"
)

// System holds the uname(2) fields written to run headers and ledgers.
type System struct {
	Sysname  string
	Nodename string
	Release  string
	Version  string
	Machine  string
}

// Usage is CPU time consumed so far.
type Usage struct {
	User        time.Duration
	System      time.Duration
	ChildUser   time.Duration
	ChildSystem time.Duration
}

// Sub returns the usage accumulated since base.
func (u Usage) Sub(base Usage) Usage {
	return Usage{
		User:        u.User - base.User,
		System:      u.System - base.System,
		ChildUser:   u.ChildUser - base.ChildUser,
		ChildSystem: u.ChildSystem - base.ChildSystem,
	}
}

func self() (*process.Process, error) {
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return nil, fmt.Errorf("inspect process: %w", err)
	}

	return p, nil
}

// ResourceUsage returns user and system CPU time of this process and of its
// terminated, waited-for children.
func ResourceUsage() (Usage, error) {
	p, err := self()
	if err != nil {
		return Usage{}, err
	}

	times, err := p.Times()
	if err != nil {
		return Usage{}, fmt.Errorf("cpu times: %w", err)
	}

	childUser, childSystem, err := childTimes()
	if err != nil {
		return Usage{}, fmt.Errorf("child cpu times: %w", err)
	}

	return Usage{
		User:        seconds(times.User),
		System:      seconds(times.System),
		ChildUser:   childUser,
		ChildSystem: childSystem,
	}, nil
}

// ResidentMemory returns the resident set size of this process in bytes.
func ResidentMemory() (uint64, error) {
	p, err := self()
	if err != nil {
		return 0, err
	}

	mem, err := p.MemoryInfo()
	if err != nil {
		return 0, fmt.Errorf("memory info: %w", err)
	}

	return mem.RSS, nil
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
