/*
 * Copyright (c) 2019 OysterPack, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 * http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package resque

import (
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
	"io"
	"os"
	"os/exec"
	"syscall"
)

// ExecProcesses spawns worker processes by executing a command, which is normally the app binary itself running its
// worker entry point.
//
// Worker processes are reaped with wait4(2), i.e., the process must not have other children that it waits on.
type ExecProcesses struct {
	Path string
	Args []string
	// Env defaults to the current process env
	Env []string

	Stdout io.Writer
	Stderr io.Writer
}

// Spawn starts the worker process
func (p *ExecProcesses) Spawn() (int, error) {
	cmd := exec.Command(p.Path, p.Args...)
	cmd.Env = p.Env
	// *os.File avoids pipe copying goroutines, which would only complete via cmd.Wait
	cmd.Stdout = fileOr(p.Stdout, os.Stdout)
	cmd.Stderr = fileOr(p.Stderr, os.Stderr)
	cmd.SysProcAttr = sysProcAttr()
	if err := cmd.Start(); err != nil {
		return 0, err
	}
	pid := cmd.Process.Pid
	// the process is reaped via wait4, which requires releasing the os.Process handle
	if err := cmd.Process.Release(); err != nil {
		return pid, errors.Wrapf(err, "failed to release process handle: %d", pid)
	}
	return pid, nil
}

func fileOr(w io.Writer, std *os.File) io.Writer {
	if f, ok := w.(*os.File); ok {
		return f
	}
	return std
}

// ReapAny reaps any exited child process, without blocking
func (p *ExecProcesses) ReapAny() (int, ExitStatus, bool, error) {
	for {
		var ws unix.WaitStatus
		pid, err := unix.Wait4(-1, &ws, unix.WNOHANG, nil)
		switch {
		case err == unix.EINTR:
			continue
		case err == unix.ECHILD:
			return 0, ExitStatus{}, false, nil
		case err != nil:
			return 0, ExitStatus{}, false, errors.Wrap(err, "wait4 failed")
		case pid <= 0:
			return 0, ExitStatus{}, false, nil
		}
		return pid, exitStatus(ws), true, nil
	}
}

// Wait blocks until the process exits
func (p *ExecProcesses) Wait(pid int) (ExitStatus, error) {
	for {
		var ws unix.WaitStatus
		_, err := unix.Wait4(pid, &ws, 0, nil)
		switch {
		case err == unix.EINTR:
			continue
		case err == unix.ECHILD:
			// already reaped
			return ExitStatus{}, nil
		case err != nil:
			return ExitStatus{}, errors.Wrapf(err, "wait4 failed: pid=%d", pid)
		}
		return exitStatus(ws), nil
	}
}

// Signal sends the signal to the process
func (p *ExecProcesses) Signal(pid int, sig syscall.Signal) error {
	return unix.Kill(pid, sig)
}

func exitStatus(ws unix.WaitStatus) ExitStatus {
	if ws.Signaled() {
		return ExitStatus{Code: -1, Signal: ws.Signal()}
	}
	return ExitStatus{Code: ws.ExitStatus()}
}
