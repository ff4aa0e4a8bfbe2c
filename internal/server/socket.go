package server

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"syscall"
)

func pidPath(sockPath string) string {
	return sockPath + ".pid"
}

func writePidFile(sockPath string) error {
	return os.WriteFile(pidPath(sockPath), []byte(strconv.Itoa(os.Getpid())), 0600)
}

// cleanStaleSocket removes a socket file if no process is listening on it.
// Returns an error if a live server is detected.
func cleanStaleSocket(sockPath string) error {
	if _, err := os.Stat(sockPath); os.IsNotExist(err) {
		return nil
	}

	if conn, err := net.Dial("unix", sockPath); err == nil {
		conn.Close()
		return fmt.Errorf("server already running (socket %s is active)", sockPath)
	}

	if data, err := os.ReadFile(pidPath(sockPath)); err == nil {
		if pid, err := strconv.Atoi(strings.TrimSpace(string(data))); err == nil && pid != os.Getpid() {
			if proc, err := os.FindProcess(pid); err == nil && proc.Signal(syscall.Signal(0)) == nil {
				return fmt.Errorf("server already running (pid %d)", pid)
			}
		}
	}

	os.Remove(pidPath(sockPath))
	return os.Remove(sockPath)
}
