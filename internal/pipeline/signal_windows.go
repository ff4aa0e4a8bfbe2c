//go:build windows

package pipeline

import "os"

func signalName(ps *os.ProcessState) string {
	return ""
}
