//go:build windows

package sandbox

import "os/exec"

func setProcAttrs(cmd *exec.Cmd) {}
