//go:build windows

package control

import "errors"

func Serve(registry *Registry, socketPath string) error {
	return errors.New("control socket is not supported on windows")
}

func SendSignal(socketPath, verb, jobID string) error {
	return errors.New("control socket is not supported on windows")
}
