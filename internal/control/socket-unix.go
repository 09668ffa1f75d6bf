//go:build linux || darwin

package control

import (
	"bufio"
	"fmt"
	"net"
	"os"

	"github.com/tanq16/hiruko/internal/utils"
)

// Serve listens on a Unix socket for "pause <id>" / "cancel <id>" lines and
// forwards them to the registry. Blocks until the listener fails; run it in a
// goroutine alongside the scheduler. Malformed lines are ignored.
func Serve(registry *Registry, socketPath string) error {
	logger := utils.GetLogger("control")
	os.Remove(socketPath)
	listener, err := net.Listen("unix", socketPath)
	if err != nil {
		return fmt.Errorf("error binding control socket %s: %w", socketPath, err)
	}
	defer listener.Close()
	defer os.Remove(socketPath)
	for {
		conn, err := listener.Accept()
		if err != nil {
			return err
		}
		go func(conn net.Conn) {
			defer conn.Close()
			scanner := bufio.NewScanner(conn)
			for scanner.Scan() {
				verb, jobID, ok := parseSignal(scanner.Text())
				if !ok {
					continue
				}
				if registry.RequestAbort(jobID) {
					logger.Info().Str("job", jobID).Msgf("Received %s signal", verb)
				} else {
					logger.Warn().Str("job", jobID).Msgf("Ignoring %s for job not running", verb)
				}
			}
		}(conn)
	}
}

// SendSignal connects to a running scheduler's control socket and delivers a
// pause or cancel request for the given job id.
func SendSignal(socketPath, verb, jobID string) error {
	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		return fmt.Errorf("error connecting to control socket (is a run in progress?): %w", err)
	}
	defer conn.Close()
	_, err = fmt.Fprintf(conn, "%s %s\n", verb, jobID)
	return err
}
