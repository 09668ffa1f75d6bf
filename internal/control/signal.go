package control

import "strings"

// Socket protocol: one line per signal, "pause <job id>" or "cancel <job id>".
func parseSignal(line string) (verb, jobID string, ok bool) {
	fields := strings.Fields(strings.TrimSpace(line))
	if len(fields) != 2 {
		return "", "", false
	}
	if fields[0] != "pause" && fields[0] != "cancel" {
		return "", "", false
	}
	return fields[0], fields[1], true
}
