package protocol

import "strings"

// sshVersion extracts the software version from an SSH identification
// string such as "SSH-2.0-OpenSSH_8.9p1 Ubuntu-3ubuntu0.1", which yields
// "OpenSSH_8.9p1". It returns nil when no line of banner is an SSH
// identification string.
func sshVersion(banner string) *string {
	for _, line := range splitLines(banner) {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "SSH-") {
			continue
		}
		parts := strings.SplitN(line, "-", 3)
		if len(parts) < 3 {
			continue
		}
		fields := strings.Fields(parts[2])
		if len(fields) == 0 {
			continue
		}
		version := fields[0]
		return &version
	}
	return nil
}
