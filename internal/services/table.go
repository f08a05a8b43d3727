package services

import (
	"bufio"
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/adrg/xdg"
)

// Unknown is returned by Lookup for ports with no table entry.
const Unknown = "Unknown"

// FileName is the conventional name of the service table file.
const FileName = "nmap-services"

// SystemPath is where nmap installs its service table on most Linux systems.
const SystemPath = "/usr/share/nmap/nmap-services"

// ErrTableNotFound is returned by Locate when an explicitly requested
// service table does not exist.
var ErrTableNotFound = errors.New("service table not found")

//go:embed nmap-services
var defaultTable []byte

type key struct {
	port  uint16
	proto string
}

// Table maps (port, protocol) to a service name. It is never modified after
// it is built, so concurrent Lookups are safe.
type Table struct {
	entries map[key]string
	source  string
}

// Parse reads an nmap-services formatted stream. Comment lines, blank lines
// and malformed lines are skipped; only tcp entries are kept. When a port
// appears twice the later line wins.
func Parse(r io.Reader) (*Table, error) {
	t := &Table{entries: make(map[key]string)}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "#") || strings.TrimSpace(line) == "" {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}

		portProto := strings.Split(fields[1], "/")
		if len(portProto) != 2 {
			continue
		}
		proto := strings.ToLower(portProto[1])
		if proto != "tcp" {
			continue
		}
		port, err := strconv.ParseUint(portProto[0], 10, 16)
		if err != nil {
			continue
		}

		t.entries[key{port: uint16(port), proto: proto}] = fields[0]
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read service table: %w", err)
	}

	return t, nil
}

// Load reads the service table at path.
func Load(path string) (*Table, error) {
	f, err := os.Open(path) //nolint:gosec // user-provided table path is intentional
	if err != nil {
		return nil, fmt.Errorf("failed to open service table: %w", err)
	}
	defer f.Close()

	t, err := Parse(f)
	if err != nil {
		return nil, err
	}
	t.source = path
	return t, nil
}

// Default returns the table compiled into the binary.
func Default() *Table {
	t, err := Parse(bytes.NewReader(defaultTable))
	if err != nil {
		// The embedded table is a fixed asset; reading from memory cannot fail.
		panic(err)
	}
	t.source = "embedded"
	return t
}

// Locate resolves which service table file to use.
//
// An explicit path must exist. Without one the search order is
// ./nmap-services, $XDG_DATA_HOME/portvapt/nmap-services (and the other XDG
// data dirs), then the nmap system path. An empty result with a nil error
// means no file was found and the embedded table should be used.
func Locate(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("%w: %s", ErrTableNotFound, explicit)
		}
		return explicit, nil
	}

	if cwd, err := os.Getwd(); err == nil {
		candidate := filepath.Join(cwd, FileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}

	if p, err := xdg.SearchDataFile(filepath.Join("portvapt", FileName)); err == nil {
		return p, nil
	}

	if _, err := os.Stat(SystemPath); err == nil {
		return SystemPath, nil
	}

	return "", nil
}

// Open locates and loads a service table, falling back to the embedded one.
func Open(explicit string) (*Table, error) {
	path, err := Locate(explicit)
	if err != nil {
		return nil, err
	}
	if path == "" {
		return Default(), nil
	}
	return Load(path)
}

// Lookup returns the service name registered for port and proto, or Unknown.
func (t *Table) Lookup(port uint16, proto string) string {
	if t == nil {
		return Unknown
	}
	if name, ok := t.entries[key{port: port, proto: strings.ToLower(proto)}]; ok {
		return name
	}
	return Unknown
}

// Len returns the number of entries.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.entries)
}

// Source describes where the table was loaded from.
func (t *Table) Source() string {
	if t == nil {
		return ""
	}
	return t.source
}
