package locate

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var (
	ErrNotFound          = errors.New("no binary found")
	ErrAmbiguousArtifact = errors.New("more than one candidate found")
)

// Layout describes where compiled IOC binaries live.
type Layout struct {
	Root string
	Flat bool
}

type Locator struct {
	Layout Layout
}

// ModuleDir is <root>[/support]/motor/modules/<driverType>.
func (l Layout) ModuleDir(driverType string) string {
	if l.Flat {
		return filepath.Join(l.Root, "motor", "modules", driverType)
	}
	return filepath.Join(l.Root, "support", "motor", "modules", driverType)
}

func (l Layout) SupportDir() string {
	if l.Flat {
		return l.Root
	}
	return filepath.Join(l.Root, "support")
}

// Locate walks <module>/{ioc|iocs}/<IOC dir>/bin/<arch>/<executable>.
func (l *Locator) Locate(driverType string) (string, error) {
	path := l.Layout.ModuleDir(driverType)

	path, err := descend(path, isIOCsDir)
	if err != nil {
		return "", err
	}

	path, err = descend(path, isIOCDir)
	if err != nil {
		return "", err
	}

	path = filepath.Join(path, "bin")

	path, err = descendOnly(path)
	if err != nil {
		return "", err
	}

	return descendOnly(path)
}

func isIOCsDir(name string) bool {
	return name == "ioc" || name == "iocs"
}

// NOIOC directories show up next to real IOCs in some modules and never hold a runnable binary.
func isIOCDir(name string) bool {
	if !strings.Contains(name, "IOC") && !strings.Contains(name, "ioc") {
		return false
	}
	return !strings.Contains(strings.ToUpper(name), "NOIOC")
}

func descend(dir string, match func(string) bool) (string, error) {
	names, err := readNames(dir)
	if err != nil {
		return "", err
	}

	for _, name := range names {
		if match(name) {
			return filepath.Join(dir, name), nil
		}
	}

	return "", fmt.Errorf("%w: no matching entry in %s", ErrNotFound, dir)
}

func descendOnly(dir string) (string, error) {
	names, err := readNames(dir)
	if err != nil {
		return "", err
	}

	switch len(names) {
	case 0:
		return "", fmt.Errorf("%w: %s is empty", ErrNotFound, dir)
	case 1:
		return filepath.Join(dir, names[0]), nil
	}
	return "", fmt.Errorf("%w: %s contains %s", ErrAmbiguousArtifact, dir, strings.Join(names, ", "))
}

// readNames keeps the order the platform returns, unlike os.ReadDir which sorts.
func readNames(dir string) ([]string, error) {
	f, err := os.Open(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s does not exist", ErrNotFound, dir)
		}
		return nil, err
	}
	defer f.Close()

	names, err := f.Readdirnames(-1)
	if err != nil {
		return nil, fmt.Errorf("%w: %s is not a readable directory", ErrNotFound, dir)
	}
	return names, nil
}
