package config

import "fmt"

// Platform captures everything that differs between a linux IOC server and a windows desktop.
type Platform struct {
	Name string
	Arch string

	// WrapStartup forces the st.cmd + st_base.cmd launcher regardless of path length.
	WrapStartup bool

	CleanupScript  string
	CleanupProgram string

	PathScript       string
	PathDelimiter    string
	PathScriptHeader string
	PathScriptCloser string
}

func Linux() Platform {
	return Platform{
		Name:             "linux",
		Arch:             "linux-x86_64",
		CleanupScript:    "cleanup.sh",
		CleanupProgram:   "bash",
		PathScript:       "ldpath.sh",
		PathDelimiter:    ":",
		PathScriptHeader: "export LD_LIBRARY_PATH=",
		PathScriptCloser: "$LD_LIBRARY_PATH",
	}
}

func Windows() Platform {
	return Platform{
		Name:             "windows",
		Arch:             "windows-x64-static",
		WrapStartup:      true,
		CleanupScript:    "cleanup.bat",
		PathScript:       "dllPath.bat",
		PathDelimiter:    ";",
		PathScriptHeader: "@ECHO OFF\nSET \"PATH=",
		PathScriptCloser: "%PATH%\"",
	}
}

// PlatformFor resolves a platform name; the empty name means the host platform.
func PlatformFor(name string) (Platform, error) {
	switch name {
	case "":
		return CurrentPlatform(), nil
	case "linux", "darwin":
		return Linux(), nil
	case "windows", "win32":
		return Windows(), nil
	}
	return Platform{}, fmt.Errorf("unknown platform %q", name)
}
