package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/cloudfoundry/libbuildpack"
)

const DefaultTemplateURL = "https://github.com/epicsNSLS2-deploy/motor-ioc-template"

var ErrUnsupportedDriver = errors.New("unsupported driver type")

type YAML interface {
	Load(file string, obj interface{}) error
}

// File mirrors the on-disk CONFIGURE.yml.
type File struct {
	IOCDir      string     `yaml:"ioc_dir"`
	BinaryDir   string     `yaml:"top_binary_dir"`
	Hostname    string     `yaml:"hostname"`
	Engineer    string     `yaml:"engineer"`
	CAAddress   string     `yaml:"ca_address"`
	BinaryFlat  *bool      `yaml:"binary_flat"`
	TemplateURL string     `yaml:"template_url"`
	Platform    string     `yaml:"platform"`
	Drivers     []string   `yaml:"drivers"`
	IOCs        []IOCEntry `yaml:"iocs"`
}

type IOCEntry struct {
	Type       string `yaml:"type"`
	Name       string `yaml:"name"`
	Prefix     string `yaml:"prefix"`
	Port       string `yaml:"port"`
	Connection string `yaml:"connection"`
	Number     int    `yaml:"number"`
}

// Global holds the settings shared by every instance generated in one run.
type Global struct {
	IOCDir      string
	BinaryDir   string
	Hostname    string
	Engineer    string
	CAAddress   string
	Flat        bool
	TemplateURL string
	Platform    Platform
}

// InstanceRequest is the input for generating a single IOC instance.
type InstanceRequest struct {
	DriverType string
	Name       string
	Prefix     string
	Port       string
	Connection string
	Number     int
}

// Run is a fully resolved configuration: globals, registry and the requested instances.
type Run struct {
	Global   Global
	Drivers  Drivers
	Requests []InstanceRequest
}

type Loader struct {
	YAML YAML
	Log  *libbuildpack.Logger
}

func (l *Loader) Load(path string) (Run, error) {
	var file File

	if err := l.YAML.Load(path, &file); err != nil {
		if os.IsNotExist(err) {
			return Run{}, fmt.Errorf("configuration file %s does not exist", path)
		}
		return Run{}, err
	}

	if file.IOCDir == "" {
		return Run{}, errors.New("ioc_dir must be set")
	}
	if file.BinaryDir == "" {
		return Run{}, errors.New("top_binary_dir must be set")
	}

	platform, err := PlatformFor(file.Platform)
	if err != nil {
		return Run{}, err
	}

	global := Global{
		IOCDir:      file.IOCDir,
		BinaryDir:   file.BinaryDir,
		Hostname:    file.Hostname,
		Engineer:    file.Engineer,
		CAAddress:   file.CAAddress,
		TemplateURL: file.TemplateURL,
		Platform:    platform,
	}

	if global.TemplateURL == "" {
		global.TemplateURL = DefaultTemplateURL
	} else {
		l.Log.BeginStep("Using IOC template %s", global.TemplateURL)
	}

	if file.BinaryFlat != nil {
		global.Flat = *file.BinaryFlat
	} else {
		global.Flat = DetectFlat(global.BinaryDir)
	}
	if global.Flat {
		l.Log.BeginStep("Using flat binary structure in %s", global.BinaryDir)
	} else {
		l.Log.BeginStep("Using stacked binary structure in %s", global.BinaryDir)
	}

	drivers := DefaultDrivers()
	if len(file.Drivers) > 0 {
		drivers = NewDrivers(file.Drivers...)
		l.Log.BeginStep("Using driver registry %v", drivers.Names())
	}

	var requests []InstanceRequest
	for _, entry := range file.IOCs {
		requests = append(requests, InstanceRequest{
			DriverType: entry.Type,
			Name:       entry.Name,
			Prefix:     entry.Prefix,
			Port:       entry.Port,
			Connection: entry.Connection,
			Number:     entry.Number,
		})
	}

	return Run{Global: global, Drivers: drivers, Requests: requests}, nil
}

// DetectFlat reports whether binaries under root are flat, i.e. there is no support directory.
func DetectFlat(root string) bool {
	exists, err := libbuildpack.FileExists(filepath.Join(root, "support"))
	if err != nil {
		return true
	}
	return !exists
}

func (r InstanceRequest) Validate(drivers Drivers) error {
	if !drivers.Supports(r.DriverType) {
		return fmt.Errorf("%w: %s", ErrUnsupportedDriver, r.DriverType)
	}
	if r.Name == "" {
		return errors.New("ioc name must not be empty")
	}
	if filepath.Base(r.Name) != r.Name {
		return fmt.Errorf("ioc name %s must not contain a path separator", r.Name)
	}
	return nil
}

// Suffix is the driver type without its "motor" module prefix, e.g. NewFocus.
func (r InstanceRequest) Suffix() string {
	return DriverSuffix(r.DriverType)
}

const driverPrefixLen = len("motor")

func DriverSuffix(driverType string) string {
	if len(driverType) <= driverPrefixLen {
		return ""
	}
	return driverType[driverPrefixLen:]
}

func CurrentPlatform() Platform {
	platform, err := PlatformFor(runtime.GOOS)
	if err != nil {
		return Linux()
	}
	return platform
}
