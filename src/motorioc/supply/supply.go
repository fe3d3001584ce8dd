package supply

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/cloudfoundry/libbuildpack"
	"github.com/epicsNSLS2-deploy/initmotoriocs/src/motorioc/config"
)

var (
	ErrAlreadyExists = errors.New("ioc already exists")
	ErrCloneFailed   = errors.New("failed to clone ioc template")
)

type Cloner interface {
	CloneTemplate(url, dest string) error
}

type Locator interface {
	Locate(driverType string) (string, error)
}

// Supplier checks that an instance can be generated and clones the template for it.
type Supplier struct {
	Log     *libbuildpack.Logger
	Global  config.Global
	Request config.InstanceRequest
	Locator Locator
	Cloner  Cloner

	BinaryPath string
}

func Run(ss *Supplier) error {
	if err := ss.CheckInstanceDir(); err != nil {
		ss.Log.Error("IOC with name %s already exists in %s.", ss.Request.Name, ss.Global.IOCDir)
		return err
	}

	if err := ss.LocateBinary(); err != nil {
		ss.Log.Error("Could not identify a compiled IOC binary for %s, skipping", ss.Request.DriverType)
		ss.Log.Info("Make sure that the binary exists and is compiled in the expected location.")
		return err
	}

	if err := ss.CloneTemplate(); err != nil {
		ss.Log.Error("Failed to clone IOC template for ioc %s", ss.Request.Name)
		return err
	}

	return nil
}

func (ss *Supplier) InstanceDir() string {
	return filepath.Join(ss.Global.IOCDir, ss.Request.Name)
}

func (ss *Supplier) CheckInstanceDir() error {
	exists, err := libbuildpack.FileExists(ss.InstanceDir())
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("%w: %s", ErrAlreadyExists, ss.InstanceDir())
	}
	return nil
}

func (ss *Supplier) LocateBinary() error {
	binaryPath, err := ss.Locator.Locate(ss.Request.DriverType)
	if err != nil {
		ss.Log.Debug("%s", err.Error())
		return err
	}

	ss.Log.Info("Using IOC binary %s", binaryPath)
	ss.BinaryPath = binaryPath
	return nil
}

func (ss *Supplier) CloneTemplate() error {
	ss.Log.BeginStep("Cloning IOC template into %s", ss.InstanceDir())

	if err := ss.Cloner.CloneTemplate(ss.Global.TemplateURL, ss.InstanceDir()); err != nil {
		return fmt.Errorf("%w: %s", ErrCloneFailed, err)
	}
	return nil
}
