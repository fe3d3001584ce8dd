package cleanup

import (
	"os"
	"path/filepath"

	"github.com/cloudfoundry/libbuildpack"
	"github.com/epicsNSLS2-deploy/initmotoriocs/src/motorioc/config"
)

type ScriptRunner interface {
	RunCleanup(dir, program, script string) error
}

// Cleaner runs the cleanup script shipped with the template and makes st.cmd executable.
type Cleaner struct {
	Log         *libbuildpack.Logger
	Platform    config.Platform
	Runner      ScriptRunner
	InstanceDir string
	Name        string
}

func (c *Cleaner) Run() error {
	completed, err := c.RunScript()
	if err != nil {
		c.Log.Error("Unable to remove cleanup script: %s", err.Error())
	}

	if err := c.MakeExecutable(); err != nil {
		c.Log.Error("Unable to make st.cmd executable: %s", err.Error())
		return err
	}

	if !completed {
		c.Log.Warning("No cleanup script found, using outdated version of Motor IOC template")
	}
	return nil
}

// RunScript ignores the exit status of the cleanup script itself.
func (c *Cleaner) RunScript() (bool, error) {
	script := filepath.Join(c.InstanceDir, c.Platform.CleanupScript)

	exists, err := libbuildpack.FileExists(script)
	if err != nil || !exists {
		return false, err
	}

	c.Log.BeginStep("Performing cleanup for %s", c.Name)
	if err := c.Runner.RunCleanup(c.InstanceDir, c.Platform.CleanupProgram, script); err != nil {
		c.Log.Debug("Cleanup script exited with %s", err.Error())
	}

	if err := os.Remove(script); err != nil && !os.IsNotExist(err) {
		return true, err
	}
	return true, nil
}

func (c *Cleaner) MakeExecutable() error {
	startup := filepath.Join(c.InstanceDir, "st.cmd")

	exists, err := libbuildpack.FileExists(startup)
	if err != nil || !exists {
		return err
	}
	return os.Chmod(startup, 0755)
}
