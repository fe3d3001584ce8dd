package external

import (
	"io"

	"github.com/paketo-buildpacks/packit/v2/pexec"
)

type Executable interface {
	Execute(pexec.Execution) error
}

type Command interface {
	Execute(dir string, stdout io.Writer, stderr io.Writer, program string, args ...string) error
}

// Shell clones the template with git and runs template cleanup scripts.
type Shell struct {
	Git     Executable
	Command Command
	Stdout  io.Writer
	Stderr  io.Writer
}

func (s *Shell) CloneTemplate(url, dest string) error {
	return s.Git.Execute(pexec.Execution{
		Args:   []string{"clone", "--quiet", url, dest},
		Stdout: s.Stdout,
		Stderr: s.Stderr,
	})
}

// RunCleanup runs script from dir. An empty program executes the script directly.
func (s *Shell) RunCleanup(dir, program, script string) error {
	if program == "" {
		return s.Command.Execute(dir, s.Stdout, s.Stderr, script)
	}
	return s.Command.Execute(dir, s.Stdout, s.Stderr, program, script)
}
