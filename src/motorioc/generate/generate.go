// Package generate sequences the generation of IOC instances.
//
// Each instance goes through supply (existence check, binary lookup, template clone),
// finalize (startup script, auxiliary files, unique.cmd, config, envPaths) and cleanup.
// Instances are generated one at a time and a failed instance never stops the run.
package generate

import (
	"errors"
	"path/filepath"

	"github.com/cloudfoundry/libbuildpack"
	"github.com/epicsNSLS2-deploy/initmotoriocs/src/motorioc/cleanup"
	"github.com/epicsNSLS2-deploy/initmotoriocs/src/motorioc/config"
	"github.com/epicsNSLS2-deploy/initmotoriocs/src/motorioc/finalize"
	"github.com/epicsNSLS2-deploy/initmotoriocs/src/motorioc/hooks"
	"github.com/epicsNSLS2-deploy/initmotoriocs/src/motorioc/locate"
	"github.com/epicsNSLS2-deploy/initmotoriocs/src/motorioc/supply"
)

type Outcome int

const (
	Generated Outcome = iota
	AlreadyExists
	BinaryNotFound
	CloneFailed
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Generated:
		return "generated"
	case AlreadyExists:
		return "already exists"
	case BinaryNotFound:
		return "binary not found"
	case CloneFailed:
		return "clone failed"
	}
	return "failed"
}

type State int

const (
	StateRequested State = iota
	StateBinaryLocated
	StateTemplateCloned
	StateScriptConverted
	StateFilesRewritten
	StateCleaned
	StateDone
	StateFailed
)

func (s State) String() string {
	return [...]string{
		"Requested",
		"BinaryLocated",
		"TemplateCloned",
		"ScriptConverted",
		"FilesRewritten",
		"Cleaned",
		"Done",
		"Failed",
	}[s]
}

type Collaborator interface {
	CloneTemplate(url, dest string) error
	RunCleanup(dir, program, script string) error
}

type Result struct {
	Request config.InstanceRequest
	Outcome Outcome
	Trace   []State
	Dir     string
	Binary  string
	Err     error
}

func (r Result) State() State {
	return r.Trace[len(r.Trace)-1]
}

func (r *Result) enter(state State) {
	r.Trace = append(r.Trace, state)
}

func (r Result) abandon(outcome Outcome, err error) Result {
	r.enter(StateFailed)
	r.Outcome = outcome
	r.Err = err
	return r
}

type Generator struct {
	Log          *libbuildpack.Logger
	Global       config.Global
	Drivers      config.Drivers
	Collaborator Collaborator
	Hooks        []hooks.Hook
}

func (g *Generator) GenerateAll(requests []config.InstanceRequest) []Result {
	var results []Result
	for _, request := range requests {
		results = append(results, g.Generate(request))
	}
	return results
}

func (g *Generator) Generate(request config.InstanceRequest) Result {
	g.Log.BeginStep("Setup process for IOC %s", request.Name)

	result := Result{
		Request: request,
		Trace:   []State{StateRequested},
		Dir:     filepath.Join(g.Global.IOCDir, request.Name),
	}

	if err := request.Validate(g.Drivers); err != nil {
		g.Log.Error("Invalid request for IOC %s: %s", request.Name, err.Error())
		return result.abandon(Failed, err)
	}

	if err := hooks.RunBefore(g.Hooks, request); err != nil {
		g.Log.Error("Hook refused IOC %s: %s", request.Name, err.Error())
		return result.abandon(Failed, err)
	}

	ss := &supply.Supplier{
		Log:     g.Log,
		Global:  g.Global,
		Request: request,
		Locator: &locate.Locator{Layout: locate.Layout{Root: g.Global.BinaryDir, Flat: g.Global.Flat}},
		Cloner:  g.Collaborator,
	}
	if err := supply.Run(ss); err != nil {
		result.Binary = ss.BinaryPath
		if ss.BinaryPath != "" {
			result.enter(StateBinaryLocated)
		}
		return result.abandon(outcomeFor(err), err)
	}
	result.Binary = ss.BinaryPath
	result.enter(StateBinaryLocated)
	result.enter(StateTemplateCloned)

	sf := &finalize.Finalizer{
		Log:         g.Log,
		Global:      g.Global,
		Request:     request,
		InstanceDir: result.Dir,
		BinaryPath:  ss.BinaryPath,
	}
	if err := finalize.Run(sf); err != nil {
		result.enter(StateScriptConverted)
		return result.abandon(Failed, err)
	}
	result.enter(StateScriptConverted)
	result.enter(StateFilesRewritten)

	cleaner := &cleanup.Cleaner{
		Log:         g.Log,
		Platform:    g.Global.Platform,
		Runner:      g.Collaborator,
		InstanceDir: result.Dir,
		Name:        request.Name,
	}
	cleaner.Run()
	result.enter(StateCleaned)

	if err := hooks.RunAfter(g.Hooks, request, result.Dir); err != nil {
		g.Log.Warning("Hook failed after generating IOC %s: %s", request.Name, err.Error())
	}

	result.enter(StateDone)
	result.Outcome = Generated
	g.Log.Info("IOC %s generated in %s", request.Name, result.Dir)
	return result
}

func outcomeFor(err error) Outcome {
	switch {
	case errors.Is(err, supply.ErrAlreadyExists):
		return AlreadyExists
	case errors.Is(err, locate.ErrNotFound), errors.Is(err, locate.ErrAmbiguousArtifact):
		return BinaryNotFound
	case errors.Is(err, supply.ErrCloneFailed):
		return CloneFailed
	}
	return Failed
}
