package finalize

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/cloudfoundry/libbuildpack"
	"github.com/epicsNSLS2-deploy/initmotoriocs/src/motorioc/config"
	"github.com/epicsNSLS2-deploy/initmotoriocs/src/motorioc/locate"
	"github.com/epicsNSLS2-deploy/initmotoriocs/src/motorioc/rewrite"
)

var ErrNoStartupScript = errors.New("no startup script found")

// Finalizer turns a freshly cloned template into a runnable IOC.
type Finalizer struct {
	Log         *libbuildpack.Logger
	Global      config.Global
	Request     config.InstanceRequest
	InstanceDir string
	BinaryPath  string
}

// Run converts every template file. Only a failed rewrite of an existing file stops it.
func Run(sf *Finalizer) error {
	if err := sf.ConvertStartupScript(); err != nil {
		sf.Log.Error("Unable to convert st.cmd: %s", err.Error())
	}

	sf.ConvertAutosaveAndDependencies()

	if err := sf.UpdateUnique(); err != nil {
		sf.Log.Error("Unable to update unique.cmd: %s", err.Error())
		return err
	}

	if err := sf.UpdateConfig(); err != nil {
		sf.Log.Error("Unable to update config: %s", err.Error())
		return err
	}

	if err := sf.FixEnvPaths(); err != nil {
		sf.Log.Error("Unable to update envPaths: %s", err.Error())
		return err
	}

	if err := sf.WritePathScript(); err != nil {
		sf.Log.Error("Unable to write %s: %s", sf.Global.Platform.PathScript, err.Error())
	}

	return nil
}

func (sf *Finalizer) ConvertStartupScript() error {
	sf.Log.BeginStep("IOC template cloned, converting st.cmd")

	source, err := sf.findStartupScript()
	if err != nil {
		return err
	}
	sf.Log.Info("Using startup script %s", filepath.Base(source))

	src, err := os.Open(source)
	if err != nil {
		return err
	}
	defer src.Close()

	destPath := filepath.Join(sf.InstanceDir, startupFile)
	wrapped := sf.Global.Platform.WrapStartup || len(sf.BinaryPath) > KernelPathLimit
	if wrapped {
		if !sf.Global.Platform.WrapStartup {
			sf.Log.Warning("Path to executable exceeds legal bash limit, generating st.cmd and st_base.cmd")
		}
		launcher := sf.BinaryPath + " " + startupBaseFile + "\n"
		if err := os.WriteFile(destPath, []byte(launcher), 0644); err != nil {
			return err
		}
		destPath = filepath.Join(sf.InstanceDir, startupBaseFile)
	}

	dest, err := os.OpenFile(destPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}

	if err := sf.convertStartupLines(src, dest, wrapped); err != nil {
		dest.Close()
		return err
	}

	return dest.Close()
}

func (sf *Finalizer) findStartupScript() (string, error) {
	dir := filepath.Join(sf.InstanceDir, startupScriptsDir)
	suffix := strings.ToLower(sf.Request.Suffix())

	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrNoStartupScript, err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.Contains(strings.ToLower(entry.Name()), suffix) {
			return filepath.Join(dir, entry.Name()), nil
		}
	}

	return "", fmt.Errorf("%w: no file in %s matches %s", ErrNoStartupScript, dir, suffix)
}

func (sf *Finalizer) convertStartupLines(src io.Reader, dest io.Writer, wrapped bool) error {
	reader := bufio.NewReader(src)
	writer := bufio.NewWriter(dest)

	for {
		line, err := reader.ReadString('\n')
		if len(line) > 0 {
			switch {
			case strings.Contains(line, shebang):
				if !wrapped {
					writer.WriteString(shebang + sf.BinaryPath + "\n")
				}
			case strings.Contains(line, envPathsFile):
				writer.WriteString(envPathsLoad)
			default:
				writer.WriteString(line)
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
	}

	return writer.Flush()
}

// ConvertAutosaveAndDependencies is best effort: problems are logged and skipped.
func (sf *Finalizer) ConvertAutosaveAndDependencies() {
	suffix := strings.ToLower(sf.Request.Suffix())

	autosavePath := filepath.Join(sf.InstanceDir, autosaveDir, suffix+"_"+autosaveFile)
	if exists, _ := libbuildpack.FileExists(autosavePath); exists {
		sf.Log.Info("Generating %s file for IOC %s.", autosaveFile, sf.Request.Name)
		if err := os.Rename(autosavePath, filepath.Join(sf.InstanceDir, autosaveFile)); err != nil {
			sf.Log.Error("Unable to move %s: %s", autosavePath, err.Error())
		}
	} else {
		sf.Log.Info("Could not find supported %s file for IOC %s.", autosaveFile, sf.Request.Name)
	}

	depDir := filepath.Join(sf.InstanceDir, dependencyDir)
	entries, err := os.ReadDir(depDir)
	if err != nil {
		sf.Log.Info("No dependency files found for IOC %s.", sf.Request.Name)
		return
	}

	for _, entry := range entries {
		if !strings.HasPrefix(strings.ToLower(entry.Name()), suffix) {
			continue
		}

		sf.Log.Info("Copying dependency file %s for %s", entry.Name(), sf.Request.DriverType)

		parts := strings.SplitN(entry.Name(), "_", 2)
		dest := filepath.Join(sf.InstanceDir, parts[len(parts)-1])
		if err := os.Rename(filepath.Join(depDir, entry.Name()), dest); err != nil {
			sf.Log.Error("Unable to move dependency file %s: %s", entry.Name(), err.Error())
			continue
		}

		if err := sf.FixMacros(dest); err != nil {
			sf.Log.Error("Unable to substitute macros in %s: %s", dest, err.Error())
		}
	}
}

// FixMacros replaces every $(PREFIX) in path with the instance prefix.
func (sf *Finalizer) FixMacros(path string) error {
	oldPath := path + "_OLD"
	if err := libbuildpack.CopyFile(path, oldPath); err != nil {
		return err
	}

	info, err := os.Stat(oldPath)
	if err != nil {
		return err
	}

	contents, err := os.ReadFile(oldPath)
	if err != nil {
		return err
	}

	replaced := strings.ReplaceAll(string(contents), prefixMacro, sf.Request.Prefix)
	if err := os.WriteFile(path, []byte(replaced), info.Mode().Perm()); err != nil {
		return err
	}

	return os.Remove(oldPath)
}

func (sf *Finalizer) UpdateUnique() error {
	sf.Log.BeginStep("Updating unique file based on configuration.")
	return sf.rewrite(uniqueFile, UniqueRules(sf.Global, sf.Request), "No unique file found, proceeding to next step.")
}

func (sf *Finalizer) UpdateConfig() error {
	sf.Log.BeginStep("Updating config file for procServer connection.")
	return sf.rewrite(configFile, ConfigRules(sf.Global, sf.Request), "No config file found moving to next step.")
}

func (sf *Finalizer) FixEnvPaths() error {
	sf.Log.BeginStep("Updating envPaths for %s.", sf.Global.Platform.Arch)

	result, err := sf.rewriteResult(envPathsFile, EnvPathsRules(sf.Global), "No envPaths file found moving to next step.")
	if err != nil {
		return err
	}
	if result.Replaced["EPICS_BASE"] > 0 {
		sf.Log.Info("Detected non-flat binaries, fixing base location in envPaths.")
	}
	return nil
}

func (sf *Finalizer) rewrite(name string, rules rewrite.Rules, missing string) error {
	_, err := sf.rewriteResult(name, rules, missing)
	return err
}

func (sf *Finalizer) rewriteResult(name string, rules rewrite.Rules, missing string) (rewrite.Result, error) {
	result, err := rewrite.RewriteFile(filepath.Join(sf.InstanceDir, name), rules)
	if errors.Is(err, rewrite.ErrMissingFile) {
		sf.Log.Info("%s", missing)
		return rewrite.Result{}, nil
	}
	if err != nil {
		return rewrite.Result{}, err
	}

	sf.Log.Debug("Rewrote %s, original kept as %s", name, filepath.Base(result.OldPath))
	return result, nil
}

// UniqueRules is ordered so specific markers shadow the shorter ones they contain:
// MC_PREFIX before PREFIX and IOCNAME before IOC.
func UniqueRules(global config.Global, req config.InstanceRequest) rewrite.Rules {
	supportDir := global.BinaryDir
	if !global.Flat {
		supportDir = global.BinaryDir + "/support"
	}

	return rewrite.Rules{
		{Name: "SUPPORT_DIR", Match: rewrite.Contains("SUPPORT_DIR"), Render: rewrite.EnvSet("SUPPORT_DIR", supportDir)},
		{Name: "ENGINEER", Match: rewrite.Contains("ENGINEER"), Render: rewrite.EnvSet("ENGINEER", global.Engineer)},
		{
			Name:   "MC_CONNECT",
			Match:  rewrite.AnyOf(rewrite.Contains("CAM-CONNECT"), rewrite.Contains("MC_CONNECT")),
			Render: rewrite.EnvSet("MC_CONNECT", req.Connection),
		},
		{Name: "HOSTNAME", Match: rewrite.Contains("HOSTNAME"), Render: rewrite.EnvSet("HOSTNAME", global.Hostname)},
		{Name: "MC", Match: rewrite.Contains(`("MC"`), Render: rewrite.EnvSet("MC", fmt.Sprintf("MC:%d", req.Number))},
		{Name: "CT", Match: rewrite.Contains(`("CT"`), Render: rewrite.EnvSet("CT", req.Prefix)},
		{Name: "MC_PREFIX", Match: rewrite.Contains("MC_PREFIX"), Render: rewrite.Verbatim},
		{
			Name:   "PREFIX",
			Match:  rewrite.Contains("PREFIX", "MC_PREFIX"),
			Render: rewrite.EnvSet("PREFIX", fmt.Sprintf("%s{%sIOC:MC%d}", req.Prefix, req.Suffix(), req.Number)),
		},
		{Name: "IOCNAME", Match: rewrite.Contains("IOCNAME"), Render: rewrite.EnvSet("IOCNAME", req.Name)},
		{Name: "EPICS_CA_ADDR_LIST", Match: rewrite.Contains("EPICS_CA_ADDR_LIST"), Render: rewrite.EnvSet("EPICS_CA_ADDR_LIST", global.CAAddress)},
		{Name: "IOC", Match: rewrite.Contains("IOC", "IOCNAME"), Render: rewrite.EnvSet("IOC", "ioc"+req.DriverType)},
	}
}

func ConfigRules(global config.Global, req config.InstanceRequest) rewrite.Rules {
	return rewrite.Rules{
		{Name: "NAME", Match: rewrite.Contains("NAME"), Render: rewrite.KeyValue("NAME", req.Name)},
		{Name: "PORT", Match: rewrite.Contains("PORT"), Render: rewrite.KeyValue("PORT", req.Port)},
		{Name: "HOST", Match: rewrite.Contains("HOST"), Render: rewrite.KeyValue("HOST", global.Hostname)},
	}
}

func EnvPathsRules(global config.Global) rewrite.Rules {
	rules := rewrite.Rules{
		{
			Name:   "ARCH",
			Match:  rewrite.HasPrefix(`epicsEnvSet("ARCH",`),
			Render: rewrite.Static(fmt.Sprintf("epicsEnvSet(\"ARCH\",       \"%s\")\n", global.Platform.Arch)),
		},
	}

	if !global.Flat {
		rules = append(rules, rewrite.Rule{
			Name:   "EPICS_BASE",
			Match:  rewrite.Contains("EPICS_BASE"),
			Render: rewrite.EnvSet("EPICS_BASE", stackedBasePath),
		})
	}

	return rules
}

type pathScript struct {
	Header    string
	Dirs      []string
	Delimiter string
	Closer    string
}

// WritePathScript writes ldpath.sh or dllPath.bat listing every library directory of the binary tree.
func (sf *Finalizer) WritePathScript() error {
	platform := sf.Global.Platform
	sf.Log.BeginStep("Writing %s", platform.PathScript)

	contents, err := sf.generatePathScript()
	if err != nil {
		return err
	}

	return os.WriteFile(filepath.Join(sf.InstanceDir, platform.PathScript), []byte(contents), 0644)
}

func (sf *Finalizer) generatePathScript() (string, error) {
	platform := sf.Global.Platform
	script := pathScript{
		Header:    platform.PathScriptHeader,
		Dirs:      []string{filepath.Join(sf.Global.BinaryDir, "base", "lib", platform.Arch)},
		Delimiter: platform.PathDelimiter,
		Closer:    platform.PathScriptCloser,
	}

	supportDir := locate.Layout{Root: sf.Global.BinaryDir, Flat: sf.Global.Flat}.SupportDir()
	entries, err := os.ReadDir(supportDir)
	if err != nil && !os.IsNotExist(err) {
		return "", err
	}
	for _, entry := range entries {
		if !entry.IsDir() || pathScriptSkipDirs[entry.Name()] {
			continue
		}
		script.Dirs = append(script.Dirs, filepath.Join(supportDir, entry.Name(), "lib", platform.Arch))
	}

	buffer := new(bytes.Buffer)
	t := template.Must(template.New(platform.PathScript).Parse(pathScriptTemplate))
	if err := t.Execute(buffer, script); err != nil {
		return "", err
	}
	return buffer.String(), nil
}
