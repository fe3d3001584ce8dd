package finalize

const (
	startupScriptsDir = "startupScripts"
	autosaveDir       = "autosaveFiles"
	dependencyDir     = "dependancyFiles"

	startupFile     = "st.cmd"
	startupBaseFile = "st_base.cmd"
	uniqueFile      = "unique.cmd"
	configFile      = "config"
	envPathsFile    = "envPaths"
	autosaveFile    = "auto_settings.req"

	shebang         = "#!"
	envPathsLoad    = "< envPaths\n"
	prefixMacro     = "$(PREFIX)"
	stackedBasePath = "$(SUPPORT)/../base"

	// Linux refuses shebang lines with an interpreter path longer than this.
	KernelPathLimit = 127
)

var pathScriptSkipDirs = map[string]bool{
	"base":         true,
	"areaDetector": true,
}

const pathScriptTemplate = `{{.Header}}{{range .Dirs}}{{.}}{{$.Delimiter}}{{end}}{{.Closer}}`
