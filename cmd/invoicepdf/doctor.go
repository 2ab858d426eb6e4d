package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/go-rod/rod/lib/launcher"

	"github.com/alnah/go-invoicepdf/internal/assets"
	"github.com/alnah/go-invoicepdf/internal/config"
	"github.com/alnah/go-invoicepdf/internal/storage"
)

// Doctor statuses.
const (
	statusReady    = "ready"
	statusWarnings = "warnings"
	statusErrors   = "errors"
)

// doctorResult holds all diagnostic information.
type doctorResult struct {
	Status   string      `json:"status"`
	Chrome   chromeInfo  `json:"chrome"`
	Env      envInfo     `json:"environment"`
	System   systemInfo  `json:"system"`
	Config   configInfo  `json:"config"`
	Storage  storageInfo `json:"storage"`
	Assets   assetsInfo  `json:"assets"`
	Warnings []string    `json:"warnings,omitempty"`
	Errors   []string    `json:"errors,omitempty"`
}

// chromeInfo holds Chrome/Chromium detection results.
type chromeInfo struct {
	Found   bool   `json:"found"`
	Path    string `json:"path,omitempty"`
	Version string `json:"version,omitempty"`
	Sandbox bool   `json:"sandbox"`
}

// envInfo holds environment detection results.
type envInfo struct {
	OS            string `json:"os"`
	Arch          string `json:"arch"`
	Container     bool   `json:"container"`
	ContainerHint string `json:"container_hint,omitempty"`
	CI            bool   `json:"ci"`
	NoSandbox     string `json:"rod_no_sandbox"`
	BrowserBin    string `json:"rod_browser_bin"`
}

// systemInfo holds system check results.
type systemInfo struct {
	TempWritable bool `json:"temp_writable"`
}

// configInfo reports the resolved configuration.
type configInfo struct {
	Source string `json:"source"` // file name, or "defaults"
	Valid  bool   `json:"valid"`
}

// storageInfo reports where downloads would go.
type storageInfo struct {
	Driver   string `json:"driver"`
	Target   string `json:"target"` // directory or bucket
	Writable bool   `json:"writable"`
}

// assetsInfo reports the selected style and template set and what the
// binary embeds.
type assetsInfo struct {
	Source       string   `json:"source"` // asset directory, or "embedded"
	Style        string   `json:"style"`
	TemplateSet  string   `json:"template_set"`
	Styles       []string `json:"styles"`
	TemplateSets []string `json:"template_sets"`
}

func (d *doctorResult) fail(format string, args ...any) {
	d.Errors = append(d.Errors, fmt.Sprintf(format, args...))
}

func (d *doctorResult) warn(format string, args ...any) {
	d.Warnings = append(d.Warnings, fmt.Sprintf(format, args...))
}

// runDoctorCmd executes the doctor command and returns an exit code.
// Exit codes: 0 = OK (including warnings), 1 = errors found.
func runDoctorCmd(args []string, env *Environment) int {
	jsonOutput := false
	configName := ""
	for i := 0; i < len(args); i++ {
		switch {
		case args[i] == "--json":
			jsonOutput = true
		case (args[i] == "--config" || args[i] == "-c") && i+1 < len(args):
			configName = args[i+1]
			i++
		case strings.HasPrefix(args[i], "--config="):
			configName = strings.TrimPrefix(args[i], "--config=")
		}
	}

	result := runDoctor(configName)

	if jsonOutput {
		enc := json.NewEncoder(env.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(result)
	} else {
		printDoctorResult(env.Stdout, result)
	}

	if result.Status == statusErrors {
		return ExitGeneral
	}
	return ExitSuccess
}

// runDoctor performs all diagnostic checks.
func runDoctor(configName string) *doctorResult {
	result := &doctorResult{
		Status: statusReady,
		Env: envInfo{
			OS:         runtime.GOOS,
			Arch:       runtime.GOARCH,
			NoSandbox:  os.Getenv("ROD_NO_SANDBOX"),
			BrowserBin: os.Getenv("ROD_BROWSER_BIN"),
		},
	}

	checkChrome(result)
	checkEnvironment(result)
	checkSystem(result)
	cfg := checkConfig(result, configName)
	checkStorage(result, cfg)
	checkAssets(result, cfg)

	if len(result.Errors) > 0 {
		result.Status = statusErrors
	} else if len(result.Warnings) > 0 {
		result.Status = statusWarnings
	}

	return result
}

// checkChrome detects Chrome/Chromium installation.
func checkChrome(result *doctorResult) {
	chromePath := result.Env.BrowserBin

	if chromePath == "" {
		var found bool
		chromePath, found = launcher.LookPath()
		if !found {
			result.fail("Chrome/Chromium not found. Install Chrome or set ROD_BROWSER_BIN")
			return
		}
	}

	if _, err := os.Stat(chromePath); err != nil {
		result.fail("Chrome not found at %s", chromePath)
		return
	}

	result.Chrome.Found = true
	result.Chrome.Path = chromePath

	out, err := exec.Command(chromePath, "--version").Output() // #nosec G204 -- browser path from env or launcher
	if err == nil {
		result.Chrome.Version = strings.TrimSpace(string(out))
	} else {
		result.warn("Could not get Chrome version: %v", err)
	}

	result.Chrome.Sandbox = result.Env.NoSandbox != "1"
}

// checkEnvironment detects container and CI environments.
func checkEnvironment(result *doctorResult) {
	result.Env.Container, result.Env.ContainerHint = isContainer()

	for _, v := range []string{"CI", "GITHUB_ACTIONS", "GITLAB_CI", "JENKINS_URL", "CIRCLECI"} {
		if os.Getenv(v) != "" {
			result.Env.CI = true
			break
		}
	}

	if (result.Env.Container || result.Env.CI) && result.Env.NoSandbox != "1" {
		result.warn("Container/CI detected but ROD_NO_SANDBOX not set. Set ROD_NO_SANDBOX=1")
	}
}

// isContainer detects if running in a container environment.
// Returns (isContainer, hint) where hint indicates which signal was detected.
func isContainer() (bool, string) {
	if os.Getenv("INVOICEPDF_CONTAINER") == "1" {
		return true, "INVOICEPDF_CONTAINER=1"
	}
	if _, err := os.Stat("/.dockerenv"); err == nil {
		return true, "/.dockerenv"
	}
	if v := os.Getenv("container"); v != "" {
		return true, "container=" + v
	}
	if os.Getenv("KUBERNETES_SERVICE_HOST") != "" {
		return true, "KUBERNETES_SERVICE_HOST"
	}
	return false, ""
}

// checkSystem verifies the temp directory is writable.
func checkSystem(result *doctorResult) {
	result.System.TempWritable = dirWritable(os.TempDir())
	if !result.System.TempWritable {
		result.fail("Temp directory not writable: %s", os.TempDir())
	}
}

// checkConfig loads and validates the configuration the other commands
// would use. Returns the defaults when it cannot be loaded.
func checkConfig(result *doctorResult, configName string) *config.Config {
	env := loadEnvConfig()
	result.Config.Source = "defaults"
	if name := firstNonEmpty(configName, env.ConfigPath); name != "" {
		result.Config.Source = name
	}

	cfg, err := loadSettings(configName, env)
	if err != nil {
		result.fail("%v", err)
		return config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		result.fail("Invalid config: %v", err)
		return cfg
	}
	result.Config.Valid = true
	return cfg
}

// checkStorage reports the storage backend. Local directories are checked
// for writability; buckets are only checked for configuration.
func checkStorage(result *doctorResult, cfg *config.Config) {
	settings := cfg.StorageSettings()
	result.Storage.Driver = firstNonEmpty(settings.Driver, storage.DriverLocal)

	switch result.Storage.Driver {
	case storage.DriverS3:
		result.Storage.Target = "s3://" + settings.S3.Bucket
		if settings.S3.Bucket == "" {
			result.fail("storage.s3.bucket is not set")
			return
		}
		if settings.S3.AccessKeyID == "" && os.Getenv("AWS_ACCESS_KEY_ID") == "" {
			result.warn("No S3 access key in config or AWS_ACCESS_KEY_ID; relying on the default AWS credential chain")
		}
	default:
		dir := firstNonEmpty(settings.Dir, ".")
		result.Storage.Target = dir
		result.Storage.Writable = dirWritable(dir)
		if !result.Storage.Writable {
			result.warn("Output directory not writable (it is created on first export if missing): %s", dir)
		}
	}
}

// dirWritable reports whether a file can be created in dir.
// checkAssets resolves the configured style and template set the way
// exports do.
func checkAssets(result *doctorResult, cfg *config.Config) {
	result.Assets = assetsInfo{
		Source:       "embedded",
		Style:        firstNonEmpty(cfg.Assets.Style, assets.DefaultStyleName),
		TemplateSet:  firstNonEmpty(cfg.Assets.TemplateSet, assets.DefaultTemplateSetName),
		Styles:       assets.StyleNames(),
		TemplateSets: assets.TemplateSetNames(),
	}

	resolver, err := assets.NewAssetResolver(cfg.Assets.BasePath)
	if err != nil {
		result.fail("Asset path: %v", err)
		return
	}
	if resolver.HasCustomLoader() {
		result.Assets.Source = cfg.Assets.BasePath
	}
	if _, err := resolver.LoadStyle(result.Assets.Style); err != nil {
		result.fail("Style %q: %v (embedded: %s)", result.Assets.Style, err, strings.Join(result.Assets.Styles, ", "))
	}
	if _, err := resolver.LoadTemplateSet(result.Assets.TemplateSet); err != nil {
		result.fail("Template set %q: %v (embedded: %s)", result.Assets.TemplateSet, err, strings.Join(result.Assets.TemplateSets, ", "))
	}
}

func dirWritable(dir string) bool {
	f, err := os.CreateTemp(dir, "invoicepdf-doctor-*")
	if err != nil {
		return false
	}
	name := f.Name()
	_ = f.Close()
	_ = os.Remove(filepath.Clean(name))
	return true
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// Report markers.
const (
	markOK    = "[OK]"
	markWarn  = "[WARN]"
	markError = "[ERROR]"
)

// report writes the human-readable doctor output, one section at a time.
type report struct {
	w io.Writer
}

func (r report) section(title string) {
	fmt.Fprintln(r.w, title)
}

func (r report) item(mark, format string, args ...any) {
	fmt.Fprintf(r.w, "  %s %s\n", mark, fmt.Sprintf(format, args...))
}

func (r report) end() {
	fmt.Fprintln(r.w)
}

// printDoctorResult outputs human-readable diagnostic results.
func printDoctorResult(w io.Writer, res *doctorResult) {
	r := report{w: w}
	r.section("invoicepdf doctor")
	r.end()

	r.section("Chrome/Chromium")
	switch {
	case !res.Chrome.Found:
		r.item(markError, "Not found")
	default:
		r.item(markOK, "Found at %s", res.Chrome.Path)
		if res.Chrome.Version != "" {
			r.item(markOK, "Version: %s", res.Chrome.Version)
		}
		sandbox := "enabled"
		if !res.Chrome.Sandbox {
			sandbox = "disabled (ROD_NO_SANDBOX=1)"
		}
		r.item(markOK, "Sandbox: %s", sandbox)
	}
	r.end()

	r.section("Environment")
	r.item(markOK, "Platform: %s/%s", res.Env.OS, res.Env.Arch)
	if res.Env.Container {
		r.item(markOK, "Container: detected (%s)", res.Env.ContainerHint)
	}
	if res.Env.CI {
		r.item(markOK, "CI: detected")
	}
	r.end()

	r.section("System")
	if res.System.TempWritable {
		r.item(markOK, "Temp directory: writable")
	} else {
		r.item(markError, "Temp directory: not writable")
	}
	r.end()

	r.section("Configuration")
	if res.Config.Valid {
		r.item(markOK, "Source: %s", res.Config.Source)
	} else {
		r.item(markError, "Source: %s (see errors below)", res.Config.Source)
	}
	switch {
	case res.Storage.Driver == storage.DriverS3:
		r.item(markOK, "Storage: %s", res.Storage.Target)
	case res.Storage.Writable:
		r.item(markOK, "Storage: %s (writable)", res.Storage.Target)
	default:
		r.item(markWarn, "Storage: %s (not writable)", res.Storage.Target)
	}
	r.item(markOK, "Assets: %s (style %s, template set %s)", res.Assets.Source, res.Assets.Style, res.Assets.TemplateSet)
	r.item(markOK, "Embedded styles: %s", strings.Join(res.Assets.Styles, ", "))
	r.item(markOK, "Embedded template sets: %s", strings.Join(res.Assets.TemplateSets, ", "))
	r.end()

	for _, group := range []struct {
		title string
		mark  string
		lines []string
	}{
		{"Warnings:", markWarn, res.Warnings},
		{"Errors:", markError, res.Errors},
	} {
		if len(group.lines) == 0 {
			continue
		}
		r.section(group.title)
		for _, l := range group.lines {
			r.item(group.mark, "%s", l)
		}
		r.end()
	}

	switch res.Status {
	case statusReady:
		fmt.Fprintln(w, "Status: Ready to export")
	case statusWarnings:
		fmt.Fprintln(w, "Status: Ready with warnings")
	case statusErrors:
		fmt.Fprintln(w, "Status: Not ready (see errors above)")
	}
}
