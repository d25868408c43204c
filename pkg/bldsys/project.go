package bldsys

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/rotisserie/eris"
)

// Project is the context handed to every module build entry point. It owns
// the time report of the current run and the working directory that Run
// executes commands in. One Project is shared by all modules of a single
// orchestration pass; execution is strictly sequential, so there is never
// more than one writer.
type Project struct {
	config       *Config
	rootDir      string
	buildDir     string
	installDir   string
	distDir      string
	reportDir    string
	workDir      string
	envOverrides map[string]string
	yamlCache    map[string]interface{}
	report       *TimeReport
	stdout       io.Writer
	stderr       io.Writer
	dryRun       bool
}

// NewProject binds a validated project declaration to its root directory.
func NewProject(config *Config, rootDir string) (*Project, error) {
	if config == nil {
		return nil, eris.New("invalid project config")
	}

	rootDir, err := filepath.Abs(rootDir)
	if err != nil {
		return nil, eris.Wrap(err, "failed to resolve the project root")
	}

	buildDir := config.BuildDir
	if !filepath.IsAbs(buildDir) {
		buildDir = filepath.Join(rootDir, buildDir)
	}

	return &Project{
		config:       config,
		rootDir:      rootDir,
		buildDir:     buildDir,
		installDir:   filepath.Join(buildDir, "release"),
		distDir:      filepath.Join(buildDir, "dist"),
		reportDir:    filepath.Join(buildDir, "reports"),
		workDir:      rootDir,
		envOverrides: make(map[string]string),
		yamlCache:    make(map[string]interface{}),
		report:       NewTimeReport(),
		stdout:       os.Stdout,
		stderr:       os.Stderr,
	}, nil
}

func (p *Project) Name() string             { return p.config.Name }
func (p *Project) Version() *semver.Version { return p.config.Version }
func (p *Project) RootDir() string          { return p.rootDir }
func (p *Project) BuildDir() string         { return p.buildDir }
func (p *Project) InstallDir() string       { return p.installDir }
func (p *Project) DistDir() string          { return p.distDir }
func (p *Project) ReportDir() string        { return p.reportDir }

// WorkDir is the directory Run currently executes commands in.
func (p *Project) WorkDir() string { return p.workDir }

// TimeReport returns the report collecting this run's step durations.
func (p *Project) TimeReport() *TimeReport { return p.report }

// SetDryRun makes Run log commands instead of executing them.
func (p *Project) SetDryRun(dry bool) { p.dryRun = dry }

// Step starts a timed build step and returns the closure that finalizes the
// measurement. Call it with defer so the duration lands in the report on
// every exit path, failed steps included. Re-entering a key overwrites the
// earlier duration.
func (p *Project) Step(ctx context.Context, key, label string) func() {
	log(ctx).Info().Msgf("=== %s", label)
	begin := time.Now()

	return func() {
		p.report.Add(key, time.Since(begin).Seconds())
	}
}

// Chdir points Run at the given directory and returns the closure that
// restores the previous one. Only the project's own notion of the working
// directory changes; the process-wide directory is never touched.
func (p *Project) Chdir(ctx context.Context, path string) func() {
	prev := p.workDir
	p.workDir = normalizePath(p.rootDir, p.workDir, path)
	log(ctx).Debug().Msgf("now in %s", p.workDir)

	return func() {
		p.workDir = prev
		log(ctx).Debug().Msgf("now in %s", p.workDir)
	}
}

// Build runs the given entry point of the requested modules, in the order
// requested. An empty request means every declared module in declaration
// order. The first failing module aborts the loop, but the time report is
// written regardless; the original failure is returned once the report has
// hit the disk.
func (p *Project) Build(ctx context.Context, op string, requested []string, options map[string]string) error {
	modules := requested
	if len(modules) == 0 {
		modules = p.config.Modules
	} else {
		for _, name := range modules {
			if !p.config.HasModule(name) {
				return UnknownModuleError{Module: name}
			}
		}
	}

	begin := time.Now()
	var buildErr error
	for _, name := range modules {
		handle, err := LoadModule(ctx, p, name)
		if err == nil {
			log(ctx).Info().Msgf("%s:%s", name, op)
			err = handle.Call(ctx, op, p, options)
		}
		if err != nil {
			buildErr = eris.Wrapf(err, "module %s failed", name)
			break
		}
	}

	p.report.Add("total", time.Since(begin).Seconds())
	if err := p.report.WriteCSV(filepath.Join(p.reportDir, "time.csv")); err != nil {
		if buildErr == nil {
			buildErr = err
		} else {
			log(ctx).Error().Err(err).Msg("failed to write the time report")
		}
	}

	status := "successful"
	if buildErr != nil {
		status = "failed"
	}
	elapsed, _ := p.report.Get("total")
	log(ctx).Info().Msgf("Build %s in %s.", status, FormatDuration(elapsed))

	return buildErr
}
