// Package cmd implements the command-line interface of ttt.
// It connects configuration, descriptor discovery, checks and reporting.
package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"ttt/internal/check"
	"ttt/internal/config"
	"ttt/internal/log"
	"ttt/internal/manifest"
	"ttt/internal/project"
)

type checkOptions struct {
	expectVersion string
	runtime       string
}

func executeInfo(cfg *config.Config, logger *log.Logger, withLong bool) error {
	path, err := resolveManifest(cfg, logger)
	if err != nil {
		return err
	}

	d, err := manifest.Load(path)
	if err != nil {
		return err
	}
	logger.Infof("loaded %s %s from %s", d.Name, d.Version, d.Source)

	if !withLong {
		d = d.WithoutLongDescription()
	}
	return logger.WriteDescriptor(d)
}

func executeCheck(cfg *config.Config, logger *log.Logger, opts checkOptions) error {
	path, err := resolveManifest(cfg, logger)
	if err != nil {
		return err
	}

	// The README is checked as a finding rather than failing the load.
	d, err := manifest.LoadSnapshot(path)
	if err != nil {
		return err
	}

	root := filepath.Dir(d.Source)
	logger.Infof("checking %s %s in %s", d.Name, d.Version, root)

	report := check.Check(d, root, check.Options{
		ExpectVersion: opts.expectVersion,
		Runtime:       opts.runtime,
	})
	for _, f := range report.Findings {
		logger.Debugf("%s: %s: %s", f.Rule, f.Severity, f.Message)
	}

	if err := logger.WriteCheckReport(report, cfg.Strict); err != nil {
		return err
	}

	if !report.Passed(cfg.Strict) {
		warnings, errs := report.Counts()
		return fmt.Errorf("check failed for %s %s: %d errors, %d warnings", d.Name, d.Version, errs, warnings)
	}
	return nil
}

func executeDiff(logger *log.Logger, oldPath, newPath string) error {
	from, err := manifest.LoadSnapshot(oldPath)
	if err != nil {
		return err
	}
	to, err := manifest.LoadSnapshot(newPath)
	if err != nil {
		return err
	}

	delta := manifest.Diff(from, to)
	logger.Infof("%d field(s) changed", len(delta.Changes))
	if delta.Version == manifest.VersionDowngraded {
		logger.Warnf("version moved backwards from %s to %s", from.Version, to.Version)
	}
	return logger.WriteDelta(delta)
}

func executeVersion(logger *log.Logger) error {
	return logger.WriteBuildInfo(log.BuildInfo{
		Name:    "ttt",
		Version: Version,
		Commit:  Commit,
		Date:    Date,
		Go:      runtime.Version(),
	})
}

func resolveManifest(cfg *config.Config, logger *log.Logger) (string, error) {
	if cfg.Manifest != "" {
		return cfg.Manifest, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	path, err := project.FindManifest(cwd)
	if err != nil {
		return "", err
	}
	logger.Debugf("found descriptor %s", path)
	return path, nil
}
