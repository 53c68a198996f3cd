package log

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"ttt/internal/check"
	"ttt/internal/config"
	"ttt/internal/errors"
	"ttt/internal/manifest"
)

func newTestLogger(t *testing.T, cfg *config.Config) (*Logger, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	cfg.NoColor = true
	if cfg.Format == "" {
		cfg.Format = config.FormatText
	}
	var stdout, stderr bytes.Buffer
	logger, err := NewLogger(cfg, &stdout, &stderr)
	require.NoError(t, err)
	t.Cleanup(func() { logger.Close() })
	return logger, &stdout, &stderr
}

func sampleDescriptor() *manifest.Descriptor {
	return &manifest.Descriptor{
		Name:            "ttt",
		Version:         "0.0.2",
		Description:     "Togai Tsv Tool",
		Readme:          "README.md",
		URL:             "https://github.com/garicchi/ttt",
		Author:          "garicchi",
		AuthorEmail:     "xgaricchi@gmail.com",
		Requires:        ">=3.6",
		License:         "MIT",
		Scripts:         []string{"bin/ttt"},
		LongDescription: "# ttt\n\nTogai Tsv Tool.\n",
	}
}

func sampleReport() *check.Report {
	return &check.Report{
		Package: "ttt",
		Version: "0.0.2",
		Source:  "/project/ttt.yaml",
		Findings: []check.Finding{
			{Rule: check.RuleDescriptor, Severity: check.SeverityOK, Message: "ttt 0.0.2 is a valid descriptor"},
			{Rule: check.RuleScripts, Severity: check.SeverityWarning, Message: "bin/ttt is not executable"},
		},
	}
}

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name        string
		output      string
		expectError bool
	}{
		{"stdout", "", false},
		{"file", filepath.Join(t.TempDir(), "report.json"), false},
		{"invalid file path", "/invalid/path/that/does/not/exist/report.json", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := NewLogger(&config.Config{Output: tt.output}, &bytes.Buffer{}, &bytes.Buffer{})
			if tt.expectError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NoError(t, logger.Close())
		})
	}
}

func TestOutputFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.json")
	var stdout bytes.Buffer
	logger, err := NewLogger(&config.Config{Output: path, Format: config.FormatJSON}, &stdout, &bytes.Buffer{})
	require.NoError(t, err)

	require.NoError(t, logger.WriteDescriptor(sampleDescriptor()))
	require.NoError(t, logger.Close())

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), `"name": "ttt"`)
	assert.Empty(t, stdout.String())
}

func TestDiagnostics(t *testing.T) {
	tests := []struct {
		name      string
		config    config.Config
		wantInfo  bool
		wantDebug bool
		wantWarn  bool
	}{
		{"default", config.Config{}, false, false, true},
		{"verbose", config.Config{Verbose: true}, true, false, true},
		{"debug", config.Config{Debug: true}, true, true, true},
		{"quiet", config.Config{Verbose: true, Quiet: true}, false, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.config
			logger, stdout, stderr := newTestLogger(t, &cfg)

			logger.Infof("loaded %s", "ttt.yaml")
			logger.Debugf("format %s", "yaml")
			logger.Warnf("%s is not executable", "bin/ttt")

			assert.Equal(t, tt.wantInfo, strings.Contains(stderr.String(), "loaded ttt.yaml"))
			assert.Equal(t, tt.wantDebug, strings.Contains(stderr.String(), "debug: format yaml"))
			assert.Equal(t, tt.wantWarn, strings.Contains(stderr.String(), "warning: bin/ttt is not executable"))
			assert.Empty(t, stdout.String())
		})
	}
}

func TestWriteDescriptorText(t *testing.T) {
	logger, stdout, _ := newTestLogger(t, &config.Config{})

	require.NoError(t, logger.WriteDescriptor(sampleDescriptor()))

	out := stdout.String()
	assert.Contains(t, out, "name:         ttt\n")
	assert.Contains(t, out, "version:      0.0.2\n")
	assert.Contains(t, out, "author_email: xgaricchi@gmail.com\n")
	assert.Contains(t, out, "scripts:      bin/ttt\n")
	assert.Contains(t, out, "long_description:\n  # ttt\n  \n  Togai Tsv Tool.\n")
	assert.NotContains(t, out, "packages:")
}

func TestWriteDescriptorStructured(t *testing.T) {
	t.Run("json", func(t *testing.T) {
		logger, stdout, _ := newTestLogger(t, &config.Config{Format: config.FormatJSON})
		require.NoError(t, logger.WriteDescriptor(sampleDescriptor()))

		var decoded map[string]any
		require.NoError(t, json.Unmarshal(stdout.Bytes(), &decoded))
		assert.Equal(t, "0.0.2", decoded["version"])
		assert.Equal(t, "# ttt\n\nTogai Tsv Tool.\n", decoded["long_description"])
		assert.NotContains(t, decoded, "Source")
	})

	t.Run("yaml", func(t *testing.T) {
		logger, stdout, _ := newTestLogger(t, &config.Config{Format: config.FormatYAML})
		require.NoError(t, logger.WriteDescriptor(sampleDescriptor().WithoutLongDescription()))

		var decoded map[string]any
		require.NoError(t, yaml.Unmarshal(stdout.Bytes(), &decoded))
		assert.Equal(t, "ttt", decoded["name"])
		assert.Equal(t, []any{"bin/ttt"}, decoded["scripts"])
		assert.NotContains(t, decoded, "long_description")
	})
}

func TestWriteCheckReport(t *testing.T) {
	t.Run("text", func(t *testing.T) {
		logger, stdout, _ := newTestLogger(t, &config.Config{})
		require.NoError(t, logger.WriteCheckReport(sampleReport(), false))

		out := stdout.String()
		assert.Contains(t, out, "ttt 0.0.2 (/project/ttt.yaml)\n")
		assert.Contains(t, out, "[ok]      descriptor ttt 0.0.2 is a valid descriptor\n")
		assert.Contains(t, out, "[warning] scripts    bin/ttt is not executable\n")
		assert.Contains(t, out, "Result: passed (1 warnings, 0 errors)\n")
	})

	t.Run("strict text", func(t *testing.T) {
		logger, stdout, _ := newTestLogger(t, &config.Config{})
		require.NoError(t, logger.WriteCheckReport(sampleReport(), true))
		assert.Contains(t, stdout.String(), "Result: failed (1 warnings, 0 errors)\n")
	})

	t.Run("json", func(t *testing.T) {
		logger, stdout, _ := newTestLogger(t, &config.Config{Format: config.FormatJSON})
		require.NoError(t, logger.WriteCheckReport(sampleReport(), false))

		var decoded struct {
			Package  string          `json:"package"`
			Passed   bool            `json:"passed"`
			Findings []check.Finding `json:"findings"`
		}
		require.NoError(t, json.Unmarshal(stdout.Bytes(), &decoded))
		assert.Equal(t, "ttt", decoded.Package)
		assert.True(t, decoded.Passed)
		assert.Len(t, decoded.Findings, 2)
	})

	t.Run("yaml", func(t *testing.T) {
		logger, stdout, _ := newTestLogger(t, &config.Config{Format: config.FormatYAML})
		require.NoError(t, logger.WriteCheckReport(sampleReport(), true))

		var decoded map[string]any
		require.NoError(t, yaml.Unmarshal(stdout.Bytes(), &decoded))
		assert.Equal(t, "ttt", decoded["package"])
		assert.Equal(t, false, decoded["passed"])
	})
}

func TestWriteDelta(t *testing.T) {
	delta := manifest.Delta{
		From:    "v0.0.1/ttt.yaml",
		To:      "v0.0.2/ttt.yaml",
		Version: manifest.VersionBumped,
		Changes: []manifest.Change{
			{Field: "version", Old: "0.0.1", New: "0.0.2"},
			{Field: "scripts", Old: "[ttt]", New: "[bin/ttt]"},
		},
	}

	logger, stdout, _ := newTestLogger(t, &config.Config{})
	require.NoError(t, logger.WriteDelta(delta))

	assert.Equal(t, "v0.0.1/ttt.yaml -> v0.0.2/ttt.yaml (version bumped)\n"+
		"  version: 0.0.1 -> 0.0.2\n"+
		"  scripts: [ttt] -> [bin/ttt]\n", stdout.String())

	stdout.Reset()
	require.NoError(t, logger.WriteDelta(manifest.Delta{From: "a", To: "b", Version: manifest.VersionUnchanged}))
	assert.Equal(t, "a -> b (version unchanged)\nno changes\n", stdout.String())
}

func TestWriteBuildInfo(t *testing.T) {
	logger, stdout, _ := newTestLogger(t, &config.Config{})
	require.NoError(t, logger.WriteBuildInfo(BuildInfo{Name: "ttt", Version: "0.0.2", Commit: "abc123", Date: "2026-10-19", Go: "go1.24.4"}))

	assert.Equal(t, "ttt 0.0.2 (commit: abc123, built: 2026-10-19, go1.24.4)\n", stdout.String())
}

func TestWriteError(t *testing.T) {
	verr := errors.NewValidationError("/project/ttt.yaml", []errors.FieldViolation{
		{Field: "license", Rule: "required", Reason: "is required"},
	})

	t.Run("text", func(t *testing.T) {
		var buf bytes.Buffer
		WriteError(&buf, config.FormatText, verr)
		assert.Equal(t, "Error: validation error for /project/ttt.yaml: license: is required\n", buf.String())
	})

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		WriteError(&buf, config.FormatJSON, verr)

		var decoded struct {
			Error struct {
				Type       string                  `json:"type"`
				Path       string                  `json:"path"`
				Message    string                  `json:"message"`
				Violations []errors.FieldViolation `json:"violations"`
			} `json:"error"`
		}
		require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
		assert.Equal(t, "validation", decoded.Error.Type)
		assert.Equal(t, "/project/ttt.yaml", decoded.Error.Path)
		assert.Equal(t, "license: is required", decoded.Error.Message)
		require.Len(t, decoded.Error.Violations, 1)
		assert.Equal(t, "license", decoded.Error.Violations[0].Field)
	})

	t.Run("cause", func(t *testing.T) {
		perr := errors.NewParsingError("/project/ttt.yaml", "failed to parse YAML", stderrors.New("yaml: line 2: did not find expected ',' or ']'"))

		var text bytes.Buffer
		WriteError(&text, config.FormatText, perr)
		assert.Equal(t, "Error: parsing error for /project/ttt.yaml: failed to parse YAML: yaml: line 2: did not find expected ',' or ']'\n", text.String())

		var buf bytes.Buffer
		WriteError(&buf, config.FormatJSON, perr)
		var decoded struct {
			Error struct {
				Message string `json:"message"`
				Cause   string `json:"cause"`
			} `json:"error"`
		}
		require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
		assert.Equal(t, "failed to parse YAML", decoded.Error.Message)
		assert.Equal(t, "yaml: line 2: did not find expected ',' or ']'", decoded.Error.Cause)
	})

	t.Run("json untyped", func(t *testing.T) {
		var buf bytes.Buffer
		WriteError(&buf, config.FormatJSON, assert.AnError)
		assert.Contains(t, buf.String(), assert.AnError.Error())
	})
}
