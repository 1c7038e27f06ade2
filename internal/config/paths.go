package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Paths contains the resolved application paths
type Paths struct {
	BaseDir        string
	DataDir        string
	LogsDir        string
	ExportsDir     string
	DefaultDataset string
}

// ResolvePaths turns configured paths into absolute ones. Relative entries are
// joined to BaseDir, which itself defaults to the executable directory.
func ResolvePaths(cfg PathsConfig) (*Paths, error) {
	base := cfg.BaseDir
	if base == "" {
		exeDir, err := executableDir()
		if err != nil {
			return nil, err
		}
		base = exeDir
	}
	base, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve base directory: %w", err)
	}

	resolve := func(p, fallback string) string {
		if p == "" {
			p = fallback
		}
		if filepath.IsAbs(p) {
			return filepath.Clean(p)
		}
		return filepath.Join(base, p)
	}

	dataDir := resolve(cfg.DataDir, DefaultDataDir)
	paths := &Paths{
		BaseDir:    base,
		DataDir:    dataDir,
		LogsDir:    resolve(cfg.LogsDir, DefaultLogsDir),
		ExportsDir: filepath.Join(dataDir, "exports"),
	}
	if cfg.DefaultDataset != "" {
		if filepath.IsAbs(cfg.DefaultDataset) {
			paths.DefaultDataset = filepath.Clean(cfg.DefaultDataset)
		} else {
			paths.DefaultDataset = filepath.Join(dataDir, cfg.DefaultDataset)
		}
	}
	return paths, nil
}

// executableDir returns the directory holding the running binary
func executableDir() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("failed to get executable path: %v", err)
	}

	// Resolve symlinks to get the actual executable location
	exe, err = filepath.EvalSymlinks(exe)
	if err != nil {
		return "", fmt.Errorf("failed to resolve executable symlinks: %v", err)
	}
	return filepath.Dir(exe), nil
}

// EnsureDirectories creates all required directories if they don't exist
func (p *Paths) EnsureDirectories() error {
	for _, dir := range []string{p.DataDir, p.LogsDir, p.ExportsDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// HasDefaultDataset reports whether a bundled dataset is configured and present.
func (p *Paths) HasDefaultDataset() bool {
	return p.DefaultDataset != "" && FileExists(p.DefaultDataset)
}

// GetExportPath returns the full path for an export file
func (p *Paths) GetExportPath(filename string) string {
	return filepath.Join(p.ExportsDir, filename)
}

// FileExists checks if a regular file exists
func FileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// LogPathResolution logs the resolved paths for debugging
func (p *Paths) LogPathResolution(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("Resolved application paths",
		slog.String("base_dir", p.BaseDir),
		slog.String("data_dir", p.DataDir),
		slog.String("logs_dir", p.LogsDir),
		slog.String("default_dataset", p.DefaultDataset),
		slog.Bool("default_dataset_present", p.HasDefaultDataset()))
}
