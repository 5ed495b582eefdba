package userdata

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/serverkit/addonctl/internal/branding"
	"github.com/serverkit/addonctl/internal/catalog"
	"github.com/serverkit/addonctl/internal/config"
	"github.com/serverkit/addonctl/internal/installer"
)

// Directory names inside a server directory and the CLI home.
const (
	ModsDir    = "mods"
	PluginsDir = "plugins"
	ListsDir   = "lists"
)

// DirPerm is the mode used for directories the CLI creates.
const DirPerm os.FileMode = 0755

// InstallDir returns the directory addons of kind are installed into.
// ADDONCTL_MODS_DIR or ADDONCTL_PLUGINS_DIR take precedence, then
// <serverDir>/mods or <serverDir>/plugins.
func InstallDir(serverDir string, kind catalog.Kind) string {
	name := ModsDir
	if kind == catalog.KindPlugin {
		name = PluginsDir
	}
	if v := os.Getenv(branding.EnvVar(strings.ToUpper(name) + "_DIR")); v != "" {
		return v
	}
	if serverDir == "" {
		serverDir = "."
	}
	return filepath.Join(serverDir, name)
}

// LedgerPath returns the installed ledger inside an install directory.
func LedgerPath(installDir string) string {
	return filepath.Join(installDir, installer.LedgerFile)
}

// EnsureDir creates dir if it does not exist.
func EnsureDir(dir string) error {
	if err := os.MkdirAll(dir, DirPerm); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}
	return nil
}

// ListsRoot returns the directory of saved addon lists. It checks
// ADDONCTL_LISTS first, then falls back to ~/.addonctl/lists.
func ListsRoot() string {
	if v := os.Getenv(branding.EnvVar("LISTS")); v != "" {
		return v
	}
	return filepath.Join(config.Dir(), ListsDir)
}

// ResolveList turns an addon list argument into a file path. Arguments that
// name an existing file are used as is; bare names are looked up in the
// lists directory with a .yaml or .yml extension.
func ResolveList(arg string) (string, error) {
	if _, err := os.Stat(arg); err == nil {
		return arg, nil
	}
	if strings.ContainsRune(arg, filepath.Separator) || filepath.Ext(arg) != "" {
		return "", fmt.Errorf("addon list %s: %w", arg, os.ErrNotExist)
	}

	root := ListsRoot()
	for _, ext := range []string{".yaml", ".yml"} {
		p := filepath.Join(root, arg+ext)
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", fmt.Errorf("addon list %q not found in %s: %w", arg, root, os.ErrNotExist)
}
