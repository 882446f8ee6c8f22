package a3interface

import (
	"fmt"
	"os"
	"path/filepath"
)

// GetHostDir returns the directory of the host executable. Symlinks are not resolved.
func GetHostDir() (string, error) {
	executablePath, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("error getting executable directory: %w", err)
	}
	return filepath.Dir(executablePath), nil
}

// ResolveAddonFolder picks the folder holding the extension's config and
// logs. When the library sits in the host root, "@<addon>" under the root is
// used instead so loose files stay out of the game directory. The folder is
// created if missing.
func ResolveAddonFolder(hostDir, moduleDir, addon string) (string, error) {
	folder := moduleDir
	if folder == "" || filepath.Clean(folder) == filepath.Clean(hostDir) {
		folder = filepath.Join(hostDir, "@"+addon)
	}
	if err := os.MkdirAll(folder, 0755); err != nil {
		return "", fmt.Errorf("failed to create addon folder: %w", err)
	}
	return folder, nil
}
