// Package credentials finds files in a workspace that look like secrets, so
// the user can confirm before they are exposed to a container.
package credentials

import (
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
)

// MaxDepth limits how deep below the workspace root the scan descends.
const MaxDepth = 5

var fileNames = map[string]bool{
	".env":                 true,
	".env.local":           true,
	".env.production":      true,
	".env.staging":         true,
	"id_rsa":               true,
	"id_ed25519":           true,
	"id_ecdsa":             true,
	"id_dsa":               true,
	".npmrc":               true,
	".pypirc":              true,
	".netrc":               true,
	"credentials.json":     true,
	"service-account.json": true,
	"terraform.tfstate":    true,
}

var extensions = map[string]bool{
	".pem":      true,
	".key":      true,
	".p12":      true,
	".pfx":      true,
	".jks":      true,
	".keystore": true,
	".tfvars":   true,
}

// pathFragments match anywhere in the slash-separated path.
var pathFragments = []string{
	".aws/credentials",
	".aws/config",
	".ssh/",
	".gnupg/",
}

var skipDirs = map[string]bool{
	"node_modules": true,
	".git":         true,
	"target":       true,
	"__pycache__":  true,
	".venv":        true,
	"venv":         true,
}

// IsCredential reports whether path names a likely credential file.
func IsCredential(path string) bool {
	base := filepath.Base(path)
	if fileNames[base] {
		return true
	}
	if extensions[filepath.Ext(base)] {
		return true
	}
	slashed := filepath.ToSlash(path)
	for _, frag := range pathFragments {
		if strings.Contains(slashed, frag) {
			return true
		}
	}
	return false
}

// Scan walks root and returns the paths, relative to root, of regular files
// that look like credentials. Symlinks are not followed and unreadable
// entries are skipped.
func Scan(root string) ([]string, error) {
	var found []string

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return nil
		}
		depth := 0
		if rel != "." {
			depth = strings.Count(filepath.ToSlash(rel), "/") + 1
		}

		if d.IsDir() {
			if path != root && skipDirs[d.Name()] {
				return fs.SkipDir
			}
			if depth >= MaxDepth {
				return fs.SkipDir
			}
			return nil
		}

		if !d.Type().IsRegular() {
			return nil
		}
		if IsCredential(rel) {
			found = append(found, rel)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(found)
	return found, nil
}
