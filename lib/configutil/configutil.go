package configutil

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"dario.cat/mergo"
	"github.com/joho/godotenv"
	"github.com/titanous/json5"
)

func splitExt(f string) (string, string) {
	for i := len(f) - 1; i >= 0; i-- {
		if f[i] == '.' {
			return f[0:i], f[i+1:]
		}
	}
	return f, ""
}

// reads a configuration file, `name` should come with a file extension,
// it will automatically be lopped off to produce the other extensions.
// this function will merge the following files, where higher number is more prioritized.
// 1. <name>.<ext>
// 2. <name>.local.<ext>
func ReadConfig[T any](name string) (T, error) {
	var out T
	allNotFound := true

	dirname := filepath.Dir(name)
	basename := filepath.Base(name)
	prefixname, ext := splitExt(basename)

	defaultFile, err := os.ReadFile(name)
	if err != nil && !os.IsNotExist(err) {
		return out, err
	}
	if len(defaultFile) > 0 {
		err = json5.Unmarshal(defaultFile, &out)
		if err != nil {
			return out, err
		}
		allNotFound = false
	}

	localFilepath := filepath.Join(
		dirname,
		fmt.Sprintf("%s.local.%s", prefixname, ext),
	)
	localFile, err := os.ReadFile(localFilepath)
	if err != nil && !os.IsNotExist(err) {
		return out, err
	}
	if len(localFile) > 0 {
		var override T
		err = json5.Unmarshal(localFile, &override)
		if err != nil {
			return out, err
		}
		err = mergo.Merge(&out, override, mergo.WithOverride)
		if err != nil {
			return out, err
		}
		slog.Info("merging config with local overrides", "local", localFilepath)
		allNotFound = false
	}

	if allNotFound {
		return out, os.ErrNotExist
	}

	return out, nil
}

// ReadConfig but it recursively goes up the filesystem until the root
// to find a configuration file matching the name.
func ReadRecursively[T any](name string) (T, error) {
	var defaultOut T
	path, err := FindRecursively(name)
	if err != nil {
		return defaultOut, err
	}
	return ReadConfig[T](path)
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// FindRecursively goes up the filesystem from the cwd until the root and
// returns the first path where a file named `name` or its local override
// exists.
func FindRecursively(name string) (string, error) {
	root, err := filepath.Abs("/")
	if err != nil {
		return "", err
	}
	current, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for current != root {
		candidate := filepath.Join(current, name)
		prefixname, ext := splitExt(candidate)
		if exists(candidate) || exists(fmt.Sprintf("%s.local.%s", prefixname, ext)) {
			return candidate, nil
		}
		current = filepath.Join(current, "..")
	}

	return "", os.ErrNotExist
}

// LoadDotenv loads the nearest .env file into the process environment
// without overriding variables that are already set. A missing file is not
// an error.
func LoadDotenv() error {
	path, err := FindRecursively(".env")
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	if !exists(path) {
		return nil
	}
	return godotenv.Load(path)
}
