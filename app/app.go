// Package app loads the application configuration: backend base URL, auth
// token source, debounce interval and table page size.
package app

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/samber/lo"
	"github.com/samber/mo"
	"github.com/spf13/viper"
)

const (
	cfgName     = "application"
	testCfgName = "application_test"

	keyBaseURL  = "backend.base-url"
	keyToken    = "backend.token"
	keyDebounce = "ui.debounce"
	keyPageSize = "ui.page-size"
)

var (
	cfg  *viper.Viper
	once sync.Once
)

// Config loads the application configuration once per process.
//
// Rules:
//  1. Under `go test`, application_test.yml is preferred.
//  2. Otherwise application.yml.
//  3. Search paths: the module root (nearest parent with go.mod), its
//     ./config, the working directory, and its ./config.
func Config() mo.Result[*viper.Viper] {
	once.Do(func() {
		cfg, _ = loadViper()
	})
	return lo.If(cfg == nil, mo.Err[*viper.Viper](fmt.Errorf("can not find %s.yml", cfgName))).Else(mo.Ok(cfg))
}

// BaseURL returns the configured backend base URL.
func BaseURL() string {
	return stringKey(keyBaseURL, "http://localhost:8080/api")
}

// Token returns the stored JWT, preferring the environment over the file.
func Token() string {
	if tok := os.Getenv("METAFORM_TOKEN"); tok != "" {
		return tok
	}
	return stringKey(keyToken, "")
}

// Debounce returns the search-as-you-type delay.
func Debounce() time.Duration {
	r := Config()
	if r.IsError() {
		return 300 * time.Millisecond
	}
	if d := r.MustGet().GetDuration(keyDebounce); d > 0 {
		return d
	}
	return 300 * time.Millisecond
}

// PageSize returns the default table page size.
func PageSize() int {
	r := Config()
	if r.IsError() {
		return 20
	}
	if s := r.MustGet().GetInt(keyPageSize); s > 0 {
		return s
	}
	return 20
}

func stringKey(key, fallback string) string {
	r := Config()
	if r.IsError() {
		return fallback
	}
	if v := r.MustGet().GetString(key); v != "" {
		return v
	}
	return fallback
}

func loadViper() (*viper.Viper, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	addDefaultConfigPaths(v)

	name := cfgName
	if isTestProcess() {
		name = testCfgName
	}
	v.SetConfigName(strings.TrimSuffix(name, filepath.Ext(name)))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			// Missing config is not an error; every key has a default.
			return v, nil
		}
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return v, nil
}

// addDefaultConfigPaths registers a stable set of search paths. Viper
// resolves relative paths against the current working directory, which
// varies between IDE runs, `go test` in package dirs and deployed binaries;
// anchoring on the module root keeps dev-time discovery stable while the
// CWD paths preserve runtime flexibility.
func addDefaultConfigPaths(v *viper.Viper) {
	cwd, err := os.Getwd()
	if err != nil {
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		return
	}
	if root, ok := findProjectRoot(cwd); ok {
		v.AddConfigPath(root)
		v.AddConfigPath(filepath.Join(root, "config"))
	}
	v.AddConfigPath(cwd)
	v.AddConfigPath(filepath.Join(cwd, "config"))
}

// findProjectRoot walks upward from start until it finds a directory
// containing go.mod. The existence check alone is sufficient; the file is
// never parsed.
func findProjectRoot(start string) (string, bool) {
	dir := start
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}

// isTestProcess detects a `go test` run by the -test. flags the test binary
// receives.
func isTestProcess() bool {
	for _, a := range os.Args {
		if strings.HasPrefix(a, "-test.") {
			return true
		}
	}
	return false
}
