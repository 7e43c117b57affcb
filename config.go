package main

import (
	"encoding/json"
	"os"
	"os/user"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"github.com/tidwall/jsonc"
)

type fsConfig struct {
	Username      string `json:"username"`
	Token         string `json:"token"`
	APIURL        string `json:"api_url"`
	ListenAddress string `json:"listen_address"`
	FetchTimeout  string `json:"fetch_timeout"`

	fetchTimeout time.Duration
}

func defaultConfigPath() string {
	cuser, err := user.Current()
	if err != nil {
		return ""
	}
	return filepath.Join(cuser.HomeDir, "lib", "gistfs", "config")
}

// loadConfig reads the configuration at path. A missing file is not an
// error, all keys have usable defaults.
func loadConfig(path string) (*fsConfig, error) {
	var config fsConfig
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, errors.WithStack(err)
		}
		if err == nil {
			if err := json.Unmarshal(jsonc.ToJSON(b), &config); err != nil {
				return nil, errors.Wrapf(err, "%s", path)
			}
		}
	}
	if config.APIURL == "" {
		config.APIURL = defaultAPIURL
	}
	if config.Token == "" {
		config.Token = os.Getenv("GITHUB_TOKEN")
	}
	if config.FetchTimeout != "" {
		d, err := time.ParseDuration(config.FetchTimeout)
		if err != nil {
			return nil, errors.Wrapf(err, "%s: fetch_timeout", path)
		}
		if d < 0 {
			return nil, errors.Errorf("%s: fetch_timeout: negative duration %v", path, d)
		}
		config.fetchTimeout = d
	}
	return &config, nil
}
