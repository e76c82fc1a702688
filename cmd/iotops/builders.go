package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yaegashi/iotops/adapters/store/inmem"
	"github.com/yaegashi/iotops/adapters/store/rdb"
	"github.com/yaegashi/iotops/config/iotcfg"
	"github.com/yaegashi/iotops/domain/model"
	"github.com/yaegashi/iotops/usecase/deploy"
)

const defaultStateURL = rdb.DefaultURL

// Exit codes by error class.
const (
	exitFailure       = 1
	exitConfigInvalid = 2
	exitRemoteExec    = 3
	exitUpstream      = 4
)

func exitCode(err error) int {
	switch {
	case errors.Is(err, model.ErrConfigInvalid):
		return exitConfigInvalid
	case errors.Is(err, model.ErrRemoteExec):
		return exitRemoteExec
	case errors.Is(err, model.ErrUpstream):
		return exitUpstream
	}
	return exitFailure
}

func flagString(cmd *cobra.Command, name string) string {
	v, _ := cmd.Flags().GetString(name)
	return v
}

// loadConfig reads the document named by --config.
func loadConfig(cmd *cobra.Command) (*iotcfg.ComponentConfig, error) {
	return iotcfg.Load(flagString(cmd, "config"))
}

func backendFlag(cmd *cobra.Command) (model.Backend, error) {
	b, err := model.ParseBackend(flagString(cmd, "backend"))
	if err != nil {
		return "", model.NewConfigError("backend", "%v", err)
	}
	return b, nil
}

// buildRepos opens the state store named by --state-url.
func buildRepos(cmd *cobra.Command) (*deploy.Repos, error) {
	url := flagString(cmd, "state-url")
	if url == "" {
		url = defaultStateURL
	}
	if strings.HasPrefix(url, "memory:") {
		return &deploy.Repos{State: inmem.NewStateRepository(), Run: inmem.NewRunRepository()}, nil
	}
	db, err := rdb.OpenFromURL(url)
	if err != nil {
		return nil, fmt.Errorf("open state store: %w", err)
	}
	if err := rdb.AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("migrate state store: %w", err)
	}
	return &deploy.Repos{State: rdb.NewStateRepository(db), Run: rdb.NewRunRepository(db)}, nil
}

// buildDeployUseCase wires the state store and the real backend appliers.
func buildDeployUseCase(cmd *cobra.Command) (*deploy.UseCase, error) {
	repos, err := buildRepos(cmd)
	if err != nil {
		return nil, err
	}
	return &deploy.UseCase{
		Repos: repos,
		Appliers: &deploy.BackendAppliers{
			Kubeconfig: flagString(cmd, "kubeconfig"),
			UserAgent:  "iotops/" + version,
		},
	}, nil
}
