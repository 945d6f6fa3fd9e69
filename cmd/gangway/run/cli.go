package run

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/gangwaylabs/gangway/wasi"
)

// (to=)from(,flags)
type mounts struct {
	paths   map[string]string
	rights  map[string]wasi.Rights
	strings []string
}

func (m *mounts) parseOne(s string) error {
	spec, flags, _ := strings.Cut(s, ",")
	if spec == "" {
		return fmt.Errorf("malformed mount '%v': mounts must be of the form (to=)from(,flags)", s)
	}

	to, from := spec, spec
	if t, f, ok := strings.Cut(spec, "="); ok {
		to, from = t, f
	}

	rights := wasi.DirectoryRights
	if flags != "" {
		for _, f := range strings.Split(flags, ",") {
			switch f {
			case "=all":
				rights = wasi.DirectoryRights
			case "=ro":
				rights = wasi.ReadOnlyRights
			default:
				return fmt.Errorf("unknown mount flag '%v'", f)
			}
		}
	}

	if m.paths == nil {
		m.paths = map[string]string{}
		m.rights = map[string]wasi.Rights{}
	}
	m.paths[to] = from
	m.rights[to] = rights
	return nil
}

func (m *mounts) String() string {
	return strings.Join(m.strings, ";")
}

func (m *mounts) Set(s string) error {
	if err := m.parseOne(s); err != nil {
		return err
	}
	m.strings = append(m.strings, s)
	return nil
}

func (m *mounts) Type() string {
	return "mount"
}

// runConfig mirrors the run command's flags for users who prefer a file.
// Flags given on the command line win over the file.
type runConfig struct {
	Args   []string          `yaml:"args"`
	Env    map[string]string `yaml:"env"`
	Mounts map[string]string `yaml:"mounts"`
}

func loadConfig(path string) (*runConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg runConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing %v: %w", path, err)
	}
	return &cfg, nil
}

func Command() *cobra.Command {
	var mount mounts
	var envFlags []string
	var configPath string
	var verbose bool

	command := &cobra.Command{
		Use:   "run [path to module]",
		Short: "Run WebAssembly commands",
		Long:  "Run WebAssembly commands inside a WASI preview 1 environment.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) < 1 {
				return errors.New("expected at least one argument")
			}

			binary, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}

			env := map[string]string{}
			guestArgs := args[1:]
			preopens := mount.paths
			preopenRights := mount.rights

			if configPath != "" {
				cfg, err := loadConfig(configPath)
				if err != nil {
					return err
				}
				for k, v := range cfg.Env {
					env[k] = v
				}
				for to, from := range cfg.Mounts {
					if _, ok := preopens[to]; ok {
						continue
					}
					if preopens == nil {
						preopens = map[string]string{}
						preopenRights = map[string]wasi.Rights{}
					}
					preopens[to] = from
					preopenRights[to] = wasi.DirectoryRights
				}
				if len(guestArgs) == 0 {
					guestArgs = cfg.Args
				}
			}

			for _, v := range envFlags {
				k, val, _ := strings.Cut(v, "=")
				env[k] = val
			}

			logger := zap.NewNop()
			if verbose {
				logger, err = zap.NewDevelopment()
				if err != nil {
					return err
				}
				defer logger.Sync()
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()

			_, err = wasi.Run(ctx, binary, &wasi.Options{
				Args:          append([]string{args[0]}, guestArgs...),
				Env:           env,
				Preopens:      preopens,
				PreopenRights: preopenRights,
				Logger:        logger,
			})
			return err
		},
	}

	command.PersistentFlags().VarP(&mount, "mount", "m", "list of directories to mount in the form (to=)from(,flags)")
	command.PersistentFlags().StringArrayVarP(&envFlags, "env", "e", nil, "environment variables to set in the form KEY=VALUE")
	command.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a YAML run configuration")
	command.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable host call logging")

	return command
}
