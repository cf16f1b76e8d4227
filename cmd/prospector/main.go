package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/FranksOps/prospector/internal/config"
)

// configKeyAnnotation marks a flag as an override for a config key.
const configKeyAnnotation = "prospector_config_key"

// bindKey ties flag name in fs to config key.
func bindKey(fs *pflag.FlagSet, name, key string) {
	if err := fs.SetAnnotation(name, configKeyAnnotation, []string{key}); err != nil {
		panic(err)
	}
}

// app carries state shared by all subcommands once config is loaded.
type app struct {
	configFile string
	cfg        *config.Config
	logger     *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "prospector",
		Short: "Find guest-post prospects for a niche",
		Long: "Searches for sites that accept guest posts in a niche, keeps one result per domain, " +
			"and visits each page to collect contact emails and contact-page links.",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.configFile, "config", "", "config file (default ./prospector.yaml)")
	pf.String("log-level", "", "log level: debug, info, warn, error")
	pf.String("log-format", "", "log format: text or json")
	bindKey(pf, "log-level", "log.level")
	bindKey(pf, "log-format", "log.format")

	root.AddCommand(
		newRunCmd(a),
		newQueriesCmd(a),
		newHistoryCmd(a),
		newReportCmd(a),
	)
	return root
}

func (a *app) init(cmd *cobra.Command) error {
	v, err := config.NewViper(a.configFile)
	if err != nil {
		return err
	}
	if err := bindFlags(v, cmd.Flags()); err != nil {
		return err
	}

	cfg, err := config.Load(v)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	a.cfg = cfg

	logger, err := config.NewLogger(cfg.Log, cmd.ErrOrStderr())
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	a.logger = logger
	slog.SetDefault(logger)
	return nil
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	var err error
	flags.VisitAll(func(f *pflag.Flag) {
		keys := f.Annotations[configKeyAnnotation]
		if len(keys) != 1 || err != nil {
			return
		}
		if bindErr := v.BindPFlag(keys[0], f); bindErr != nil {
			err = fmt.Errorf("bind flag %s: %w", f.Name, bindErr)
		}
	})
	return err
}

func execute(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	return root.ExecuteContext(ctx)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := execute(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		stop()
		os.Exit(1)
	}
}
