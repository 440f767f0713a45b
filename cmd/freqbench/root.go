package main

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

type app struct {
	v   *viper.Viper
	log *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New(), log: zap.NewNop()}

	root := &cobra.Command{
		Use:           "freqbench",
		Short:         "Letter frequency counting on a bounded worker pool",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			_ = a.log.Sync()
		},
	}

	root.PersistentFlags().String("config", "", "YAML config file with flag defaults")
	root.PersistentFlags().BoolP("verbose", "v", false, "Log pool and job events to stderr")

	root.AddCommand(newRunCmd(a), newCountCmd(a))
	return root
}

// init binds every flag of cmd into viper, reads the optional config file and
// builds the logger. Explicit flags win over the file.
func (a *app) init(cmd *cobra.Command) error {
	if err := a.v.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("bind flags: %w", err)
	}

	if path := a.v.GetString("config"); path != "" {
		a.v.SetConfigFile(path)
		if err := a.v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if errors.As(err, &notFound) {
				return fmt.Errorf("config file %s not found", path)
			}
			return fmt.Errorf("read config: %w", err)
		}
	}

	if a.v.GetBool("verbose") {
		l, err := zap.NewDevelopment()
		if err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		a.log = l
	}
	return nil
}

func defaultWorkers() int {
	return min(runtime.NumCPU(), 8)
}

func addWorkersFlag(fs *pflag.FlagSet, name, usage string) {
	fs.IntP(name, "w", defaultWorkers(), usage)
}
