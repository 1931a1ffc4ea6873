package main

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"three-truths/internal/config"
)

func newRootCmd() *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("TRUTHS")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "truths",
		Short:         "Three Truths and a Lie game tooling",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := config.LoadDotEnv(".env"); err != nil {
				return err
			}
			return bindFlags(cmd.Flags(), v)
		},
	}

	cmd.PersistentFlags().SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	cmd.AddCommand(newSimulateCmd(v))
	cmd.AddCommand(newMigrateCmd())
	return cmd
}

// bindFlags fills unset flags from TRUTHS_* environment variables.
func bindFlags(fs *pflag.FlagSet, v *viper.Viper) error {
	var bindErr error
	fs.VisitAll(func(flag *pflag.Flag) {
		if bindErr != nil || flag.Changed {
			return
		}
		if v.IsSet(flag.Name) {
			if err := flag.Value.Set(v.GetString(flag.Name)); err != nil {
				bindErr = err
			}
		}
	})
	return bindErr
}
