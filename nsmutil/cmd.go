package nsmutil

import (
	"fmt"
	"os"

	"github.com/lnashier/viper"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/rdsim/nsm/grid"
	"github.com/rdsim/nsm/operator"
)

// Cfg holds the CLI's viper configuration and cobra command tree.
type Cfg struct {
	*viper.Viper

	Root, runCmd *cobra.Command
}

// InitializeConfig builds the command tree: a root command carrying the
// global --config flag and a "run" subcommand, with --seed and
// --runtime flags, that loads a scenario and steps it to completion.
func InitializeConfig() *Cfg {
	cfg := &Cfg{Viper: viper.New()}

	cfg.Viper.SetEnvPrefix("NSM")
	cfg.Viper.AutomaticEnv()

	cfg.Root = &cobra.Command{
		Use:   "nsmrun",
		Short: "Run a stochastic reaction-diffusion simulation.",
		Long: `nsmrun runs a Next Subvolume Method simulation described by a scenario
configuration file. Configuration can be set via a configuration file
(--config), command line flags, or environment variables prefixed with
NSM_.`,
		DisableAutoGenTag: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return setConfig(cfg)
		},
	}
	cfg.Root.PersistentFlags().String("config", "", "path to a scenario configuration file")
	cfg.Viper.BindPFlag("config", cfg.Root.PersistentFlags().Lookup("config"))

	cfg.runCmd = &cobra.Command{
		Use:   "run",
		Short: "Run the simulation described by the scenario configuration.",
		RunE: func(cmd *cobra.Command, args []string) error {
			sc, err := LoadScenarioConfig(cfg.Viper)
			if err != nil {
				return err
			}
			return RunScenario(sc)
		},
		DisableAutoGenTag: true,
	}
	cfg.runCmd.Flags().Int64("seed", 1, "random seed")
	cfg.Viper.BindPFlag("Seed", cfg.runCmd.Flags().Lookup("seed"))
	cfg.runCmd.Flags().Float64("runtime", 0, "total simulation time to advance to")
	cfg.Viper.BindPFlag("RunTime", cfg.runCmd.Flags().Lookup("runtime"))

	cfg.Root.AddCommand(cfg.runCmd)
	return cfg
}

// setConfig finds and reads in the configuration file, if one was
// specified.
func setConfig(cfg *Cfg) error {
	if cfgpath := cfg.GetString("config"); cfgpath != "" {
		cfg.SetConfigFile(cfgpath)
		if err := cfg.ReadInConfig(); err != nil {
			return fmt.Errorf("nsmutil: problem reading configuration file: %v", err)
		}
	}
	return nil
}

// RunScenario builds the operator described by sc, wraps it in a
// one-entry operator.List, and integrates it to RunTime in fixed
// reporting increments, logging progress with structured fields at
// each increment.
func RunScenario(sc *ScenarioConfig) error {
	log := logrus.New()
	if sc.LogFile != "" {
		f, err := openLogFile(sc.LogFile)
		if err != nil {
			return err
		}
		defer f.Close()
		log.Out = f
	}

	op, specs, err := Build(sc)
	if err != nil {
		return err
	}

	ops := operator.List{}
	ops.Add("nsm", op)

	const reportEvery = 0.1
	for op.Time() < sc.RunTime {
		dt := reportEvery
		if op.Time()+dt > sc.RunTime {
			dt = sc.RunTime - op.Time()
		}
		if err := ops.Integrate(dt); err != nil {
			return fmt.Errorf("nsmutil: integrating: %w", err)
		}
		fields := logrus.Fields{"sim_time": op.Time()}
		for name, s := range specs {
			total := 0
			for _, c := range s.CopyNumbers {
				total += c
			}
			fields["species_"+name] = total
		}
		log.WithFields(fields).Info("iteration complete")
	}

	if sc.OutputFile != "" {
		sg, ok := op.Grid().(*grid.StructuredGrid)
		if !ok {
			return fmt.Errorf("nsmutil: writing output: grid is not a StructuredGrid")
		}
		out, err := os.Create(sc.OutputFile)
		if err != nil {
			return fmt.Errorf("nsmutil: creating output file: %w", err)
		}
		defer out.Close()
		if err := WriteOutput(out, sg, specs); err != nil {
			return err
		}
	}
	return nil
}
