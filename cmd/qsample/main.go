package main

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/theapemachine/errnie"
	"github.com/theapemachine/qureg"
)

var (
	configPath  string
	width       int
	initial     uint64
	shots       int
	workers     int
	seed        uint64
	preparation string
	showMetrics bool
)

var preparations = map[string]func(width int, init uint64) qureg.Preparation{
	"walsh": func(width int, init uint64) qureg.Preparation {
		return func(sim *qureg.Simulator) (*qureg.Register, error) {
			reg, err := sim.NewRegister(width, init)
			if err != nil {
				return nil, err
			}

			if err := reg.Walsh(width); err != nil {
				_ = reg.Destroy()
				return nil, err
			}

			return reg, nil
		}
	},
	"qft": func(width int, init uint64) qureg.Preparation {
		return func(sim *qureg.Simulator) (*qureg.Register, error) {
			reg, err := sim.NewRegister(width, init)
			if err != nil {
				return nil, err
			}

			if err := reg.QFT(width); err != nil {
				_ = reg.Destroy()
				return nil, err
			}

			return reg, nil
		}
	},
	"ghz": func(width int, init uint64) qureg.Preparation {
		return func(sim *qureg.Simulator) (*qureg.Register, error) {
			reg, err := sim.NewRegister(width, init)
			if err != nil {
				return nil, err
			}

			if err := reg.Hadamard(0); err != nil {
				_ = reg.Destroy()
				return nil, err
			}

			for target := 1; target < width; target++ {
				if err := reg.CNOT(target-1, target); err != nil {
					_ = reg.Destroy()
					return nil, err
				}
			}

			return reg, nil
		}
	},
}

var rootCmd = &cobra.Command{
	Use:   "qsample",
	Short: "Sample measurement outcomes from a simulated quantum register",
	Long: `qsample prepares a register with one of the built-in circuits, measures it
many times on a pool of workers and prints the histogram of outcomes.

Example:
  qsample --prep qft --width 4 --init 3 --shots 4096 --seed 7
`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		build, ok := preparations[preparation]
		if !ok {
			return errors.Errorf("unknown preparation %q, expected one of %v", preparation, preparationNames())
		}

		config, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		sim := qureg.NewSimulator(config)
		pool := qureg.NewShotPool(cmd.Context(), sim)
		defer pool.Close()

		errnie.Info("qsample - %s on %d qubits, %d shots", preparation, width, shots)

		histogram, err := pool.Run(build(width, initial), shots)
		if err != nil {
			return err
		}

		fmt.Print(histogram)

		if showMetrics {
			exported := sim.Metrics().ExportMetrics()
			keys := make([]string, 0, len(exported))
			for key := range exported {
				keys = append(keys, key)
			}
			sort.Strings(keys)

			for _, key := range keys {
				fmt.Printf("%s: %v\n", key, exported[key])
			}
		}

		return nil
	},
}

/*
loadConfig layers the YAML file, the QUREG_* environment (including a .env
file) and explicitly set flags, in that order.
*/
func loadConfig(cmd *cobra.Command) (*qureg.Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		errnie.Warn("qsample - ignoring .env: %v", err)
	}

	config := qureg.NewConfig()
	if configPath != "" {
		loaded, err := qureg.LoadConfig(configPath)
		if err != nil {
			return nil, err
		}
		config = loaded
	}

	if err := config.FromEnv(); err != nil {
		return nil, err
	}

	if cmd.Flags().Changed("workers") {
		config.Workers = workers
	}

	if cmd.Flags().Changed("seed") {
		config.Seed = seed
	}

	return config, config.Validate()
}

func preparationNames() []string {
	names := make([]string, 0, len(preparations))
	for name := range preparations {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

func init() {
	rootCmd.Flags().StringVar(&configPath, "config", "", "YAML configuration file")
	rootCmd.Flags().IntVar(&width, "width", 3, "register width in qubits")
	rootCmd.Flags().Uint64Var(&initial, "init", 0, "initial basis state")
	rootCmd.Flags().IntVar(&shots, "shots", 1024, "number of shots")
	rootCmd.Flags().IntVar(&workers, "workers", 0, "shot workers, overrides the configuration")
	rootCmd.Flags().Uint64Var(&seed, "seed", 0, "random seed, overrides the configuration")
	rootCmd.Flags().StringVar(&preparation, "prep", "walsh", "preparation: walsh, qft or ghz")
	rootCmd.Flags().BoolVar(&showMetrics, "metrics", false, "print simulator metrics after the histogram")
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
