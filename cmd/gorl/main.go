// Command gorl trains an actor-critic agent from a JSON configuration
// manifest.
package main

import (
	"encoding/json"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	// registers the actor_critic agent type
	_ "github.com/samuelfneumann/gorl/agent/actorcritic"
	"github.com/samuelfneumann/gorl/engine"
	"github.com/samuelfneumann/gorl/environment/classiccontrol/cartpole"
	"github.com/samuelfneumann/gorl/tracker"
)

var (
	configPath  string
	episodes    int
	seed        uint64
	stepLimit   int
	returnsPath string
	debug       bool
)

var rootCmd = &cobra.Command{
	Use:   "gorl",
	Short: "On-policy actor-critic reinforcement learning",
}

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Train an agent on cartpole from a configuration manifest",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := newLogger()

		manifest, err := os.ReadFile(configPath)
		if err != nil {
			return err
		}

		// The environment discounts with the same factor the agent
		// uses for its advantage estimates
		var shared struct {
			Discount float64 `json:"discount"`
		}
		if err := json.Unmarshal(manifest, &shared); err != nil {
			return err
		}

		env, _ := cartpole.NewDefault(seed, shared.Discount, stepLimit)

		trackers := []tracker.Tracker{}
		if returnsPath != "" {
			trackers = append(trackers, tracker.NewReturn(returnsPath))
		}

		e, err := engine.NewFromJSON(manifest, env, seed, logger,
			trackers...)
		if err != nil {
			return err
		}

		logger.Info().
			Str("config", configPath).
			Int("episodes", episodes).
			Uint64("seed", seed).
			Msg("starting training run")

		if _, err := e.Run(episodes); err != nil {
			return err
		}
		return e.Save()
	},
}

func newLogger() zerolog.Logger {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	writer := zerolog.ConsoleWriter{Out: os.Stderr,
		TimeFormat: time.RFC3339}
	return zerolog.New(writer).Level(level).With().Timestamp().Logger()
}

func init() {
	trainCmd.Flags().StringVarP(&configPath, "config", "c", "",
		"path to the JSON configuration manifest")
	trainCmd.MarkFlagRequired("config")
	trainCmd.Flags().IntVarP(&episodes, "episodes", "e", 500,
		"number of episodes to train for")
	trainCmd.Flags().Uint64Var(&seed, "seed", 0,
		"random seed for the environment and agent")
	trainCmd.Flags().IntVar(&stepLimit, "step-limit", 500,
		"maximum steps per episode before cutoff")
	trainCmd.Flags().StringVarP(&returnsPath, "out", "o", "",
		"file to save episodic returns to")
	trainCmd.Flags().BoolVar(&debug, "debug", false,
		"enable debug logging")

	rootCmd.AddCommand(trainCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
