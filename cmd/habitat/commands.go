package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/zeusync/habitat/internal/core/observability/log"
	"github.com/zeusync/habitat/internal/core/sim"
	"github.com/zeusync/habitat/internal/injector"
	"github.com/zeusync/habitat/internal/server"
)

type runOptions struct {
	configPath string
	treePath   string
	ticks      uint64
	seed       int64
	addr       string
	maxClients int
	statsPath  string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "habitat",
		Short: "Behaviour-tree animals foraging on a grid",
		Long: `habitat runs a population of animals driven by behaviour trees over a
square, hex or triangle grid, with optional live observation over websocket.`,
		SilenceUsage: true,
	}
	root.AddCommand(newRunCmd(), newValidateCmd())
	return root
}

func newRunCmd() *cobra.Command {
	opts := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a scenario until interrupted, extinct or out of ticks",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runSimulation(ctx, cmd, opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "scenario YAML overlaid on the built-in defaults")
	flags.StringVar(&opts.treePath, "tree", "", "behaviour tree YAML replacing the built-in animal tree")
	flags.Uint64Var(&opts.ticks, "ticks", 0, "stop after this many ticks (0 keeps the scenario value)")
	flags.Int64Var(&opts.seed, "seed", 0, "random seed (0 keeps the scenario value)")
	flags.StringVar(&opts.addr, "addr", "", "serve /ws, /snapshot, /world and /metrics on this address")
	flags.IntVar(&opts.maxClients, "max-clients", 32, "maximum concurrent websocket observers")
	flags.StringVar(&opts.statsPath, "stats", "", "write per-tick population stats as CSV to this file")
	flags.StringVar(&opts.logLevel, "log-level", "info", "debug, info, warn or error")
	return cmd
}

func loadScenario(configPath, treePath string) (*sim.Config, error) {
	cfg, err := sim.Load(configPath)
	if err != nil {
		return nil, err
	}
	if treePath != "" {
		cfg.Tree = treePath
	}
	return cfg, nil
}

func runSimulation(ctx context.Context, cmd *cobra.Command, opts *runOptions) error {
	cfg, err := loadScenario(opts.configPath, opts.treePath)
	if err != nil {
		return err
	}
	if opts.ticks > 0 {
		cfg.Sim.MaxTicks = opts.ticks
	}
	if opts.seed != 0 {
		cfg.Sim.Seed = opts.seed
	}

	var stats *sim.StatsWriter
	if opts.statsPath != "" {
		f, err := os.Create(opts.statsPath)
		if err != nil {
			return fmt.Errorf("creating stats file: %w", err)
		}
		defer f.Close()
		stats = sim.NewStatsWriter(f)
	}

	app, err := injector.InitializeApp(cfg, server.Config{
		Addr:       opts.addr,
		MaxClients: opts.maxClients,
	}, log.ParseLevel(opts.logLevel), stats)
	if err != nil {
		return err
	}
	if err := app.Run(ctx); err != nil {
		return err
	}

	snap := app.Simulation.Snapshot()
	fmt.Fprintf(cmd.OutOrStdout(), "ticks=%d alive=%d deaths=%d\n", snap.Tick, len(snap.Animals), snap.Deaths)
	return nil
}

func newValidateCmd() *cobra.Command {
	var configPath, treePath string
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check a scenario and its behaviour tree without running them",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadScenario(configPath, treePath)
			if err != nil {
				return err
			}
			if _, err := cfg.World.BuildGrid(); err != nil {
				return err
			}
			tree, err := sim.LoadTree(cfg.Tree)
			if err != nil {
				return err
			}
			if _, err := tree.Build(sim.NewBehaviourRegistry(cfg.Vitals, nil)); err != nil {
				return fmt.Errorf("building tree: %w", err)
			}

			width, height := cfg.World.Size()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "world: %dx%d %s\n", width, height, cfg.World.Topology)
			for _, sp := range cfg.Species {
				fmt.Fprintf(out, "species: %s (%s) x%d\n", sp.Name, sp.Diet, sp.Count)
			}
			fmt.Fprintf(out, "tree: root %q, %d nodes\n", tree.Root, len(tree.Nodes))
			return nil
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "scenario YAML overlaid on the built-in defaults")
	cmd.Flags().StringVar(&treePath, "tree", "", "behaviour tree YAML replacing the built-in animal tree")
	return cmd
}
