package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/odvcencio/hashrarity/pkg/config"
	"github.com/odvcencio/hashrarity/pkg/object"
	"github.com/odvcencio/hashrarity/pkg/rarity"
	"github.com/odvcencio/hashrarity/pkg/repo"
)

type scanOptions struct {
	configPath   string
	commonBits   int
	uncommonBits int
	top          int
	parallelism  int
	all          bool
	json         bool
	verbose      bool
}

func newRootCmd() *cobra.Command {
	var opts scanOptions

	cmd := &cobra.Command{
		Use:   "hashrarity [path...]",
		Short: "Report how rare the object hashes of a git repository are",
		Long: "hashrarity enumerates every loose and packed object in a git repository\n" +
			"and sorts each object's hash into Common, Uncommon or Rare by its number\n" +
			"of leading zero bits.",
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				args = []string{"."}
			}
			return runScan(cmd, opts, args)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.configPath, "config", "", "config file (default: "+config.FileName+" in the work tree, then the user config dir)")
	flags.IntVar(&opts.commonBits, "common-bits", 0, "leading zero bits at which a hash becomes Uncommon")
	flags.IntVar(&opts.uncommonBits, "uncommon-bits", 0, "leading zero bits at which a hash becomes Rare")
	flags.IntVarP(&opts.top, "top", "t", 0, "list the N rarest objects")
	flags.IntVarP(&opts.parallelism, "parallelism", "j", 0, "pack indexes read ahead concurrently (0: one per CPU)")
	flags.BoolVarP(&opts.all, "all", "a", false, "list every object hash with its tier")
	flags.BoolVar(&opts.json, "json", false, "print the report as JSON")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "log debug details to stderr")
	return cmd
}

// resolveConfig loads the config file and applies explicitly set flags.
func resolveConfig(cmd *cobra.Command, opts scanOptions, firstPath string) (config.Config, error) {
	path := opts.configPath
	if path != "" {
		// Only a located file may be absent; a named one must exist.
		if _, err := os.Stat(path); err != nil {
			return config.Config{}, fmt.Errorf("load config %s: %w", path, err)
		}
	} else {
		root := ""
		if r, err := repo.Open(firstPath); err == nil {
			root = r.RootDir
		}
		path = config.Locate(root)
	}
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, err
	}

	flags := cmd.Flags()
	if flags.Changed("common-bits") {
		cfg.CommonBits = opts.commonBits
	}
	if flags.Changed("uncommon-bits") {
		cfg.UncommonBits = opts.uncommonBits
	}
	if flags.Changed("top") {
		cfg.Top = opts.top
	}
	if flags.Changed("parallelism") {
		cfg.Parallelism = opts.parallelism
	}
	if opts.verbose {
		cfg.LogLevel = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func newLogger(w io.Writer, cfg config.Config) *slog.Logger {
	level, _ := cfg.Level()
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func runScan(cmd *cobra.Command, opts scanOptions, paths []string) error {
	cfg, err := resolveConfig(cmd, opts, paths[0])
	if err != nil {
		return err
	}
	logger := newLogger(cmd.ErrOrStderr(), cfg)

	repos := make([]*repo.Repo, 0, len(paths))
	shards := make([]rarity.Shard, 0, len(paths))
	for _, p := range paths {
		r, err := repo.Open(p, object.WithParallelism(cfg.Workers()), object.WithLogger(logger))
		if err != nil {
			return err
		}
		logger.Debug("repository opened", "git_dir", r.GitDir, "object_format", r.Algo)
		repos = append(repos, r)
		shards = append(shards, rarity.Shard{Name: r.RootDir, Seq: r.Store.Enumerate(cmd.Context())})
	}

	out := cmd.OutOrStdout()
	classifyOpts := []rarity.Option{
		rarity.WithThresholds(cfg.Thresholds()),
		rarity.WithTop(cfg.Top),
	}
	var objects []objectRow
	if opts.all {
		var mu sync.Mutex
		classifyOpts = append(classifyOpts, rarity.WithObserver(func(e rarity.Entry) {
			mu.Lock()
			defer mu.Unlock()
			if opts.json {
				objects = append(objects, objectRow{Hash: e.Hash.String(), Zeros: e.Zeros, Tier: e.Tier.String()})
				return
			}
			fmt.Fprintf(out, "%s %-8s %3d\n", e.Hash, e.Tier, e.Zeros)
		}))
	}

	start := time.Now()
	result, scanErr := rarity.ClassifyParallel(cmd.Context(), shards, len(shards), classifyOpts...)
	elapsed := time.Since(start)
	logger.Debug("scan finished", "objects", result.Summary.Total, "elapsed", elapsed)

	rep := report{
		Repositories: repoRoots(repos),
		Thresholds:   cfg.Thresholds(),
		Summary:      result.Summary,
		Rarest:       describeRarest(cmd, repos, result.Rarest, logger),
		Objects:      objects,
		Elapsed:      elapsed,
		Partial:      scanErr != nil,
	}
	if opts.json {
		if err := rep.writeJSON(out); err != nil {
			return err
		}
	} else {
		rep.writeText(out)
	}

	if scanErr != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: summary is partial, enumeration stopped early\n")
		return scanErr
	}
	return nil
}

func repoRoots(repos []*repo.Repo) []string {
	out := make([]string, len(repos))
	for i, r := range repos {
		out[i] = r.RootDir
	}
	return out
}

// describeRarest resolves the kind of each listed object. Lookup failures
// leave the kind blank rather than failing the report.
func describeRarest(cmd *cobra.Command, repos []*repo.Repo, entries []rarity.Entry, logger *slog.Logger) []rarestRow {
	rows := make([]rarestRow, 0, len(entries))
	for _, e := range entries {
		row := rarestRow{Hash: e.Hash.String(), Zeros: e.Zeros, Tier: e.Tier.String()}
		for _, r := range repos {
			if len(e.Hash) != r.Algo.Size() {
				continue
			}
			kind, err := r.Store.Kind(cmd.Context(), e.Hash)
			if err != nil {
				if !errors.Is(err, os.ErrNotExist) {
					logger.Warn("object kind lookup failed", "hash", row.Hash, "err", err)
				}
				continue
			}
			row.Kind = string(kind)
			break
		}
		rows = append(rows, row)
	}
	return rows
}
