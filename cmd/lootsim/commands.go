package main

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cory-johannsen/lootweight/internal/game/dice"
	"github.com/cory-johannsen/lootweight/internal/game/effect"
	"github.com/cory-johannsen/lootweight/internal/game/engine"
	"github.com/cory-johannsen/lootweight/internal/game/sampler"
	"github.com/cory-johannsen/lootweight/internal/game/subject"
	"github.com/cory-johannsen/lootweight/internal/game/weight"
)

// errInvalidContent is returned by validate --strict when the load reported issues.
var errInvalidContent = errors.New("content has issues")

func newValidateCommand(opts *rootOptions) *cobra.Command {
	var strict bool
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Load the content directory and report what was skipped",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, report, err := opts.load(dice.NewCryptoSource())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), report.String())
			if strict && !report.OK() {
				return errInvalidContent
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&strict, "strict", false, "fail when any item was skipped")
	return cmd
}

// subjectFlags are shared by the commands that resolve against a subject.
type subjectFlags struct {
	path    string
	effects []string
}

func (f *subjectFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.path, "subject", "", "subject YAML file {id, tags, stats, vars, effects}")
	cmd.Flags().StringSliceVar(&f.effects, "effects", nil, "effect template ids to apply, in order")
}

// resolveInputs loads the subject and assembles its effect against snap.
func (f *subjectFlags) resolveInputs(snap *engine.Snapshot, logger *zap.Logger) (*subject.Context, *effect.Effect, error) {
	subj, fromFile, err := loadSubject(f.path)
	if err != nil {
		return nil, nil, err
	}
	ids := append(append([]string(nil), fromFile...), f.effects...)
	eff, missing := snap.Effects.Assemble(subj, ids...)
	if len(missing) > 0 {
		logger.Warn("unknown effect templates", zap.Strings("ids", missing))
	}
	return subj, eff, nil
}

func newWeightsCommand(opts *rootOptions) *cobra.Command {
	var sf subjectFlags
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "weights",
		Short: "Print the resolved weight map for a subject",
		Long: "Print the resolved weight map for a subject. With content.watch set, keep\n" +
			"running and print the map again each time the content is republished.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			loader := opts.loader(dice.NewCryptoSource())
			snap, _, err := loader.LoadDir(opts.cfg.Content.Dir)
			if err != nil {
				return err
			}
			render := func(snap *engine.Snapshot) error {
				subj, eff, err := sf.resolveInputs(snap, opts.logger)
				if err != nil {
					return err
				}
				return printWeights(cmd.OutOrStdout(), snap.Compute(subj, eff), asJSON)
			}
			if err := render(snap); err != nil {
				return err
			}
			if !opts.cfg.Content.Watch {
				return nil
			}
			return opts.serveContent(cmd.Context(), loader, snap, func(next *engine.Snapshot) {
				if !asJSON {
					fmt.Fprintf(cmd.OutOrStdout(), "# snapshot %d\n", next.Version)
				}
				if err := render(next); err != nil {
					opts.logger.Warn("rendering weights", zap.Error(err))
				}
			})
		},
	}
	sf.register(cmd)
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the map as a JSON object")
	return cmd
}

func printWeights(out io.Writer, w *weight.Map, asJSON bool) error {
	if !asJSON {
		return writeWeights(out, w)
	}
	data, err := w.MarshalJSON()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, string(data))
	return err
}

func writeWeights(out io.Writer, w *weight.Map) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	total := w.Total()
	for _, p := range w.Pairs() {
		share := 0.0
		if total > 0 {
			share = p.Weight / total * 100
		}
		fmt.Fprintf(tw, "%s\t%g\t%.1f%%\n", p.ID, p.Weight, share)
	}
	fmt.Fprintf(tw, "total\t%g\t\n", total)
	return tw.Flush()
}

func newSimulateCommand(opts *rootOptions) *cobra.Command {
	var sf subjectFlags
	var draws int
	var seed int64
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Draw repeatedly and print a histogram of outcomes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if draws < 1 {
				return fmt.Errorf("--draws must be >= 1, got %d", draws)
			}
			s, err := opts.seed(seed)
			if err != nil {
				return err
			}
			src := dice.NewSeededSource(s)
			snap, _, err := opts.load(src)
			if err != nil {
				return err
			}
			subj, eff, err := sf.resolveInputs(snap, opts.logger)
			if err != nil {
				return err
			}
			h, err := simulate(engine.New(snap), subj, eff, sampler.NewLogged(src, opts.logger), draws)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seed %d, %d draws\n", s, draws)
			return h.write(cmd.OutOrStdout())
		},
	}
	sf.register(cmd)
	cmd.Flags().IntVar(&draws, "draws", 1000, "number of draws")
	cmd.Flags().Int64Var(&seed, "seed", 0, "random seed (0 = sampler.seed or random)")
	return cmd
}

// histogram counts outcomes of repeated draws.
type histogram struct {
	draws   int
	none    int
	weights *weight.Map // from the first draw, for expected shares
	order   []string
	counts  map[string]int
}

func simulate(eng *engine.Engine, subj subject.Subject, eff *effect.Effect, d engine.Drawer, draws int) (*histogram, error) {
	h := &histogram{draws: draws, counts: map[string]int{}}
	for i := 0; i < draws; i++ {
		r, err := eng.Resolve(subj, eff, d)
		if err != nil {
			return nil, err
		}
		if h.weights == nil {
			h.weights = r.Weights
		}
		if r.Entry == nil {
			h.none++
			continue
		}
		if _, seen := h.counts[r.Chosen]; !seen {
			h.order = append(h.order, r.Chosen)
		}
		h.counts[r.Chosen]++
	}
	return h, nil
}

func (h *histogram) write(out io.Writer) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	ids := h.weights.Keys()
	for _, id := range h.order {
		if !h.weights.Has(id) {
			ids = append(ids, id)
		}
	}
	total := h.weights.Total()
	for _, id := range ids {
		n := h.counts[id]
		expected := 0.0
		if total > 0 {
			expected = h.weights.GetOrDefault(id, 0) / total * 100
		}
		if n == 0 && expected == 0 {
			continue
		}
		fmt.Fprintf(tw, "%s\t%d\t%.1f%%\t(expected %.1f%%)\n", id, n, float64(n)/float64(h.draws)*100, expected)
	}
	if h.none > 0 {
		fmt.Fprintf(tw, "none\t%d\t%.1f%%\t\n", h.none, float64(h.none)/float64(h.draws)*100)
	}
	return tw.Flush()
}

func newWatchCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Keep the content loaded and republish it whenever a file changes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			seed, err := opts.seed(0)
			if err != nil {
				return err
			}
			loader := opts.loader(dice.NewSeededSource(seed))
			initial, report, err := loader.LoadDir(opts.cfg.Content.Dir)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), report.String())
			return opts.serveContent(cmd.Context(), loader, initial, nil)
		},
	}
}
