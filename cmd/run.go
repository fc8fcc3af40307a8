package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/chrisuehlinger/vibedom/dom"
	"github.com/chrisuehlinger/vibedom/gc"
	"github.com/chrisuehlinger/vibedom/html"
	"github.com/chrisuehlinger/vibedom/js"
	"github.com/chrisuehlinger/vibedom/network"
)

type runOptions struct {
	page      string
	noWait    bool
	maxEvents int
	dump      bool
}

func newRunCommand(a *app) *cobra.Command {
	var opts runOptions
	cmd := &cobra.Command{
		Use:   "run <script>",
		Short: "Execute a script against a fresh document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := a.runScript(cmd, args[0], opts)
			return err
		},
	}
	addRunFlags(cmd, &opts)
	cmd.Flags().BoolVar(&opts.dump, "dump", false, "print the document's HTML once the script has finished")
	return cmd
}

func newStatsCommand(a *app) *cobra.Command {
	var opts runOptions
	cmd := &cobra.Command{
		Use:   "stats <script>",
		Short: "Execute a script and print heap statistics as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			stats, err := a.runScript(cmd, args[0], opts)
			if err != nil && !errors.Is(err, js.ErrContextTerminated) {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if encErr := enc.Encode(stats); encErr != nil {
				return errors.Wrap(encErr, "encode stats")
			}
			return err
		},
	}
	addRunFlags(cmd, &opts)
	return cmd
}

func addRunFlags(cmd *cobra.Command, opts *runOptions) {
	cmd.Flags().StringVar(&opts.page, "html", "", "HTML file or URL parsed into the document before the script runs")
	cmd.Flags().BoolVar(&opts.noWait, "no-wait", false, "do not wait for pending timers")
	cmd.Flags().IntVar(&opts.maxEvents, "max-events", 10000, "maximum event loop iterations")
}

// runScript runs one script in a new runtime and returns the heap statistics
// after a final collection.
func (a *app) runScript(cmd *cobra.Command, path string, opts runOptions) (gc.Stats, error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	client, err := network.NewClient(a.cfg.Network)
	if err != nil {
		return gc.Stats{}, err
	}
	defer client.CloseIdleConnections()
	loader := network.NewLoader(client, a.logger)

	script, err := loader.Load(ctx, path)
	if err != nil {
		return gc.Stats{}, errors.Wrap(err, "load script")
	}

	heapCfg := a.cfg.Heap
	if n, _ := cmd.Flags().GetInt("max-slots"); n > 0 {
		heapCfg.MaxSlots = n
	}
	heap := gc.NewHeap(heapCfg, a.logger)
	rt := js.NewRuntime(heap, a.logger)
	defer rt.Close()

	if opts.page != "" {
		if err := loadPage(ctx, rt, loader, opts.page); err != nil {
			return heap.Stats(), err
		}
		rt.SetScriptLoader(func(url string) (string, error) {
			res, err := loader.Load(ctx, url)
			if err != nil {
				return "", err
			}
			return string(res.Content), nil
		})
		for _, err := range rt.ExecuteScripts() {
			a.logger.Warn("page script failed", zap.String("page", opts.page), zap.Error(err))
		}
		if err := rt.Terminated(); err != nil {
			return heap.Stats(), err
		}
	}

	start := time.Now()
	if _, err := rt.ExecuteScript(string(script.Content), script.URL); err != nil {
		return heap.Stats(), err
	}
	if !opts.noWait {
		for i := 0; i < opts.maxEvents && rt.HasPendingWork(); i++ {
			time.Sleep(rt.NextTimer())
			rt.RunEventLoop()
			if rt.Terminated() != nil {
				break
			}
		}
	}
	if err := rt.Terminated(); err != nil {
		return heap.Stats(), err
	}

	if opts.dump {
		doc := rt.Document()
		_, err := fmt.Fprintln(cmd.OutOrStdout(), dom.Serialize(doc.Get()))
		doc.Release()
		if err != nil {
			return heap.Stats(), errors.Wrap(err, "write document")
		}
	}

	heap.Collect()
	stats := heap.Stats()
	a.logger.Info("script finished",
		zap.String("script", path),
		zap.Duration("elapsed", time.Since(start)),
		zap.Int("live", stats.Live),
		zap.Int("collections", stats.Collections),
		zap.Int("errors", len(rt.Errors())))
	return stats, nil
}

func loadPage(ctx context.Context, rt *js.Runtime, loader *network.Loader, location string) error {
	res, err := loader.Load(ctx, location)
	if err != nil {
		return errors.Wrap(err, "load page")
	}
	doc := rt.Document()
	defer doc.Release()
	doc.Get().SetURL(res.URL)
	return html.ParseReader(doc.Get(), bytes.NewReader(res.Content))
}
