// Command authdetect runs the detection flows against a detection service
// and prints the results on the terminal.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/Bahjat/auth-insight-tool/internal/controller"
	"github.com/Bahjat/auth-insight-tool/internal/detectclient"
	"github.com/Bahjat/auth-insight-tool/internal/expand"
	"github.com/Bahjat/auth-insight-tool/internal/platform/config"
	"github.com/Bahjat/auth-insight-tool/internal/platform/logger"
	"github.com/Bahjat/auth-insight-tool/internal/present"
	"github.com/Bahjat/auth-insight-tool/internal/render"
	"github.com/Bahjat/auth-insight-tool/internal/ui"
)

// expandAll reports every block as expanded.
type expandAll struct{}

func (expandAll) IsExpanded(expand.Key) bool { return true }

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		return 1
	}

	target := flag.String("url", "", "URL to check for a login form")
	predefined := flag.Bool("predefined", false, "check the service's predefined websites")
	service := flag.String("service", cfg.ServiceURL, "detection service base URL")
	expandBlocks := flag.Bool("expand", false, "print long content blocks in full")
	threshold := flag.Int("threshold", cfg.ContentThreshold, "characters above which a block is clipped")
	noColor := flag.Bool("no-color", false, "disable ANSI colors")
	flag.Parse()

	if *target == "" && !*predefined {
		flag.Usage()
		return 2
	}

	log := logger.NewWriter(os.Stderr, cfg.LogLevel)

	client, err := detectclient.New(*service, cfg.RequestTimeout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ctrl := controller.New(client, log)
	printer := ui.NewPrinter(os.Stdout, !*noColor && isTerminal(os.Stdout))

	var expander render.Expander = expand.NewRegistry()
	if *expandBlocks {
		expander = expandAll{}
	}
	presenter := present.New(render.New(*threshold, expander))

	// The two flows are independent and run side by side.
	var g errgroup.Group
	var singleErr, batchErr error
	if *target != "" {
		g.Go(func() error {
			singleErr = ctrl.SubmitSingle(ctx, *target)
			return nil
		})
	}
	if *predefined {
		g.Go(func() error {
			batchErr = ctrl.SubmitBatch(ctx)
			return nil
		})
	}
	_ = g.Wait()

	state := ctrl.Snapshot()
	code := 0

	if *target != "" {
		switch {
		case errors.Is(singleErr, controller.ErrEmptyURL):
			printer.Notice("Please enter a URL")
			code = 2
		case state.Single != nil:
			printer.PrintView(presenter.Present(*state.Single, expand.Single()))
			if !state.Single.Success {
				code = 1
			}
		}
	}

	if *predefined {
		if batchErr != nil {
			printer.Notice(state.BatchNotice)
			code = 1
		} else {
			printer.PrintBatch(presenter.PresentBatch(state.Batch))
		}
	}

	return code
}

func isTerminal(f *os.File) bool {
	fi, err := f.Stat()
	return err == nil && fi.Mode()&os.ModeCharDevice != 0
}
