package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/entrhq/autoanswer/pkg/answering"
	"github.com/entrhq/autoanswer/pkg/browser"
	"github.com/entrhq/autoanswer/pkg/config"
	"github.com/entrhq/autoanswer/pkg/extractor"
	"github.com/entrhq/autoanswer/pkg/metrics"
	"github.com/entrhq/autoanswer/pkg/status"
)

func answerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "answer URL",
		Short: "Open URL in a browser and answer questions as they appear",
		Args:  cobra.ExactArgs(1),
		RunE:  runAnswer,
	}
	f := cmd.Flags()
	f.IntP("max-questions", "n", 0, "Stop after this many questions (0 = until interrupted)")
	f.Duration("interval", 3*time.Second, "Pause between questions")
	f.Duration("login-wait", 0, "Time to log in manually before the first question")
	f.String("status-addr", "127.0.0.1:9464", "Status server listen address (empty disables it)")
	f.Bool("headless", false, "Run the browser without a window (overrides the config file)")
	f.Bool("no-submit", false, "Fill answers but never click submit")
	return cmd
}

func runAnswer(cmd *cobra.Command, args []string) error {
	a, err := setup(cmd, "answer")
	if err != nil {
		return err
	}
	defer a.close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	store, err := a.openStore(ctx, m)
	if err != nil {
		return err
	}
	defer store.Close()

	xOpts, orchCfg := answeringOptions(a.cfg.Answering)
	xOpts.Sink = store
	x := extractor.New(xOpts, a.log, m)

	if noSubmit, _ := cmd.Flags().GetBool("no-submit"); noSubmit {
		orchCfg.AutoSubmit = false
	}
	orch := answering.New(store, x, orchCfg, a.log, m)

	b := a.cfg.Browser
	headless := b.Headless
	if cmd.Flags().Changed("headless") {
		headless, _ = cmd.Flags().GetBool("headless")
	}

	mgr := browser.NewManager(a.log)
	if err := mgr.Initialize(); err != nil {
		return err
	}
	defer mgr.Shutdown()

	session, err := mgr.StartSession(ctx, "main", browser.SessionOptions{
		Headless:         headless,
		Viewport:         &browser.Viewport{Width: b.ViewportWidth, Height: b.ViewportHeight},
		Timeout:          b.Timeout,
		ResponsePatterns: b.ResponseURLPatterns,
		MaxHTMLBody:      b.MaxHTMLBody,
	})
	if err != nil {
		return err
	}
	if err := session.Navigate(ctx, args[0]); err != nil {
		return err
	}

	maxQuestions, _ := cmd.Flags().GetInt("max-questions")
	interval, _ := cmd.Flags().GetDuration("interval")
	loginWait, _ := cmd.Flags().GetDuration("login-wait")
	statusAddr, _ := cmd.Flags().GetString("status-addr")

	g, gctx := errgroup.WithContext(ctx)
	loopCtx, loopDone := context.WithCancel(gctx)

	if statusAddr != "" {
		srv := status.New(orch, m, a.log)
		g.Go(func() error {
			return srv.ListenAndServe(loopCtx, statusAddr)
		})
		fmt.Fprintln(cmd.OutOrStdout(), row("status", "http://"+statusAddr+"/stats"))
	}

	g.Go(func() error {
		defer loopDone()
		if !sleep(loopCtx, loginWait) {
			return nil
		}
		for n := 0; maxQuestions == 0 || n < maxQuestions; n++ {
			res := orch.Process(loopCtx, session)
			fmt.Fprintln(cmd.OutOrStdout(), formatResult(n+1, res))
			if loopCtx.Err() != nil || !sleep(loopCtx, interval) {
				return nil
			}
		}
		return nil
	})

	runErr := g.Wait()

	closeCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := orch.Close(closeCtx); err != nil {
		a.log.Warnf("close: %v", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), renderReport(orch.Report()))
	return runErr
}

// sleep waits for d and reports whether ctx is still live.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func formatResult(n int, res answering.Result) string {
	head := fmt.Sprintf("#%-3d %-16s", n, res.Question.Type)
	if !res.Success() {
		return head + errStyle.Render(fmt.Sprintf("failed (%s)", res.Reason()))
	}

	style := okStyle
	if res.Strategy == answering.StrategyFallback {
		style = warnStyle
	}
	answer := res.Answer
	if r := []rune(answer); len(r) > 60 {
		answer = string(r[:60]) + "..."
	}
	return head + style.Render(fmt.Sprintf("%-10s", res.Strategy)) + " " + answer
}

func renderReport(r answering.Report) string {
	st := r.Strategy
	lines := []string{
		titleStyle.Render("Session summary"),
		row("answered from cache", st.Answered[answering.StrategyCached]),
		row("answered by extraction", st.Answered[answering.StrategyExtracted]),
		row("answered by fallback", st.Answered[answering.StrategyFallback]),
		row("failed", st.Failed),
		row("cache hit rate", fmt.Sprintf("%.1f%%", r.CacheHitRate*100)),
		row("extraction success", fmt.Sprintf("%.1f%%", r.ExtractionSuccessRate*100)),
		row("answers verified", st.AnswersVerified),
		row("cached entries", r.Cache.TotalEntries),
	}
	return boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

// answeringOptions maps the answering section onto extractor and
// orchestrator settings.
func answeringOptions(ans *config.AnsweringSection) (extractor.Options, answering.Config) {
	xOpts := extractor.Options{
		MaxRetries:        ans.MaxExtractionRetries,
		InitialConfidence: ans.InitialConfidence,
		ResponseWait:      ans.ResponseWait,
	}

	cfg := answering.DefaultConfig()
	cfg.MaxExtractionRetries = ans.MaxExtractionRetries
	cfg.InitialConfidence = ans.InitialConfidence
	cfg.AutoVerify = ans.AutoVerify
	cfg.AutoSubmit = ans.AutoSubmit
	cfg.FeedbackWait = ans.FeedbackWait
	return xOpts, cfg
}
