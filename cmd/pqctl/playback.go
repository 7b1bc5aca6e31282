package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"PQAnalyzer/internal/domain/models"
	"PQAnalyzer/internal/usecase"
)

func newPlaybackCommand(ctx *commandContext) *cobra.Command {
	var flags analysisFlags
	var (
		frame   float64
		width   float64
		step    float64
		every   time.Duration
		follow  bool
		frames  int
		jsonOut bool
	)

	cmd := &cobra.Command{
		Use:   "playback <file.csv>",
		Short: "Show the circular playback window over an analyzed CSV file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := flags.params(cmd)
			if err != nil {
				return err
			}
			s, err := readSeries(cmd, args[0])
			if err != nil {
				return err
			}
			if err := ctx.ensureStack(false); err != nil {
				return err
			}
			an, err := ctx.analyzer.Analyze(cmd.Context(), s, params)
			if err != nil {
				return err
			}
			if width <= 0 {
				width = ctx.analyzer.WindowWidth()
			}

			session := usecase.NewPlaybackSession(s, an, width, step)
			session.Seek(frame)

			show := func(v models.PlaybackView) {
				if jsonOut {
					_ = writeJSON(cmd, v)
					return
				}
				printPlaybackView(cmd, v)
			}
			if !follow {
				show(session.View())
				return nil
			}

			if every <= 0 {
				cfg, _ := ctx.ensureConfig()
				every = cfg.Playback.TickInterval
			}
			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			shown := 0
			err = session.Run(runCtx, every, func(v models.PlaybackView) bool {
				show(v)
				shown++
				return frames <= 0 || shown < frames
			})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
	flags.register(cmd)
	cmd.Flags().Float64Var(&frame, "frame", 0, "Window start in seconds")
	cmd.Flags().Float64Var(&width, "width", 0, "Window width in seconds (defaults to config)")
	cmd.Flags().Float64Var(&step, "step", 1, "Seconds the frame advances per tick with --follow")
	cmd.Flags().DurationVar(&every, "every", 0, "Tick interval with --follow (defaults to config)")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep advancing the window until interrupted")
	cmd.Flags().IntVar(&frames, "frames", 0, "Stop after this many views with --follow (0 for no limit)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print views as JSON")
	return cmd
}
