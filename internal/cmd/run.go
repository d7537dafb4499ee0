package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/voxterm/voxterm/internal/activitylog"
	"github.com/voxterm/voxterm/internal/audio"
	"github.com/voxterm/voxterm/internal/backend"
	"github.com/voxterm/voxterm/internal/config"
	"github.com/voxterm/voxterm/internal/eventloop"
	"github.com/voxterm/voxterm/internal/overlay"
	"github.com/voxterm/voxterm/internal/prompttracker"
	"github.com/voxterm/voxterm/internal/ptysession"
	"github.com/voxterm/voxterm/internal/stt"
	"github.com/voxterm/voxterm/internal/voiceworker"
	"github.com/voxterm/voxterm/internal/voxmodel"
)

// runSession wires every package into one running instance: it puts
// the controlling terminal into raw mode, forks the wrapped CLI under
// a pty, starts the overlay writer and voice worker, and blocks in the
// event loop until the CLI exits or the operator asks to quit.
func runSession(be backend.Backend, cfg config.VoicePipelineConfig, flags Flags, extraArgs []string) error {
	sendMode := voxmodel.SendModeAuto
	if flags.SendMode == "insert" {
		sendMode = voxmodel.SendModeInsert
	}

	logPath, logEnabled := resolveLogPath(flags)
	logger := activitylog.New(logEnabled, logPath, "voxterm", uuid.NewString())
	defer logger.Close()

	stdinFD := int(os.Stdin.Fd())
	oldState, err := term.MakeRaw(stdinFD)
	if err != nil {
		return fmt.Errorf("put terminal in raw mode: %w", err)
	}
	defer term.Restore(stdinFD, oldState)

	cols, rows, err := term.GetSize(stdinFD)
	if err != nil {
		cols, rows = 80, 24
	}

	args := be.Args
	if be.Name == "codex" && len(extraArgs) > 0 {
		args, err = backend.CombineCodexArgs(be, extraArgs)
		if err != nil {
			return err
		}
	} else if len(extraArgs) > 0 {
		args = append(append([]string(nil), be.Args...), extraArgs...)
	}

	colorCap := config.ResolveColorCapability(flags.NoColor)
	hints := config.DetectTerminalColorHints(os.Stdout)
	fg, bg := hints.OscFg, hints.OscBg
	if fg == "" || bg == "" {
		fbFg, fbBg := config.FallbackOSCPalette(hints.ColorFGBG)
		if fg == "" {
			fg = fbFg
		}
		if bg == "" {
			bg = fbBg
		}
	}

	ptyRows := rows - overlay.ReservedBannerRows()
	if ptyRows < 1 {
		ptyRows = 1
	}
	session, err := ptysession.Start(be.Command, args, ptyRows, cols, ptysession.WithColors(fg, bg))
	if err != nil {
		return fmt.Errorf("start %s: %w", be.Command, err)
	}
	defer session.Close()

	recorder, err := audio.NewRecorder()
	if err != nil {
		logger.BackendError("audio", err.Error())
		return fmt.Errorf("init audio capture: %w", err)
	}
	defer recorder.Close()

	var transcriber stt.Transcriber
	if wt, err := stt.NewWhisper(cfg.WhisperModelPath, cfg.SampleRate); err != nil {
		logger.BackendError("stt", err.Error())
	} else {
		transcriber = wt
		defer wt.Close()
	}

	worker, err := voiceworker.New(cfg, recorder, transcriber)
	if err != nil {
		return fmt.Errorf("init voice worker: %w", err)
	}

	writer := overlay.NewWriter(os.Stdout, rows, cols)
	go writer.Run()
	defer writer.Send(overlay.Msg{Kind: overlay.MsgShutdown})
	writer.Send(overlay.Msg{Kind: overlay.MsgSetTheme, NoColor: colorCap == config.ColorNone})

	tracker := prompttracker.New(be.PromptPattern, be.PromptPattern == nil)

	loop := eventloop.New(session, writer, worker, tracker, logger, cfg, be, sendMode, flags.AutoVoice)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigterm := make(chan os.Signal, 1)
	signal.Notify(sigterm, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		<-sigterm
		cancel()
	}()

	return loop.Run(ctx, os.Stdin, stdinFD)
}

// newListDevicesCmd lists capture devices the audio backend can see,
// used to pick a value for --input-device.
func newListDevicesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list-devices",
		Short: "List available audio capture devices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			recorder, err := audio.NewRecorder()
			if err != nil {
				return fmt.Errorf("init audio context: %w", err)
			}
			defer recorder.Close()

			devices, err := recorder.ListDevices()
			if err != nil {
				return err
			}
			for _, d := range devices {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", d.ID, d.Name)
			}
			return nil
		},
	}
}
