package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/readaloud/internal/audio"
	"github.com/dgnsrekt/readaloud/internal/tts"
	"github.com/dgnsrekt/readaloud/internal/tts/engines"
	"github.com/klauspost/compress/zstd"
	"github.com/spf13/cobra"
)

var (
	sayOutput string

	sayCmd = &cobra.Command{
		Use:   "say [TEXT]",
		Short: "Speak a piece of text",
		Long: paragraph(fmt.Sprintf("\n%s text with the configured speech engine. Reads stdin when no text is given. Handy for checking an API key or trying voices.",
			keyword("Speak"))),
		Example: paragraph("readaloud say \"Hello there\"\nreadaloud say -e mock testing\necho hi | readaloud say -o hi.pcm"),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")
			if text == "" {
				b, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("unable to read stdin: %w", err)
				}
				text = string(b)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			return say(ctx, text, cmd.OutOrStdout())
		},
	}
)

func say(ctx context.Context, text string, stdout io.Writer) error {
	cfg, err := tts.LoadConfigFromViper()
	if err != nil {
		return err //nolint:wrapcheck
	}
	engine, err := engines.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("unable to start speech engine: %w", err)
	}
	defer engine.Close() //nolint:errcheck

	pcm, err := engine.Synthesize(ctx, text)
	if err != nil {
		return fmt.Errorf("unable to synthesize: %w", err)
	}
	buf, err := audio.Decode(pcm)
	if err != nil {
		return err //nolint:wrapcheck
	}
	log.Info("synthesized", "engine", engine.Info().Name, "duration", buf.Duration())

	switch sayOutput {
	case "":
	case "-":
		_, err := stdout.Write(pcm)
		return err //nolint:wrapcheck
	default:
		if err := writeAudio(sayOutput, pcm); err != nil {
			return fmt.Errorf("unable to write audio: %w", err)
		}
		fmt.Fprintf(stdout, "Wrote %s of audio to %s\n", buf.Duration().Round(10*time.Millisecond), sayOutput)
		return nil
	}

	playerCfg := audio.DefaultPlayerConfig()
	playerCfg.Volume = cfg.Volume
	player, err := audio.NewPlayer(playerCfg)
	if err != nil {
		return fmt.Errorf("unable to open audio device: %w", err)
	}
	defer player.Close() //nolint:errcheck

	return playAndWait(ctx, player, buf)
}

// writeAudio writes raw PCM to path, zstd-compressed when path ends in
// .zst.
func writeAudio(path string, pcm []byte) error {
	if !strings.HasSuffix(path, ".zst") {
		return os.WriteFile(path, pcm, 0o644) //nolint:gosec,wrapcheck
	}

	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
	if err != nil {
		return err //nolint:wrapcheck
	}
	defer enc.Close() //nolint:errcheck
	return os.WriteFile(path, enc.EncodeAll(pcm, nil), 0o644) //nolint:gosec,wrapcheck
}

// playAndWait plays buf on sink until it finishes or ctx is done.
func playAndWait(ctx context.Context, sink audio.Sink, buf *audio.Buffer) error {
	done := make(chan struct{})
	out, err := sink.Start(buf, func() { close(done) })
	if err != nil {
		return fmt.Errorf("unable to play audio: %w", err)
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		out.Halt()
		if errors.Is(ctx.Err(), context.Canceled) {
			return nil
		}
		return ctx.Err() //nolint:wrapcheck
	}
}

func init() {
	sayCmd.Flags().StringVarP(&sayOutput, "output", "o", "", "write raw 24 kHz PCM to a file (- for stdout, .zst to compress) instead of playing it")
}
