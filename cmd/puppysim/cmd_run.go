package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/normanking/puppyavatar/internal/avatar3d"
	"github.com/normanking/puppyavatar/internal/bus"
	"github.com/normanking/puppyavatar/internal/compositor"
	"github.com/normanking/puppyavatar/internal/config"
	"github.com/normanking/puppyavatar/internal/stream"
)

const statsInterval = 5 * time.Second

var (
	runAddr     string
	runNoStream bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Animate the avatar in real time and stream frames over WebSocket",
	Long: `Runs the avatar at loop.fps until interrupted. Renderers connect to
ws://<stream.addr>/ws to receive frames and push chat signals.

Edits to the config file are picked up while running; preset changes take
effect on the next frame.`,
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringVar(&runAddr, "addr", "", "stream listen address (overrides stream.addr)")
	runCmd.Flags().BoolVar(&runNoStream, "no-stream", false, "disable the frame stream")
}

func runRun(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log := logger.Component("run")
	eb := bus.NewEventBus()

	bridge := avatar3d.NewSignalBridge(
		avatar3d.WithSpeakingTimeout(cfg.Avatar.SpeakingTimeout),
		avatar3d.WithTypingTimeout(cfg.Avatar.TypingTimeout),
	)
	defer bridge.Close()
	bridge.Attach(eb)

	av := avatar3d.Create(cfg.AvatarConfig(), bridge, compositor.NewMemorySink(), logger.Component("avatar"),
		avatar3d.WithEventBus(eb))
	defer av.Dispose()

	var srv *stream.Server
	if cfg.Stream.Enabled && !runNoStream {
		addr := cfg.Stream.Addr
		if runAddr != "" {
			addr = runAddr
		}
		srv = stream.NewServer(addr, eb, logger.Component("stream"), stream.WithSendBuffer(cfg.Stream.SendBuffer))
	}

	// The watcher runs on its own goroutine; the avatar is only touched by the loop.
	reloads := make(chan *config.Config, 1)
	if loader.Watch(func(next *config.Config, err error) {
		if err != nil {
			log.Warn().Err(err).Msg("Ignoring invalid config change")
			return
		}
		select {
		case <-reloads:
		default:
		}
		reloads <- next
	}) {
		log.Info().Str("file", loader.ConfigFile()).Msg("Watching config")
	}

	g, gctx := errgroup.WithContext(ctx)
	if srv != nil {
		g.Go(func() error { return srv.Run(gctx) })
	}
	g.Go(func() error {
		return renderLoop(gctx, av, srv, eb, reloads, log)
	})

	log.Info().
		Str("avatar", av.ID()).
		Int("fps", cfg.Loop.FPS).
		Bool("stream", srv != nil).
		Msg("Avatar running")

	err := g.Wait()
	log.Info().Msg("Shutting down")
	return err
}

func renderLoop(ctx context.Context, av *avatar3d.Avatar, srv *stream.Server, eb *bus.EventBus,
	reloads <-chan *config.Config, log zerolog.Logger) error {
	ticker := time.NewTicker(cfg.FrameInterval())
	defer ticker.Stop()

	frameEvery := uint64(1)
	if cfg.Stream.FrameEvery > 1 {
		frameEvery = uint64(cfg.Stream.FrameEvery)
	}

	last := time.Now()
	statsAt := last
	var frames int
	for {
		select {
		case <-ctx.Done():
			return nil

		case next := <-reloads:
			av.SetPresets(next.PresetTable())
			eb.Publish(bus.Event{Type: bus.EventTypeConfigReloaded, Data: map[string]any{}})
			log.Info().Int("presets", next.PresetTable().Len()).Msg("Presets reloaded")

		case now := <-ticker.C:
			snap := av.Tick(now.Sub(last).Seconds(), now)
			last = now
			frames++

			if srv != nil && snap.Sequence%frameEvery == 0 {
				if err := srv.Broadcast(snap); err != nil {
					log.Warn().Err(err).Msg("Broadcast failed")
				}
			}

			if now.Sub(statsAt) >= statsInterval {
				ev := log.Debug().
					Float64("fps", float64(frames)/now.Sub(statsAt).Seconds()).
					Str("state", string(snap.State)).
					Str("preset", string(snap.Preset)).
					Int("breaths", snap.Breathing.BreathCount)
				if srv != nil {
					ev = ev.Int("clients", srv.ClientCount()).Uint64("dropped", srv.Dropped())
				}
				ev.Msg("Loop stats")
				frames = 0
				statsAt = now
			}
		}
	}
}
