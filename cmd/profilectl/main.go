package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"codeberg.org/mutker/profilectl/internal/bus"
	"codeberg.org/mutker/profilectl/internal/config"
	"codeberg.org/mutker/profilectl/internal/control"
	"codeberg.org/mutker/profilectl/internal/errors"
	"codeberg.org/mutker/profilectl/internal/logger"
	"codeberg.org/mutker/profilectl/internal/metrics"
	"codeberg.org/mutker/profilectl/internal/pid"
	"codeberg.org/mutker/profilectl/internal/power"
	"codeberg.org/mutker/profilectl/internal/profiles"
	"codeberg.org/mutker/profilectl/internal/sensor"
	"codeberg.org/mutker/profilectl/internal/session"
	"codeberg.org/mutker/profilectl/internal/shutdown"
	"github.com/godbus/dbus/v5"
	"golang.org/x/sys/unix"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	cfg, err := config.Load(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		return 1
	}

	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		return 1
	}
	logger.Init(level, logger.IsService())
	logger.Debug().Str("path", cfg.ConfigFile).Msg("Config loaded")

	switch {
	case cfg.PrintConfig:
		return printConfig(cfg)
	case cfg.History > 0:
		return printHistory(os.Stdout, cfg)
	}

	finder, err := sensor.Open(cfg.Sensor.Source, cfg.Sensor.SysfsRoot)
	if err != nil {
		return fail(err, "Failed to open sensor source")
	}
	defer func() {
		if err := finder.Close(); err != nil {
			logger.Warn().Err(err).Msg("Failed to close sensor source")
		}
	}()

	if cfg.ListSensors {
		return listSensors(os.Stdout, finder)
	}

	src, err := finder.Find(cfg.Matcher)
	if err != nil {
		return fail(err, "Sensor not found")
	}

	pidPath := pid.Path()
	if err := pid.Write(pidPath); err != nil {
		return fail(err, "Failed to write PID file")
	}
	defer func() {
		if err := pid.Remove(pidPath); err != nil {
			logger.Warn().Err(err).Msg("Failed to remove PID file")
		}
	}()

	conn, err := bus.Connect()
	if err != nil {
		return fail(err, "Failed to connect to the system bus")
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	switcher, err := newSwitcher(ctx, cfg, conn)
	if err != nil {
		return fail(err, "Failed to set up power profiles")
	}

	var sess control.SessionSource
	if cfg.SessionCheck {
		sess = session.NewClient(bus.Dial(conn, session.BusName, session.ObjectPath, cfg.CallTimeout))
	}

	recorder, err := metrics.NewRecorder(cfg.Metrics, logger.Default())
	if err != nil {
		return fail(err, "Failed to open transition history")
	}
	defer func() {
		if err := recorder.Close(); err != nil {
			logger.Warn().Err(err).Msg("Failed to close transition history")
		}
	}()

	coord := shutdown.New()
	shutdown.Listen(ctx, coord, unix.SIGINT, unix.SIGTERM)

	ticker := time.NewTicker(cfg.PollInterval)
	defer ticker.Stop()

	c := control.New(control.Params{
		Threshold: cfg.Temp,
		Debounce:  cfg.Debounce,
	}, control.Deps{
		Sensor:   src,
		Switcher: switcher,
		Battery:  power.NewClient(bus.Dial(conn, power.BusName, power.ObjectPath, cfg.CallTimeout)),
		Session:  sess,
		Shutdown: coord,
		Recorder: recorder,
		Logger:   logger.Default(),
	})

	if err := c.Run(ctx, ticker.C); err != nil {
		return fail(errors.New().Wrap(errors.ErrMainLoop, err), "Control loop aborted")
	}

	logger.Info().Msg("Exiting...")

	return 0
}

func newSwitcher(ctx context.Context, cfg *config.Config, conn *dbus.Conn) (profiles.Switcher, error) {
	path, err := profiles.ObjectPath(cfg.Service)
	if err != nil {
		return nil, err
	}

	svc, err := profiles.NewClient(bus.Dial(conn, cfg.Service, path, cfg.CallTimeout), cfg.Service)
	if err != nil {
		return nil, err
	}

	var sw profiles.Switcher
	switch cfg.Strategy {
	case config.StrategyHold:
		sw = profiles.NewHoldSwitcher(svc, cfg.ProfileName, cfg.HoldReason, cfg.ApplicationID)
	default:
		sw = profiles.NewDirectSwitcher(svc, cfg.ActiveProfile, cfg.InactiveProfile)
	}

	if err := profiles.CheckAvailable(ctx, svc, sw.Uses()...); err != nil {
		return nil, err
	}

	if current, err := svc.ActiveProfile(ctx); err == nil {
		logger.Info().
			Str("service", cfg.Service).
			Str("strategy", sw.Name()).
			Str("current", current.String()).
			Msg("Connected to power profiles daemon")
	}

	return sw, nil
}

func printConfig(cfg *config.Config) int {
	out, err := cfg.TOML()
	if err != nil {
		return fail(err, "Failed to render config")
	}

	fmt.Print(string(out))

	return 0
}

func printHistory(out io.Writer, cfg *config.Config) int {
	repo, err := metrics.OpenReadOnly(cfg.Metrics, logger.Default())
	if err != nil {
		return fail(err, "Failed to open transition history")
	}
	defer repo.Close()

	transitions, err := repo.Recent(cfg.History)
	if err != nil {
		return fail(err, "Failed to read transition history")
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tTEMP\tFROM\tTO\tCAUSE\tSTRATEGY\tTOLERATED")
	for _, t := range transitions {
		fmt.Fprintf(w, "%s\t%.1f\t%s\t%s\t%s\t%s\t%t\n",
			t.Timestamp.Format(time.RFC3339), t.Reading, t.From, t.To, t.Cause, t.Strategy, t.Tolerated)
	}

	if err := w.Flush(); err != nil {
		return fail(err, "Failed to print transition history")
	}

	return 0
}

func listSensors(out io.Writer, finder sensor.Finder) int {
	features, err := finder.List()
	if err != nil {
		return fail(err, "Failed to enumerate sensors")
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "CHIP\tFEATURE\tLABEL\tSUB-FEATURE\tVALUE")
	for _, f := range features {
		value := "n/a"
		if f.Readable {
			value = fmt.Sprintf("%.3f", f.Value)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", f.Chip, f.Feature, f.Label, f.SubFeature, value)
	}

	if err := w.Flush(); err != nil {
		return fail(err, "Failed to print sensors")
	}

	return 0
}

func fail(err error, msg string) int {
	logger.ErrorWithCode(err).Msg(msg)

	return 1
}
