package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"surgcal/internal/calgrid"
	"surgcal/internal/capture"
	"surgcal/internal/config"
	"surgcal/internal/ics"
	appLog "surgcal/internal/log"
	"surgcal/internal/source"
	"surgcal/internal/store"
	"surgcal/internal/term"
	"surgcal/internal/web"
)

// flagConfig holds CLI flag values.
type flagConfig struct {
	configPath string
	listen     string
	month      string
	once       bool
	snapshot   bool
}

func main() {
	flags := parseFlags()

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}
	if flags.listen != "" {
		conf.Listen = flags.listen
	}

	if lvl, err := appLog.ParseLevel(conf.LogLevel); err == nil {
		appLog.SetLevel(lvl)
	} else {
		appLog.Warn("unknown log level; using info", "log_level", conf.LogLevel)
	}
	defer appLog.Sync()

	appLog.Info("surgcal starting", "version", "0.1.0")
	appLog.Info("effective config",
		"listen", conf.Listen,
		"timezone", conf.Timezone,
		"week_start", conf.WeekStart,
		"refresh", conf.RefreshCron,
		"cases_file", conf.CasesFile,
		"ics_count", len(conf.ICS),
		"once", flags.once,
		"snapshot", flags.snapshot,
	)

	loc, err := conf.Location()
	if err != nil {
		appLog.Error("bad timezone; using UTC", err, "timezone", conf.Timezone)
		loc = time.UTC
	}

	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		appLog.Info("signal received, shutting down", "signal", sig.String())
		cancel()
	}()

	st := store.New(buildLoaders(conf, loc))
	if err := st.Refresh(ctx); err != nil {
		appLog.Error("initial refresh had failures", err)
	}

	switch {
	case flags.once:
		err = runOnce(os.Stdout, conf, st, loc, flags.month)
	case flags.snapshot:
		err = runSnapshot(ctx, conf, st, flags.month)
	default:
		err = runServer(ctx, conf, st)
	}
	if err != nil {
		appLog.Error("surgcal failed", err)
		os.Exit(1)
	}
	appLog.Info("surgcal exiting")
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "/etc/surgcal/config.yaml", "Path to config file")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.StringVar(&cfg.month, "month", "", "Month to print or capture, as YYYY-MM (default: current month)")
	flag.BoolVar(&cfg.once, "once", false, "Load events once, print the month to stdout and exit")
	flag.BoolVar(&cfg.snapshot, "snapshot", false, "Load events once, capture the month page as PNG and exit")

	flag.Parse()
	return cfg
}

// buildLoaders turns the configured sources into store loaders, case file
// first, then ICS feeds in config order.
func buildLoaders(conf *config.Config, loc *time.Location) []store.Named {
	var loaders []store.Named

	if conf.CasesFile != "" {
		loaders = append(loaders, store.Named{ID: "cases", Loader: source.CaseFile{Path: conf.CasesFile}})
	}

	fetcher := ics.NewFetcher(conf.ICSCacheDir)
	for _, c := range conf.ICS {
		if c.URL == "" {
			continue
		}
		id := c.ID
		if id == "" {
			id = c.Name
		}
		if id == "" {
			id = c.URL
		}
		category, ok := calgrid.ParseCategory(c.Category)
		if !ok {
			category = calgrid.CategoryOther
		}
		loaders = append(loaders, store.Named{
			ID: id,
			Loader: source.ICSFeed{
				Source:       ics.Source{ID: id, URL: c.URL},
				Category:     category,
				Fetcher:      fetcher,
				Location:     loc,
				WindowMonths: conf.WindowMonths,
			},
		})
	}
	return loaders
}

// runOnce prints the month and the agenda of today (or of the 1st when
// another month is requested).
func runOnce(w io.Writer, conf *config.Config, st *store.Store, loc *time.Location, month string) error {
	today := calgrid.DateOf(time.Now().In(loc))
	cursor := today.Cursor()
	if month != "" {
		c, err := calgrid.ParseCursor(month)
		if err != nil {
			return err
		}
		cursor = c
	}
	selected := today
	if !cursor.Contains(today) {
		selected = cursor.Day(1)
	}

	events := st.Events()
	grid, err := calgrid.BuildGrid(cursor, events, today, selected)
	if err != nil {
		return err
	}
	if err := term.RenderMonth(w, grid, conf.FirstWeekday()); err != nil {
		return err
	}
	fmt.Fprintln(w)
	return term.RenderAgenda(w, selected, calgrid.EventsOnDate(events, selected))
}

// runSnapshot serves the month page on a loopback port just long enough to
// capture it.
func runSnapshot(ctx context.Context, conf *config.Config, st *store.Store, month string) error {
	if month != "" {
		if _, err := calgrid.ParseCursor(month); err != nil {
			return err
		}
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return err
	}
	srvCtx, stop := context.WithCancel(ctx)
	served := make(chan error, 1)
	go func() {
		served <- web.NewServer(conf, st, nil).Serve(srvCtx, ln)
	}()

	target := "http://" + ln.Addr().String() + "/calendar"
	if month != "" {
		target += "?month=" + month
	}
	opts := capture.Options{
		URL:        target,
		OutputPath: conf.Snapshot.Output,
		Width:      conf.Snapshot.Width,
		Height:     conf.Snapshot.Height,
		Timeout:    time.Duration(conf.Snapshot.TimeoutSeconds) * time.Second,
	}
	if conf.BasicAuth != nil {
		opts.Username = conf.BasicAuth.Username
		opts.Password = conf.BasicAuth.Password
	}

	capErr := capture.MonthPNG(ctx, opts)
	stop()
	if err := <-served; err != nil {
		appLog.Error("snapshot server shutdown", err)
	}
	if capErr != nil {
		return capErr
	}
	appLog.Info("snapshot written", "path", conf.Snapshot.Output, "url", target)
	return nil
}

func runServer(ctx context.Context, conf *config.Config, st *store.Store) error {
	stopped, err := st.Schedule(ctx, conf.RefreshCron)
	if err != nil {
		return err
	}
	err = web.NewServer(conf, st, nil).ListenAndServe(ctx)
	// Listener failure: exit without waiting on the scheduler.
	if ctx.Err() == nil {
		return err
	}
	<-stopped
	return err
}
