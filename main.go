package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/llehouerou/cue/internal/config"
	"github.com/llehouerou/cue/internal/driver"
	"github.com/llehouerou/cue/internal/errmsg"
	"github.com/llehouerou/cue/internal/media"
	"github.com/llehouerou/cue/internal/notify"
	"github.com/llehouerou/cue/internal/session"
	"github.com/llehouerou/cue/internal/store"
)

var version = "dev" // set via -ldflags at build time

const usage = `cue - remembers where you stopped watching

Usage:
  cue play <path>      play a file or folder, resuming saved position
  cue resume           replay the most recently interrupted file
  cue info <path>      show the saved position for a file
  cue list [-finished] list saved positions
  cue forget <path>    remove the saved position for a file
  cue version          print version

Flags:
  -v    verbose logging
`

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string) error {
	verbose := false
	for len(args) > 0 && args[0] == "-v" {
		verbose = true
		args = args[1:]
	}
	setupLogging(verbose)

	if len(args) == 0 {
		fmt.Print(usage)
		return errors.New("missing command")
	}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "play":
		if len(rest) != 1 {
			return errors.New("usage: cue play <path>")
		}
		return runPlay(rest[0], false)
	case "resume":
		return runPlay("", true)
	case "info":
		if len(rest) != 1 {
			return errors.New("usage: cue info <path>")
		}
		return runInfo(rest[0])
	case "list":
		fs := flag.NewFlagSet("list", flag.ContinueOnError)
		finished := fs.Bool("finished", false, "list finished entries instead")
		if err := fs.Parse(rest); err != nil {
			return err
		}
		return runList(*finished)
	case "forget":
		if len(rest) != 1 {
			return errors.New("usage: cue forget <path>")
		}
		return runForget(rest[0])
	case "version":
		fmt.Println("cue", version)
		return nil
	case "help", "-h", "--help":
		fmt.Print(usage)
		return nil
	default:
		fmt.Print(usage)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func setupLogging(verbose bool) {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})))
}

// runPlay starts a playback session for target and blocks until the
// player exits. With resume set, the target is the most recently
// interrupted file instead.
func runPlay(target string, resume bool) error {
	cfg, err := config.Load()
	if err != nil {
		return errors.New(errmsg.Format(errmsg.OpInitialize, err))
	}

	st, err := store.Open()
	if err != nil {
		return errors.New(errmsg.Format(errmsg.OpInitialize, err))
	}
	defer st.Close()

	pc := cfg.GetPlayerConfig()
	coord := session.New(st, session.Config{
		SampleInterval:      time.Duration(pc.SampleIntervalSeconds) * time.Second,
		CompletionThreshold: pc.CompletionThreshold,
		RecursiveScan:       cfg.RecursiveScan,
	}, session.DefaultDriverFactory(pc.DriverMode, driver.Options{
		Executable:     pc.Executable,
		SocketPath:     pc.IPCSocket,
		ConnectTimeout: time.Duration(pc.ConnectTimeoutSeconds) * time.Second,
	}))

	ctx := context.Background()

	var s *session.Session
	if resume {
		s, err = coord.Resume(ctx)
		if errors.Is(err, session.ErrNothingToResume) {
			fmt.Println("Nothing to resume.")
			return nil
		}
	} else {
		s, err = coord.Start(ctx, target)
	}
	if err != nil {
		return errors.New(errmsg.FormatWith(errmsg.OpPlaybackStart, target, err))
	}

	if pos, ok := s.LastPosition(); ok && pos.Seconds > 0 {
		fmt.Printf("Resuming %s at %s\n",
			filepath.Base(s.Entry), notify.FormatPosition(pos.Seconds))
	} else {
		fmt.Printf("Playing %s\n", filepath.Base(s.Entry))
	}

	// Forward SIGINT/SIGTERM to the session so the final position is
	// committed before we exit.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	go func() {
		<-sigCh
		stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := coord.Stop(stopCtx); err != nil {
			slog.Warn("stop failed", "error", err)
		}
	}()

	<-s.Wait()

	if s.Status() == session.StatusFailed {
		exit := s.ExitStatus()
		return errors.New(errmsg.FormatWith(errmsg.OpPlaybackStart, s.Entry, exit.Err))
	}

	reportEnd(cfg, s)
	return nil
}

// reportEnd prints the session outcome and mirrors it as a desktop
// notification when enabled.
func reportEnd(cfg *config.Config, s *session.Session) {
	pos, ok := s.LastPosition()

	var n notify.Notification
	switch {
	case s.Finished():
		fmt.Printf("Finished %s\n", filepath.Base(s.Entry))
		n = notify.PlaybackFinished(s.Entry)
	case ok && pos.Seconds > 0:
		fmt.Printf("Saved at %s\n", notify.FormatPosition(pos.Seconds))
		n = notify.PlaybackSaved(s.Entry, pos.Seconds, pos.Duration)
	default:
		return
	}

	if !cfg.NotificationsEnabled() {
		return
	}
	notifier, err := notify.New()
	if err != nil {
		return
	}
	if _, err := notifier.Notify(n); err != nil {
		slog.Debug("notification failed", "error", err)
	}
}

func runInfo(target string) error {
	path, err := media.NormalizePath(target)
	if err != nil {
		return errors.New(errmsg.FormatWith(errmsg.OpResumeLookup, target, err))
	}

	st, err := store.Open()
	if err != nil {
		return errors.New(errmsg.Format(errmsg.OpInitialize, err))
	}
	defer st.Close()

	rec, err := st.Lookup(path)
	if err != nil {
		return errors.New(errmsg.FormatWith(errmsg.OpResumeLookup, target, err))
	}
	if rec == nil {
		fmt.Println("No saved position.")
		return nil
	}
	printRecord(*rec)
	return nil
}

func runList(finished bool) error {
	st, err := store.Open()
	if err != nil {
		return errors.New(errmsg.Format(errmsg.OpInitialize, err))
	}
	defer st.Close()

	var records []store.ResumeRecord
	if finished {
		records, err = st.ListFinished()
	} else {
		records, err = st.ListAll()
	}
	if err != nil {
		return errors.New(errmsg.Format(errmsg.OpResumeList, err))
	}

	if len(records) == 0 {
		fmt.Println("No saved positions.")
		return nil
	}
	for _, rec := range records {
		printRecord(rec)
	}
	return nil
}

func printRecord(rec store.ResumeRecord) {
	state := notify.FormatPosition(rec.Position)
	if rec.Duration > 0 {
		state += " / " + notify.FormatPosition(rec.Duration)
	}
	if rec.Finished {
		state = "finished"
	}
	fmt.Printf("%-17s %-14s %s\n", state, humanize.Time(rec.UpdatedAt), rec.Path)
}

func runForget(target string) error {
	path, err := media.NormalizePath(target)
	if err != nil {
		return errors.New(errmsg.FormatWith(errmsg.OpResumeForget, target, err))
	}

	st, err := store.Open()
	if err != nil {
		return errors.New(errmsg.Format(errmsg.OpInitialize, err))
	}
	defer st.Close()

	if err := st.Delete(path); err != nil {
		return errors.New(errmsg.FormatWith(errmsg.OpResumeForget, target, err))
	}
	fmt.Println("Forgotten.")
	return nil
}
