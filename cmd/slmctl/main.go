package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-errors/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/junsooki/AirSLM/internal/config"
	"github.com/junsooki/AirSLM/internal/peer"
	"github.com/junsooki/AirSLM/internal/rpc"
	"github.com/junsooki/AirSLM/internal/signaling"
)

var rootCmd = &cobra.Command{
	Use:          filepath.Base(os.Args[0]),
	Short:        "slmctl controls an SLM display process",
	Long:         "slmctl controls an SLM display process over websocket or WebRTC",
	SilenceUsage: true,
	Run: func(cmd *cobra.Command, args []string) {
		_ = cmd.Help()
		os.Exit(1)
	},
}

var (
	ctl       config.ControllerConfig
	timeout   time.Duration
	debugFlag bool
	verbose   bool
)

func init() {
	cobra.EnablePrefixMatching = true
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&ctl.Addr, `addr`, `a`, `localhost:50051`, `display process address (host:port or ws:// URL)`)
	pf.StringVar(&ctl.SignalingURL, `signaling`, ``, `signaling server URL; connect over WebRTC instead of websocket`)
	pf.StringVar(&ctl.DisplayID, `display`, ``, `display id on the signaling server`)
	pf.DurationVar(&timeout, `timeout`, 10*time.Second, `connect and call timeout`)
	pf.BoolVar(&debugFlag, `debug`, false, `debug errors`)
	pf.BoolVarP(&verbose, `verbose`, `v`, false, `debug logging`)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setupLogging() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
}

// run executes fn with a context cancelled on SIGINT/SIGTERM.
func run(fn func(ctx context.Context) error) {
	setupLogging()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := fn(ctx)
	stop()
	if err != nil {
		if stackFramer, ok := err.(interface{ ErrorStack() string }); debugFlag && ok {
			fmt.Fprintln(os.Stderr, stackFramer.ErrorStack())
		} else {
			fmt.Fprintln(os.Stderr, err.Error())
		}
		os.Exit(1)
	}
}

// connect opens a client on the configured path. The returned func releases
// everything connect set up.
func connect(ctx context.Context) (*rpc.Client, func(), error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if ctl.SignalingURL == "" {
		c, err := rpc.Dial(ctx, ctl.URL())
		if err != nil {
			return nil, nil, errors.Wrap(err, 0)
		}
		return c, func() { c.Close() }, nil
	}

	if ctl.DisplayID == "" {
		return nil, nil, errors.New("--display is required with --signaling")
	}
	if ctl.ControllerID == "" {
		ctl.ControllerID = config.NewControllerID()
	}
	pc, err := peer.NewController(ctl.DisplayID, log.Logger)
	if err != nil {
		return nil, nil, errors.Wrap(err, 0)
	}
	sig := signaling.NewClient(ctl.SignalingURL, ctl.ControllerID, signaling.RoleController, pc.Handler())
	if err := sig.Connect(ctx); err != nil {
		pc.Close()
		return nil, nil, errors.Wrap(err, 0)
	}
	c, err := pc.Connect(ctx, sig)
	if err != nil {
		sig.Close()
		pc.Close()
		return nil, nil, errors.Wrap(err, 0)
	}
	log.Debug().Str("display", ctl.DisplayID).Msg("commands channel open")
	return c, func() {
		c.Close()
		pc.Close()
		sig.Close()
	}, nil
}

// withClient connects, runs fn and disconnects.
func withClient(fn func(ctx context.Context, c *rpc.Client) error) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		c, release, err := connect(ctx)
		if err != nil {
			return err
		}
		defer release()
		return fn(ctx, c)
	}
}

// check turns a call result into a single error.
func check(r rpc.Response, err error) error {
	if err != nil {
		return errors.Wrap(err, 1)
	}
	if err := r.Err(); err != nil {
		return errors.Wrap(err, 1)
	}
	return nil
}

// callCtx bounds a single call by --timeout.
func callCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, timeout)
}
