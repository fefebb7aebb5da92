package main

import (
	"context"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-errors/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/junsooki/AirSLM/internal/supervisor"
)

var (
	servePort    int
	serveBinary  string
	serveRestart bool
)

func init() {
	serveCmd.Flags().IntVarP(&servePort, `port`, `p`, 50051, `port for the display process`)
	serveCmd.Flags().StringVar(&serveBinary, `binary`, ``, `slm-server executable (default: next to slmctl, then $PATH)`)
	serveCmd.Flags().BoolVar(&serveRestart, `restart`, false, `restart the display process when it exits`)
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   `serve [-- slm-server flags]`,
	Short: `run and supervise a display process`,
	Long: `run and supervise a display process

The display process is started with -port and -parent-pid and exits on its
own if slmctl goes away. SIGHUP restarts it; SIGINT and SIGTERM stop it.`,
	Run: func(cmd *cobra.Command, args []string) {
		run(func(ctx context.Context) error { return serveFunc(ctx, args) })
	},
}

func serveFunc(ctx context.Context, extra []string) error {
	bin, err := serverBinary()
	if err != nil {
		return err
	}
	sup := supervisor.New(bin, servePort, log.Logger, extra...)
	if err := sup.Start(); err != nil {
		return errors.Wrap(err, 0)
	}
	defer func() {
		if err := sup.Stop(5 * time.Second); err != nil {
			log.Warn().Err(err).Msg("stop display process")
		}
	}()

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("stopping display process")
			return nil
		case <-hup:
			log.Info().Msg("restarting display process")
			if err := sup.Restart(5 * time.Second); err != nil {
				return errors.Wrap(err, 0)
			}
		case <-sup.Done():
			if !serveRestart {
				return errors.New("display process exited")
			}
			time.Sleep(time.Second)
			if err := sup.Start(); err != nil {
				return errors.Wrap(err, 0)
			}
		}
	}
}

func serverBinary() (string, error) {
	if serveBinary != "" {
		return serveBinary, nil
	}
	if self, err := os.Executable(); err == nil {
		candidate := filepath.Join(filepath.Dir(self), "slm-server")
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	path, err := exec.LookPath("slm-server")
	if err != nil {
		return "", errors.Wrap(err, 0)
	}
	return path, nil
}
