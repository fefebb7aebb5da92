package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/go-errors/errors"
	"github.com/spf13/cobra"

	"github.com/junsooki/AirSLM/internal/rpc"
)

func init() {
	rootCmd.AddCommand(setScreenCmd, setPositionCmd, screensCmd, positionCmd)
}

var setScreenCmd = &cobra.Command{
	Use:   `set-screen <index>`,
	Short: `move the display to another output`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		run(withClient(func(ctx context.Context, c *rpc.Client) error {
			index, err := strconv.Atoi(args[0])
			if err != nil {
				return errors.Errorf("screen index %q: %v", args[0], err)
			}
			cctx, cancel := callCtx(ctx)
			defer cancel()
			return check(c.SetScreen(cctx, index))
		}))
	},
}

var setPositionCmd = &cobra.Command{
	Use:   `set-position <x> <y>`,
	Short: `record the image position`,
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		run(withClient(func(ctx context.Context, c *rpc.Client) error {
			x, errX := strconv.Atoi(args[0])
			y, errY := strconv.Atoi(args[1])
			if errX != nil || errY != nil {
				return errors.Errorf("position %q %q: want integers", args[0], args[1])
			}
			cctx, cancel := callCtx(ctx)
			defer cancel()
			return check(c.SetPosition(cctx, x, y))
		}))
	},
}

var screensCmd = &cobra.Command{
	Use:   `screens`,
	Short: `print the number of attached outputs`,
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		run(withClient(func(ctx context.Context, c *rpc.Client) error {
			cctx, cancel := callCtx(ctx)
			defer cancel()
			n, err := c.GetNumScreens(cctx)
			if err != nil {
				return errors.Wrap(err, 0)
			}
			fmt.Println(n)
			return nil
		}))
	},
}

var positionCmd = &cobra.Command{
	Use:   `position`,
	Short: `print the recorded image position`,
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		run(withClient(func(ctx context.Context, c *rpc.Client) error {
			cctx, cancel := callCtx(ctx)
			defer cancel()
			x, y, err := c.GetPosition(cctx)
			if err != nil {
				return errors.Wrap(err, 0)
			}
			fmt.Println(x, y)
			return nil
		}))
	},
}
