package main

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/junsooki/AirSLM/internal/frame"
	"github.com/junsooki/AirSLM/internal/rpc"
)

var (
	phaseWidth  int
	phaseHeight int
	phaseEvery  time.Duration
	phaseSeed   uint64

	lutSize int
	lutMax  float64
)

func init() {
	setPhaseCmd.Flags().IntVar(&phaseWidth, `width`, 1920, `mask width`)
	setPhaseCmd.Flags().IntVar(&phaseHeight, `height`, 1080, `mask height`)
	setPhaseCmd.Flags().DurationVar(&phaseEvery, `every`, 0, `keep sending a fresh mask at this interval`)
	setPhaseCmd.Flags().Uint64Var(&phaseSeed, `seed`, 0, `random seed (0 picks one)`)
	rootCmd.AddCommand(setPhaseCmd)

	setLUTCmd.Flags().IntVar(&lutSize, `size`, 255, `number of LUT entries`)
	setLUTCmd.Flags().Float64Var(&lutMax, `max`, 255, `output value for phase pi`)
	rootCmd.AddCommand(setLUTCmd)
}

var setPhaseCmd = &cobra.Command{
	Use:   `set-phase`,
	Short: `show random phase masks`,
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		run(withClient(setPhaseFunc))
	},
}

func setPhaseFunc(ctx context.Context, c *rpc.Client) error {
	seed := phaseSeed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	rng := rand.New(rand.NewPCG(seed, 0))

	send := func() error {
		data := frame.EncodePhaseMask(randomPhaseMask(rng, phaseWidth, phaseHeight))
		cctx, cancel := callCtx(ctx)
		defer cancel()
		start := time.Now()
		if err := check(c.SetPhaseMask(cctx, data, phaseWidth, phaseHeight)); err != nil {
			return err
		}
		log.Info().Int("width", phaseWidth).Int("height", phaseHeight).Dur("took", time.Since(start)).Msg("phase mask sent")
		return nil
	}

	if err := send(); err != nil || phaseEvery <= 0 {
		return err
	}
	t := time.NewTicker(phaseEvery)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			if err := send(); err != nil {
				return err
			}
		}
	}
}

var setLUTCmd = &cobra.Command{
	Use:   `set-lut`,
	Short: `install a linear phase LUT`,
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		run(withClient(setLUTFunc))
	},
}

func setLUTFunc(ctx context.Context, c *rpc.Client) error {
	cctx, cancel := callCtx(ctx)
	defer cancel()
	if err := check(c.SetLUT(cctx, frame.EncodeLUT(lutRamp(lutSize, lutMax)))); err != nil {
		return err
	}
	log.Info().Int("size", lutSize).Float64("max", lutMax).Msg("LUT sent")
	return nil
}
