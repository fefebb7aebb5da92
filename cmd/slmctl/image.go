package main

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/go-errors/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/junsooki/AirSLM/internal/decoder"
	"github.com/junsooki/AirSLM/internal/rpc"
)

var (
	imageFile   string
	imageWidth  int
	imageHeight int
	imageRGB    bool
)

func init() {
	for _, c := range []*cobra.Command{setImageCmd, setColourCmd} {
		c.Flags().StringVarP(&imageFile, `file`, `f`, ``, `image file (png, jpeg, bmp, tiff); random data when empty`)
		c.Flags().IntVar(&imageWidth, `width`, 1920, `width of random data`)
		c.Flags().IntVar(&imageHeight, `height`, 1080, `height of random data`)
		rootCmd.AddCommand(c)
	}
	setImageCmd.Flags().BoolVar(&imageRGB, `rgb`, false, `send RGB triplets instead of grayscale`)
}

var setImageCmd = &cobra.Command{
	Use:   `set-image`,
	Short: `show a grayscale or RGB image`,
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		run(withClient(setImageFunc))
	},
}

func setImageFunc(ctx context.Context, c *rpc.Client) error {
	pix, w, h, err := imagePixels(imageRGB)
	if err != nil {
		return err
	}
	cctx, cancel := callCtx(ctx)
	defer cancel()
	start := time.Now()
	if imageRGB {
		err = check(c.SetImageRGB(cctx, pix, w, h))
	} else {
		err = check(c.SetImage(cctx, pix, w, h))
	}
	if err != nil {
		return err
	}
	log.Info().Int("width", w).Int("height", h).Bool("rgb", imageRGB).Dur("took", time.Since(start)).Msg("image sent")
	return nil
}

var setColourCmd = &cobra.Command{
	Use:     `set-colour`,
	Aliases: []string{`set-color`},
	Short:   `show a colour image sent as three planes`,
	Args:    cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		run(withClient(setColourFunc))
	},
}

func setColourFunc(ctx context.Context, c *rpc.Client) error {
	pix, w, h, err := imagePixels(true)
	if err != nil {
		return err
	}
	cctx, cancel := callCtx(ctx)
	defer cancel()
	if err := check(c.SetImageColour(cctx, decoder.Planes(pix), w, h)); err != nil {
		return err
	}
	log.Info().Int("width", w).Int("height", h).Msg("colour image sent")
	return nil
}

func imagePixels(rgb bool) (pix []byte, w, h int, err error) {
	if imageFile != "" {
		img, err := decoder.DecodeFile(imageFile)
		if err != nil {
			return nil, 0, 0, err
		}
		if rgb {
			pix, w, h = decoder.RGB(img)
		} else {
			pix, w, h = decoder.Gray(img)
		}
		return pix, w, h, nil
	}
	if imageWidth <= 0 || imageHeight <= 0 {
		return nil, 0, 0, errors.Errorf("invalid size %dx%d", imageWidth, imageHeight)
	}
	n := imageWidth * imageHeight
	if rgb {
		n *= 3
	}
	rng := rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0))
	return randomBytes(rng, n), imageWidth, imageHeight, nil
}
