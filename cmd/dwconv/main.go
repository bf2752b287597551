// Package main provides the dwconv CLI.
//
// It builds a depthwise convolution from a layer config, runs one
// forward/backward pass on random input and reports the results.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/born-ml/dwconv/internal/blas"
	"github.com/born-ml/dwconv/internal/config"
	"github.com/born-ml/dwconv/internal/nn"
	"github.com/born-ml/dwconv/internal/optim"
	"github.com/born-ml/dwconv/internal/tensor"
)

const version = "v0.0.1-dev"

// defaultLayer is used when -config is not given.
const defaultLayer = `
name: dw
type: DepthwiseConvolution
convolution_param:
  kernel_size: [3]
  pad: [1]
`

type options struct {
	config    string
	shape     string
	dtype     string
	seed      uint64
	load      string
	save      string
	gradcheck bool
	lr        float64
	verbose   bool
}

func main() {
	if len(os.Args) > 1 && os.Args[1] == "version" {
		fmt.Printf("dwconv %s\n", version)
		return
	}

	var opts options
	fs := flag.NewFlagSet("dwconv", flag.ExitOnError)
	fs.StringVar(&opts.config, "config", "", "layer config file (.yaml, .yml or .json)")
	fs.StringVar(&opts.shape, "shape", "2,3,8,8", "input shape N,C,H,W")
	fs.StringVar(&opts.dtype, "dtype", "float32", "element type: float32 or float64")
	fs.Uint64Var(&opts.seed, "seed", 1, "random seed for parameters and input")
	fs.StringVar(&opts.load, "load", "", "SafeTensors file to load parameters from")
	fs.StringVar(&opts.save, "save", "", "SafeTensors file to save parameters to")
	fs.BoolVar(&opts.gradcheck, "gradcheck", false, "verify gradients with finite differences")
	fs.Float64Var(&opts.lr, "lr", 0, "apply one SGD step with this learning rate (0 disables)")
	fs.BoolVar(&opts.verbose, "v", false, "enable debug logging")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: dwconv [flags]\n       dwconv version\n\nFlags:\n")
		fs.PrintDefaults()
	}
	_ = fs.Parse(os.Args[1:])

	level := slog.LevelInfo
	if opts.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	var err error
	switch opts.dtype {
	case "float32":
		err = run[float32](opts, logger)
	case "float64":
		err = run[float64](opts, logger)
	default:
		err = errors.Errorf("unknown dtype %q", opts.dtype)
	}
	if err != nil {
		logger.Error("dwconv failed", "err", err)
		os.Exit(1)
	}
}

func run[T tensor.Float](opts options, logger *slog.Logger) error {
	param, err := loadParam(opts.config)
	if err != nil {
		return err
	}
	shape, err := parseShape(opts.shape)
	if err != nil {
		return err
	}

	layer, err := nn.NewRegistry[T]().Create(*param,
		nn.WithLogger(logger),
		nn.WithRandSource(rand.NewPCG(opts.seed, 0)),
	)
	if err != nil {
		return err
	}

	if opts.load != "" {
		ckpt, err := nn.LoadParameters(opts.load, layer)
		if err != nil {
			return err
		}
		logger.Info("parameters loaded", "path", opts.load, "checkpoint_id", ckpt.ID)
	}

	bottom := []*tensor.Blob[T]{
		tensor.RandUniform[T](shape, -1, 1, rand.New(rand.NewPCG(opts.seed, 1))),
	}
	top := []*tensor.Blob[T]{{}}
	if err := layer.Setup(bottom, top); err != nil {
		return err
	}
	if err := layer.Reshape(bottom, top); err != nil {
		return err
	}

	layer.Forward(bottom, top)
	fmt.Printf("layer:  %s (%s)\n", layer.Name(), layer.Type())
	fmt.Printf("input:  %s\n", bottom[0].Shape())
	fmt.Printf("output: %s\n", top[0].Shape())
	fmt.Printf("|y|:    %.6g\n", float64(blas.Nrm2(top[0].Data())))

	blas.Set(top[0].Diff(), 1)
	layer.ZeroGrad()
	layer.Backward(top, []bool{true}, bottom)
	fmt.Printf("|dx|:   %.6g\n", float64(blas.Nrm2(bottom[0].Diff())))
	for _, p := range layer.Parameters() {
		fmt.Printf("|d%s|: %.6g\n", p.Name(), float64(blas.Nrm2(p.Grad())))
	}

	if opts.gradcheck {
		cfg := nn.GradCheckConfig{}
		if tensor.DTypeOf[T]() == tensor.Float32 {
			cfg = nn.GradCheckConfig{Step: 1e-2, Threshold: 1e-2}
		}
		results, err := nn.CheckGradients(layer, bottom, top, cfg)
		for _, r := range results {
			fmt.Printf("gradcheck %-10s checked=%d max_abs=%.3g max_scaled=%.3g\n",
				r.Name, r.Checked, r.MaxAbsErr, r.MaxScaled)
		}
		if err != nil {
			return errors.WithMessage(err, "gradient check")
		}
	}

	if opts.lr > 0 {
		optim.NewSGD(layer.Parameters(), optim.SGDConfig{LR: opts.lr}).Step()
		layer.Forward(bottom, top)
		fmt.Printf("|y| after SGD step: %.6g\n", float64(blas.Nrm2(top[0].Data())))
	}

	if opts.save != "" {
		ckpt, err := nn.SaveParameters(opts.save, layer)
		if err != nil {
			return err
		}
		logger.Info("parameters saved", "path", opts.save, "checkpoint_id", ckpt.ID, "checksum", ckpt.Checksum)
	}
	return nil
}

func loadParam(path string) (*config.LayerParam, error) {
	if path == "" {
		return config.Parse([]byte(defaultLayer), config.YAML)
	}
	return config.Load(path)
}

// parseShape parses "N,C,H,W".
func parseShape(s string) (tensor.Shape, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return nil, errors.Errorf("shape %q: want N,C,H,W", s)
	}
	shape := make(tensor.Shape, len(parts))
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, errors.Wrapf(err, "shape %q", s)
		}
		shape[i] = v
	}
	if err := shape.Validate(); err != nil {
		return nil, errors.Wrapf(err, "shape %q", s)
	}
	return shape, nil
}
