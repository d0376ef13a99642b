package main

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"k8s.io/klog/v2"

	"github.com/born-ml/born-wgpu/backend/webgpu"
	"github.com/born-ml/born-wgpu/tensor"
)

func newSmokeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "smoke",
		Short: "Run a short correctness check on the GPU",
		Args:  cobra.NoArgs,
		RunE:  smokeHandler,
	}
	cmd.Flags().IntP("parallel", "p", 4, "Number of concurrent workers")
	cmd.Flags().IntP("size", "n", 1<<16, "Elements per worker")
	return cmd
}

func smokeHandler(cmd *cobra.Command, _ []string) error {
	parallel, _ := cmd.Flags().GetInt("parallel")
	size, _ := cmd.Flags().GetInt("size")
	if parallel < 1 || size < 1 {
		return errors.Errorf("parallel (%d) and size (%d) must be positive", parallel, size)
	}

	cfg, err := webgpu.LoadConfig()
	if err != nil {
		return err
	}
	if !cmd.Flags().Changed("v") && cfg.Logging.Verbosity > 0 {
		_ = cmd.Flags().Set("v", strconv.Itoa(cfg.Logging.Verbosity))
	}

	dev, err := webgpu.New(0, cfg)
	if err != nil {
		return err
	}
	defer dev.Release()
	fmt.Fprintf(cmd.OutOrStdout(), "device: %s\n", dev.Context().Name())

	start := time.Now()
	var g errgroup.Group
	for w := 0; w < parallel; w++ {
		g.Go(func() error {
			return smokeWorker(dev, w, size)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	stats := dev.Stats()
	fmt.Fprintf(cmd.OutOrStdout(), "ok: %d workers x %d elements in %s\n", parallel, size, time.Since(start).Round(time.Millisecond))
	fmt.Fprintf(cmd.OutOrStdout(), "allocated %s over %d buffers, peak %s\n",
		humanize.IBytes(stats.TotalAllocated), stats.Allocations, humanize.IBytes(stats.PeakBytes))
	return nil
}

// smokeWorker checks sqrt(x*x + 0) == x on its own input.
func smokeWorker(dev *webgpu.Device, worker, size int) error {
	values := make([]float32, size)
	for i := range values {
		values[i] = float32(worker*size+i) / float32(size)
	}
	l := tensor.Contiguous(tensor.Shape{size})

	x, err := dev.StorageFromHost(tensor.HostFrom(values))
	if err != nil {
		return errors.Wrapf(err, "worker %d: upload", worker)
	}
	defer func() { _ = x.Release() }()

	sq, err := x.Binary(tensor.Mul, x, l, l)
	if err != nil {
		return errors.Wrapf(err, "worker %d: mul", worker)
	}
	defer func() { _ = sq.Release() }()

	root, err := sq.Unary(tensor.Sqrt, l)
	if err != nil {
		return errors.Wrapf(err, "worker %d: sqrt", worker)
	}
	defer func() { _ = root.Release() }()

	host, err := root.ToHost()
	if err != nil {
		return errors.Wrapf(err, "worker %d: read back", worker)
	}
	for i, v := range host.Float32s() {
		if math.Abs(float64(v-values[i])) > 1e-3*math.Max(1, float64(values[i])) {
			return errors.Errorf("worker %d: element %d is %g, want %g", worker, i, v, values[i])
		}
	}
	klog.V(1).Infof("worker %d verified %d elements", worker, size)
	return nil
}
