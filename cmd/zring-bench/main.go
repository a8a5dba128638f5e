// Command zring-bench drives a simulated queue pair through the zero-copy
// ring path as fast as it can, reporting packet and byte rates. It doubles
// as an end-to-end smoke test for the reconcilers.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/zring-io/zring"
	"github.com/zring-io/zring/config"
	"github.com/zring-io/zring/ring"
	"github.com/zring-io/zring/util"
)

// A version string that can be set with
//
//	-ldflags "-X main.Build=SOMEVERSION"
//
// at compile-time.
var Build string

func init() {
	if Build == "" {
		info, ok := debug.ReadBuildInfo()
		if !ok {
			return
		}

		Build = strings.TrimPrefix(info.Main.Version, "v")
	}
}

func main() {
	configPath := flag.String("config", "", "Path to either a file or directory to load configuration from")
	configTest := flag.Bool("test", false, "Test the config and print the end result. Non zero exit indicates a faulty config")
	printVersion := flag.Bool("version", false, "Print version")
	printUsage := flag.Bool("help", false, "Print command line usage")

	flag.Parse()

	if *printVersion {
		fmt.Printf("Version: %s\n", Build)
		os.Exit(0)
	}

	if *printUsage {
		flag.Usage()
		os.Exit(0)
	}

	if *configPath == "" {
		fmt.Println("-config flag must be set")
		flag.Usage()
		os.Exit(1)
	}

	l := logrus.New()
	l.Out = os.Stdout

	c := config.NewC(l)
	err := c.Load(*configPath)
	if err != nil {
		fmt.Printf("failed to load config: %s", err)
		os.Exit(1)
	}

	a, err := zring.Main(c, *configTest, Build, l)
	if err != nil {
		util.LogWithContextIfNeeded("Failed to start", err, l)
		os.Exit(1)
	}

	if *configTest {
		os.Exit(0)
	}

	if err := run(l, c, a); err != nil {
		util.LogWithContextIfNeeded("Benchmark failed", err, l)
		os.Exit(1)
	}

	os.Exit(0)
}

func run(l *logrus.Logger, c *config.C, a *zring.Adapter) error {
	defer a.Close()

	pktLen := uint16(c.GetInt("bench.packet_size", 1024))
	batch := uint32(c.GetInt("bench.batch", 64))
	duration := c.GetDuration("bench.duration", 0)
	reportEvery := c.GetDuration("bench.report_interval", time.Second)

	ctrl := a.Controller()
	if err := ctrl.Enter(); err != nil {
		return util.ContextualizeIfNeeded("Failed to enter zero-copy mode", err)
	}
	defer ctrl.Exit()
	a.Interface().Up()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, duration)
		defer cancel()
	}
	c.CatchHUP(ctx)

	var txPkts, txBytes, rxPkts, rxBytes atomic.Uint64

	g, ctx := errgroup.WithContext(ctx)
	for qi := 0; qi < a.NumQueues(); qi++ {
		qi := qi
		g.Go(func() error {
			return runTx(ctx, a, qi, pktLen, batch, &txPkts, &txBytes)
		})
		g.Go(func() error {
			return runRx(ctx, a, qi, pktLen, batch, &rxPkts, &rxBytes)
		})
	}
	g.Go(func() error {
		return report(ctx, l, reportEvery, &txPkts, &txBytes, &rxPkts, &rxBytes)
	})

	err := g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	l.WithFields(logrus.Fields{
		"tx_packets": humanize.Comma(int64(txPkts.Load())),
		"rx_packets": humanize.Comma(int64(rxPkts.Load())),
		"tx_bytes":   humanize.Bytes(txBytes.Load()),
		"rx_bytes":   humanize.Bytes(rxBytes.Load()),
	}).Info("Benchmark finished")
	return nil
}

// runTx fills free slots, reconciles and has the simulated NIC drain them.
func runTx(ctx context.Context, a *zring.Adapter, qi int, pktLen uint16, batch uint32, pkts, bytes *atomic.Uint64) error {
	q := a.TxQueue(qi)
	sim := a.Sim(qi)
	r := q.Ring()
	num := q.NumSlots()
	lim := num - 1

	for ctx.Err() == nil {
		head := r.Head()
		space := (r.Tail() + num - head) % num
		if space > batch {
			space = batch
		}

		for i := uint32(0); i < space; i++ {
			slot := r.Slot(head)
			slot.Len = pktLen
			slot.Flags = 0
			head = ring.Next(head, lim)
		}
		r.SetHead(head)
		r.SetCur(head)

		if err := q.Sync(); err != nil {
			return err
		}
		sim.CompleteTx()

		pkts.Add(uint64(space))
		bytes.Add(uint64(space) * uint64(pktLen))
	}
	return ctx.Err()
}

// runRx has the simulated NIC deliver packets, reconciles and consumes them.
func runRx(ctx context.Context, a *zring.Adapter, qi int, pktLen uint16, batch uint32, pkts, bytes *atomic.Uint64) error {
	q := a.RxQueue(qi)
	sim := a.Sim(qi)
	r := q.Ring()
	num := q.NumSlots()
	lim := num - 1

	for ctx.Err() == nil {
		for i := uint32(0); i < batch; i++ {
			if !sim.Deliver(pktLen) {
				break
			}
		}

		if err := q.Sync(true); err != nil {
			return err
		}

		head := r.Head()
		tail := r.Tail()
		n := uint64(0)
		for head != tail {
			bytes.Add(uint64(r.Slot(head).Len))
			head = ring.Next(head, lim)
			n++
		}
		r.SetHead(head)
		r.SetCur(head)
		pkts.Add(n)

		// Release the consumed buffers back to the hardware.
		if err := q.Sync(false); err != nil {
			return err
		}
	}
	return ctx.Err()
}

func report(ctx context.Context, l *logrus.Logger, every time.Duration, txPkts, txBytes, rxPkts, rxBytes *atomic.Uint64) error {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	var lastTxP, lastTxB, lastRxP, lastRxB uint64
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			tp, tb := txPkts.Load(), txBytes.Load()
			rp, rb := rxPkts.Load(), rxBytes.Load()
			l.WithFields(logrus.Fields{
				"tx_pps": humanize.Comma(int64(tp - lastTxP)),
				"tx_bps": humanize.Bytes(tb - lastTxB),
				"rx_pps": humanize.Comma(int64(rp - lastRxP)),
				"rx_bps": humanize.Bytes(rb - lastRxB),
			}).Info("Throughput")
			lastTxP, lastTxB, lastRxP, lastRxB = tp, tb, rp, rb
		}
	}
}
