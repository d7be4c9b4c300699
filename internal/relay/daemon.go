package relay

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"sync"
	"time"

	"github.com/zulandar/polyglot/internal/cache"
	"github.com/zulandar/polyglot/internal/chat"
)

// Daemon is the long-running relay process. It connects to the platform via
// an Adapter, runs one orchestration per inbound event, and periodically
// flushes the configuration caches.
type Daemon struct {
	adapter   chat.Adapter
	relay     *Relay
	config    *cache.Config
	flushCron string
	out       io.Writer
	inflight  sync.WaitGroup
}

// DaemonOpts holds parameters for creating a new Daemon.
type DaemonOpts struct {
	Adapter   chat.Adapter
	Relay     *Relay
	Config    *cache.Config // flushed on FlushCron
	FlushCron string        // optional 5-field cron expression
	Out       io.Writer     // defaults to os.Stdout
}

// NewDaemon creates a Daemon with the given options.
func NewDaemon(opts DaemonOpts) (*Daemon, error) {
	if opts.Adapter == nil {
		return nil, fmt.Errorf("relay: adapter is required")
	}
	if opts.Relay == nil {
		return nil, fmt.Errorf("relay: relay is required")
	}
	if opts.FlushCron != "" {
		if opts.Config == nil {
			return nil, fmt.Errorf("relay: config cache is required for scheduled flush")
		}
		if err := ValidateCron(opts.FlushCron); err != nil {
			return nil, fmt.Errorf("relay: flush cron %q: %w", opts.FlushCron, err)
		}
	}
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}
	return &Daemon{
		adapter:   opts.Adapter,
		relay:     opts.Relay,
		config:    opts.Config,
		flushCron: opts.FlushCron,
		out:       out,
	}, nil
}

// Run connects the adapter and processes events until ctx is cancelled or
// the adapter closes its event stream. In-flight orchestrations are allowed
// to finish before Run returns.
func (d *Daemon) Run(ctx context.Context) error {
	fmt.Fprintf(d.out, "Relay connecting...\n")
	if err := d.adapter.Connect(ctx); err != nil {
		return fmt.Errorf("relay: connect: %w", err)
	}

	events, err := d.adapter.Listen(ctx)
	if err != nil {
		d.adapter.Close()
		return fmt.Errorf("relay: listen: %w", err)
	}

	if d.flushCron != "" {
		go d.runFlushScheduler(ctx)
	}

	fmt.Fprintf(d.out, "Relay online\n")

	for {
		select {
		case <-ctx.Done():
			fmt.Fprintf(d.out, "Relay shutting down...\n")
			d.inflight.Wait()
			if err := d.adapter.Close(); err != nil {
				log.Printf("relay: close adapter: %v", err)
			}
			fmt.Fprintf(d.out, "Relay stopped\n")
			return nil

		case ev, ok := <-events:
			if !ok {
				fmt.Fprintf(d.out, "Relay event stream closed\n")
				d.inflight.Wait()
				return nil
			}
			d.inflight.Add(1)
			go func(ev chat.Event) {
				defer d.inflight.Done()
				// Orchestrations outlive shutdown so a started fan-out still
				// persists its link record.
				d.handle(context.WithoutCancel(ctx), ev)
			}(ev)
		}
	}
}

// handle dispatches one event to the relay and logs unrecovered failures.
func (d *Daemon) handle(ctx context.Context, ev chat.Event) {
	var err error
	switch ev.Kind {
	case chat.EventCreate:
		err = d.relay.HandleCreate(ctx, ev.Message)
	case chat.EventUpdate:
		err = d.relay.HandleEdit(ctx, ev.Message)
	default:
		return
	}
	if err != nil {
		log.Printf("relay: %s %s: %v", ev.Kind, ev.Message.ID, err)
	}
}

// runFlushScheduler flushes the configuration caches on the flush schedule.
func (d *Daemon) runFlushScheduler(ctx context.Context) {
	wait := nextCronDuration(d.flushCron, time.Now())
	if wait <= 0 {
		return
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			d.config.Flush()
			log.Printf("relay: flushed channel configuration caches")
			if wait := nextCronDuration(d.flushCron, time.Now()); wait > 0 {
				timer.Reset(wait)
			} else {
				return
			}
		}
	}
}
