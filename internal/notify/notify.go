// Package notify delivers lifecycle events to best-effort sinks.
// Publishing never blocks a command and never reports delivery failures back to it.
package notify

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"divecenter-backend/internal/domain"
	"divecenter-backend/internal/logger"
)

// Sink receives events. Implementations must be safe for concurrent use.
type Sink interface {
	Name() string
	Send(ctx context.Context, ev domain.Event) error
}

// Publisher is what the command service depends on.
type Publisher interface {
	Publish(events ...domain.Event)
}

type Options struct {
	QueueSize   int
	Workers     int
	SendTimeout time.Duration
}

func (o *Options) withDefaults() {
	if o.QueueSize <= 0 {
		o.QueueSize = 256
	}
	if o.Workers <= 0 {
		o.Workers = 2
	}
	if o.SendTimeout <= 0 {
		o.SendTimeout = 10 * time.Second
	}
}

// Dispatcher queues events and fans each one out to every sink.
// A full queue drops the event with a warning.
type Dispatcher struct {
	sinks   []Sink
	opts    Options
	queue   chan domain.Event
	wg      sync.WaitGroup
	mu      sync.RWMutex
	closed  bool
	dropped atomic.Uint64
}

func NewDispatcher(opts Options, sinks ...Sink) *Dispatcher {
	opts.withDefaults()
	d := &Dispatcher{
		sinks: sinks,
		opts:  opts,
		queue: make(chan domain.Event, opts.QueueSize),
	}
	for i := 0; i < opts.Workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}
	return d
}

func (d *Dispatcher) Publish(events ...domain.Event) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		logger.Warn("Notification dispatcher closed, dropping events", "count", len(events))
		return
	}
	for _, ev := range events {
		select {
		case d.queue <- ev:
		default:
			d.dropped.Add(1)
			logger.Warn("Notification queue full, dropping event",
				"kind", ev.Kind, "equipmentID", ev.EquipmentID, "queueSize", d.opts.QueueSize)
		}
	}
}

// Dropped reports how many events were discarded because the queue was full.
func (d *Dispatcher) Dropped() uint64 { return d.dropped.Load() }

// Close stops accepting events and waits until queued ones are delivered or ctx ends.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("notification dispatcher shutdown: %w", ctx.Err())
	}
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for ev := range d.queue {
		if err := d.deliver(ev); err != nil {
			logger.Warn("Event not delivered to every sink", "kind", ev.Kind, "equipmentID", ev.EquipmentID, "error", err)
		}
	}
}

// deliver sends ev to every sink and returns the first sink failure.
// A failing sink does not stop the others.
func (d *Dispatcher) deliver(ev domain.Event) error {
	ctx, cancel := context.WithTimeout(context.Background(), d.opts.SendTimeout)
	defer cancel()

	var g errgroup.Group
	for _, s := range d.sinks {
		s := s
		g.Go(func() error {
			logger.ExternalServiceCall(s.Name(), "Send", "kind", ev.Kind, "equipmentID", ev.EquipmentID)
			err := s.Send(ctx, ev)
			logger.ExternalServiceResult(s.Name(), "Send", err, "kind", ev.Kind, "equipmentID", ev.EquipmentID)
			if err != nil {
				return fmt.Errorf("%s: %w", s.Name(), err)
			}
			return nil
		})
	}
	return g.Wait()
}

// Describe renders the human readable title and message of an event.
func Describe(ev domain.Event) (title, message string) {
	item := string(ev.Type)
	if ev.Serial != "" {
		item += " " + ev.Serial
	}
	if item == "" {
		item = ev.EquipmentID
	}

	switch ev.Kind {
	case domain.EventMaintenanceThreshold:
		if ev.ThresholdPercent >= 100 {
			title = "Maintenance due"
		} else {
			title = "Maintenance threshold reached"
		}
		message = fmt.Sprintf("%s reached %d%% of its usage limit (%d of %d uses)",
			item, ev.ThresholdPercent, ev.UsageCount, ev.UsageLimit)
	case domain.EventRentalOverdue:
		title = "Rental overdue"
		due := "its due date"
		if ev.DueDate != nil {
			due = ev.DueDate.Format("2006-01-02")
		}
		message = fmt.Sprintf("%s rented by %s was due back on %s", item, ev.RenterName, due)
	default:
		title = string(ev.Kind)
		message = item
	}
	return title, message
}

// Attributes flattens an event into string attributes for stored notifications and push data.
func Attributes(ev domain.Event) map[string]string {
	attrs := map[string]string{
		"kind":         string(ev.Kind),
		"equipment_id": ev.EquipmentID,
		"center_id":    ev.CenterID,
	}
	switch ev.Kind {
	case domain.EventMaintenanceThreshold:
		attrs["threshold_percent"] = fmt.Sprintf("%d", ev.ThresholdPercent)
		attrs["usage_count"] = fmt.Sprintf("%d", ev.UsageCount)
		attrs["usage_limit"] = fmt.Sprintf("%d", ev.UsageLimit)
	case domain.EventRentalOverdue:
		attrs["rental_id"] = ev.RentalID
		if ev.DueDate != nil {
			attrs["due_date"] = ev.DueDate.Format(time.RFC3339)
		}
	}
	return attrs
}
