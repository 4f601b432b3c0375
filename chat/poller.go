package chat

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/johnyUofL/coursechat/platformapi"
	"github.com/johnyUofL/coursechat/telemetry"
)

// Poller is the per-room delivery loop. Start loads the room's history
// synchronously and hands it to the display, then a background goroutine
// fetches the room's messages every interval and delivers the ones past the
// cursor that were authored by someone other than self. The cursor only ever
// advances, so a message is delivered at most once per session.
type Poller struct {
	api      *platformapi.Client
	room     platformapi.Room
	self     platformapi.User
	interval time.Duration

	display  DisplaySink
	notifier NotificationSink
	log      *slog.Logger

	mu     sync.Mutex
	cursor int
	cancel context.CancelFunc
	done   chan struct{}
}

// NewPoller builds an idle poller. interval must be positive; display may not
// be nil, notifier may be.
func NewPoller(api *platformapi.Client, room platformapi.Room, self platformapi.User, interval time.Duration, display DisplaySink, notifier NotificationSink) *Poller {
	return &Poller{
		api:      api,
		room:     room,
		self:     self,
		interval: interval,
		display:  display,
		notifier: notifier,
		log: slog.Default().With(
			slog.Int("room_id", room.ID),
			slog.String("room", room.Name)),
	}
}

// Start fetches the full room history, renders it through the display, and
// launches the polling loop. A history fetch failure leaves the poller idle
// and is returned to the caller; the session must not open on a partial view.
func (p *Poller) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.done != nil {
		return fmt.Errorf("poller for room %d already started", p.room.ID)
	}

	msgs, err := p.api.ListMessages(ctx, p.room.ID)
	if err != nil {
		return fmt.Errorf("load history for room %d: %w", p.room.ID, err)
	}
	for _, m := range msgs {
		p.display.AppendMessage(p.room.ID, m)
		if m.ID > p.cursor {
			p.cursor = m.ID
		}
	}
	p.log.Info("chat poller started",
		slog.Int("history", len(msgs)),
		slog.Duration("interval", p.interval))

	loopCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})
	go p.loop(loopCtx)
	return nil
}

// Stop cancels the polling loop and blocks until it has exited. Safe to call
// on a never-started or already-stopped poller.
func (p *Poller) Stop() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel = nil
	p.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

// Cursor returns the highest message ID the poller has observed.
func (p *Poller) Cursor() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cursor
}

// Bump advances the cursor to at least id. The manager calls it after a send
// so the sender's own message is not re-fetched as new.
func (p *Poller) Bump(id int) {
	p.mu.Lock()
	if id > p.cursor {
		p.cursor = id
	}
	p.mu.Unlock()
}

func (p *Poller) loop(ctx context.Context) {
	defer close(p.done)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			p.log.Info("chat poller stopped")
			return
		case <-ticker.C:
		}
		p.cycle(ctx)
	}
}

// cycle runs one fetch-and-deliver pass. Fetch errors skip the cycle; the
// next tick retries with the cursor unchanged.
func (p *Poller) cycle(ctx context.Context) {
	start := time.Now()
	msgs, err := p.api.ListMessages(ctx, p.room.ID)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		p.log.Warn("chat poll fetch", slog.Any("err", err))
		if telemetry.PollErrors != nil {
			telemetry.PollErrors.Inc()
		}
		return
	}

	p.mu.Lock()
	cursor := p.cursor
	p.mu.Unlock()

	var delivered int
	lastRead := 0
	for _, m := range msgs {
		if m.ID > lastRead {
			lastRead = m.ID
		}
		if m.ID <= cursor || m.User.ID == p.self.ID {
			continue
		}
		// Stale-completion guard: a stop between fetch and delivery must not
		// push messages into a torn-down display.
		if ctx.Err() != nil {
			return
		}
		p.display.AppendMessage(p.room.ID, m)
		if p.notifier != nil {
			p.notifier.Notify(p.room.ID, m)
		}
		if telemetry.MessagesReceived != nil {
			telemetry.MessagesReceived.Inc()
		}
		delivered++
	}

	// The cursor covers everything fetched, delivered or filtered, so a
	// self-authored tail does not get re-examined every cycle.
	p.Bump(lastRead)

	if delivered > 0 {
		if err := p.api.MarkRead(ctx, p.room.ID, p.self.ID, lastRead); err != nil {
			p.log.Debug("chat mark read", slog.Any("err", err))
		}
	}
	if telemetry.PollCycles != nil {
		telemetry.PollCycles.Inc()
	}
	if telemetry.PollDuration != nil {
		telemetry.PollDuration.Observe(time.Since(start).Seconds())
	}
}
