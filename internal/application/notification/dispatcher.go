package notification

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/storefront/backend/internal/domain/notification"
	"github.com/storefront/backend/internal/infrastructure/config"
	"github.com/storefront/backend/internal/infrastructure/email"
	"github.com/storefront/backend/internal/infrastructure/sms"
)

const (
	defaultBatchSize    = 20
	defaultPollInterval = 5 * time.Second
	defaultWorkers      = 4
)

// Dispatcher drains the notification queue. Each poll claims a batch of
// due pending rows, fans them out to a worker pool and records the
// delivery result. A failed delivery goes back on the queue with backoff
// until the retry limit is reached.
type Dispatcher struct {
	repo   notification.NotificationRepository
	sms    sms.Sender
	email  email.Sender
	config config.NotificationConfig
	logger *zap.Logger

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// NewDispatcher creates a dispatcher over the notification queue.
func NewDispatcher(
	repo notification.NotificationRepository,
	smsSender sms.Sender,
	emailSender email.Sender,
	cfg config.NotificationConfig,
	logger *zap.Logger,
) *Dispatcher {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if cfg.Workers <= 0 {
		cfg.Workers = defaultWorkers
	}
	return &Dispatcher{
		repo:   repo,
		sms:    smsSender,
		email:  emailSender,
		config: cfg,
		logger: logger,
	}
}

// Start launches the poll loop. It returns immediately; delivery happens
// in the background until Stop.
func (d *Dispatcher) Start(ctx context.Context) error {
	if !d.config.DispatcherEnabled {
		d.logger.Info("Notification dispatcher disabled")
		return nil
	}

	d.mu.Lock()
	if d.isRunning {
		d.mu.Unlock()
		return nil
	}
	d.isRunning = true
	d.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	d.wg.Add(1)
	go d.loop(ctx)

	d.logger.Info("Notification dispatcher started",
		zap.Int("batch_size", d.config.BatchSize),
		zap.Duration("poll_interval", d.config.PollInterval),
		zap.Int("workers", d.config.Workers))
	return nil
}

// Stop halts polling and waits for in-flight deliveries to finish.
func (d *Dispatcher) Stop(ctx context.Context) error {
	d.mu.Lock()
	if !d.isRunning {
		d.mu.Unlock()
		return nil
	}
	d.isRunning = false
	d.mu.Unlock()

	if d.cancel != nil {
		d.cancel()
	}

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.logger.Info("Notification dispatcher stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) loop(ctx context.Context) {
	defer d.wg.Done()

	ticker := time.NewTicker(d.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := d.DispatchBatch(ctx); err != nil {
				d.logger.Error("Notification batch failed", zap.Error(err))
			}
		}
	}
}

// DispatchBatch claims one batch of due notifications and delivers them.
// Exported so tests and manual triggers can drive the queue without the
// poll loop.
func (d *Dispatcher) DispatchBatch(ctx context.Context) error {
	claimed, err := d.repo.ClaimPending(ctx, time.Now(), d.config.BatchSize)
	if err != nil {
		return err
	}
	if len(claimed) == 0 {
		return nil
	}

	jobs := make(chan *notification.Notification)
	var workers sync.WaitGroup
	for i := 0; i < d.config.Workers; i++ {
		workers.Add(1)
		go func() {
			defer workers.Done()
			for n := range jobs {
				d.deliver(ctx, n)
			}
		}()
	}

	for i := range claimed {
		jobs <- &claimed[i]
	}
	close(jobs)
	workers.Wait()

	return nil
}

func (d *Dispatcher) deliver(ctx context.Context, n *notification.Notification) {
	// A panicking sender must not take down the worker or the process;
	// the claimed row stays in sending and is reclaimed after the lease.
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("Notification delivery panicked",
				zap.String("notification_id", n.ID.String()),
				zap.String("channel", string(n.Channel)),
				zap.Any("panic", r))
		}
	}()

	externalID, err := d.send(ctx, n)
	if err != nil {
		n.MarkFailed(err.Error())
		d.logger.Warn("Notification delivery failed",
			zap.String("notification_id", n.ID.String()),
			zap.String("channel", string(n.Channel)),
			zap.Int("attempts", n.Attempts),
			zap.Error(err))
	} else {
		n.MarkSent(externalID)
		d.logger.Info("Notification sent",
			zap.String("notification_id", n.ID.String()),
			zap.String("channel", string(n.Channel)),
			zap.String("type", string(n.Type)))
	}

	if err := d.repo.Save(ctx, n); err != nil {
		d.logger.Error("Notification state not persisted",
			zap.String("notification_id", n.ID.String()),
			zap.Error(err))
	}
}

func (d *Dispatcher) send(ctx context.Context, n *notification.Notification) (string, error) {
	switch n.Channel {
	case notification.ChannelSMS:
		return d.sms.Send(ctx, n.Recipient, n.Body)
	case notification.ChannelEmail:
		return "", d.email.Send(ctx, n.Recipient, n.Subject, n.Body)
	default:
		return "", notification.ErrUnknownChannel
	}
}
