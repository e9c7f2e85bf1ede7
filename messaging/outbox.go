package messaging

import (
	"log"
	"time"

	"opscore/store"
)

// drainBatch bounds how many queued notifications one tick publishes.
const drainBatch = 50

// OutboxDrainer periodically publishes queued signal notifications. Signals
// are extracted even while the broker is down; the queue holds them until a
// tick finds the client connected again.
type OutboxDrainer struct {
	db       *store.DB
	client   *Client
	interval time.Duration
	stopChan chan struct{}
}

func NewOutboxDrainer(db *store.DB, client *Client, interval time.Duration) *OutboxDrainer {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &OutboxDrainer{
		db:       db,
		client:   client,
		interval: interval,
		stopChan: make(chan struct{}),
	}
}

func (d *OutboxDrainer) Start() {
	go d.run()
}

func (d *OutboxDrainer) Stop() {
	select {
	case d.stopChan <- struct{}{}:
	default:
	}
}

func (d *OutboxDrainer) run() {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-d.stopChan:
			return
		case <-ticker.C:
			d.drain()
		}
	}
}

func (d *OutboxDrainer) drain() {
	// Leave the queue intact while disconnected rather than burning
	// retry counts on messages that cannot possibly go out.
	if !d.client.IsConnected() {
		return
	}

	pending, err := d.db.ListPendingOutbox(drainBatch)
	if err != nil {
		log.Printf("outbox: list pending: %v", err)
		return
	}

	sent := 0
	for _, msg := range pending {
		if err := d.client.Publish(msg.Topic, msg.Payload); err != nil {
			log.Printf("outbox: publish %s to %s: %v", msg.MsgType, msg.Topic, err)
			d.db.IncrementOutboxRetries(msg.ID)
			continue
		}
		d.db.AckOutbox(msg.ID)
		sent++
	}
	if sent > 0 {
		log.Printf("outbox: drained %d message(s)", sent)
	}
}
