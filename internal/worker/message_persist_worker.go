package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"aimsite/internal/model"
	"aimsite/internal/repository"
)

// MessagePersistWorker drains the chat message queue and writes each message
// to MySQL. Chat requests only enqueue; this worker is the sole writer of
// the messages table, which keeps the request path fast and tolerant of
// short database outages.
type MessagePersistWorker struct {
	conn      *amqp.Connection
	repo      *repository.MessageRepository
	queueName string

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewMessagePersistWorker(conn *amqp.Connection, repo *repository.MessageRepository, queueName string) *MessagePersistWorker {
	return &MessagePersistWorker{
		conn:      conn,
		repo:      repo,
		queueName: queueName,
	}
}

// Start declares the queue and launches the consume loop. Calling Start on a
// running worker is a no-op.
func (w *MessagePersistWorker) Start(ctx context.Context) error {
	if w.cancel != nil {
		return nil
	}

	workerCtx, cancel := context.WithCancel(ctx)

	ch, err := w.conn.Channel()
	if err != nil {
		cancel()
		return fmt.Errorf("open worker channel failed: %w", err)
	}
	if _, err := ch.QueueDeclare(w.queueName, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("declare worker queue failed: %w", err)
	}

	deliveries, err := ch.Consume(w.queueName, "", false, false, false, false, nil)
	if err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("consume queue failed: %w", err)
	}

	w.cancel = cancel
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer ch.Close()

		for {
			select {
			case <-workerCtx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					return
				}
				w.handle(d)
			}
		}
	}()

	return nil
}

func (w *MessagePersistWorker) handle(d amqp.Delivery) {
	var msg model.Message
	if err := json.Unmarshal(d.Body, &msg); err != nil {
		log.Printf("worker decode message failed: %v", err)
		_ = d.Nack(false, false)
		return
	}
	if err := w.repo.Create(&msg); err != nil {
		log.Printf("worker persist message failed: %v", err)
		_ = d.Nack(false, false)
		return
	}
	_ = d.Ack(false)
}

// Close stops the consume loop and waits for the in-flight delivery.
func (w *MessagePersistWorker) Close() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}
