package app

import (
	"sync"

	"github.com/bdobrica/Hisho/internal/hisho/matrix"
)

// inbox hands Matrix messages to handle in arrival order per sender. Each
// sender with queued messages has one worker goroutine; different senders
// are handled in parallel.
type inbox struct {
	handle func(matrix.Message)

	mu     sync.Mutex
	queues map[string][]matrix.Message
	wg     sync.WaitGroup
}

func newInbox(handle func(matrix.Message)) *inbox {
	return &inbox{handle: handle, queues: make(map[string][]matrix.Message)}
}

// Push queues msg behind any earlier message from the same sender.
func (q *inbox) Push(msg matrix.Message) {
	q.mu.Lock()
	queue, active := q.queues[msg.Sender]
	q.queues[msg.Sender] = append(queue, msg)
	q.mu.Unlock()
	if !active {
		q.wg.Add(1)
		go q.drain(msg.Sender)
	}
}

// drain handles sender's messages until the queue is empty. The queue entry
// is removed under the lock, so a later Push starts a new worker.
func (q *inbox) drain(sender string) {
	defer q.wg.Done()
	for {
		q.mu.Lock()
		queue := q.queues[sender]
		if len(queue) == 0 {
			delete(q.queues, sender)
			q.mu.Unlock()
			return
		}
		msg := queue[0]
		q.queues[sender] = queue[1:]
		q.mu.Unlock()

		q.handle(msg)
	}
}

// Wait blocks until every queued message has been handled.
func (q *inbox) Wait() { q.wg.Wait() }
