// utils/websocket.go
package utils

import (
	"context"
	"net/http"
	"sync"
	"time"

	"lipia/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const writeWait = 10 * time.Second

// PaymentPoller checks a payment once.
type PaymentPoller func(ctx context.Context) (models.PaymentUpdate, error)

// watchClient is one browser tab waiting on a checkout
type watchClient struct {
	ID         uuid.UUID
	Conn       *websocket.Conn
	CheckoutID string
	Username   string
	StartedAt  time.Time
}

// PaymentWatcher streams payment status to websocket clients. Each client
// gets its own polling loop that stops at a terminal status, after
// maxAttempts polls, or when the client goes away.
type PaymentWatcher struct {
	upgrader    websocket.Upgrader
	interval    time.Duration
	maxAttempts int
	log         *logrus.Logger

	mutex   sync.RWMutex
	clients map[*watchClient]bool
}

func NewPaymentWatcher(interval time.Duration, maxAttempts int, log *logrus.Logger) *PaymentWatcher {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	w := &PaymentWatcher{
		interval:    interval,
		maxAttempts: maxAttempts,
		log:         log,
		clients:     make(map[*watchClient]bool),
	}
	w.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		Error: func(rw http.ResponseWriter, r *http.Request, status int, reason error) {
			log.WithError(reason).WithField("status", status).Warn("websocket upgrade failed")
			http.Error(rw, http.StatusText(status), status)
		},
	}
	return w
}

// Active is the number of connected watchers.
func (w *PaymentWatcher) Active() int {
	w.mutex.RLock()
	defer w.mutex.RUnlock()
	return len(w.clients)
}

func (w *PaymentWatcher) register(client *watchClient) {
	w.mutex.Lock()
	w.clients[client] = true
	w.mutex.Unlock()
}

func (w *PaymentWatcher) unregister(client *watchClient) {
	w.mutex.Lock()
	delete(w.clients, client)
	w.mutex.Unlock()
	client.Conn.Close()
}

// Serve upgrades the request and pushes a PaymentUpdate after every poll.
func (w *PaymentWatcher) Serve(c *gin.Context, checkoutID string, poll PaymentPoller) {
	conn, err := w.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	client := &watchClient{
		ID:         uuid.New(),
		Conn:       conn,
		CheckoutID: checkoutID,
		Username:   CurrentUsername(c),
		StartedAt:  time.Now(),
	}
	w.register(client)
	defer w.unregister(client)

	entry := w.log.WithFields(logrus.Fields{
		"client_id":   client.ID.String(),
		"checkout_id": checkoutID,
		"username":    client.Username,
	})
	entry.Debug("payment watcher connected")

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	// the read loop only exists to notice the client closing
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for attempt := 1; ; attempt++ {
		update, err := poll(ctx)
		if err != nil && update.Error == "" {
			update.Error = err.Error()
		}
		if ctx.Err() != nil {
			return
		}

		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(update); err != nil {
			entry.WithError(err).Debug("payment watcher write failed")
			return
		}

		if update.Terminal() || attempt >= w.maxAttempts {
			reason := "payment completed"
			if !update.Terminal() {
				reason = "gave up waiting"
			}
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, reason),
				time.Now().Add(writeWait))
			entry.WithField("attempts", attempt).Debug(reason)
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
