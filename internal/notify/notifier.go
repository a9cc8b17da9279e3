package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/gearboxe-market/messaging/internal/observability"
)

// Notifier pushes lightweight refresh signals over Redis pub/sub so UI
// sessions subscribed to a user's channel re-read their inbox and threads
// without polling.
type Notifier struct {
	client *redis.Client
}

func New(client *redis.Client) *Notifier {
	return &Notifier{client: client}
}

type ChangeSignal struct {
	ConversationID string    `json:"conversation_id"`
	Kind           string    `json:"kind"` // "message" or "read"
	OccurredAt     time.Time `json:"occurred_at"`
}

func (n *Notifier) channel(userID string) string {
	return "messaging:user:" + userID
}

// ConversationChanged publishes the signal to every listed participant.
// Delivery is best effort; a failed publish only costs a delayed refresh.
func (n *Notifier) ConversationChanged(ctx context.Context, sig ChangeSignal, userIDs ...string) {
	log := observability.GetLogger(ctx)

	payload, err := json.Marshal(sig)
	if err != nil {
		log.Error("notify: marshal change signal", zap.Error(err))
		return
	}

	for _, userID := range userIDs {
		if err := n.client.Publish(ctx, n.channel(userID), payload).Err(); err != nil {
			log.Warn("notify: publish failed",
				zap.String("user_id", userID),
				zap.Error(err),
			)
		}
	}
}

// Subscribe delivers raw change signals for one user until ctx is canceled.
func (n *Notifier) Subscribe(ctx context.Context, userID string, handler func([]byte)) {
	channelName := n.channel(userID)
	pubsub := n.client.Subscribe(ctx, channelName)

	go func() {
		log := observability.GetLogger(ctx)
		log.Info("notify: subscribed to channel", zap.String("channel", channelName))
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				log.Info("notify: subscription loop stopping: context canceled")
				return
			case msg, ok := <-ch:
				if !ok {
					log.Warn("notify: pubsub channel closed")
					return
				}
				handler([]byte(msg.Payload))
			}
		}
	}()
}
