// Package subscriptions turns raw broker streams into per-user authorized
// streams. Authorization runs per event at delivery time, because membership
// can change between subscribing and an event arriving, and because one
// broker topic serves many connected users with different visibility.
package subscriptions

import (
	"context"
	"log"

	"github.com/samber/lo"

	"LiveChat/server/internal/db"
	"LiveChat/server/internal/models"
	"LiveChat/server/internal/pubsub"
)

// MembershipSource answers whether a user participates in a chat.
type MembershipSource interface {
	IsParticipant(ctx context.Context, q db.Querier, chatID, userID int) (bool, error)
}

type Filter struct {
	pool    db.Acquirer
	members MembershipSource
}

func NewFilter(pool db.Acquirer, members MembershipSource) *Filter {
	return &Filter{pool: pool, members: members}
}

// Allowed reports whether userID may see event. It issues a fresh membership
// query on its own pooled connection, released before returning. Removal
// events are the exception: the chat and its membership rows are already
// deleted, so authorization runs against the participant snapshot carried in
// the payload instead of storage.
func (f *Filter) Allowed(ctx context.Context, userID int, event models.ChatEvent) (bool, error) {
	if userID == 0 {
		return false, nil
	}

	if removed, ok := event.(models.ChatRemoved); ok {
		return lo.Contains(removed.ParticipantIDs, userID), nil
	}

	var allowed bool
	err := db.WithConn(ctx, f.pool, func(conn db.Conn) error {
		var err error
		allowed, err = f.members.IsParticipant(ctx, conn, event.EventChatID(), userID)
		return err
	})
	if err != nil {
		return false, err
	}
	return allowed, nil
}

// Stream composes a raw subscription with the membership predicate: the
// returned channel carries only the events userID may see, in the order the
// broker delivered them. It closes when ctx is done or sub closes; pending
// checks are abandoned through ctx.
func (f *Filter) Stream(ctx context.Context, sub *pubsub.Subscription, userID int) <-chan models.ChatEvent {
	out := make(chan models.ChatEvent)

	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case payload, ok := <-sub.C():
				if !ok {
					return
				}
				event, ok := payload.(models.ChatEvent)
				if !ok {
					log.Printf("Dropping non-chat payload on topic %s: %T", sub.Topic(), payload)
					continue
				}

				allowed, err := f.Allowed(ctx, userID, event)
				if err != nil {
					if ctx.Err() != nil {
						return
					}
					log.Printf("Error authorizing event on topic %s for user %d: %v", sub.Topic(), userID, err)
					continue
				}
				if !allowed {
					continue
				}

				select {
				case out <- event:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out
}
