// Package firestore stores the per-user notification history backing
// the notification list screen.
package firestore

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	urn "github.com/tinywideclouds/go-platform/pkg/net/v1"
	"github.com/tinywideclouds/go-push-agent/pkg/agent"
)

var _ agent.Inbox = (*InboxStore)(nil)

// InboxStore implements agent.Inbox using Google Cloud Firestore.
type InboxStore struct {
	client *firestore.Client
}

func NewInboxStore(client *firestore.Client) *InboxStore {
	return &InboxStore{client: client}
}

// inboxRecord is the internal DB representation.
type inboxRecord struct {
	Title     string            `firestore:"title"`
	Body      string            `firestore:"body"`
	ChannelID string            `firestore:"channel_id"`
	Data      map[string]string `firestore:"data,omitempty"`
	Read      bool              `firestore:"read"`
	CreatedAt time.Time         `firestore:"created_at"`
}

// Append writes one rendered notification. The notification ID is the
// document ID, so a redelivered message overwrites rather than
// duplicating its entry.
func (s *InboxStore) Append(ctx context.Context, user urn.URN, n agent.LocalNotification) error {
	record := inboxRecord{
		Title:     n.Title,
		Body:      n.Body,
		ChannelID: n.ChannelID,
		Data:      n.Data,
		Read:      false,
		CreatedAt: n.IssuedAt,
	}
	_, err := s.entryRef(user, n.ID).Set(ctx, record)
	if err != nil {
		return fmt.Errorf("inbox append failed: %w", err)
	}
	return nil
}

// List returns the newest entries first, up to limit.
func (s *InboxStore) List(ctx context.Context, user urn.URN, limit int) ([]agent.InboxEntry, error) {
	iter := s.entriesCollection(user).
		OrderBy("created_at", firestore.Desc).
		Limit(limit).
		Documents(ctx)
	defer iter.Stop()

	entries := make([]agent.InboxEntry, 0, limit)
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("inbox iteration failed: %w", err)
		}

		var record inboxRecord
		if err := doc.DataTo(&record); err != nil {
			// Skip corrupt rows rather than failing the whole list.
			continue
		}

		entries = append(entries, agent.InboxEntry{
			ID:        doc.Ref.ID,
			Title:     record.Title,
			Body:      record.Body,
			ChannelID: record.ChannelID,
			Data:      record.Data,
			Read:      record.Read,
			CreatedAt: record.CreatedAt,
		})
	}

	return entries, nil
}

// MarkRead flips the read flag on one entry.
func (s *InboxStore) MarkRead(ctx context.Context, user urn.URN, id string) error {
	_, err := s.entryRef(user, id).Update(ctx, []firestore.Update{
		{Path: "read", Value: true},
	})
	if err != nil {
		return fmt.Errorf("inbox mark-read failed: %w", err)
	}
	return nil
}

// entryRef: users/{userID}/notifications/{notificationID}
func (s *InboxStore) entryRef(user urn.URN, id string) *firestore.DocumentRef {
	return s.entriesCollection(user).Doc(id)
}

func (s *InboxStore) entriesCollection(user urn.URN) *firestore.CollectionRef {
	return s.client.Collection("users").Doc(user.String()).Collection("notifications")
}
