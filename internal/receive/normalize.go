package receive

import "github.com/tinywideclouds/go-push-agent/pkg/agent"

// Normalize resolves the display title and body of a push delivery.
// Both delivery paths use this same function, so the resolution order
// never diverges between them:
//
//	title: notification.title -> data["title"] -> "" (renderer default)
//	body:  notification.body  -> data["body"]  -> data["message"] -> ""
func Normalize(msg agent.InboundMessage) (title, body string) {
	if msg.Notification != nil {
		title = msg.Notification.Title
		body = msg.Notification.Body
	}
	if title == "" {
		title = msg.Data["title"]
	}
	if body == "" {
		body = msg.Data["body"]
	}
	if body == "" {
		body = msg.Data["message"]
	}
	return title, body
}
