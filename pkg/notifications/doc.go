// Package notifications sends service health transitions through shoutrrr.
//
// A Notifier remembers the last health verdict per image and queues a message only when it
// changes. Messages are rendered from a text/template and sent by a background goroutine, so a
// slow notification service never delays probing.
//
// Key components:
//   - Notifier: Shoutrrr-backed sender with transition tracking.
//   - Status: Health verdict passed to Update and rendered by the template.
//   - Options: Template, title and delay.
//
// Usage example:
//
//	n, err := notifications.New([]string{"slack://token@channel"}, notifications.Options{})
//	if err != nil {
//	    return err
//	}
//	defer n.Close()
//	n.Update(notifications.Status{Image: desc.Reference(), Healthy: svc.IsHealthy(ctx)})
package notifications
