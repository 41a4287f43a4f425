// Package notify keeps the notification inbox: the merged view of fetched
// history and pushed events, the unread counter, and the audible alert for
// newly arrived events.
package notify
