package ui

import (
	"fmt"
	"os/exec"
	"runtime"
)

// NotificationSender delivers a desktop notification.
type NotificationSender interface {
	Send(title, message string) error
}

// commandSender runs a platform notification tool.
type commandSender func(title, message string) *exec.Cmd

func (c commandSender) Send(title, message string) error {
	return c(title, message).Run()
}

var platformSenders = map[string]commandSender{
	"linux": func(title, message string) *exec.Cmd {
		return exec.Command("notify-send", "--app-name=tmscraper", title, message)
	},
	"darwin": func(title, message string) *exec.Cmd {
		return exec.Command("osascript", "-e", fmt.Sprintf("display notification %q with title %q", message, title))
	},
}

// Notifier announces the end of a long crawl on the terminal and, where
// supported, the desktop.
type Notifier struct {
	sender NotificationSender
}

// NewNotifier picks the sender for this platform; elsewhere it only prints.
func NewNotifier() *Notifier {
	if s, ok := platformSenders[runtime.GOOS]; ok {
		return NewNotifierWithSender(s)
	}
	return NewNotifierWithSender(nil)
}

func NewNotifierWithSender(sender NotificationSender) *Notifier {
	return &Notifier{sender: sender}
}

func (n *Notifier) SendSuccess(title, message string) {
	PrintSuccess(title + ": " + message)
	n.send(title, message)
}

func (n *Notifier) SendError(title, message string) {
	PrintError(title, message)
	n.send(title, message)
}

// send ignores delivery failures; the terminal line is already printed.
func (n *Notifier) send(title, message string) {
	if n != nil && n.sender != nil {
		_ = n.sender.Send(title, message)
	}
}
