package infrastructure

import (
	"context"
	"fmt"
	"os/exec"
	"time"

	"github.com/yourusername/tubefetch/internal/domain"
	"go.uber.org/zap"
)

const notifyTimeout = 5 * time.Second

// DesktopNotifier pops a desktop notification when a download finishes.
// Failures are logged and otherwise ignored.
type DesktopNotifier struct {
	config *domain.NotificationConfig
	logger *zap.Logger
}

// NewDesktopNotifier creates a notifier for the configured method
func NewDesktopNotifier(config *domain.NotificationConfig, logger *zap.Logger) *DesktopNotifier {
	return &DesktopNotifier{config: config, logger: logger}
}

// notifyArgs returns the command that shows title and body with the given method
func notifyArgs(method, title, body string) ([]string, bool) {
	switch method {
	case "osascript":
		return []string{"osascript", "-e", fmt.Sprintf(`display notification %q with title %q`, body, title)}, true
	case "notify-send":
		return []string{"notify-send", "--app-name=tubefetch", title, body}, true
	}
	return nil, false
}

func (n *DesktopNotifier) show(title, body string) {
	if !n.config.Enabled {
		return
	}

	args, ok := notifyArgs(n.config.Method, title, body)
	if !ok {
		n.logger.Warn("Unknown notification method", zap.String("method", n.config.Method))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
	defer cancel()

	if out, err := exec.CommandContext(ctx, args[0], args[1:]...).CombinedOutput(); err != nil {
		n.logger.Warn("Notification failed",
			zap.String("command", CommandLine(args[0], args[1:]...)),
			zap.ByteString("output", out),
			zap.Error(err))
	}
}

// NotifyDownloadCompleted announces a file that is ready to save
func (n *DesktopNotifier) NotifyDownloadCompleted(title string) {
	n.show("Download Successful!", shorten(title, 40))
}

// NotifyDownloadFailed announces a failed job with its user-facing reason
func (n *DesktopNotifier) NotifyDownloadFailed(title string, err error) {
	n.show("Download Failed", fmt.Sprintf("%s: %s", shorten(title, 40), domain.UserMessage(err)))
}

func shorten(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
