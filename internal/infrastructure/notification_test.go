package infrastructure

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/yourusername/tubefetch/internal/domain"
)

func TestNotifyArgs(t *testing.T) {
	args, ok := notifyArgs("notify-send", "Download Failed", "clip: Network error")
	require.True(t, ok)
	assert.Equal(t, []string{"notify-send", "--app-name=tubefetch", "Download Failed", "clip: Network error"}, args)

	args, ok = notifyArgs("osascript", "Done", `say "hi"`)
	require.True(t, ok)
	assert.Equal(t, "osascript", args[0])
	assert.Equal(t, `display notification "say \"hi\"" with title "Done"`, args[2])

	_, ok = notifyArgs("pigeon", "a", "b")
	assert.False(t, ok)
}

func TestDesktopNotifier_DisabledOrUnknownIsSilent(t *testing.T) {
	disabled := NewDesktopNotifier(&domain.NotificationConfig{Enabled: false, Method: "notify-send"}, zap.NewNop())
	disabled.NotifyDownloadCompleted("clip")
	disabled.NotifyDownloadFailed("clip", errors.New("boom"))

	unknown := NewDesktopNotifier(&domain.NotificationConfig{Enabled: true, Method: "pigeon"}, zap.NewNop())
	unknown.NotifyDownloadCompleted("clip")
}

func TestShorten(t *testing.T) {
	assert.Equal(t, "short", shorten("short", 10))
	assert.Equal(t, "日本語...", shorten("日本語のタイトル", 3))
}
