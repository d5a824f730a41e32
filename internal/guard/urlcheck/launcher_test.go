package urlcheck

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedLaunch struct {
	name string
	args []string
}

func recordingStarter(calls *[]recordedLaunch, err error) CommandStarter {
	return func(_ context.Context, name string, args ...string) error {
		*calls = append(*calls, recordedLaunch{name: name, args: args})
		return err
	}
}

func TestSystemLauncher_OpenPerPlatform(t *testing.T) {
	tests := []struct {
		goos         string
		expectedName string
		expectedArgs []string
	}{
		{goos: "linux", expectedName: "xdg-open", expectedArgs: []string{"https://example.com"}},
		{goos: "darwin", expectedName: "open", expectedArgs: []string{"https://example.com"}},
		{goos: "windows", expectedName: "rundll32", expectedArgs: []string{"url.dll,FileProtocolHandler", "https://example.com"}},
	}

	for _, tt := range tests {
		t.Run(tt.goos, func(t *testing.T) {
			var calls []recordedLaunch
			l := NewSystemLauncherWithStarter(tt.goos, recordingStarter(&calls, nil))

			require.NoError(t, l.Open(context.Background(), "https://example.com"))
			require.Len(t, calls, 1)
			assert.Equal(t, tt.expectedName, calls[0].name)
			assert.Equal(t, tt.expectedArgs, calls[0].args)
		})
	}
}

func TestSystemLauncher_RejectsUnsafeURL(t *testing.T) {
	var calls []recordedLaunch
	l := NewSystemLauncherWithStarter("linux", recordingStarter(&calls, nil))

	for _, u := range []string{"javascript:alert(1)", "file:///etc/passwd", "", "example.com"} {
		err := l.Open(context.Background(), u)
		assert.ErrorIs(t, err, ErrUnsafeURL)
	}
	assert.Empty(t, calls, "no opener may be started for a rejected url")
}

func TestSystemLauncher_UnsupportedPlatform(t *testing.T) {
	var calls []recordedLaunch
	l := NewSystemLauncherWithStarter("plan9", recordingStarter(&calls, nil))

	err := l.Open(context.Background(), "https://example.com")
	assert.ErrorIs(t, err, ErrUnsupportedPlatform)
	assert.Empty(t, calls)
}

func TestSystemLauncher_StartFailure(t *testing.T) {
	startErr := errors.New("executable file not found")
	var calls []recordedLaunch
	l := NewSystemLauncherWithStarter("linux", recordingStarter(&calls, startErr))

	err := l.Open(context.Background(), "mailto:user@example.com")
	assert.ErrorIs(t, err, startErr)
	assert.Contains(t, err.Error(), "xdg-open")
}
