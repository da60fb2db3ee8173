package external

import (
	"context"
	"errors"
	"os/exec"
	"testing"
	"time"

	"github.com/agentic-research/gears/internal/asseterr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type data struct {
	Name         string
	AbsolutePath string
}

func requireShell(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
}

func TestArgv_RendersTemplates(t *testing.T) {
	c := New("stylus", "stylus", "--include", "{{dir .AbsolutePath}}", "--name={{.Name}}")
	argv, err := c.Argv(data{Name: "css/app", AbsolutePath: "/srv/assets/css/app.styl"})
	require.NoError(t, err)
	assert.Equal(t, []string{"stylus", "--include", "/srv/assets/css", "--name=css/app"}, argv)

	_, err = New("bad", "{{.Missing").Argv(data{})
	assert.Error(t, err)
}

func TestRun_PipesStdinToStdout(t *testing.T) {
	requireShell(t)
	c := New("upper", "tr", "a-z", "A-Z")
	out, err := c.Run(context.Background(), "/a.js", "hello\n", nil)
	require.NoError(t, err)
	assert.Equal(t, "HELLO\n", out)
}

func TestRun_NonZeroExitCarriesStderr(t *testing.T) {
	requireShell(t)
	c := New("failing", "sh", "-c", "echo 'boom at line 3' >&2; exit 3")
	_, err := c.Run(context.Background(), "/a.coffee", "x", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, asseterr.ErrProcessFailed)

	var pe *asseterr.ProcessError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "failing", pe.Handler)
	assert.Equal(t, "/a.coffee", pe.Path)
	assert.Contains(t, pe.Stderr, "boom at line 3")
}

func TestRun_MissingExecutable(t *testing.T) {
	c := New("ghost", "gears-no-such-binary-xyz")
	_, err := c.Run(context.Background(), "", "", nil)
	assert.ErrorIs(t, err, asseterr.ErrProcessFailed)
}

func TestRun_Timeout(t *testing.T) {
	requireShell(t)
	c := New("slow", "sh", "-c", "sleep 5")
	c.Timeout = 50 * time.Millisecond
	_, err := c.Run(context.Background(), "", "", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRun_EmptyCommand(t *testing.T) {
	_, err := Command{Name: "none"}.Run(context.Background(), "", "", nil)
	assert.ErrorIs(t, err, asseterr.ErrImproperlyConfigured)
}
