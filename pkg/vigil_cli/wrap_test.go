package vigil_cli

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/CodeMonkeyCybersecurity/vigil/pkg/vigil_err"
	"github.com/CodeMonkeyCybersecurity/vigil/pkg/vigil_io"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapRecoversPanic(t *testing.T) {
	cmd := &cobra.Command{Use: "boom"}
	run := Wrap(func(rc *vigil_io.RuntimeContext, cmd *cobra.Command, args []string) error {
		panic("kaboom")
	})
	err := run(cmd, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kaboom")
}

func TestWrapKeepsUserErrors(t *testing.T) {
	cmd := &cobra.Command{Use: "read"}
	want := vigil_err.NewExpectedError(errors.New("no server named db9"))
	run := Wrap(func(rc *vigil_io.RuntimeContext, cmd *cobra.Command, args []string) error {
		require.NotNil(t, rc.Ctx)
		require.NotNil(t, rc.Log)
		return want
	})
	err := run(cmd, nil)
	assert.True(t, vigil_err.IsExpectedUserError(err))
	assert.Equal(t, 0, vigil_err.GetExitCode(err))
}

func TestSignalHandlerShutdownRunsCleanupsInReverse(t *testing.T) {
	h := NewSignalHandler(context.Background(), time.Second)
	var order []int
	h.RegisterCleanup(func(context.Context) error { order = append(order, 1); return nil })
	h.RegisterCleanup(func(context.Context) error { order = append(order, 2); return errors.New("flush failed") })

	err := h.Shutdown()
	assert.EqualError(t, err, "flush failed")
	assert.Equal(t, []int{2, 1}, order)
	assert.Error(t, h.Context().Err())
	assert.NoError(t, h.Shutdown())
}
