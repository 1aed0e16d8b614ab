package commands

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aliskhannn/fish-feeder/internal/domain/entities"
)

func useSQLite(t *testing.T) {
	t.Helper()

	t.Setenv("APP_ENV", "production")
	t.Setenv("FEEDER_STORE", "sqlite")
	t.Setenv("STORE_SQLITE_PATH", filepath.Join(t.TempDir(), "data", "feeder.db"))
	t.Setenv("TELEGRAM_API_TOKEN", "")
	t.Setenv("DATABASE_URL", "")
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)

	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestScheduleCommands(t *testing.T) {
	useSQLite(t)

	out, err := execute(t, "schedule", "set", "--time", "8:00 AM", "--interval", "3")
	require.NoError(t, err)
	assert.Contains(t, out, "First feeding: 8:00 AM")
	assert.Contains(t, out, "Interval:      3 h")

	out, err = execute(t, "schedule", "show", "--count", "3")
	require.NoError(t, err)
	assert.Contains(t, out, "First feeding: 8:00 AM")
	assert.Contains(t, out, "  3. ")
	assert.NotContains(t, out, "  4. ")

	out, err = execute(t, "schedule", "interval", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "Interval:      2 h")
}

func TestScheduleCommands_Errors(t *testing.T) {
	useSQLite(t)

	out, err := execute(t, "schedule", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "No feeding schedule set.")

	out, err = execute(t, "schedule", "interval", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "Interval saved")

	_, err = execute(t, "schedule", "interval", "9")
	assert.ErrorIs(t, err, entities.ErrInvalidInput)

	_, err = execute(t, "schedule", "set", "--time", "13:00 PM")
	assert.ErrorIs(t, err, entities.ErrInvalidInput)

	_, err = execute(t, "schedule", "set")
	assert.Error(t, err)
}

func TestAmountCommands(t *testing.T) {
	useSQLite(t)

	out, err := execute(t, "amount", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "* Just Right")

	out, err = execute(t, "amount", "set", "a", "lot")
	require.NoError(t, err)
	assert.Equal(t, "Feeding amount: A Lot (10 s)\n", out)

	out, err = execute(t, "amount", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "* A Lot")

	_, err = execute(t, "amount", "set", "heaps")
	assert.ErrorIs(t, err, entities.ErrInvalidInput)
}
