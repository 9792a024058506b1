// Package testutil builds deterministic consoles for package tests.
package testutil

import (
	"io"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"grimm.is/iwaf/internal/clock"
	"grimm.is/iwaf/internal/console"
	"grimm.is/iwaf/internal/logging"
)

// Epoch is the mock clock's starting time, two minutes after the newest
// seed log entry.
var Epoch = time.Date(2024, 9, 22, 10, 35, 0, 0, time.UTC)

// Logger discards everything below error.
func Logger() *logging.Logger {
	return logging.New(logging.Config{Level: logging.LevelError, Output: io.Discard})
}

// NewConsole returns a console on a mock clock at Epoch with a fixed random
// seed. mutate may adjust the options before the console is built.
func NewConsole(t testing.TB, mutate ...func(*console.Options)) (*console.Console, *clock.Mock) {
	t.Helper()
	mc := clock.NewMock(Epoch)
	opts := console.Options{
		Clock:  mc,
		Random: rand.New(rand.NewPCG(7, 7)),
		Logger: Logger(),
	}
	for _, m := range mutate {
		m(&opts)
	}
	c, err := console.New(opts)
	require.NoError(t, err)
	return c, mc
}
