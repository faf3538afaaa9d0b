package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitializeWithWriter(t *testing.T) {
	t.Run("JSON at info drops debug", func(t *testing.T) {
		var buf bytes.Buffer
		InitializeWithWriter("info", "json", &buf)

		Debug("hidden")
		Info("sweep finished", "cancelled", 2)

		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		require.Len(t, lines, 1)
		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
		assert.Equal(t, "sweep finished", entry["msg"])
		assert.Equal(t, float64(2), entry["cancelled"])
	})

	t.Run("Transaction attributes", func(t *testing.T) {
		var buf bytes.Buffer
		InitializeWithWriter("debug", "text", &buf)

		WithTransaction("booking", "b1").Warn("skipped")
		assert.Contains(t, buf.String(), "kind=booking")
		assert.Contains(t, buf.String(), "transaction_id=b1")
	})

	t.Run("Database failure logs at error", func(t *testing.T) {
		var buf bytes.Buffer
		InitializeWithWriter("error", "text", &buf)

		DatabaseResult("UPDATE", 0, errors.New("boom"), "table", "bookings")
		DatabaseResult("UPDATE", 1, nil, "table", "bookings")
		assert.Equal(t, 1, strings.Count(buf.String(), "Database call"))
		assert.Contains(t, buf.String(), "boom")
	})
}
