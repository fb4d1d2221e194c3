package logging

import (
	"bytes"
	"io"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestInit_Levels(t *testing.T) {
	var buf bytes.Buffer
	Init(&buf, false, false)
	t.Cleanup(func() { Init(io.Discard, false, false) })

	L().Debug().Msg("hidden")
	L().Info().Msg("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"message":"shown"`)

	buf.Reset()
	Init(&buf, true, false)
	L().Debug().Msg("debug now")
	assert.Contains(t, buf.String(), "debug now")
}

func TestInit_Human(t *testing.T) {
	var buf bytes.Buffer
	Init(&buf, false, true)
	t.Cleanup(func() { Init(io.Discard, false, false) })

	L().Info().Str("table", "data").Msg("loaded")

	out := buf.String()
	assert.Contains(t, out, "loaded")
	assert.Contains(t, out, "table=data")
	assert.NotContains(t, out, `"message"`)
}

func TestWithPhase(t *testing.T) {
	var buf bytes.Buffer
	SetLogger(zerolog.New(&buf))
	t.Cleanup(func() { Init(io.Discard, false, false) })

	log := WithPhase("csv_load")
	log.Info().Msg("test message")

	assert.Contains(t, buf.String(), `"phase":"csv_load"`)
}

func TestSetLogger(t *testing.T) {
	var buf bytes.Buffer
	SetLogger(zerolog.New(&buf).With().Str("custom", "field").Logger())
	t.Cleanup(func() { Init(io.Discard, false, false) })

	L().Info().Msg("test")

	assert.Contains(t, buf.String(), `"custom":"field"`)
}
