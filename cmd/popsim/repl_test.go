package main

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/edwinsyarief/jotai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestREPL(t *testing.T, cfg Config) (*REPL, *bytes.Buffer) {
	t.Helper()
	model, err := NewModel(cfg, jotai.NewDefaultLogger(slog.LevelError+4))
	require.NoError(t, err)
	var out bytes.Buffer
	return &REPL{Model: model, Out: &out}, &out
}

func TestREPLSession(t *testing.T) {
	repl, out := newTestREPL(t, DefaultConfig())

	require.NoError(t, repl.Exec("spawn"))
	require.NoError(t, repl.Exec("spawn 17"))
	require.NoError(t, repl.Exec("spawn 40 true"))
	assert.Equal(t, "Person#0\nPerson#1\nPerson#2\n", out.String())

	out.Reset()
	require.NoError(t, repl.Exec("set 1 age 19"))
	assert.Equal(t, "Person#1\tAge=19y Vaccinated=false IsAdult=true AgeGroup=adult\n", out.String())

	out.Reset()
	require.NoError(t, repl.Exec("get #0 IsAdult"))
	assert.Equal(t, "<unset>\n", out.String())

	out.Reset()
	require.NoError(t, repl.Exec("index IsAdult"))
	require.NoError(t, repl.Exec("query IsAdult=true"))
	assert.Equal(t, "indexed IsAdult\nPerson#1\nPerson#2\n2 matched\n", out.String())

	out.Reset()
	require.NoError(t, repl.Exec("scan Age>=18 and not Vaccinated=true"))
	assert.Equal(t, "Person#1\n1 matched\n", out.String())

	out.Reset()
	require.NoError(t, repl.Exec("count Age=- or AgeGroup=adult"))
	assert.Equal(t, "3\n", out.String())

	out.Reset()
	require.NoError(t, repl.Exec("unset 2 age"))
	require.NoError(t, repl.Exec("count IsAdult"))
	assert.Contains(t, out.String(), "Person#2\tAge=<unset>")
	assert.True(t, strings.HasSuffix(out.String(), "1\n"))

	assert.Equal(t, io.EOF, repl.Exec("exit"))
}

func TestREPLErrors(t *testing.T) {
	repl, _ := newTestREPL(t, DefaultConfig())
	require.NoError(t, repl.Exec("spawn 3"))

	assert.ErrorIs(t, repl.Exec("set 0 IsAdult true"), jotai.ErrDerivedWrite)
	assert.ErrorIs(t, repl.Exec("set 9 Age 1"), jotai.ErrOutOfRange)
	assert.ErrorIs(t, repl.Exec("set 0 Height 1"), ErrUnknownProperty)
	assert.ErrorIs(t, repl.Exec("set 0 Age"), ErrUsage)
	assert.Error(t, repl.Exec("set 0 Age 300"))
	assert.Error(t, repl.Exec("set x Age 3"))
	assert.ErrorIs(t, repl.Exec("query Vaccinated>=true"), ErrUnsupportedOp)
	assert.ErrorIs(t, repl.Exec("query Age>=3 and"), ErrBadExpr)
	assert.ErrorIs(t, repl.Exec("query"), ErrBadExpr)
	assert.Error(t, repl.Exec("frobnicate"))
	assert.NoError(t, repl.Exec("   "))
}

func TestREPLHelpListsProperties(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Indexes = []string{"agegroup"}
	repl, out := newTestREPL(t, cfg)
	repl.CommandHelp()
	assert.Contains(t, out.String(), "AgeGroup (derived, indexed)")
	assert.Contains(t, out.String(), "Age (base)")
}

func TestModelPopulation(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Population = 200
	cfg.Seed = 42
	cfg.Indexes = []string{"IsAdult", "Vaccinated"}
	repl, _ := newTestREPL(t, cfg)
	m := repl.Model
	assert.Equal(t, 200, m.People.Count())
	require.NoError(t, m.World.Indexes().Verify())

	pred, err := m.ParsePredicate("IsAdult=true and Vaccinated=false or AgeGroup=senior")
	require.NoError(t, err)
	assert.Equal(t,
		jotai.Collect(jotai.Scan(m.World, pred)),
		jotai.Collect(jotai.Query(m.World, pred)),
	)
}

func TestLoadConfig(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)

	path := filepath.Join(t.TempDir(), "popsim.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
initial_capacity: 64
log_level: debug
adult_age: 21
indexes: [IsAdult]
population: 10
seed: 7
`), 0o644))
	cfg, err = LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 64, cfg.InitialCapacity)
	assert.Equal(t, uint8(21), cfg.AdultAge)
	assert.Equal(t, []string{"IsAdult"}, cfg.Indexes)
	assert.Equal(t, ".popsim_history", cfg.HistoryFile)
	level, err := cfg.Level()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)

	require.NoError(t, os.WriteFile(path, []byte("log_level: loud\n"), 0o644))
	_, err = LoadConfig(path)
	assert.Error(t, err)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
