package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"codeberg.org/mutker/profilectl/internal/config"
	"codeberg.org/mutker/profilectl/internal/logger"
	"codeberg.org/mutker/profilectl/internal/metrics"
	"codeberg.org/mutker/profilectl/internal/sensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListSensors(t *testing.T) {
	finder := &sensor.FakeFinder{Features: []sensor.SubFeature{
		{Chip: "coretemp-isa-0000", Feature: "temp1", Label: "Package id 0", SubFeature: "temp1_input", Value: 48, Readable: true},
		{Chip: "nvme-pci-0300", Feature: "temp2", Label: "Sensor 1", SubFeature: "temp2_input"},
	}}

	var out bytes.Buffer
	require.Equal(t, 0, listSensors(&out, finder))

	lines := bytes.Split(bytes.TrimSpace(out.Bytes()), []byte("\n"))
	require.Len(t, lines, 3)
	assert.Contains(t, string(lines[0]), "SUB-FEATURE")
	assert.Contains(t, string(lines[1]), "Package id 0")
	assert.Contains(t, string(lines[1]), "48.000")
	assert.Contains(t, string(lines[2]), "n/a")
}

func TestPrintHistoryMissingDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "history.db")
	cfg := &config.Config{Metrics: metrics.Config{DBPath: path}}

	var out bytes.Buffer
	assert.Equal(t, 1, printHistory(&out, cfg))
	assert.Empty(t, out.String())

	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestPrintHistory(t *testing.T) {
	mcfg := metrics.DefaultConfig()
	mcfg.Enabled = true
	mcfg.DBPath = filepath.Join(t.TempDir(), "history.db")

	repo, err := metrics.NewRepository(mcfg, logger.Default())
	require.NoError(t, err)
	require.NoError(t, repo.Insert(&metrics.Transition{
		Timestamp: time.Now(),
		Reading:   71.5,
		From:      "armed",
		To:        "active",
		Cause:     "debounce",
		Strategy:  "hold",
	}))
	require.NoError(t, repo.Close())

	var out bytes.Buffer
	require.Equal(t, 0, printHistory(&out, &config.Config{Metrics: mcfg, History: 5}))
	assert.Contains(t, out.String(), "71.5")
	assert.Contains(t, out.String(), "debounce")
}
