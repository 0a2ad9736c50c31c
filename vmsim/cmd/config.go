package cmd

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Environment variables that provide flag defaults.
const (
	envBackingStore = "VMSIM_BACKING_STORE"
	envRecordFile   = "VMSIM_RECORD_FILE"
	envMonitorPort  = "VMSIM_MONITOR_PORT"
	envTLBSize      = "VMSIM_TLB_SIZE"
)

const defaultBackingStore = "BACKING_STORE.bin"

type config struct {
	BackingStore string
	RecordFile   string
	MonitorPort  int
	TLBSize      int
}

// loadConfig reads flag defaults from the process environment and then from
// the given .env files. The process environment wins. Missing files are
// ignored.
func loadConfig(envFiles ...string) (config, error) {
	fileEnv := map[string]string{}

	existing := []string{}
	for _, f := range envFiles {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		}
	}

	if len(existing) > 0 {
		var err error

		fileEnv, err = godotenv.Read(existing...)
		if err != nil {
			return config{}, err
		}
	}

	lookup := func(key string) string {
		if v, ok := os.LookupEnv(key); ok {
			return v
		}

		return fileEnv[key]
	}

	c := config{
		BackingStore: defaultBackingStore,
		RecordFile:   lookup(envRecordFile),
		TLBSize:      16,
	}

	if v := lookup(envBackingStore); v != "" {
		c.BackingStore = v
	}

	var err error

	c.MonitorPort, err = intOr(lookup(envMonitorPort), envMonitorPort, 0)
	if err != nil {
		return config{}, err
	}

	c.TLBSize, err = intOr(lookup(envTLBSize), envTLBSize, c.TLBSize)
	if err != nil {
		return config{}, err
	}

	return c, nil
}

func intOr(v, key string, fallback int) (int, error) {
	if v == "" {
		return fallback, nil
	}

	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}

	return n, nil
}
