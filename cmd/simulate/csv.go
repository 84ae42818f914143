package main

import (
	"fmt"
	"os"

	"token-launchpad/internal/domain"
	"token-launchpad/internal/reporting"
)

func writeCSV(path string, events []*domain.Event) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := reporting.WriteEventsCSV(f, events); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
