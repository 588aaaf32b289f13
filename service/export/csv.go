package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
)

// CSVSink writes each sheet to <Dir>/<sheet>.csv, replacing the previous file
// atomically.
type CSVSink struct {
	Dir string
}

func (s CSVSink) Name() string { return "csv" }

func (s CSVSink) Write(ctx context.Context, sheets []Sheet) error {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return err
	}
	for _, sh := range sheets {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.writeSheet(sh); err != nil {
			return fmt.Errorf("sheet %s: %w", sh.Name, err)
		}
	}
	return nil
}

func (s CSVSink) writeSheet(sh Sheet) error {
	final := filepath.Join(s.Dir, sh.Name+".csv")
	f, err := os.CreateTemp(s.Dir, sh.Name+"-*.csv")
	if err != nil {
		return err
	}
	defer os.Remove(f.Name())
	w := csv.NewWriter(f)
	if err := w.Write(sh.Header); err != nil {
		f.Close()
		return err
	}
	if err := w.WriteAll(sh.Rows); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(f.Name(), final)
}
