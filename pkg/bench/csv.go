package bench

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
)

var resultsHeader = []string{
	"worker", "episode", "steps", "return", "discounted",
	"terminal", "plan_ms", "error",
}

// WriteResultsCSV dumps every episode as one row, ready for whatever
// plots the returns later.
func WriteResultsCSV[A comparable](w io.Writer, results []EpisodeResult[A]) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(resultsHeader); err != nil {
		return err
	}

	for _, r := range results {
		errMsg := ""
		if r.Err != nil {
			errMsg = r.Err.Error()
		}
		record := []string{
			strconv.Itoa(r.Worker),
			strconv.Itoa(r.Episode),
			strconv.Itoa(r.Steps),
			strconv.FormatFloat(r.Return, 'g', -1, 64),
			strconv.FormatFloat(r.Discounted, 'g', -1, 64),
			strconv.FormatBool(r.Terminal),
			strconv.Itoa(r.PlanMs),
			errMsg,
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// SaveResultsCSV is WriteResultsCSV into a freshly created file.
func SaveResultsCSV[A comparable](path string, results []EpisodeResult[A]) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("save results: %w", err)
	}

	werr := WriteResultsCSV(f, results)
	cerr := f.Close()
	if werr != nil {
		return fmt.Errorf("save results: %w", werr)
	}
	if cerr != nil {
		return fmt.Errorf("save results: %w", cerr)
	}
	return nil
}
