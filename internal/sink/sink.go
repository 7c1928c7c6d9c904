// Package sink persists probe results to a CSV report and a plain-text
// list of active links, appending as batches complete and sorting the CSV
// by latency once the run finishes.
package sink

import (
	"encoding/csv"
	"os"
	"sort"
	"strconv"

	"github.com/draco-tlw/rayzor/internal/prober"
)

var csvHeader = []string{"config", "latency", "status", "msg"}

// Sink writes to a CSV report and a plain-text active-links file.
type Sink struct {
	csvPath    string
	activePath string
}

// New truncates both output files and returns a Sink ready for appends.
func New(csvPath, activePath string) (*Sink, error) {
	f, err := os.Create(csvPath)
	if err != nil {
		return nil, err
	}
	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		f.Close()
		return nil, err
	}
	w.Flush()
	if err := f.Close(); err != nil {
		return nil, err
	}

	if err := os.WriteFile(activePath, nil, 0o644); err != nil {
		return nil, err
	}

	return &Sink{csvPath: csvPath, activePath: activePath}, nil
}

// AppendSuccesses filters results down to the successful ones and appends
// those to both the CSV and the active-links file. Failures, including
// non-final-round retries, are never written: the sink only ever records
// confirmed successes.
func (s *Sink) AppendSuccesses(results []prober.Result) error {
	var successes []prober.Result
	for _, r := range results {
		if r.Success {
			successes = append(successes, r)
		}
	}
	if len(successes) == 0 {
		return nil
	}

	if err := s.appendCSV(successes); err != nil {
		return err
	}
	return s.appendActive(successes)
}

func (s *Sink) appendCSV(successes []prober.Result) error {
	f, err := os.OpenFile(s.csvPath, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	for _, r := range successes {
		row := []string{r.Link, strconv.Itoa(r.LatencyMS), "success", r.Message}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func (s *Sink) appendActive(successes []prober.Result) error {
	f, err := os.OpenFile(s.activePath, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	for _, r := range successes {
		if _, err := f.WriteString(r.Link + "\n"); err != nil {
			return err
		}
	}
	return nil
}

// FinalizeSort rewrites the CSV with its rows sorted by latency ascending,
// run once all batches and retry rounds are done.
func (s *Sink) FinalizeSort() error {
	f, err := os.Open(s.csvPath)
	if err != nil {
		return err
	}
	r := csv.NewReader(f)
	rows, err := r.ReadAll()
	f.Close()
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}
	header, body := rows[0], rows[1:]

	sort.SliceStable(body, func(i, j int) bool {
		li, _ := strconv.Atoi(body[i][1])
		lj, _ := strconv.Atoi(body[j][1])
		return li < lj
	})

	out, err := os.Create(s.csvPath)
	if err != nil {
		return err
	}
	defer out.Close()

	w := csv.NewWriter(out)
	if err := w.Write(header); err != nil {
		return err
	}
	if err := w.WriteAll(body); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}
