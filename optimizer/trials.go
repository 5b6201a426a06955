package optimizer

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/notargets/meshadapt/adapt"
	"github.com/notargets/meshadapt/types"
	"github.com/notargets/meshadapt/utils"
)

const timeLayout = "2006-01-02 15:04:05"

// Trial is one adapt, extract and compare evaluation
type Trial struct {
	Index   int
	Time    time.Time
	Params  adapt.Parameters
	Elapsed time.Duration // Wall clock meshing time
	RMSE    float64       // +Inf for a failed trial
	Mesh    string        // Extracted mesh, empty once deleted
	Err     error
}

// FormatTrial renders t as one trial log line
func FormatTrial(t Trial) string {
	return fmt.Sprintf("%s - hausd: %g, hgrad: %g, hmin: %g, hmax: %g, meshing time: %.3f s, RMSE: %g",
		t.Time.Format(timeLayout), t.Params.Hausd, t.Params.Hgrad, t.Params.Hmin, t.Params.Hmax,
		t.Elapsed.Seconds(), t.RMSE)
}

// ParseTrialLine is the inverse of FormatTrial, to millisecond precision on the meshing time
func ParseTrialLine(line string) (Trial, error) {
	var t Trial
	stamp, rest, ok := strings.Cut(strings.TrimSpace(line), " - ")
	if !ok {
		return t, fmt.Errorf("missing timestamp separator")
	}
	var err error
	if t.Time, err = time.ParseInLocation(timeLayout, stamp, time.Local); err != nil {
		return t, err
	}
	fields := strings.Split(rest, ", ")
	if len(fields) != 6 {
		return t, fmt.Errorf("expected 6 fields, got %d", len(fields))
	}
	keys := []string{"hausd", "hgrad", "hmin", "hmax", "meshing time", "RMSE"}
	var values [6]float64
	for i, field := range fields {
		key, value, ok := strings.Cut(field, ": ")
		if !ok || key != keys[i] {
			return t, fmt.Errorf("expected %q, got %q", keys[i], field)
		}
		if i == 4 {
			value = strings.TrimSuffix(value, " s")
		}
		if values[i], err = strconv.ParseFloat(value, 64); err != nil {
			return t, fmt.Errorf("%s: %w", key, err)
		}
	}
	t.Params = adapt.FromVector(values[:4])
	t.Elapsed = time.Duration(values[4] * float64(time.Second))
	t.RMSE = values[5]
	return t, nil
}

// TrialLog is an append only file of trial lines
type TrialLog struct {
	Path string
}

// Append writes one line and syncs it, so an interrupted run leaves a valid prefix
func (l *TrialLog) Append(t Trial) error {
	return utils.AppendLine(l.Path, FormatTrial(t))
}

// Read parses every line of the log
func (l *TrialLog) Read() ([]Trial, error) {
	file, err := os.Open(l.Path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	var (
		trials  []Trial
		scanner = bufio.NewScanner(file)
		lineNum int
	)
	for scanner.Scan() {
		lineNum++
		if strings.TrimSpace(scanner.Text()) == "" {
			continue
		}
		t, err := ParseTrialLine(scanner.Text())
		if err != nil {
			return nil, &types.FormatError{Path: l.Path, Line: lineNum, Err: err}
		}
		t.Index = len(trials) + 1
		trials = append(trials, t)
	}
	return trials, scanner.Err()
}
