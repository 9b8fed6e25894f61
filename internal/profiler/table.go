package profiler

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"math/rand"
	"os"
)

// MaxSize is the byte threshold above which tables are row-sampled
// before profiling.
const MaxSize = 50_000_000

// Table is a fully string-typed tabular view of a dataset. Cells are
// kept verbatim with no NA filtering.
type Table struct {
	Columns []string
	Rows    [][]string
}

// Width returns the number of columns
func (t *Table) Width() int {
	return len(t.Columns)
}

// Column returns the cell values of column i, in row order
func (t *Table) Column(i int) []string {
	values := make([]string, len(t.Rows))
	for r, row := range t.Rows {
		if i < len(row) {
			values[r] = row[i]
		}
	}
	return values
}

// LoadCSVFile reads a CSV from disk. Files above MaxSize are loaded
// with uniform random row sampling at ratio MaxSize/size, seeded for
// reproducibility; the header is always kept and the true row count is
// taken from a streaming line count first.
func LoadCSVFile(path string, seed int64) (*Table, int64, int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("data file does not exist: %w", err)
	}
	size := info.Size()

	f, err := os.Open(path)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("failed to open data file: %w", err)
	}
	defer f.Close()

	if size <= MaxSize {
		table, err := readCSV(f)
		if err != nil {
			return nil, 0, 0, err
		}
		return table, int64(len(table.Rows)), size, nil
	}

	nbRows, err := countRows(f)
	if err != nil {
		return nil, 0, 0, err
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, 0, 0, fmt.Errorf("failed to rewind data file: %w", err)
	}

	ratio := float64(MaxSize) / float64(size)
	table, err := readCSVSampled(f, ratio, seed)
	if err != nil {
		return nil, 0, 0, err
	}
	return table, nbRows, size, nil
}

// LoadCSVBytes reads a CSV held in memory
func LoadCSVBytes(data []byte, seed int64) (*Table, int64, int64, error) {
	size := int64(len(data))
	if size <= MaxSize {
		table, err := readCSV(bytes.NewReader(data))
		if err != nil {
			return nil, 0, 0, err
		}
		return table, int64(len(table.Rows)), size, nil
	}
	nbRows, err := countRows(bytes.NewReader(data))
	if err != nil {
		return nil, 0, 0, err
	}
	ratio := float64(MaxSize) / float64(size)
	table, err := readCSVSampled(bytes.NewReader(data), ratio, seed)
	if err != nil {
		return nil, 0, 0, err
	}
	return table, nbRows, size, nil
}

func countRows(r io.Reader) (int64, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 1024*1024), 16*1024*1024)
	var lines int64
	for scanner.Scan() {
		lines++
	}
	if err := scanner.Err(); err != nil {
		return 0, fmt.Errorf("failed to count rows: %w", err)
	}
	if lines > 0 {
		lines-- // header
	}
	return lines, nil
}

func readCSV(r io.Reader) (*Table, error) {
	return readCSVFiltered(r, func() bool { return true })
}

func readCSVSampled(r io.Reader, ratio float64, seed int64) (*Table, error) {
	rng := rand.New(rand.NewSource(seed))
	return readCSVFiltered(r, func() bool { return rng.Float64() <= ratio })
}

func readCSVFiltered(r io.Reader, keep func() bool) (*Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	table := &Table{Columns: header}
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV row: %w", err)
		}
		if !keep() {
			continue
		}
		// Ragged rows are padded to the header width
		if len(record) < len(header) {
			padded := make([]string, len(header))
			copy(padded, record)
			record = padded
		} else if len(record) > len(header) {
			record = record[:len(header)]
		}
		table.Rows = append(table.Rows, record)
	}
	return table, nil
}

// WriteCSV writes the normalized table: UTF-8, CRLF line terminator,
// header included, first index column preserved.
func (t *Table) WriteCSV(w io.Writer) error {
	writer := csv.NewWriter(w)
	writer.UseCRLF = true
	if err := writer.Write(t.Columns); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, row := range t.Rows {
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}
	writer.Flush()
	return writer.Error()
}
