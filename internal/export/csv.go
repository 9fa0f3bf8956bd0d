// Package export turns prediction history into CSV and back.
package export

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/Alias1177/FraudShield/internal/history"
	"github.com/Alias1177/FraudShield/models"
)

const (
	// FileName is the name offered for downloads
	FileName = "fraudshield_history.csv"
	// ContentType is the MIME type of the export
	ContentType = "text/csv"
	// TimeLayout is how timestamps are written; sub-second precision is dropped
	TimeLayout = time.RFC3339
)

// Header is the first row of every export
var Header = []string{"Timestamp", "Conversation", "Label", "Confidence", "Fraud Probability", "Not Fraud Probability"}

// ToCSV renders records, in the given order, as CSV text
func ToCSV(records []models.HistoryRecord) []byte {
	var buf bytes.Buffer
	_ = WriteCSV(&buf, records)
	return buf.Bytes()
}

// WriteCSV writes the header and one row per record, rows separated by "\n".
// The conversation is always quoted with inner quotes doubled; commas, quotes and
// line breaks in it cannot leak into the row structure.
func WriteCSV(w io.Writer, records []models.HistoryRecord) error {
	bw := bufio.NewWriter(w)

	writeRow(bw, Header, -1)
	for _, rec := range records {
		bw.WriteByte('\n')
		writeRow(bw, []string{
			rec.CreatedAt.UTC().Format(TimeLayout),
			rec.Conversation,
			rec.Result.Label.String(),
			formatNumber(rec.Result.Confidence),
			formatNumber(rec.Result.FraudProb),
			formatNumber(rec.Result.NotFraudProb),
		}, 1)
	}

	return bw.Flush()
}

func writeRow(w *bufio.Writer, fields []string, alwaysQuote int) {
	for i, field := range fields {
		if i > 0 {
			w.WriteByte(',')
		}
		if i == alwaysQuote || needsQuotes(field) {
			w.WriteString(quote(field))
		} else {
			w.WriteString(field)
		}
	}
}

// quote wraps s in double quotes, doubling any quote inside it
func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func needsQuotes(s string) bool {
	return strings.ContainsAny(s, ",\"\r\n") || strings.TrimSpace(s) != s
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// FromCSV parses an export back into records, preserving row order.
// Imported records get fresh IDs.
func FromCSV(r io.Reader) ([]models.HistoryRecord, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = len(Header)

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, errors.New("empty file")
	}
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	for i, name := range Header {
		if strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff")) != name {
			return nil, fmt.Errorf("unexpected column %d %q, want %q", i+1, header[i], name)
		}
	}

	var records []models.HistoryRecord
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading row %d: %w", len(records)+2, err)
		}

		rec, err := parseRow(row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", len(records)+2, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

func parseRow(row []string) (models.HistoryRecord, error) {
	createdAt, err := time.Parse(TimeLayout, row[0])
	if err != nil {
		return models.HistoryRecord{}, fmt.Errorf("timestamp: %w", err)
	}
	label, err := models.ParseLabel(row[2])
	if err != nil {
		return models.HistoryRecord{}, err
	}

	numbers := make([]float64, 3)
	for i, field := range row[3:] {
		v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
		if err != nil {
			return models.HistoryRecord{}, fmt.Errorf("%s: %w", Header[i+3], err)
		}
		numbers[i] = v
	}

	return history.NewRecord(row[1], models.PredictionResult{
		Label:        label,
		Confidence:   numbers[0],
		FraudProb:    numbers[1],
		NotFraudProb: numbers[2],
	}, createdAt), nil
}
