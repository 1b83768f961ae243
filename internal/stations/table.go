// Package stations parses the Bureau station table, joins it with the scraped
// product identifiers and answers nearest-location queries.
package stations

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"iter"
	"strconv"
	"strings"

	"github.com/lox/bomweather/internal/bomerr"
	"github.com/lox/bomweather/internal/models"
)

const (
	TablePath   = "/anon2/home/ncc/metadata/sitelists/stations.zip"
	TableMember = "stations.txt"

	headerLines = 4
	minRowLen   = 20
)

// Retriever fetches a remote file by path.
type Retriever interface {
	Retrieve(ctx context.Context, path string) ([]byte, error)
}

// FetchTable downloads the station archive and returns the table it contains.
func FetchTable(ctx context.Context, r Retriever) ([]byte, error) {
	archive, err := r.Retrieve(ctx, TablePath)
	if err != nil {
		return nil, fmt.Errorf("fetch station table: %w", err)
	}
	return extractTable(archive)
}

func extractTable(archive []byte) ([]byte, error) {
	zr, err := zip.NewReader(bytes.NewReader(archive), int64(len(archive)))
	if err != nil {
		return nil, &bomerr.FormatError{Source: "station archive", Subject: TablePath, Err: err}
	}
	f, err := zr.Open(TableMember)
	if err != nil {
		return nil, &bomerr.FormatError{Source: "station archive", Subject: TablePath, Err: err}
	}
	defer f.Close()

	table, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", TableMember, err)
	}
	return table, nil
}

// SplitLines splits a table into lines without their terminators.
func SplitLines(table []byte) []string {
	text := strings.ReplaceAll(string(table), "\r\n", "\n")
	return strings.Split(strings.TrimSuffix(text, "\n"), "\n")
}

// ParseTable yields one Station per table row that carries a WMO identifier.
// Parsing stops quietly at the footer; a row with unreadable coordinates
// yields an error and ends the sequence.
func ParseTable(lines []string) iter.Seq2[models.Station, error] {
	return func(yield func(models.Station, error) bool) {
		for i, line := range lines {
			if i < headerLines {
				continue
			}
			row := strings.TrimSpace(line)
			if len(row) < minRowLen {
				return
			}

			wmo := column(row, 128, 135)
			if wmo == "" || strings.Contains(wmo, "..") {
				continue
			}

			lat, err := strconv.ParseFloat(column(row, 70, 78), 64)
			if err != nil {
				yield(models.Station{}, &bomerr.FormatError{Source: "station table", Subject: fmt.Sprintf("line %d", i+1), Err: fmt.Errorf("latitude: %w", err)})
				return
			}
			lon, err := strconv.ParseFloat(column(row, 79, 88), 64)
			if err != nil {
				yield(models.Station{}, &bomerr.FormatError{Source: "station table", Subject: fmt.Sprintf("line %d", i+1), Err: fmt.Errorf("longitude: %w", err)})
				return
			}

			st := models.Station{
				SiteID:   column(row, 0, 6),
				SiteName: column(row, 12, 55),
				Lat:      lat,
				Lon:      lon,
				State:    column(row, 104, 108),
				WMO:      wmo,
			}
			if !yield(st, nil) {
				return
			}
		}
	}
}

// column returns row[from:to] trimmed, clamped to the row length.
func column(row string, from, to int) string {
	if from >= len(row) {
		return ""
	}
	if to > len(row) {
		to = len(row)
	}
	return strings.TrimSpace(row[from:to])
}
