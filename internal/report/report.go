package report

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/UnknownOlympus/waypoint/internal/models"
)

const (
	// CSVFileName is the name of the main report inside the output directory.
	CSVFileName = "resultado_excel_ptbr.csv"
	// FailuresFileName is the name of the failed links file inside the output directory.
	FailuresFileName = "links_falhos.txt"
	// Separator is the CSV field separator expected by spreadsheet tools in pt-BR locales.
	Separator = ';'
)

// Header is the first row of the CSV report.
var Header = []string{"lugar", "latitude", "longitude", "link"}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// FormatCoordinate renders a coordinate with exactly two decimals and a dot separator.
func FormatCoordinate(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// WriteCSV writes the successful results to path. Results without coordinates are skipped.
func WriteCSV(path string, results []models.Result) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create csv report: %w", err)
	}
	defer file.Close()

	buf := bufio.NewWriter(file)
	if _, err = buf.Write(utf8BOM); err != nil {
		return fmt.Errorf("failed to write csv report: %w", err)
	}

	writer := csv.NewWriter(buf)
	writer.Comma = Separator

	if err = writer.Write(Header); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, res := range results {
		if !res.OK() {
			continue
		}
		row := []string{
			res.Place,
			FormatCoordinate(res.Coordinates.Latitude),
			FormatCoordinate(res.Coordinates.Longitude),
			res.Link,
		}
		if err = writer.Write(row); err != nil {
			return fmt.Errorf("failed to write csv row: %w", err)
		}
	}

	writer.Flush()
	if err = writer.Error(); err != nil {
		return fmt.Errorf("failed to flush csv report: %w", err)
	}
	if err = buf.Flush(); err != nil {
		return fmt.Errorf("failed to flush csv report: %w", err)
	}

	return file.Close()
}

// WriteFailures writes one link per line to path. The file is created even when links is empty.
func WriteFailures(path string, links []string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create failures file: %w", err)
	}
	defer file.Close()

	buf := bufio.NewWriter(file)
	for _, link := range links {
		if _, err = buf.WriteString(link + "\n"); err != nil {
			return fmt.Errorf("failed to write failures file: %w", err)
		}
	}
	if err = buf.Flush(); err != nil {
		return fmt.Errorf("failed to flush failures file: %w", err)
	}

	return file.Close()
}
