package corpus

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/karrick/godirwalk"
	"github.com/rs/zerolog/log"
	"github.com/nyayasetu/nyayasetu/pkg/models"
)

// column names as they appear in the source dataset header.
var requiredColumns = []string{
	"Chapter",
	"Chapter_name",
	"Chapter_subtype",
	"Section",
	"Section_name",
	"Description",
}

// ReadRows parses header-delimited UTF-8 source data into SourceRows. Header
// matching is case-insensitive; all six columns must be present. Blank lines
// are skipped.
func ReadRows(r io.Reader) ([]models.SourceRow, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	idx := make(map[string]int, len(records[0]))
	for i, h := range records[0] {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, col := range requiredColumns {
		if _, ok := idx[strings.ToLower(col)]; !ok {
			return nil, fmt.Errorf("missing required column %q", col)
		}
	}

	field := func(record []string, col string) string {
		i := idx[strings.ToLower(col)]
		if i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	rows := make([]models.SourceRow, 0, len(records)-1)
	for _, record := range records[1:] {
		row := models.SourceRow{
			Chapter:        field(record, "Chapter"),
			ChapterName:    field(record, "Chapter_name"),
			ChapterSubtype: field(record, "Chapter_subtype"),
			Section:        field(record, "Section"),
			SectionName:    field(record, "Section_name"),
			Description:    field(record, "Description"),
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// LoadPath reads source rows from a CSV file, or from every *.csv file under
// a directory in lexical walk order.
func LoadPath(path string) ([]models.SourceRow, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !fi.IsDir() {
		return loadFile(path)
	}

	var rows []models.SourceRow
	err = godirwalk.Walk(path, &godirwalk.Options{
		Callback: func(p string, de *godirwalk.Dirent) error {
			if de.IsDir() || strings.ToLower(filepath.Ext(p)) != ".csv" {
				return nil
			}
			fileRows, err := loadFile(p)
			if err != nil {
				return fmt.Errorf("%s: %w", p, err)
			}
			log.Info().Str("path", p).Int("rows", len(fileRows)).Msg("loaded source file")
			rows = append(rows, fileRows...)
			return nil
		},
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func loadFile(path string) ([]models.SourceRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := f.Close(); err != nil {
			log.Warn().Err(err).Str("path", path).Msg("failed to close source file")
		}
	}()
	return ReadRows(f)
}
