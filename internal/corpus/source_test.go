package corpus

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sampleCSV = `Chapter,Chapter_name,Chapter_subtype,Section,Section_name,Description
XVII,Of Offences Against Property,Of theft,303,Theft,"Whoever, intending to take dishonestly any movable property..."
XVII,Of Offences Against Property,Of robbery and dacoity,309,Robbery,"In all robbery there is either theft or extortion..."
I,Preliminary,,1,Short title,""
`

func TestReadRows(t *testing.T) {
	rows, err := ReadRows(strings.NewReader(sampleCSV))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("Expected 3 rows, got %d", len(rows))
	}

	first := rows[0]
	if first.Chapter != "XVII" || first.Section != "303" || first.SectionName != "Theft" {
		t.Errorf("Unexpected first row: %+v", first)
	}
	if !strings.HasPrefix(first.Description, "Whoever, intending") {
		t.Errorf("Description not carried through: %q", first.Description)
	}

	// Empty description rows come through; the ingest pipeline decides what
	// to do with them.
	if rows[2].Description != "" {
		t.Errorf("Expected empty description, got %q", rows[2].Description)
	}
}

func TestReadRows_HeaderCaseInsensitive(t *testing.T) {
	csv := "chapter,CHAPTER_NAME,chapter_subtype,section,Section_Name,description\n" +
		"II,Of Punishments,,4,Punishments,Punishments to which offenders are liable\n"
	rows, err := ReadRows(strings.NewReader(csv))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(rows) != 1 || rows[0].Section != "4" {
		t.Errorf("Unexpected rows: %+v", rows)
	}
}

func TestReadRows_MissingColumn(t *testing.T) {
	csv := "Chapter,Section\nXVII,303\n"
	if _, err := ReadRows(strings.NewReader(csv)); err == nil {
		t.Error("Expected error for missing required columns")
	}
}

func TestReadRows_Empty(t *testing.T) {
	rows, err := ReadRows(strings.NewReader(""))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("Expected no rows, got %d", len(rows))
	}
}

func TestLoadPath_Directory(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "bns.csv"), []byte(sampleCSV), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignore me"), 0o644); err != nil {
		t.Fatal(err)
	}

	rows, err := LoadPath(dir)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(rows) != 3 {
		t.Errorf("Expected 3 rows from directory walk, got %d", len(rows))
	}
}

func TestLoadPath_SingleFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bns.csv")
	if err := os.WriteFile(path, []byte(sampleCSV), 0o644); err != nil {
		t.Fatal(err)
	}

	rows, err := LoadPath(path)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(rows) != 3 {
		t.Errorf("Expected 3 rows, got %d", len(rows))
	}
}
