package excel

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"simplesurvey/domain/core"
	"simplesurvey/domain/dataset"
)

var schema = dataset.Schema{Questions: []string{"q1"}, Metadata: []string{"region"}}

var renames = map[string]string{"Are you happy?": "q1", "Region": "region"}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_CSV(t *testing.T) {
	path := writeFile(t, "responses.csv", "Are you happy?,Region,Comment\nyes,A,great\n no ,B,\n,A,meh\n")

	ds, err := NewDataReader(path, nil).Load(context.Background(), schema, renames)
	require.NoError(t, err)
	require.Equal(t, 3, ds.Len())
	assert.Equal(t, "no", ds.At(1).Answer("q1").Text, "cells are trimmed")
	assert.True(t, ds.At(2).Answer("q1").Missing)
	assert.Equal(t, "A", ds.At(2).Field("region").Text)
}

func TestLoad_XLSX_FirstSheet(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]interface{}{"Region", "Are you happy?"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]interface{}{"A", "yes"}))
	require.NoError(t, f.SetSheetRow(sheet, "A3", &[]interface{}{"B", "no"}))
	path := filepath.Join(t.TempDir(), "responses.xlsx")
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	ds, err := NewDataReader(path, nil).Load(context.Background(), schema, renames)
	require.NoError(t, err)
	require.Equal(t, 2, ds.Len())
	assert.Equal(t, "B", ds.At(1).Field("region").Text)
	assert.Equal(t, "no", ds.At(1).Answer("q1").Text)
}

func TestLoad_Errors(t *testing.T) {
	t.Run("unknown extension", func(t *testing.T) {
		path := writeFile(t, "responses.json", "{}")
		_, err := NewDataReader(path, nil).Load(context.Background(), schema, renames)
		var le *core.LoadError
		require.ErrorAs(t, err, &le)
		assert.Contains(t, le.Reason, "unknown response format")
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := NewDataReader(filepath.Join(t.TempDir(), "nope.csv"), nil).Load(context.Background(), schema, renames)
		assert.ErrorIs(t, err, core.ErrLoad)
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("missing column", func(t *testing.T) {
		path := writeFile(t, "responses.csv", "Are you happy?\nyes\n")
		_, err := NewDataReader(path, nil).Load(context.Background(), schema, renames)
		var le *core.LoadError
		require.ErrorAs(t, err, &le)
		assert.Equal(t, []string{"region"}, le.Columns)
	})

	t.Run("empty file", func(t *testing.T) {
		path := writeFile(t, "responses.csv", "")
		_, err := NewDataReader(path, nil).Load(context.Background(), schema, renames)
		assert.ErrorIs(t, err, core.ErrLoad)
	})

	t.Run("malformed quoting", func(t *testing.T) {
		_, err := ReadCSVTable("upload", strings.NewReader("a,b\n\"x,y\n"), nil)
		assert.ErrorIs(t, err, core.ErrLoad)
	})
}

func TestProfile(t *testing.T) {
	table := &RawTable{
		Headers: []string{"region", "score", "empty"},
		Rows:    [][]string{{"A", "1"}, {"B", "2"}, {"A", ""}},
	}
	p := table.Profile()
	require.Len(t, p, 3)
	assert.Equal(t, ColumnProfile{Header: "region", Kind: KindCategorical, Distinct: 2}, p[0])
	assert.Equal(t, 1, p[1].Missing)
	assert.Equal(t, KindEmpty, p[2].Kind)
	assert.Equal(t, []string{"A", "B"}, table.DistinctValues("region"))
	assert.Nil(t, table.DistinctValues("nope"))
}

func TestCSVSource(t *testing.T) {
	src := NewCSVSource("upload", strings.NewReader("Are you happy?,Region\nyes,A\n"), nil)
	ds, err := src.Load(context.Background(), schema, renames)
	require.NoError(t, err)
	assert.Equal(t, 1, ds.Len())
	assert.Equal(t, "upload", ds.Source())

	_, err = NewCSVSource("upload", strings.NewReader(""), nil).Load(context.Background(), schema, renames)
	assert.ErrorIs(t, err, core.ErrLoad)
}
