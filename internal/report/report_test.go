package report

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashir/covid-school-data/internal/frame"
)

func sampleFrame(t *testing.T) *frame.Frame {
	t.Helper()
	names := frame.NewColumn("SchoolName", frame.String, 0)
	cases := frame.NewColumn("TotalCases", frame.Int, 0)
	for _, row := range []struct {
		name  string
		cases any
	}{
		{"East High School", int64(12)},
		{"West Middle School", int64(4)},
		{"North Elementary", nil},
	} {
		require.NoError(t, names.Append(row.name))
		if row.cases == nil {
			cases.AppendNull()
		} else {
			require.NoError(t, cases.Append(row.cases))
		}
	}
	f, err := frame.New(names, cases)
	require.NoError(t, err)
	return f
}

func TestForState(t *testing.T) {
	rows := ForState("Colorado", sampleFrame(t))
	require.Len(t, rows, 2)

	name := rows[0]
	assert.Equal(t, "Colorado", name.State)
	assert.Equal(t, "SchoolName", name.Column)
	assert.Equal(t, "string", name.DType)
	assert.Equal(t, 3, name.Count)
	assert.Equal(t, 0, name.Nulls)
	assert.Equal(t, "", name.Mean) // no mean for strings

	cases := rows[1]
	assert.Equal(t, "TotalCases", cases.Column)
	assert.Equal(t, "int", cases.DType)
	assert.Equal(t, 2, cases.Count)
	assert.Equal(t, 1, cases.Nulls)
	assert.Equal(t, "4", cases.Min)
	assert.Equal(t, "12", cases.Max)
	assert.Equal(t, "8", cases.Mean)
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, ForState("Colorado", sampleFrame(t))))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, strings.Join(Header, ","), lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "Colorado,SchoolName,string,3,0"))
}

func TestWriteCSVFileCreatesDirectories(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "nested", "report.csv")
	require.NoError(t, WriteCSVFile(path, ForState("Colorado", sampleFrame(t))))
	_, err := os.Stat(path)
	assert.NoError(t, err)
}

func TestRenderFormats(t *testing.T) {
	rows := ForState("Colorado", sampleFrame(t))

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, Render(&buf, rows, "json"))
		var decoded []Row
		require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
		require.Len(t, decoded, 2)
		assert.Equal(t, "TotalCases", decoded[1].Column)
	})

	t.Run("csv", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, Render(&buf, rows, "csv"))
		assert.True(t, strings.HasPrefix(buf.String(), strings.Join(Header, ",")))
	})

	t.Run("markdown", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, Render(&buf, rows, "markdown"))
		assert.Contains(t, buf.String(), "| state |")
	})

	t.Run("table", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, Render(&buf, rows, "table"))
		assert.Contains(t, buf.String(), "SchoolName")
		assert.Contains(t, buf.String(), "(2 rows)")
	})
}
