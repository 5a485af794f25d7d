package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashir/covid-school-data/internal/frame"
)

func rosterFrame(t *testing.T, names ...string) *frame.Frame {
	t.Helper()
	nameCol := frame.NewColumn("sch_name", frame.String, 0)
	idCol := frame.NewColumn("ncessch", frame.String, 0)
	for i, name := range names {
		require.NoError(t, nameCol.Append(name))
		require.NoError(t, idCol.Append(frame.FormatValue(int64(100+i))))
	}
	f, err := frame.New(nameCol, idCol)
	require.NoError(t, err)
	return f
}

func TestIndexCandidates(t *testing.T) {
	roster := rosterFrame(t, "East High School", "West High School", "Summit Academy")
	idx, err := NewIndex(roster, "sch_name", StopWords)
	require.NoError(t, err)

	// "High" and "School" are stop words, so only "east" proposes.
	assert.Equal(t, []int{0}, idx.Candidates("East High School"))

	// Without a shared non-stop token there are no candidates.
	assert.Empty(t, idx.Candidates("High School"))

	assert.Equal(t, []int{2}, idx.Candidates("Summit Prep"))
}

func TestIndexMissingColumn(t *testing.T) {
	roster := rosterFrame(t, "East High School")
	_, err := NewIndex(roster, "name", StopWords)
	assert.Error(t, err)
}

func TestMatcherExactShortCircuit(t *testing.T) {
	roster := rosterFrame(t, "East High School", "East Highland School")
	m, err := NewMatcher(roster, "sch_name", DefaultOptions())
	require.NoError(t, err)

	results := m.Match("east high school")
	require.Len(t, results, 1)
	assert.Equal(t, 0, results[0].Row)
	assert.Equal(t, 1.0, results[0].Score)
}

func TestMatcherThreshold(t *testing.T) {
	roster := rosterFrame(t, "East High School", "Eastern Mountain Institute")
	m, err := NewMatcher(roster, "sch_name", Options{Threshold: 0.95, Limit: 5})
	require.NoError(t, err)

	// Nothing clears a 0.95 bar for a loose query.
	assert.Empty(t, m.Match("East Side"))
}

func TestMatcherLimit(t *testing.T) {
	roster := rosterFrame(t, "Summit Peak School", "Summit Valley School", "Summit Ridge School")
	m, err := NewMatcher(roster, "sch_name", Options{Threshold: 0.1, Limit: 2})
	require.NoError(t, err)

	results := m.Match("Summit School")
	assert.Len(t, results, 2)
	if len(results) == 2 {
		assert.GreaterOrEqual(t, results[0].Score, results[1].Score)
	}
}

func TestMatchFrame(t *testing.T) {
	roster := rosterFrame(t, "East High School", "Summit Academy")

	queries := frame.NewColumn("SchoolName", frame.String, 0)
	cases := frame.NewColumn("TotalCases", frame.Int, 0)
	require.NoError(t, queries.Append("East High School"))
	require.NoError(t, cases.Append(int64(12)))
	require.NoError(t, queries.Append("No Such Place"))
	require.NoError(t, cases.Append(int64(3)))
	input, err := frame.New(queries, cases)
	require.NoError(t, err)

	m, err := NewMatcher(roster, "sch_name", DefaultOptions())
	require.NoError(t, err)

	out, err := m.MatchFrame(input, "SchoolName", nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"SchoolName", "TotalCases", "sch_name", "ncessch", "match_score"}, out.Columns())
	require.Equal(t, 2, out.Len())

	name, _ := out.Column("sch_name")
	v, ok := name.Value(0)
	require.True(t, ok)
	assert.Equal(t, "East High School", v)

	score, _ := out.Column("match_score")
	v, ok = score.Value(0)
	require.True(t, ok)
	assert.Equal(t, 1.0, v)

	// The unmatched row keeps its input values with null roster cells.
	assert.True(t, name.IsNull(1))
	assert.True(t, score.IsNull(1))
	casesOut, _ := out.Column("TotalCases")
	v, ok = casesOut.Value(1)
	require.True(t, ok)
	assert.Equal(t, int64(3), v)
}

func TestMatchFrameColumnCollision(t *testing.T) {
	roster := rosterFrame(t, "East High School")

	queries := frame.NewColumn("sch_name", frame.String, 0)
	require.NoError(t, queries.Append("East High School"))
	input, err := frame.New(queries)
	require.NoError(t, err)

	m, err := NewMatcher(roster, "sch_name", DefaultOptions())
	require.NoError(t, err)

	out, err := m.MatchFrame(input, "sch_name", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"sch_name", "nces_sch_name", "ncessch", "match_score"}, out.Columns())
}

func TestValidateStateFile(t *testing.T) {
	abbrevCol := frame.NewColumn("StateAbbrev", frame.String, 0)
	require.NoError(t, abbrevCol.Append("CO"))
	f, err := frame.New(abbrevCol)
	require.NoError(t, err)

	abbrev, err := ValidateStateFile("data/CO_schools.csv", f)
	require.NoError(t, err)
	assert.Equal(t, "CO", abbrev)

	_, err = ValidateStateFile("data/XX_schools.csv", f)
	assert.Error(t, err)

	// A KS-prefixed file with CO rows is rejected.
	_, err = ValidateStateFile("data/KS_schools.csv", f)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "StateAbbrev")
}
