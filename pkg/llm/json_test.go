package llm

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type item struct {
	Title string `json:"title"`
	Score int    `json:"score"`
}

func TestParseArray_WellFormed(t *testing.T) {
	got, err := ParseArray[item](`[{"title":"a","score":1},{"title":"b","score":2}]`)
	require.NoError(t, err)
	assert.Equal(t, []item{{"a", 1}, {"b", 2}}, got)
}

func TestParseArray_EmptyArray(t *testing.T) {
	got, err := ParseArray[item](`[]`)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestParseArray_FencedBlock(t *testing.T) {
	raw := "Here are the results:\n\n```json\n[{\"title\":\"a\",\"score\":1}]\n```\nLet me know if you need more."
	got, err := ParseArray[item](raw)
	require.NoError(t, err)
	assert.Equal(t, []item{{"a", 1}}, got)
}

func TestParseArray_ThinkTagsStripped(t *testing.T) {
	raw := "<think>\nthe user wants JSON\n</think>\n[{\"title\":\"a\"}]"
	got, err := ParseArray[item](raw)
	require.NoError(t, err)
	assert.Equal(t, []item{{Title: "a"}}, got)
}

func TestParseArray_NonJSON(t *testing.T) {
	got, err := ParseArray[item]("I could not find any pain points in this process.")

	assert.NotNil(t, got)
	assert.Empty(t, got)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMalformedResponse))

	var perr *ParseError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "array", perr.Expected)
	assert.Contains(t, perr.Excerpt, "could not find")
}

func TestParseArray_ObjectWhereArrayExpected(t *testing.T) {
	_, err := ParseArray[item](`{"title":"a"}`)
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestParseArray_TruncatedJSON(t *testing.T) {
	_, err := ParseArray[item](`[{"title":"a"},{"title":`)
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestParseArray_WrongElementType(t *testing.T) {
	_, err := ParseArray[item](`[{"title":"a","score":"high"}]`)
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestParseObject(t *testing.T) {
	got, err := ParseObject[item]("```json\n{\"title\":\"x\",\"score\":3}\n```")
	require.NoError(t, err)
	assert.Equal(t, item{"x", 3}, got)

	got, err = ParseObject[item]("nope")
	assert.ErrorIs(t, err, ErrMalformedResponse)
	assert.Equal(t, item{}, got)
}

func TestParseError_ExcerptTruncated(t *testing.T) {
	long := make([]byte, 500)
	for i := range long {
		long[i] = 'x'
	}
	_, err := ParseArray[item](string(long))

	var perr *ParseError
	require.True(t, errors.As(err, &perr))
	assert.Len(t, perr.Excerpt, parseExcerptLength+3)
}

func TestParseArrayWithSchema_PainPoints(t *testing.T) {
	type pp struct {
		Title    string `json:"title"`
		Category string `json:"category"`
		Severity string `json:"severity"`
	}

	ok := `[{"title":"Manual entry","category":"MANUAL_PROCESS","severity":"HIGH","estimated_cost":1200}]`
	got, err := ParseArrayWithSchema[pp](ok, PainPointsSchema)
	require.NoError(t, err)
	assert.Len(t, got, 1)

	missingSeverity := `[{"title":"Manual entry","category":"MANUAL_PROCESS"}]`
	got, err = ParseArrayWithSchema[pp](missingSeverity, PainPointsSchema)
	assert.ErrorIs(t, err, ErrMalformedResponse)
	assert.Empty(t, got)

	var verr *SchemaValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "pain_points", verr.Schema)
	assert.NotEmpty(t, verr.Errors)
}

func TestSchemas_Compile(t *testing.T) {
	for _, s := range []*Schema{UnderstandingSchema, PainPointsSchema, RecommendationsSchema, TargetProcessSchema} {
		assert.NotEmpty(t, s.Name())
	}

	assert.NoError(t, UnderstandingSchema.Validate([]byte(`{"purpose":"Onboard customers","critical_path":["a","b"]}`)))
	assert.Error(t, UnderstandingSchema.Validate([]byte(`{"critical_path":[]}`)))

	assert.NoError(t, TargetProcessSchema.Validate([]byte(`{"name":"TO-BE","steps":[{"name":"Start","type":"START"}],"connections":[]}`)))
	assert.Error(t, TargetProcessSchema.Validate([]byte(`{"name":"TO-BE","steps":[],"connections":[]}`)))

	assert.NoError(t, RecommendationsSchema.Validate([]byte(`[{"title":"Automate","category":"AUTOMATION","priority":"HIGH","metrics":[{"name":"cycle time","current":40,"target":"10"}]}]`)))
}
