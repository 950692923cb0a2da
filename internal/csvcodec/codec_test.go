package csvcodec

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const header = "timestamp,name,phone,email,symptoms,source"

func TestEncodeField(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"plain", "plain"},
		{"  padded  ", "padded"},
		{"Jo, Ann", `"Jo, Ann"`},
		{`say "hi"`, `"say ""hi"""`},
		{"cough\nfever", "cough fever"},
		{"cough\r\nfever", "cough fever"},
		{"line\rbreak", "line break"},
		{"\n", ""},
		{"", ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, EncodeField(tc.in), "input %q", tc.in)
	}
}

func TestEncodeLine_SinglePhysicalLine(t *testing.T) {
	line := EncodeLine([]string{"2024-01-01T00:00:00.000Z", "Jo, Ann", "555", "a@b.com", "cough\nfever", "hero"})
	assert.Equal(t, `2024-01-01T00:00:00.000Z,"Jo, Ann",555,a@b.com,cough fever,hero`+"\n", line)
	assert.Equal(t, 1, strings.Count(line, "\n"))
}

func TestRoundTrip(t *testing.T) {
	records := [][]string{
		{"t1", "Jo, Ann", "555", "a@b.com", "cough\nfever", "hero"},
		{"t2", `The "Boss"`, "+1 (555) 010", "x@y.z", `a,"b",c`, ""},
		{"t3", "plain", "1", "e@e.e", "multi\r\nline, with comma", "footer"},
		{"t4", "Zoë", "2", "z@z.z", "ümlaut \"quoted\"", "unknown"},
	}
	var b strings.Builder
	b.WriteString(header + "\n")
	for _, r := range records {
		b.WriteString(EncodeLine(r))
	}

	doc := Decode(b.String())
	require.Equal(t, len(records), doc.Len())
	for i, r := range records {
		want := make([]string, len(r))
		for j, v := range r {
			want[j] = strings.TrimSpace(lineBreaks.Replace(v))
		}
		assert.Equal(t, want, doc.Values(i))
	}
}

func TestDecode_RecordCountIsLinesMinusOne(t *testing.T) {
	content := header + "\r\n" +
		"t1,a,1,a@a,,web\r\n" +
		"t2,b,2,b@b,x,web\n" +
		"t3,c,3,c@c,y,hero\n"
	doc := Decode(content)
	assert.Equal(t, 3, doc.Len())
	assert.Equal(t, strings.Split(header, ","), doc.Headers)
	assert.Equal(t, "hero", doc.Records[2].Get("source"))
}

func TestDecode_HeaderOnly(t *testing.T) {
	doc := Decode(header + "\n")
	assert.Len(t, doc.Headers, 6)
	assert.Equal(t, 0, doc.Len())
}

func TestDecode_Empty(t *testing.T) {
	doc := Decode("")
	assert.Empty(t, doc.Headers)
	assert.Equal(t, 0, doc.Len())
}

func TestDecode_ShortRowPadsWithEmpty(t *testing.T) {
	doc := Decode(header + "\nt1,Jo,555\n")
	require.Equal(t, 1, doc.Len())
	row := doc.Records[0]
	assert.Equal(t, "Jo", row.Get("name"))
	assert.Equal(t, "", row.Get("email"))
	assert.Equal(t, "", row.Get("source"))
	assert.Len(t, row, 6)
}

func TestDecode_ExtraFieldsDropped(t *testing.T) {
	doc := Decode("a,b\n1,2,3,4\n")
	require.Equal(t, 1, doc.Len())
	assert.Equal(t, Row{"a": "1", "b": "2"}, doc.Records[0])
}

func TestSplitLine(t *testing.T) {
	assert.Equal(t, []string{"a", "b,c", `d"e`, ""}, SplitLine(`a,"b,c","d""e",`))
	assert.Equal(t, []string{""}, SplitLine(""))
	// an unterminated quote swallows the rest of the line
	assert.Equal(t, []string{"x", "y,z"}, SplitLine(`x,"y,z`))
}
