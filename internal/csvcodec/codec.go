// Package csvcodec reads and writes the submissions file format: one record
// per physical line, comma separated, with fields containing a comma or a
// double quote wrapped in quotes and inner quotes doubled.
package csvcodec

import "strings"

var lineBreaks = strings.NewReplacer("\r\n", " ", "\r", " ", "\n", " ")

// EncodeField flattens line breaks to spaces, trims the value and quotes it
// when it contains a comma or a double quote.
func EncodeField(v string) string {
	s := strings.TrimSpace(lineBreaks.Replace(v))
	if strings.ContainsAny(s, `,"`) {
		return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
	}
	return s
}

// EncodeLine encodes values as one newline-terminated line.
func EncodeLine(values []string) string {
	var b strings.Builder
	for i, v := range values {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(EncodeField(v))
	}
	b.WriteByte('\n')
	return b.String()
}

// Row maps header names to field values.
type Row map[string]string

// Get returns the value for column, or "" when the row has none.
func (r Row) Get(column string) string {
	return r[column]
}

// Document is a decoded submissions file.
type Document struct {
	Headers []string
	Records []Row
}

// Len returns the number of records.
func (d Document) Len() int {
	return len(d.Records)
}

// Values returns the record at i in header order.
func (d Document) Values(i int) []string {
	out := make([]string, len(d.Headers))
	for j, h := range d.Headers {
		out[j] = d.Records[i][h]
	}
	return out
}

// Decode parses a whole document. It never fails: short rows are padded with
// empty strings and fields past the header are dropped.
func Decode(content string) Document {
	content = strings.TrimSpace(content)
	if content == "" {
		return Document{}
	}
	lines := strings.Split(content, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}

	doc := Document{
		Headers: strings.Split(lines[0], ","),
		Records: make([]Row, 0, len(lines)-1),
	}
	for _, line := range lines[1:] {
		fields := SplitLine(line)
		row := make(Row, len(doc.Headers))
		for i, h := range doc.Headers {
			if i < len(fields) {
				row[h] = fields[i]
			} else {
				row[h] = ""
			}
		}
		doc.Records = append(doc.Records, row)
	}
	return doc
}

// SplitLine splits a single data line into its fields, honouring quotes.
func SplitLine(line string) []string {
	var (
		fields   []string
		current  strings.Builder
		inQuotes bool
	)
	for i := 0; i < len(line); i++ {
		ch := line[i]
		switch {
		case ch == '"':
			if inQuotes && i+1 < len(line) && line[i+1] == '"' {
				current.WriteByte('"')
				i++
			} else {
				inQuotes = !inQuotes
			}
		case ch == ',' && !inQuotes:
			fields = append(fields, current.String())
			current.Reset()
		default:
			current.WriteByte(ch)
		}
	}
	return append(fields, current.String())
}
