package tabular

import "strings"

// parseCSV splits delimited text into records keyed by the header line.
//
// Lines are split on commas. A token that opens a quoted value without
// closing it absorbs the following tokens until the closing quote. The value
// spans physical lines only when a later line closes it; a quote left open
// to the end of the file absorbs the rest of its own line and nothing more.
func parseCSV(data []byte) (*Table, error) {
	text, err := decodeText(data)
	if err != nil {
		return nil, &FormatError{Format: FormatCSV, Err: err}
	}

	lines := strings.Split(text, "\n")

	var (
		headers []string
		records []RawRecord
	)

	for i := 0; i < len(lines); i++ {
		line := strings.TrimSuffix(lines[i], "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}

		fields, open := splitLine(line)
		if open {
			if joined, end, ok := continueQuoted(lines, i, line); ok {
				fields, i = joined, end
			}
		}

		if headers == nil {
			headers = make([]string, len(fields))
			for j, f := range fields {
				headers[j] = strings.TrimSpace(f)
			}
			continue
		}

		rec := NewRawRecord(len(headers))
		for j, h := range headers {
			if j < len(fields) {
				rec.Set(h, fields[j])
			} else {
				rec.Set(h, "")
			}
		}
		records = append(records, rec)
	}

	if headers == nil || len(records) == 0 {
		return nil, &FormatError{Format: FormatCSV, Err: ErrNoRecords}
	}

	return &Table{Headers: headers, Records: records}, nil
}

// continueQuoted joins the lines after start onto line until the open quoted
// value closes. It reports false when no later line closes it.
func continueQuoted(lines []string, start int, line string) ([]string, int, bool) {
	var b strings.Builder
	b.WriteString(line)
	for j := start + 1; j < len(lines); j++ {
		next := strings.TrimSuffix(lines[j], "\r")
		b.WriteByte('\n')
		b.WriteString(next)
		if !mayClose(next) {
			continue
		}
		if fields, open := splitLine(b.String()); !open {
			return fields, j, true
		}
	}
	return nil, start, false
}

// mayClose reports whether some value on line ends in an odd run of quotes,
// the only way a line can close a value opened above it.
func mayClose(line string) bool {
	for _, tok := range strings.Split(line, ",") {
		tok = strings.TrimRight(tok, " \t")
		run := 0
		for i := len(tok) - 1; i >= 0 && tok[i] == '"'; i-- {
			run++
		}
		if run%2 == 1 {
			return true
		}
	}
	return false
}

// splitLine splits one logical line into values. The second return value is
// true when the line ends inside a quoted value; the open value is then the
// last field, holding the rest of the line without its opening quote.
func splitLine(line string) ([]string, bool) {
	tokens := strings.Split(line, ",")
	fields := make([]string, 0, len(tokens))

	for i := 0; i < len(tokens); i++ {
		tok := strings.TrimLeft(tokens[i], " \t")
		if !strings.HasPrefix(tok, `"`) {
			fields = append(fields, strings.TrimSpace(tok))
			continue
		}

		for !closesQuote(strings.TrimRight(tok, " \t")) {
			if i+1 >= len(tokens) {
				open := strings.TrimRight(tok, " \t")[1:]
				return append(fields, strings.TrimSpace(strings.ReplaceAll(open, `""`, `"`))), true
			}
			i++
			tok += "," + tokens[i]
		}
		fields = append(fields, unquote(strings.TrimRight(tok, " \t")))
	}

	return fields, false
}

// closesQuote reports whether a token that starts with a quote also ends its
// quoted value. Doubled quotes inside the value are escapes, so the value is
// closed only when it ends in an odd run of quotes.
func closesQuote(tok string) bool {
	body := tok[1:]
	run := 0
	for i := len(body) - 1; i >= 0 && body[i] == '"'; i-- {
		run++
	}
	return run%2 == 1
}

func unquote(tok string) string {
	return strings.ReplaceAll(tok[1:len(tok)-1], `""`, `"`)
}
