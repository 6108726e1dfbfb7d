/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */


package db

import (
	"strings"
	"unicode"
)

// statementSplitter walks a migration file and cuts it into statements at
// semicolons outside quotes and dollar quoted bodies. Comments are dropped.
type statementSplitter struct {
	src string
	pos int
	cur strings.Builder
	out []string
}

func splitSQLStatements(content string) []string {
	s := &statementSplitter{src: content}

	for s.pos < len(s.src) {
		rest := s.src[s.pos:]

		switch {
		case strings.HasPrefix(rest, "--"):
			s.skipUntil("\n", true)
		case strings.HasPrefix(rest, "/*"):
			s.skipUntil("*/", false)
		case rest[0] == '\'' || rest[0] == '"':
			s.copyQuoted(rest[0])
		case rest[0] == '$' && dollarTag(rest) != "":
			s.copyDollarQuoted(dollarTag(rest))
		case rest[0] == ';':
			s.flush()
			s.pos++
		default:
			s.cur.WriteByte(rest[0])
			s.pos++
		}
	}

	s.flush()

	return s.out
}

func (s *statementSplitter) flush() {
	if stmt := strings.TrimSpace(s.cur.String()); stmt != "" {
		s.out = append(s.out, stmt)
	}

	s.cur.Reset()
}

// skipUntil drops input up to and including end. Line comments keep their
// newline so statement text stays readable in errors.
func (s *statementSplitter) skipUntil(end string, keepEnd bool) {
	idx := strings.Index(s.src[s.pos:], end)
	if idx < 0 {
		s.pos = len(s.src)
		return
	}

	s.pos += idx + len(end)

	if keepEnd {
		s.cur.WriteString(end)
	}
}

// copyQuoted copies a quoted string or identifier verbatim. Doubled quotes
// are handled as two adjacent quoted runs.
func (s *statementSplitter) copyQuoted(quote byte) {
	end := strings.IndexByte(s.src[s.pos+1:], quote)
	if end < 0 {
		s.cur.WriteString(s.src[s.pos:])
		s.pos = len(s.src)

		return
	}

	next := s.pos + 1 + end + 1
	s.cur.WriteString(s.src[s.pos:next])
	s.pos = next
}

func (s *statementSplitter) copyDollarQuoted(tag string) {
	bodyStart := s.pos + len(tag)

	end := strings.Index(s.src[bodyStart:], tag)
	if end < 0 {
		s.cur.WriteString(s.src[s.pos:])
		s.pos = len(s.src)

		return
	}

	next := bodyStart + end + len(tag)
	s.cur.WriteString(s.src[s.pos:next])
	s.pos = next
}

// dollarTag returns the opening tag ("$$" or "$body$") at the start of s,
// or "" when s does not start one.
func dollarTag(s string) string {
	for i := 1; i < len(s); i++ {
		switch ch := rune(s[i]); {
		case ch == '$':
			return s[:i+1]
		case ch != '_' && !unicode.IsLetter(ch) && !unicode.IsDigit(ch):
			return ""
		}
	}

	return ""
}

// extractVersion returns the numeric prefix of a migration file name,
// e.g. "00001" for 00001_netsync_schema.up.sql.
func extractVersion(filename string) string {
	version, _, _ := strings.Cut(filename, "_")
	return version
}
