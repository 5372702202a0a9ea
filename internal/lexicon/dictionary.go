// Package lexicon provides read-only pronunciation dictionaries that map a
// lower-case word to its phoneme strings.
package lexicon

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// Dictionary looks up pronunciations. Each variant is an ordered list of
// phonemes that may still carry stress digits ("AH0").
type Dictionary interface {
	Lookup(word string) ([][]string, bool)
}

// Map is an in-memory Dictionary. It is safe for concurrent readers once built.
type Map map[string][][]string

// Lookup returns all pronunciation variants for word.
func (m Map) Lookup(word string) ([][]string, bool) {
	variants, ok := m[strings.ToLower(word)]
	if !ok || len(variants) == 0 {
		return nil, false
	}
	return variants, true
}

// Add appends a pronunciation variant for word.
func (m Map) Add(word string, phonemes ...string) {
	key := strings.ToLower(word)
	m[key] = append(m[key], append([]string(nil), phonemes...))
}

// Load parses a CMUdict-formatted dictionary:
//
//	WORD  P1 P2 P3
//	WORD(1)  P1 P4
//
// Lines starting with ";;;" are comments. Variant markers are folded into
// the base word in file order.
func Load(r io.Reader) (Map, error) {
	dict := make(Map)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, ";;;") || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			return nil, fmt.Errorf("line %d: expected word followed by phonemes", lineNum)
		}
		dict.Add(baseWord(fields[0]), fields[1:]...)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read dictionary: %w", err)
	}
	return dict, nil
}

// LoadFile opens and parses a dictionary file.
func LoadFile(path string) (Map, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dictionary: %w", err)
	}
	defer f.Close()
	return Load(f)
}

func baseWord(token string) string {
	if i := strings.IndexByte(token, '('); i > 0 && strings.HasSuffix(token, ")") {
		return token[:i]
	}
	return token
}
