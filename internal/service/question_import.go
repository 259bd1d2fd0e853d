package service

import (
	"encoding/csv"
	"errors"
	"fellowship_backend/internal/model"
	"fellowship_backend/internal/util"
	"fmt"
	"io"
	"strconv"
	"strings"
)

var (
	requiredColumns = []string{"question", "text", "optiona", "optionb", "correct", "points"}
	optionColumns   = []string{"optiona", "optionb", "optionc", "optiond", "optione"}
)

// RowError points at a CSV row; the header is row 1.
type RowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

// ParsedQuestions is the outcome of reading a question CSV. Questions only holds
// the rows that passed validation.
type ParsedQuestions struct {
	Questions []model.Question
	Errors    []RowError
	RowCount  int
}

// ParseQuestionCSV reads a header-driven question file. Structural problems
// (unreadable CSV, missing columns, no rows) are returned as ErrInvalidCSV;
// per-row problems are collected in Errors.
func ParseQuestionCSV(r io.Reader) (*ParsedQuestions, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	var records [][]string
	for {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", util.ErrInvalidCSV, err)
		}
		if blankRecord(rec) {
			continue
		}
		records = append(records, rec)
	}

	if len(records) < 2 {
		return nil, fmt.Errorf("%w: no data rows", util.ErrInvalidCSV)
	}

	header := make(map[string]int, len(records[0]))
	for i, name := range records[0] {
		name = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		if _, dup := header[name]; !dup {
			header[name] = i
		}
	}

	var missing []string
	for _, col := range requiredColumns {
		if _, ok := header[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing required columns: %s", util.ErrInvalidCSV, strings.Join(missing, ", "))
	}

	out := &ParsedQuestions{RowCount: len(records) - 1}
	for i, rec := range records[1:] {
		row := i + 2
		get := func(col string) string {
			idx, ok := header[col]
			if !ok || idx >= len(rec) {
				return ""
			}
			return strings.TrimSpace(rec[idx])
		}

		q, msg := questionFromRow(get)
		if msg != "" {
			out.Errors = append(out.Errors, RowError{Row: row, Message: msg})
			continue
		}
		out.Questions = append(out.Questions, q)
	}

	return out, nil
}

// questionFromRow returns the first validation failure for a row, if any.
func questionFromRow(get func(string) string) (model.Question, string) {
	text := get("text")
	if text == "" {
		text = get("question")
	}
	if text == "" {
		return model.Question{}, "question text is required"
	}

	var options []string
	for _, col := range optionColumns {
		if v := get(col); v != "" {
			options = append(options, v)
		}
	}
	if len(options) < model.MinOptions {
		return model.Question{}, "at least 2 non-empty options are required"
	}

	correct, ok := letterIndex(get("correct"))
	if !ok || correct >= len(options) {
		return model.Question{}, "invalid correct answer letter"
	}

	difficulty := model.Medium
	if d := strings.ToLower(get("difficulty")); d != "" {
		difficulty = model.Difficulty(d)
		if !difficulty.Valid() {
			return model.Question{}, "invalid difficulty"
		}
	}

	points := 1
	if p := get("points"); p != "" {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return model.Question{}, "invalid points"
		}
		points = n
	}

	return model.Question{
		Text:         text,
		Options:      options,
		CorrectIndex: correct,
		Points:       points,
		Difficulty:   difficulty,
		Section:      get("section"),
		Tags:         splitTags(get("tags")),
		Explanation:  get("explanation"),
	}, ""
}

// letterIndex maps A..E to 0..4.
func letterIndex(letter string) (int, bool) {
	letter = strings.ToUpper(strings.TrimSpace(letter))
	if len(letter) != 1 || letter[0] < 'A' || letter[0] >= 'A'+model.MaxOptions {
		return 0, false
	}
	return int(letter[0] - 'A'), true
}

func splitTags(raw string) []string {
	if raw == "" {
		return []string{}
	}
	return trimAll(strings.Split(raw, ","))
}

func blankRecord(rec []string) bool {
	for _, field := range rec {
		if strings.TrimSpace(field) != "" {
			return false
		}
	}
	return true
}
