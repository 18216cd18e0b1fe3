package cache

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"aocd/internal/assert"
	"aocd/internal/components/chrono"
	"aocd/internal/components/telemetry"
	"aocd/internal/outcome"
	"aocd/internal/puzzle"
)

// FSStore keeps one file per input and one JSON-lines journal per
// (year, day, part) under a directory:
//
//	<dir>/inputs/2023-01
//	<dir>/answers/2023-01-1.jsonl
type FSStore struct {
	dir   string
	tel   telemetry.API
	clock chrono.TimeAPI

	// key.String() -> *sync.Mutex
	locks sync.Map
}

func NewFSStore(dir string, tel telemetry.API) (*FSStore, error) {
	for _, sub := range []string{"inputs", "answers"} {
		path := filepath.Join(dir, sub)
		err := os.MkdirAll(path, 0700)
		if err != nil {
			return nil, &IOError{Op: "mkdir", Path: path, Err: err}
		}
	}
	return &FSStore{
		dir:   dir,
		tel:   telemetry.NewScopedAPI("fs_cache", tel),
		clock: chrono.NewStandardTime(),
	}, nil
}

// Dir is the root directory of the store.
func (s *FSStore) Dir() string {
	return s.dir
}

func (s *FSStore) lock(key puzzle.Key) func() {
	mu, _ := s.locks.LoadOrStore(key.String(), &sync.Mutex{})
	mu.(*sync.Mutex).Lock()
	return mu.(*sync.Mutex).Unlock
}

func (s *FSStore) inputPath(key puzzle.Key) string {
	return filepath.Join(s.dir, "inputs", key.String())
}

func (s *FSStore) journalPath(key puzzle.Key, part int) string {
	assert.True(part == 1 || part == 2, "journal for invalid part %d", part)
	return filepath.Join(s.dir, "answers", fmt.Sprintf("%s-%d.jsonl", key, part))
}

func (s *FSStore) LoadInput(_ context.Context, key puzzle.Key) (string, bool, error) {
	unlock := s.lock(key)
	defer unlock()
	return s.readInput(key)
}

func (s *FSStore) readInput(key puzzle.Key) (string, bool, error) {
	path := s.inputPath(key)
	contents, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return "", false, nil
	}
	if err != nil {
		s.tel.ReportBroken(report_store_input, err, path)
		return "", false, &IOError{Op: "read", Path: path, Err: err}
	}
	return string(contents), true, nil
}

func (s *FSStore) StoreInput(_ context.Context, key puzzle.Key, text string) error {
	unlock := s.lock(key)
	defer unlock()

	existing, ok, err := s.readInput(key)
	if err != nil {
		return err
	}
	if ok {
		if existing == text {
			return nil
		}
		s.tel.ReportWarning(report_store_input, ErrConflict, key.String())
		return fmt.Errorf("%w: %s", ErrConflict, key)
	}

	path := s.inputPath(key)
	err = writeFileAtomic(path, []byte(text))
	if err != nil {
		s.tel.ReportBroken(report_store_input, err, path)
		return &IOError{Op: "write", Path: path, Err: err}
	}
	return nil
}

// writeFileAtomic writes to a temporary file in the same directory and
// renames it over path, readers see either nothing or the full contents.
func writeFileAtomic(path string, contents []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	_, err = tmp.Write(contents)
	if err == nil {
		err = tmp.Sync()
	}
	closeErr := tmp.Close()
	if err != nil {
		return err
	}
	if closeErr != nil {
		return closeErr
	}
	return os.Rename(tmp.Name(), path)
}

type journalRecord struct {
	Answer   string    `json:"answer"`
	Outcome  string    `json:"outcome"`
	Previous string    `json:"previous,omitempty"`
	Wait     string    `json:"wait,omitempty"`
	Raw      string    `json:"raw,omitempty"`
	Time     time.Time `json:"time"`
}

func recordFromAttempt(a Attempt) journalRecord {
	r := journalRecord{
		Answer:   a.Answer,
		Outcome:  a.Outcome.Kind.String(),
		Previous: a.Outcome.Previous,
		Raw:      a.Outcome.Raw,
		Time:     a.Time.UTC(),
	}
	if a.Outcome.Wait > 0 {
		r.Wait = a.Outcome.Wait.String()
	}
	return r
}

func (r journalRecord) attempt() (Attempt, error) {
	kind, err := outcome.ParseKind(r.Outcome)
	if err != nil {
		return Attempt{}, err
	}
	result := outcome.Outcome{
		Kind:     kind,
		Previous: r.Previous,
		Raw:      r.Raw,
	}
	if r.Wait != "" {
		result.Wait, err = time.ParseDuration(r.Wait)
		if err != nil {
			return Attempt{}, err
		}
	}
	return Attempt{Answer: r.Answer, Outcome: result, Time: r.Time}, nil
}

// readJournal returns the complete records of a journal and the length in
// bytes they occupy. A trailing line without a newline is a write that was
// interrupted, it is left out.
func (s *FSStore) readJournal(key puzzle.Key, part int) ([]Attempt, int64, error) {
	path := s.journalPath(key, part)
	contents, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, 0, nil
	}
	if err != nil {
		s.tel.ReportBroken(report_store_attempt, err, path)
		return nil, 0, &IOError{Op: "read", Path: path, Err: err}
	}

	complete := contents
	if idx := bytes.LastIndexByte(contents, '\n'); idx+1 < len(contents) {
		complete = contents[:idx+1]
		s.tel.ReportWarning(report_store_attempt, "ignoring torn journal record", path)
	}

	parseError := func(lineNo int, err error) error {
		err = fmt.Errorf("line %d: %w", lineNo+1, err)
		s.tel.ReportBroken(report_store_attempt, err, path)
		return &IOError{Op: "parse", Path: path, Err: err}
	}

	var attempts []Attempt
	for lineNo, line := range bytes.Split(complete, []byte{'\n'}) {
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		var record journalRecord
		err := json.Unmarshal(line, &record)
		if err != nil {
			return nil, 0, parseError(lineNo, err)
		}
		a, err := record.attempt()
		if err != nil {
			return nil, 0, parseError(lineNo, err)
		}
		attempts = append(attempts, a)
	}
	return attempts, int64(len(complete)), nil
}

func (s *FSStore) LoadAttempts(_ context.Context, key puzzle.Key, part int) ([]Attempt, error) {
	unlock := s.lock(key)
	defer unlock()

	attempts, _, err := s.readJournal(key, part)
	return attempts, err
}

func (s *FSStore) RecordAttempt(_ context.Context, key puzzle.Key, part int, answer string, result outcome.Outcome) (Attempt, error) {
	unlock := s.lock(key)
	defer unlock()

	attempts, validLen, err := s.readJournal(key, part)
	if err != nil {
		return Attempt{}, err
	}
	if prior, ok := FindSettled(attempts, answer); ok {
		return prior, nil
	}

	attempt := Attempt{Answer: answer, Outcome: result, Time: s.clock.Now()}
	encoded, err := json.Marshal(recordFromAttempt(attempt))
	if err != nil {
		return Attempt{}, err
	}
	encoded = append(encoded, '\n')

	path := s.journalPath(key, part)
	err = appendRecord(path, validLen, encoded)
	if err != nil {
		s.tel.ReportBroken(report_store_attempt, err, path)
		return Attempt{}, &IOError{Op: "append", Path: path, Err: err}
	}
	return attempt, nil
}

// appendRecord drops anything past validLen (a torn record) and appends the
// line with a single write.
func appendRecord(path string, validLen int64, line []byte) error {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return err
	}
	if info.Size() > validLen {
		err = file.Truncate(validLen)
		if err != nil {
			return err
		}
	}

	_, err = file.Write(line)
	if err != nil {
		return err
	}
	return file.Sync()
}
