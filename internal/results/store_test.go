package results

import (
	"path/filepath"
	"testing"

	"github.com/pmarks/singalign/internal/validate"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "results.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func passingReport() validate.Report {
	var checks []validate.CheckResult
	for _, name := range validate.CheckOrder {
		checks = append(checks, validate.CheckResult{Name: name, Passed: true})
	}
	return validate.Report{Checks: checks, Passed: true}
}

func failingReport() validate.Report {
	rep := passingReport()
	rep.Passed = false
	rep.Checks[1] = validate.CheckResult{
		Name:   validate.CheckNoOverlaps,
		Passed: false,
		Violations: []validate.Violation{
			{Index: 0, Word: "a", Detail: "end 1.000 overlaps next start 0.500 (\"b\")"},
		},
	}
	return rep
}

func TestSaveAndSummarize(t *testing.T) {
	s := openTestStore(t)

	if err := s.Save(Record{SongID: "song_001", Generator: "oracle", Report: passingReport()}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := s.Save(Record{SongID: "song_002", Generator: "model", Report: failingReport()}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	sum, err := s.Summarize()
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if sum.Total != 2 || sum.Passed != 1 || sum.Failed != 1 {
		t.Errorf("summary = %+v, want total 2 passed 1 failed 1", sum)
	}
}

func TestFailuresRoundTrip(t *testing.T) {
	s := openTestStore(t)

	if err := s.Save(Record{SongID: "song_001", Report: passingReport()}); err != nil {
		t.Fatal(err)
	}
	if err := s.Save(Record{SongID: "song_002", TakeID: "t-2", AudioPath: "song_002.wav", Report: failingReport()}); err != nil {
		t.Fatal(err)
	}

	failures, err := s.Failures()
	if err != nil {
		t.Fatalf("Failures: %v", err)
	}
	if len(failures) != 1 {
		t.Fatalf("failures = %d, want 1", len(failures))
	}
	rec := failures[0]
	if rec.SongID != "song_002" || rec.AudioPath != "song_002.wav" {
		t.Errorf("record = %+v, want song_002", rec)
	}
	overlap := rec.Report.Check(validate.CheckNoOverlaps)
	if overlap.Passed || len(overlap.Violations) != 1 || overlap.Violations[0].Word != "a" {
		t.Errorf("stored report lost diagnostics: %+v", overlap)
	}
}

func TestSummarizeEmpty(t *testing.T) {
	s := openTestStore(t)
	sum, err := s.Summarize()
	if err != nil {
		t.Fatal(err)
	}
	if sum.Total != 0 || sum.Passed != 0 || sum.Failed != 0 {
		t.Errorf("empty summary = %+v, want zeros", sum)
	}
}
