package destination_test

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"mediasort/internal/config"
	"mediasort/internal/destination"
	"mediasort/internal/record"
	"mediasort/internal/services"
)

var sentinel = time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC)

const base = "/library"

func settings() destination.Settings {
	return destination.Settings{
		BaseDir:           base,
		DirectoryTemplate: "%Y/%Y_%m",
		FileTemplate:      "%Y%m%d_%H%M%S",
		NoCaptureDate:     config.NoCaptureDateFallbackModified,
		NoCaptureDateDir:  "noExif",
		Duplicate:         config.DuplicateIncrease,
	}
}

func newRecord(path string, capture *time.Time, hash []byte) *record.Record {
	modified := time.Date(2021, 6, 7, 8, 9, 10, 0, time.UTC)
	rec := record.New(path, modified, modified, 10, sentinel)
	rec.SetMetadata(capture, hash, sentinel)
	return rec
}

func ptr(t time.Time) *time.Time { return &t }

func nothingExists(string) bool { return false }

func existing(paths ...string) destination.ExistsFunc {
	set := make(map[string]bool, len(paths))
	for _, p := range paths {
		set[p] = true
	}
	return func(path string) bool { return set[path] }
}

func TestResolveUsesCaptureDate(t *testing.T) {
	r := destination.New(settings(), nothingExists)
	rec := newRecord("/src/IMG_1.JPG", ptr(time.Date(2020, 2, 3, 11, 22, 44, 0, time.UTC)), nil)

	decision, err := r.Resolve(rec)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	want := filepath.Join(base, "2020", "2020_02", "20200203_112244.JPG")
	if decision.Path != want {
		t.Fatalf("expected %s, got %s", want, decision.Path)
	}
	if decision.Outcome != destination.OutcomePlaced || decision.Existing != "" {
		t.Fatalf("unexpected decision %+v", decision)
	}
}

func TestResolveFormatsInUTC(t *testing.T) {
	zone := time.FixedZone("UTC+2", 2*60*60)
	r := destination.New(settings(), nothingExists)
	rec := newRecord("/src/a.jpg", ptr(time.Date(2020, 1, 1, 1, 0, 0, 0, zone)), nil)

	decision, err := r.Resolve(rec)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	want := filepath.Join(base, "2019", "2019_12", "20191231_230000.jpg")
	if decision.Path != want {
		t.Fatalf("expected %s, got %s", want, decision.Path)
	}
}

func TestResolveNoCaptureDatePolicies(t *testing.T) {
	tests := []struct {
		name    string
		policy  config.NoCaptureDatePolicy
		path    string
		outcome destination.Outcome
		fatal   bool
	}{
		{name: "skip", policy: config.NoCaptureDateSkip, outcome: destination.OutcomeSkippedNoDate},
		{name: "fixed dir", policy: config.NoCaptureDateFixedDir, path: filepath.Join(base, "noExif", "clip.avi"), outcome: destination.OutcomeQuarantined},
		{name: "fallback", policy: config.NoCaptureDateFallbackModified, path: filepath.Join(base, "2021", "2021_06", "20210607_080910.avi"), outcome: destination.OutcomePlaced},
		{name: "stop", policy: config.NoCaptureDateStop, fatal: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := settings()
			s.NoCaptureDate = tc.policy
			decision, err := destination.New(s, nothingExists).Resolve(newRecord("/src/clip.avi", nil, nil))
			if tc.fatal {
				if !services.IsFatal(err) {
					t.Fatalf("expected fatal error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Resolve: %v", err)
			}
			if decision.Path != tc.path || decision.Outcome != tc.outcome {
				t.Fatalf("unexpected decision %+v", decision)
			}
		})
	}
}

func TestResolveSentinelCaptureFallsBack(t *testing.T) {
	r := destination.New(settings(), nothingExists)
	rec := newRecord("/src/a.jpg", ptr(sentinel), nil)

	decision, err := r.Resolve(rec)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if filepath.Base(decision.Path) != "20210607_080910.jpg" {
		t.Fatalf("expected modified time name, got %s", decision.Path)
	}
}

func TestResolveDuplicatePolicies(t *testing.T) {
	capture := ptr(time.Date(2020, 2, 3, 11, 22, 44, 0, time.UTC))
	taken := filepath.Join(base, "2020", "2020_02", "20200203_112244.jpg")

	t.Run("skip", func(t *testing.T) {
		s := settings()
		s.Duplicate = config.DuplicateSkip
		decision, err := destination.New(s, existing(taken)).Resolve(newRecord("/src/a.jpg", capture, nil))
		if err != nil {
			t.Fatalf("Resolve: %v", err)
		}
		if decision.Path != "" || decision.Outcome != destination.OutcomeSkippedDuplicate || decision.Existing != taken {
			t.Fatalf("unexpected decision %+v", decision)
		}
	})

	t.Run("increase", func(t *testing.T) {
		second := filepath.Join(base, "2020", "2020_02", "20200203_112244_001.jpg")
		decision, err := destination.New(settings(), existing(taken, second)).Resolve(newRecord("/src/a.jpg", capture, nil))
		if err != nil {
			t.Fatalf("Resolve: %v", err)
		}
		want := filepath.Join(base, "2020", "2020_02", "20200203_112244_002.jpg")
		if decision.Path != want || decision.Existing != taken {
			t.Fatalf("unexpected decision %+v", decision)
		}
	})

	t.Run("stop", func(t *testing.T) {
		s := settings()
		s.Duplicate = config.DuplicateStop
		_, err := destination.New(s, existing(taken)).Resolve(newRecord("/src/a.jpg", capture, nil))
		if !services.IsFatal(err) || !errors.Is(err, services.ErrConflict) {
			t.Fatalf("expected fatal conflict, got %v", err)
		}
	})
}

func TestResolveIncreaseWidensPastThreeDigits(t *testing.T) {
	dir := filepath.Join(base, "2020", "2020_02")
	exists := func(path string) bool {
		return filepath.Base(path) != "20200203_112244_1000.jpg" && filepath.Dir(path) == dir
	}
	capture := ptr(time.Date(2020, 2, 3, 11, 22, 44, 0, time.UTC))

	decision, err := destination.New(settings(), exists).Resolve(newRecord("/src/a.jpg", capture, nil))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if filepath.Base(decision.Path) != "20200203_112244_1000.jpg" {
		t.Fatalf("unexpected path %s", decision.Path)
	}
}

func TestResolveQuarantineAppliesDuplicatePolicy(t *testing.T) {
	s := settings()
	s.NoCaptureDate = config.NoCaptureDateFixedDir
	taken := filepath.Join(base, "noExif", "clip.avi")

	decision, err := destination.New(s, existing(taken)).Resolve(newRecord("/src/clip.avi", nil, nil))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if decision.Path != filepath.Join(base, "noExif", "clip_001.avi") || decision.Outcome != destination.OutcomeQuarantined {
		t.Fatalf("unexpected decision %+v", decision)
	}
}

func TestResolveQuarantineComparesContentByHash(t *testing.T) {
	s := settings()
	s.NoCaptureDate = config.NoCaptureDateFixedDir
	s.VerifyContent = true
	taken := filepath.Join(base, "noExif", "clip.avi")
	hash := func(string) ([]byte, error) { return []byte{0xaa}, nil }
	r := destination.New(s, existing(taken), destination.WithHash(hash))

	decision, err := r.Resolve(newRecord("/other/clip.avi", nil, []byte{0xaa}))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if decision.Outcome != destination.OutcomeSkippedDuplicate || !decision.Identical || decision.Existing != taken {
		t.Fatalf("expected identical quarantine skip, got %+v", decision)
	}

	decision, err = r.Resolve(newRecord("/other/clip.avi", nil, []byte{0xbb}))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if decision.Path != filepath.Join(base, "noExif", "clip_001.avi") {
		t.Fatalf("expected numbered quarantine copy, got %+v", decision)
	}
}

func TestResolveVerifyContent(t *testing.T) {
	capture := ptr(time.Date(2020, 2, 3, 11, 22, 44, 0, time.UTC))
	taken := filepath.Join(base, "2020", "2020_02", "20200203_112244.jpg")
	hashes := map[string][]byte{taken: {0xaa}}
	hash := func(path string) ([]byte, error) {
		if sum, ok := hashes[path]; ok {
			return sum, nil
		}
		return nil, errors.New("missing")
	}
	s := settings()
	s.VerifyContent = true
	r := destination.New(s, existing(taken), destination.WithHash(hash))

	decision, err := r.Resolve(newRecord("/src/a.jpg", capture, []byte{0xaa}))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if decision.Outcome != destination.OutcomeSkippedDuplicate || !decision.Identical {
		t.Fatalf("expected identical duplicate skip, got %+v", decision)
	}

	decision, err = r.Resolve(newRecord("/src/b.jpg", capture, []byte{0xbb}))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if filepath.Base(decision.Path) != "20200203_112244_001.jpg" {
		t.Fatalf("expected numbered copy for different content, got %+v", decision)
	}

	s.Duplicate = config.DuplicateStop
	_, err = destination.New(s, existing(taken), destination.WithHash(hash)).
		Resolve(newRecord("/src/c.jpg", capture, []byte{0xaa}))
	if !services.IsFatal(err) || !errors.Is(err, services.ErrConflict) {
		t.Fatalf("expected stop policy to stay fatal for identical content, got %v", err)
	}

	s.Duplicate = config.DuplicateSkip
	decision, err = destination.New(s, existing(taken), destination.WithHash(hash)).
		Resolve(newRecord("/src/d.jpg", capture, []byte{0xaa}))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if decision.Outcome != destination.OutcomeSkippedDuplicate || !decision.Identical || decision.Path != "" {
		t.Fatalf("expected skip flagged identical, got %+v", decision)
	}
}

func TestResolveIgnoresContentWhenVerificationOff(t *testing.T) {
	capture := ptr(time.Date(2020, 2, 3, 11, 22, 44, 0, time.UTC))
	taken := filepath.Join(base, "2020", "2020_02", "20200203_112244.jpg")
	hash := func(string) ([]byte, error) { return []byte{0xaa}, nil }

	decision, err := destination.New(settings(), existing(taken), destination.WithHash(hash)).
		Resolve(newRecord("/src/a.jpg", capture, []byte{0xaa}))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if filepath.Base(decision.Path) != "20200203_112244_001.jpg" {
		t.Fatalf("expected numbered copy, got %+v", decision)
	}
}

func TestResolveSanitizesRenderedNames(t *testing.T) {
	s := settings()
	s.DirectoryTemplate = "%Y/%b %d"
	s.FileTemplate = "%Y-%m-%d %H:%M:%S"
	capture := ptr(time.Date(2020, 2, 3, 11, 22, 44, 0, time.UTC))

	decision, err := destination.New(s, nothingExists).Resolve(newRecord("/src/a.jpg", capture, nil))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	want := filepath.Join(base, "2020", "Feb 03", "2020-02-03 11-22-44.jpg")
	if decision.Path != want {
		t.Fatalf("expected %s, got %s", want, decision.Path)
	}
}
