package shard

import (
	"bytes"
	"sync"
	"testing"

	"github.com/stretchr/testify/suite"

	"scalematch/internal/domain"
	dErrors "scalematch/pkg/domain-errors"
)

const testTenant = "tenant-1"

func fingerprint(rid string, finger domain.FingerIndex, vector []float32, quality int) domain.Fingerprint {
	return domain.Fingerprint{
		TenantID:    testTenant,
		RID:         rid,
		FingerIndex: finger,
		Vector:      vector,
		Template:    []byte(rid),
		Quality:     quality,
		Status:      domain.FingerprintActive,
	}
}

func key(rid string, finger domain.FingerIndex) domain.EntryKey {
	return domain.EntryKey{TenantID: testTenant, RID: rid, FingerIndex: finger}
}

type IndexSuite struct {
	suite.Suite
	index *Index
}

func TestIndexSuite(t *testing.T) {
	suite.Run(t, new(IndexSuite))
}

func (s *IndexSuite) SetupTest() {
	s.index = New("shard-a", WithDimension(3), WithQualityFloor(40))
}

// =============================================================================
// Upsert / Query
// =============================================================================

func (s *IndexSuite) TestQueryANN() {
	s.Require().NoError(s.index.Upsert(fingerprint("near", domain.RightThumb, []float32{1, 0, 0}, 90)))
	s.Require().NoError(s.index.Upsert(fingerprint("mid", domain.RightThumb, []float32{1, 1, 0}, 90)))
	s.Require().NoError(s.index.Upsert(fingerprint("far", domain.RightThumb, []float32{-1, 0, 0}, 90)))

	s.Run("ranks by similarity", func() {
		hits, err := s.index.QueryANN(testTenant, []float32{2, 0, 0}, 10, 0)
		s.Require().NoError(err)
		s.Require().Len(hits, 3)
		s.Equal("near", hits[0].Key.RID)
		s.Equal(100, hits[0].Score)
		s.Equal("mid", hits[1].Key.RID)
		s.Equal(85, hits[1].Score) // cos 45deg = 0.707
		s.Equal("far", hits[2].Key.RID)
		s.Equal(0, hits[2].Score)
	})

	s.Run("bounded by k", func() {
		hits, err := s.index.QueryANN(testTenant, []float32{1, 0, 0}, 1, 0)
		s.Require().NoError(err)
		s.Require().Len(hits, 1)
		s.Equal("near", hits[0].Key.RID)
	})

	s.Run("oversized k is bounded by the eligible set", func() {
		hits, err := s.index.QueryANN(testTenant, []float32{1, 0, 0}, 1<<61, 0)
		s.Require().NoError(err)
		s.Len(hits, 3)
	})

	s.Run("other tenants see nothing", func() {
		hits, err := s.index.QueryANN("tenant-2", []float32{1, 0, 0}, 10, 0)
		s.Require().NoError(err)
		s.Empty(hits)
	})

	s.Run("dimension mismatch rejected", func() {
		_, err := s.index.QueryANN(testTenant, []float32{1, 0}, 10, 0)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func (s *IndexSuite) TestEligibility() {
	s.Require().NoError(s.index.Upsert(fingerprint("good", domain.RightThumb, []float32{1, 0, 0}, 80)))
	s.Require().NoError(s.index.Upsert(fingerprint("poor", domain.RightThumb, []float32{1, 0, 0}, 20)))
	archived := fingerprint("archived", domain.RightThumb, []float32{1, 0, 0}, 90)
	archived.Status = domain.FingerprintArchived
	s.Require().NoError(s.index.Upsert(archived))

	s.Run("below floor and inactive are not searchable", func() {
		hits, err := s.index.QueryANN(testTenant, []float32{1, 0, 0}, 10, 0)
		s.Require().NoError(err)
		s.Require().Len(hits, 1)
		s.Equal("good", hits[0].Key.RID)
	})

	s.Run("templates remain fetchable", func() {
		tpl, err := s.index.FetchTemplate(key("poor", domain.RightThumb))
		s.Require().NoError(err)
		s.Equal([]byte("poor"), tpl)
	})

	s.Run("request quality raises the floor", func() {
		hits, err := s.index.QueryANN(testTenant, []float32{1, 0, 0}, 10, 85)
		s.Require().NoError(err)
		s.Empty(hits)
	})

	s.Run("stats count eligible entries", func() {
		stats := s.index.Stats()
		s.Equal(3, stats.Entries)
		s.Equal(1, stats.Eligible)
	})
}

func (s *IndexSuite) TestUpsertIsIdempotent() {
	fp := fingerprint("rid-1", domain.LeftIndex, []float32{0.2, 0.5, 0.1}, 75)
	s.Require().NoError(s.index.Upsert(fp))
	once, err := s.index.QueryANN(testTenant, []float32{0.2, 0.5, 0.1}, 5, 0)
	s.Require().NoError(err)
	statsOnce := s.index.Stats()

	s.Require().NoError(s.index.Upsert(fp))
	twice, err := s.index.QueryANN(testTenant, []float32{0.2, 0.5, 0.1}, 5, 0)
	s.Require().NoError(err)
	statsTwice := s.index.Stats()

	s.Equal(once, twice)
	s.Equal(statsOnce.Entries, statsTwice.Entries)
	s.Equal(statsOnce.Eligible, statsTwice.Eligible)
}

func (s *IndexSuite) TestUpsertReplacesEntry() {
	s.Require().NoError(s.index.Upsert(fingerprint("rid-1", domain.RightThumb, []float32{1, 0, 0}, 90)))
	s.Require().NoError(s.index.Upsert(fingerprint("rid-1", domain.RightThumb, []float32{0, 1, 0}, 90)))

	hits, err := s.index.QueryANN(testTenant, []float32{0, 1, 0}, 5, 0)
	s.Require().NoError(err)
	s.Require().Len(hits, 1)
	s.Equal(100, hits[0].Score)
	s.Equal(1, s.index.Stats().Entries)
}

func (s *IndexSuite) TestUpsertValidation() {
	s.Run("zero vector", func() {
		err := s.index.Upsert(fingerprint("z", domain.RightThumb, []float32{0, 0, 0}, 90))
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
	s.Run("wrong dimension", func() {
		err := s.index.Upsert(fingerprint("d", domain.RightThumb, []float32{1, 0}, 90))
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
	s.Run("missing template", func() {
		fp := fingerprint("t", domain.RightThumb, []float32{1, 0, 0}, 90)
		fp.Template = nil
		s.True(dErrors.HasCode(s.index.Upsert(fp), dErrors.CodeValidation))
	})
}

// =============================================================================
// Remove / FetchTemplate
// =============================================================================

func (s *IndexSuite) TestRemove() {
	s.Require().NoError(s.index.Upsert(fingerprint("rid-1", domain.RightThumb, []float32{1, 0, 0}, 90)))
	s.Require().NoError(s.index.Remove(key("rid-1", domain.RightThumb)))

	s.Run("removed entry is not searchable", func() {
		hits, err := s.index.QueryANN(testTenant, []float32{1, 0, 0}, 5, 0)
		s.Require().NoError(err)
		s.Empty(hits)
	})

	s.Run("removed template is not found", func() {
		_, err := s.index.FetchTemplate(key("rid-1", domain.RightThumb))
		s.ErrorIs(err, domain.ErrNotFound)
	})

	s.Run("unknown key is a no-op", func() {
		s.NoError(s.index.Remove(key("missing", domain.LeftPinky)))
	})

	s.Run("slot is recycled", func() {
		s.Require().NoError(s.index.Upsert(fingerprint("rid-2", domain.RightThumb, []float32{1, 0, 0}, 90)))
		s.Len(s.index.slots, 1)
	})
}

func (s *IndexSuite) TestClosedIndexIsUnavailable() {
	s.index.Close()
	_, err := s.index.QueryANN(testTenant, []float32{1, 0, 0}, 5, 0)
	s.ErrorIs(err, domain.ErrIndexUnavailable)
	_, err = s.index.FetchTemplate(key("x", domain.RightThumb))
	s.ErrorIs(err, domain.ErrIndexUnavailable)
	s.ErrorIs(s.index.Upsert(fingerprint("x", domain.RightThumb, []float32{1, 0, 0}, 90)), domain.ErrIndexUnavailable)
}

// =============================================================================
// Snapshot
// =============================================================================

func (s *IndexSuite) TestSnapshotRoundTrip() {
	s.Require().NoError(s.index.Upsert(fingerprint("a", domain.RightThumb, []float32{1, 0, 0}, 90)))
	s.Require().NoError(s.index.Upsert(fingerprint("b", domain.LeftThumb, []float32{0, 1, 0}, 10)))

	var buf bytes.Buffer
	s.Require().NoError(s.index.WriteSnapshot(&buf))

	restored := New("shard-a", WithDimension(3), WithQualityFloor(40))
	n, err := restored.ReadSnapshot(&buf)
	s.Require().NoError(err)
	s.Equal(2, n)
	s.Equal(s.index.Stats().Eligible, restored.Stats().Eligible)

	tpl, err := restored.FetchTemplate(key("b", domain.LeftThumb))
	s.Require().NoError(err)
	s.Equal([]byte("b"), tpl)

	s.Run("wrong shard rejected", func() {
		var again bytes.Buffer
		s.Require().NoError(s.index.WriteSnapshot(&again))
		_, err := New("shard-b").ReadSnapshot(&again)
		s.Error(err)
	})
}

// =============================================================================
// Concurrency
// =============================================================================

func (s *IndexSuite) TestConcurrentReadsDuringWrites() {
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for n := range 200 {
			rid := string(rune('a' + n%26))
			_ = s.index.Upsert(fingerprint(rid, domain.FingerIndex(n%10), []float32{float32(n%7) + 1, 1, 0}, 90))
		}
	}()
	go func() {
		defer wg.Done()
		for range 200 {
			_, err := s.index.QueryANN(testTenant, []float32{1, 1, 0}, 5, 0)
			s.NoError(err)
		}
	}()
	wg.Wait()
	s.LessOrEqual(s.index.Stats().Entries, 200)
}

func TestRegistry(t *testing.T) {
	r := NewRegistry(WithDimension(3))
	a := r.GetOrCreate("shard-b")
	b := r.GetOrCreate("shard-a")
	if a == b {
		t.Fatal("expected distinct indexes per shard")
	}
	if again := r.GetOrCreate("shard-b"); again != a {
		t.Fatal("expected the same index on second lookup")
	}
	if got := r.ShardIDs(); len(got) != 2 || got[0] != "shard-a" || got[1] != "shard-b" {
		t.Fatalf("unexpected shard ids %v", got)
	}
	if _, ok := r.Get("shard-c"); ok {
		t.Fatal("expected missing shard")
	}
	r.Close()
	if _, err := a.QueryANN(testTenant, []float32{1, 0, 0}, 1, 0); err == nil {
		t.Fatal("expected closed index to fail")
	}
}

func TestRegistrySnapshots(t *testing.T) {
	dir := t.TempDir()

	src := NewRegistry(WithDimension(3))
	if err := src.GetOrCreate("shard-a").Upsert(fingerprint("r1", domain.RightThumb, []float32{1, 0, 0}, 90)); err != nil {
		t.Fatal(err)
	}
	if err := src.GetOrCreate("shard-b").Upsert(fingerprint("r2", domain.LeftThumb, []float32{0, 1, 0}, 90)); err != nil {
		t.Fatal(err)
	}
	if err := src.SaveSnapshots(dir); err != nil {
		t.Fatalf("save: %v", err)
	}

	dst := NewRegistry(WithDimension(3))
	loaded, err := dst.LoadSnapshots(dir, []string{"shard-a", "shard-b", "shard-c"})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded["shard-a"] != 1 || loaded["shard-b"] != 1 {
		t.Fatalf("unexpected loaded counts %v", loaded)
	}
	if _, ok := loaded["shard-c"]; ok {
		t.Fatal("shard without a snapshot should not be reported")
	}
	if _, ok := dst.Get("shard-c"); ok {
		t.Fatal("shard without a snapshot should not be created")
	}
	tmpl, err := dst.GetOrCreate("shard-b").FetchTemplate(key("r2", domain.LeftThumb))
	if err != nil || string(tmpl) != "r2" {
		t.Fatalf("restored template = %q, %v", tmpl, err)
	}
}
