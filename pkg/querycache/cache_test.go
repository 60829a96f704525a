package querycache

import (
	"testing"
)

func TestPutGet(t *testing.T) {
	c := New(4)
	c.Put(ActivityGroup("u1"), "0", "page-0")

	v, ok := c.Get(ActivityGroup("u1"), "0")
	if !ok || v != "page-0" {
		t.Fatalf("Get = %v, %v; want page-0, true", v, ok)
	}
	if _, ok := c.Get(ActivityGroup("u2"), "0"); ok {
		t.Error("expected miss for a different group")
	}
}

func TestInvalidateMarksStale(t *testing.T) {
	c := New(8)
	c.Put(ActivityGroup("u1"), "0", "a")
	c.Put(ActivityGroup("u1"), "1", "b")
	c.Put(CommentsGroup("p1"), "thread", "c")

	if n := c.Invalidate(ActivityGroup("u1")); n != 2 {
		t.Errorf("Invalidate marked %d entries, want 2", n)
	}
	if _, ok := c.Get(ActivityGroup("u1"), "0"); ok {
		t.Error("expected stale entry to miss")
	}
	if _, ok := c.Get(CommentsGroup("p1"), "thread"); !ok {
		t.Error("unrelated group should stay fresh")
	}
	if c.Len() != 3 {
		t.Errorf("stale entries should be retained until replaced, Len = %d", c.Len())
	}

	// Second invalidation is a no-op.
	if n := c.Invalidate(ActivityGroup("u1")); n != 0 {
		t.Errorf("re-invalidate marked %d entries, want 0", n)
	}

	c.Put(ActivityGroup("u1"), "0", "a2")
	if v, ok := c.Get(ActivityGroup("u1"), "0"); !ok || v != "a2" {
		t.Errorf("expected refreshed entry, got %v, %v", v, ok)
	}
}

func TestEvictionUpdatesGroupIndex(t *testing.T) {
	c := New(1)
	c.Put(PostGroup("p1"), "post", 1)
	c.Put(PostGroup("p2"), "post", 2)

	if c.Len() != 1 {
		t.Fatalf("Len = %d, want 1", c.Len())
	}
	if n := c.Invalidate(PostGroup("p1")); n != 0 {
		t.Errorf("evicted entry should not be invalidated, got %d", n)
	}
	if _, ok := c.groups[PostGroup("p1")]; ok {
		t.Error("expected evicted group to be dropped from the index")
	}
}
