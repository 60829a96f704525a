package firestore

import (
	"testing"
	"time"

	"github.com/ripixel/fitglue-community/pkg/domain/social"
	"github.com/ripixel/fitglue-community/pkg/execution"
)

func TestGetInt64HandlesDecodedTypes(t *testing.T) {
	m := map[string]interface{}{"a": int64(3), "b": 4, "c": float64(5), "d": "6"}
	for key, want := range map[string]int64{"a": 3, "b": 4, "c": 5, "d": 0, "missing": 0} {
		if got := getInt64(m, key); got != want {
			t.Errorf("getInt64(%q) = %d, want %d", key, got, want)
		}
	}
}

func TestCommentOmitsEmptyParent(t *testing.T) {
	m := CommentToFirestore(&social.Comment{PostID: "p1", AuthorID: "u1", Text: "hi"})
	if _, ok := m["parent_id"]; ok {
		t.Error("root comment must not store parent_id")
	}

	reply := CommentToFirestore(&social.Comment{PostID: "p1", AuthorID: "u1", Text: "hi", ParentID: "c0", ParentAuthorID: "u0"})
	got := FirestoreToComment("c1", reply)
	if got.ID != "c1" || got.ParentAuthorID != "u0" {
		t.Errorf("FirestoreToComment = %+v", got)
	}
}

func TestActivityStoresActorAsUser(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	m := ActivityToFirestore(social.ActivityItem{Kind: social.KindLike, ActorID: "u7", PostID: "p1", CreatedAt: now})
	if m["user_id"] != "u7" {
		t.Errorf("user_id = %v, want u7", m["user_id"])
	}
	if _, ok := m["text"]; ok {
		t.Error("likes carry no text")
	}
	item := FirestoreToActivity(social.LikeActivityID("p1", "u7"), m)
	if !item.CreatedAt.Equal(now) || item.Kind != social.KindLike {
		t.Errorf("FirestoreToActivity = %+v", item)
	}
}

func TestExecutionEndTimeOptional(t *testing.T) {
	start := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	m := ExecutionToFirestore(&execution.Record{ExecutionID: "e1", Service: "feed", Status: execution.StatusStarted, StartTime: start})
	if _, ok := m["end_time"]; ok {
		t.Error("unfinished execution must not store end_time")
	}
	if _, ok := m["error_message"]; ok {
		t.Error("empty optional fields must be omitted")
	}

	m["status"] = int64(execution.StatusSuccess)
	m["end_time"] = start.Add(time.Second)
	r := FirestoreToExecution("e1", m)
	if r.Status != execution.StatusSuccess || r.EndTime == nil {
		t.Errorf("FirestoreToExecution = %+v", r)
	}
}
