package firestore

import (
	"time"

	"github.com/ripixel/fitglue-community/pkg/domain/social"
	"github.com/ripixel/fitglue-community/pkg/execution"
)

// Helper to safely get string from map
func getString(m map[string]interface{}, key string) string {
	if v, ok := m[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// Helper to safely get an integer from map (Firestore decodes integers as int64)
func getInt64(m map[string]interface{}, key string) int64 {
	switch v := m[key].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	}
	return 0
}

// Helper to safely get time from map (handles time.Time from Firestore)
func getTime(m map[string]interface{}, key string) time.Time {
	if v, ok := m[key]; ok {
		if t, ok := v.(time.Time); ok {
			return t.UTC()
		}
	}
	return time.Time{}
}

// --- Post Converters ---

func PostToFirestore(p *social.Post) map[string]interface{} {
	return map[string]interface{}{
		"author_id":     p.AuthorID,
		"title":         p.Title,
		"body":          p.Body,
		"like_count":    p.LikeCount,
		"comment_count": p.CommentCount,
		"created_at":    p.CreatedAt,
	}
}

func FirestoreToPost(id string, m map[string]interface{}) *social.Post {
	return &social.Post{
		ID:           id,
		AuthorID:     getString(m, "author_id"),
		Title:        getString(m, "title"),
		Body:         getString(m, "body"),
		LikeCount:    getInt64(m, "like_count"),
		CommentCount: getInt64(m, "comment_count"),
		CreatedAt:    getTime(m, "created_at"),
	}
}

// --- Comment Converters ---

func CommentToFirestore(c *social.Comment) map[string]interface{} {
	m := map[string]interface{}{
		"post_id":    c.PostID,
		"author_id":  c.AuthorID,
		"text":       c.Text,
		"created_at": c.CreatedAt,
	}
	if c.ParentID != "" {
		m["parent_id"] = c.ParentID
		m["parent_author_id"] = c.ParentAuthorID
	}
	return m
}

func FirestoreToComment(id string, m map[string]interface{}) *social.Comment {
	return &social.Comment{
		ID:             id,
		PostID:         getString(m, "post_id"),
		AuthorID:       getString(m, "author_id"),
		Text:           getString(m, "text"),
		ParentID:       getString(m, "parent_id"),
		ParentAuthorID: getString(m, "parent_author_id"),
		CreatedAt:      getTime(m, "created_at"),
	}
}

// --- Activity Converters ---

func ActivityToFirestore(a social.ActivityItem) map[string]interface{} {
	m := map[string]interface{}{
		"user_id":    a.ActorID,
		"kind":       string(a.Kind),
		"post_id":    a.PostID,
		"created_at": a.CreatedAt,
	}
	if a.Text != "" {
		m["text"] = a.Text
	}
	if a.ParentID != "" {
		m["parent_id"] = a.ParentID
		m["parent_author_id"] = a.ParentAuthorID
	}
	return m
}

func FirestoreToActivity(id string, m map[string]interface{}) social.ActivityItem {
	return social.ActivityItem{
		ID:             id,
		Kind:           social.ActivityKind(getString(m, "kind")),
		ActorID:        getString(m, "user_id"),
		PostID:         getString(m, "post_id"),
		CreatedAt:      getTime(m, "created_at"),
		Text:           getString(m, "text"),
		ParentID:       getString(m, "parent_id"),
		ParentAuthorID: getString(m, "parent_author_id"),
	}
}

// --- Notification Converters ---

func NotificationToFirestore(n *social.Notification) map[string]interface{} {
	m := map[string]interface{}{
		"recipient_id": n.RecipientID,
		"actor_id":     n.ActorID,
		"post_id":      n.PostID,
		"kind":         string(n.Kind),
		"created_at":   n.CreatedAt,
	}
	if n.CommentID != "" {
		m["comment_id"] = n.CommentID
	}
	return m
}

func FirestoreToNotification(id string, m map[string]interface{}) social.Notification {
	return social.Notification{
		ID:          id,
		RecipientID: getString(m, "recipient_id"),
		ActorID:     getString(m, "actor_id"),
		PostID:      getString(m, "post_id"),
		Kind:        social.ActivityKind(getString(m, "kind")),
		CommentID:   getString(m, "comment_id"),
		CreatedAt:   getTime(m, "created_at"),
	}
}

// --- ExecutionRecord Converters ---

func ExecutionToFirestore(r *execution.Record) map[string]interface{} {
	m := map[string]interface{}{
		"execution_id": r.ExecutionID,
		"service":      r.Service,
		"status":       int32(r.Status),
		"timestamp":    r.Timestamp,
		"start_time":   r.StartTime,
		"trigger_type": r.TriggerType,
	}
	if r.EndTime != nil {
		m["end_time"] = *r.EndTime
	}
	optional := map[string]string{
		"user_id":             r.UserID,
		"parent_execution_id": r.ParentExecutionID,
		"inputs_json":         r.InputsJSON,
		"outputs_json":        r.OutputsJSON,
		"error_message":       r.ErrorMessage,
	}
	for k, v := range optional {
		if v != "" {
			m[k] = v
		}
	}
	return m
}

func FirestoreToExecution(id string, m map[string]interface{}) *execution.Record {
	r := &execution.Record{
		ExecutionID:       id,
		Service:           getString(m, "service"),
		Status:            execution.Status(getInt64(m, "status")),
		Timestamp:         getTime(m, "timestamp"),
		StartTime:         getTime(m, "start_time"),
		UserID:            getString(m, "user_id"),
		TriggerType:       getString(m, "trigger_type"),
		ParentExecutionID: getString(m, "parent_execution_id"),
		InputsJSON:        getString(m, "inputs_json"),
		OutputsJSON:       getString(m, "outputs_json"),
		ErrorMessage:      getString(m, "error_message"),
	}
	if t := getTime(m, "end_time"); !t.IsZero() {
		r.EndTime = &t
	}
	return r
}
