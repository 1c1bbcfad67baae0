package usecase

import "testing"

func TestSessionNoticeLifecycle(t *testing.T) {
	n := NewSessionNotice(nil)
	if _, ok := n.Current(); ok {
		t.Fatal("expected no notice")
	}
	n.Raise("first")
	n.Raise("second")
	got, ok := n.Current()
	if !ok || got.Message != "second" || got.RaisedAt.IsZero() {
		t.Fatalf("unexpected notice %+v", got)
	}
	n.Clear()
	if _, ok := n.Current(); ok {
		t.Fatal("expected notice cleared")
	}
}
