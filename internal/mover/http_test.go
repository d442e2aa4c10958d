package mover

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"slices"
	"testing"
)

func TestHTTPMoveTaskAuthoritative(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/tasks/T1/move" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var body taskMoveBody
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if body.ToSectionID != "S2" || body.NewIndex != 0 || body.FromSectionID != "S1" {
			t.Errorf("unexpected body %+v", body)
		}
		json.NewEncoder(w).Encode(taskMoveResponse{
			Task: &taskPayload{
				ID: "T1", BoardID: "b1", SectionID: "S2",
				Title: "T1", Status: "open", Priority: "medium",
				CreatedAt: testNow, UpdatedAt: testNow,
			},
			Sections: []sectionPayload{
				{ID: "S1", BoardID: "b1", Name: "S1", TaskIDs: []string{"T2", "T3"}},
				{ID: "S2", BoardID: "b1", Name: "S2", TaskIDs: []string{"T1", "T4"}},
			},
		})
	}))
	defer srv.Close()

	b := NewHTTPBackend(srv.URL, srv.Client(), nil)
	res, err := b.MoveTask(context.Background(), TaskMoveRequest{
		TaskID: "T1", FromSectionID: "S1", ToSectionID: "S2", NewIndex: 0,
	})
	if err != nil {
		t.Fatalf("MoveTask() error = %v", err)
	}
	if !res.Authoritative {
		t.Fatal("payload response must be authoritative")
	}
	if res.Task.SectionID != "S2" {
		t.Fatalf("task.SectionID = %s", res.Task.SectionID)
	}
	if len(res.Sections) != 2 || !slices.Equal(res.Sections[1].TaskIDs, []string{"T1", "T4"}) {
		t.Fatalf("unexpected sections %+v", res.Sections)
	}
}

func TestHTTPMoveTaskAck(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	b := NewHTTPBackend(srv.URL, srv.Client(), nil)
	res, err := b.MoveTask(context.Background(), TaskMoveRequest{
		TaskID: "T1", ToSectionID: "S2",
	})
	if err != nil {
		t.Fatalf("MoveTask() error = %v", err)
	}
	if res.Authoritative {
		t.Fatal("empty acknowledgement must not be authoritative")
	}
}

func TestHTTPMoveSection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/boards/b1/sections/S3/move" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var body sectionMoveBody
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if body.NewIndex != 0 {
			t.Errorf("newIndex = %d, want 0", body.NewIndex)
		}
		json.NewEncoder(w).Encode(sectionMoveResponse{SectionOrder: []string{"S3", "S1", "S2"}})
	}))
	defer srv.Close()

	b := NewHTTPBackend(srv.URL, srv.Client(), nil)
	res, err := b.MoveSection(context.Background(), SectionMoveRequest{
		BoardID: "b1", SectionID: "S3", NewIndex: 0,
	})
	if err != nil {
		t.Fatalf("MoveSection() error = %v", err)
	}
	if !res.Authoritative || !slices.Equal(res.SectionOrder, []string{"S3", "S1", "S2"}) {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestHTTPNon2xxIsUniformFailure(t *testing.T) {
	for _, status := range []int{http.StatusBadRequest, http.StatusNotFound, http.StatusInternalServerError} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		}))
		b := NewHTTPBackend(srv.URL, srv.Client(), nil)

		if _, err := b.MoveTask(context.Background(), TaskMoveRequest{TaskID: "T1", ToSectionID: "S2"}); !errors.Is(err, ErrBackend) {
			t.Errorf("status %d: expected ErrBackend, got %v", status, err)
		}
		if _, err := b.MoveSection(context.Background(), SectionMoveRequest{BoardID: "b1", SectionID: "S1"}); !errors.Is(err, ErrBackend) {
			t.Errorf("status %d: expected ErrBackend, got %v", status, err)
		}
		srv.Close()
	}
}

func TestHTTPBoardState(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/boards/b1" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		json.NewEncoder(w).Encode(boardStateResponse{
			Board: boardPayload{ID: "b1", Name: "Work", SectionOrder: []string{"S1", "S2"}},
			Sections: []sectionPayload{
				{ID: "S1", BoardID: "b1", Name: "To Do", TaskIDs: []string{"T1"}},
				{ID: "S2", BoardID: "b1", Name: "Done"},
			},
			Tasks: []taskPayload{
				{ID: "T1", BoardID: "b1", SectionID: "S1", Title: "first", Status: "open", Priority: "high"},
			},
		})
	}))
	defer srv.Close()

	b := NewHTTPBackend(srv.URL, srv.Client(), nil)
	snap, err := b.BoardState(context.Background(), "b1")
	if err != nil {
		t.Fatalf("BoardState() error = %v", err)
	}
	if snap.Board.Name != "Work" || !slices.Equal(snap.Board.SectionOrder, []string{"S1", "S2"}) {
		t.Fatalf("unexpected board %+v", snap.Board)
	}
	if len(snap.Sections) != 2 || !slices.Equal(snap.Sections[0].TaskIDs, []string{"T1"}) {
		t.Fatalf("unexpected sections %+v", snap.Sections)
	}
	if len(snap.Tasks) != 1 || snap.Tasks[0].Priority != "high" {
		t.Fatalf("unexpected tasks %+v", snap.Tasks)
	}
}
