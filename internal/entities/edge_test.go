package entities

import (
	"errors"
	"testing"
)

func TestCompareEndpoints(t *testing.T) {
	tests := []struct {
		name string
		a, b Endpoint
		want int
	}{
		{
			name: "type name decides first",
			a:    Endpoint{Type: "person", ID: 9},
			b:    Endpoint{Type: "project", ID: 1},
			want: -1,
		},
		{
			name: "type name decides second",
			a:    Endpoint{Type: "user", ID: 1},
			b:    Endpoint{Type: "note", ID: 2},
			want: 1,
		},
		{
			name: "same type falls back to id",
			a:    Endpoint{Type: "note", ID: 3},
			b:    Endpoint{Type: "note", ID: 2},
			want: 1,
		},
		{
			name: "byte-wise order puts upper case first",
			a:    Endpoint{Type: "Zebra", ID: 1},
			b:    Endpoint{Type: "apple", ID: 1},
			want: -1,
		},
		{
			name: "equal endpoints",
			a:    Endpoint{Type: "note", ID: 2},
			b:    Endpoint{Type: "note", ID: 2},
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CompareEndpoints(tt.a, tt.b); got != tt.want {
				t.Errorf("CompareEndpoints(%v, %v) = %d, want %d", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestNewEdge_Canonical(t *testing.T) {
	user := Endpoint{Type: "user", ID: 1}
	note := Endpoint{Type: "note", ID: 7}

	forward, err := NewEdge(user, note)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	backward, err := NewEdge(note, user)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if *forward != *backward {
		t.Errorf("expected the same edge regardless of call order, got %v and %v", forward, backward)
	}
	if forward.First != note || forward.Second != user {
		t.Errorf("expected note to sort first, got %v", forward)
	}
	if got := forward.String(); got != "note:7<->user:1" {
		t.Errorf("Edge.String() = %v, want note:7<->user:1", got)
	}
}

func TestNewEdge_Invalid(t *testing.T) {
	tests := []struct {
		name string
		a, b Endpoint
	}{
		{name: "self link", a: Endpoint{Type: "note", ID: 1}, b: Endpoint{Type: "note", ID: 1}},
		{name: "missing type", a: Endpoint{ID: 1}, b: Endpoint{Type: "note", ID: 2}},
		{name: "unsaved record", a: Endpoint{Type: "user", ID: 1}, b: Endpoint{Type: "note"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewEdge(tt.a, tt.b); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestEdge_Other(t *testing.T) {
	edge, err := NewEdge(Endpoint{Type: "user", ID: 1}, Endpoint{Type: "note", ID: 7})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if other, ok := edge.Other(Endpoint{Type: "user", ID: 1}); !ok || other != (Endpoint{Type: "note", ID: 7}) {
		t.Errorf("Other(user:1) = %v, %v", other, ok)
	}
	if other, ok := edge.Other(Endpoint{Type: "note", ID: 7}); !ok || other != (Endpoint{Type: "user", ID: 1}) {
		t.Errorf("Other(note:7) = %v, %v", other, ok)
	}
	if _, ok := edge.Other(Endpoint{Type: "note", ID: 8}); ok {
		t.Error("expected note:8 not to be part of the edge")
	}
	if !edge.Touches(Endpoint{Type: "note", ID: 7}) {
		t.Error("expected edge to touch note:7")
	}
}

func TestRelationDescriptor_Validate(t *testing.T) {
	tests := []struct {
		name    string
		d       RelationDescriptor
		wantErr bool
	}{
		{
			name: "valid has_many",
			d:    RelationDescriptor{Owner: "user", Name: "viewables", From: []TypeName{"person", "project"}},
		},
		{
			name: "valid mirror without from",
			d:    RelationDescriptor{Owner: "person", Name: "viewers", Through: "viewables"},
		},
		{
			name:    "missing from",
			d:       RelationDescriptor{Owner: "user", Name: "viewables"},
			wantErr: true,
		},
		{
			name:    "unknown dependent policy",
			d:       RelationDescriptor{Owner: "user", Name: "notes", From: []TypeName{"note"}, Dependent: "nullify"},
			wantErr: true,
		},
		{
			name:    "self type target",
			d:       RelationDescriptor{Owner: "user", Name: "friends", From: []TypeName{"user"}},
			wantErr: true,
		},
		{
			name:    "missing name",
			d:       RelationDescriptor{Owner: "user", From: []TypeName{"note"}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.d.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				var verr *VerificationError
				if !errors.As(err, &verr) {
					t.Errorf("expected *VerificationError, got %T", err)
				}
				if !errors.Is(err, ErrInvalidDeclaration) {
					t.Errorf("expected ErrInvalidDeclaration, got %v", err)
				}
			}
		})
	}
}

func TestRelationDescriptor_Allows(t *testing.T) {
	forward := RelationDescriptor{Owner: "user", Name: "viewables", From: []TypeName{"person", "project"}}
	if !forward.Allows("project") {
		t.Error("expected project to be allowed")
	}
	if forward.Allows("company") {
		t.Error("expected company not to be allowed")
	}

	mirror := RelationDescriptor{Owner: "person", Name: "viewers", Through: "viewables"}
	if !mirror.Allows("user") {
		t.Error("expected mirror without from to allow other types")
	}
	if mirror.Allows("person") {
		t.Error("expected mirror not to allow its own type")
	}
	if mirror.KindName() != "viewables" {
		t.Errorf("KindName() = %v, want viewables", mirror.KindName())
	}
}

func TestVerificationError_Error(t *testing.T) {
	err := NewVerificationError("note", "container", ErrTypeNotAllowed, "%s cannot be added", "company")
	want := "note.container: record type not allowed: company cannot be added"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}

	dangling := &DanglingReferenceError{
		Owner:    Endpoint{Type: "user", ID: 1},
		Relation: "notes",
		Missing:  []Endpoint{{Type: "note", ID: 4}, {Type: "note", ID: 5}},
	}
	if got := dangling.Error(); got != "user:1.notes: dangling reference to note:4, note:5" {
		t.Errorf("Error() = %q", got)
	}
}
