package storage

import (
	"testing"

	"github.com/wagnerlima/memory-cloud/iac-memory/internal/errors"
	"github.com/wagnerlima/memory-cloud/iac-memory/internal/models"
)

func TestCreateObservation(t *testing.T) {
	s := setupStore(t)
	id := mustEntity(t, s, "playbook.yml", "playbook")

	half := 0.5
	obs, err := s.CreateObservation(ObservationInput{
		EntityID:   id,
		Type:       "lint",
		Content:    "uses deprecated with_items",
		Confidence: &half,
		Metadata:   models.Metadata{"line": models.Number(12)},
	})
	if err != nil {
		t.Fatalf("CreateObservation: %v", err)
	}
	if obs.EntityID != id || obs.Confidence != 0.5 {
		t.Errorf("observation = %+v", obs)
	}

	for _, c := range []float64{-0.1, 1.01} {
		c := c
		_, err := s.CreateObservation(ObservationInput{EntityID: id, Type: "lint", Content: "x", Confidence: &c})
		wantKind(t, err, errors.KindValidation)
	}

	zero, one := 0.0, 1.0
	for _, c := range []*float64{&zero, &one} {
		if _, err := s.CreateObservation(ObservationInput{EntityID: id, Type: "edge", Content: "bound", Confidence: c}); err != nil {
			t.Errorf("confidence %v rejected: %v", *c, err)
		}
	}

	_, err = s.CreateObservation(ObservationInput{EntityID: "missing", Type: "lint", Content: "x"})
	wantKind(t, err, errors.KindDanglingReference)
}

func TestListObservations_TypeFilterAndDelete(t *testing.T) {
	s := setupStore(t)
	e, obs, err := s.CreateEntity(EntityInput{
		Name: "role.nginx",
		Type: "role",
		Observations: []ObservationInput{
			{Type: "note", Content: "listens on 80"},
			{Type: "lint", Content: "missing handler"},
			{Type: "note", Content: "templated config"},
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	notes, err := s.ListObservations(e.ID, "note")
	if err != nil {
		t.Fatalf("ListObservations: %v", err)
	}
	if len(notes) != 2 {
		t.Fatalf("Expected 2 notes, got %d", len(notes))
	}

	if err := s.DeleteObservation(obs[0].ID); err != nil {
		t.Fatalf("DeleteObservation: %v", err)
	}
	wantKind(t, s.DeleteObservation(obs[0].ID), errors.KindNotFound)
	if _, err := s.GetObservation(obs[0].ID); !errors.IsNotFound(err) {
		t.Errorf("GetObservation after delete: %v", err)
	}

	all, err := s.ListObservations(e.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 {
		t.Errorf("Expected 2 live observations, got %d", len(all))
	}
}

func TestUpdateObservation(t *testing.T) {
	s := setupStore(t)
	id := mustEntity(t, s, "x", "y")
	obs, err := s.CreateObservation(ObservationInput{
		EntityID: id, Type: "note", Content: "draft",
		Metadata: models.Metadata{"source": models.String("docs")},
	})
	if err != nil {
		t.Fatal(err)
	}

	content := "final"
	low := 0.2
	updated, err := s.UpdateObservation(obs.ID, ObservationPatch{
		Content:    &content,
		Confidence: &low,
		Metadata:   models.Metadata{"reviewed": models.Bool(true)},
	})
	if err != nil {
		t.Fatalf("UpdateObservation: %v", err)
	}
	if updated.Content != "final" || updated.Confidence != 0.2 {
		t.Errorf("updated = %+v", updated)
	}
	if _, ok := updated.Metadata["source"]; !ok {
		t.Error("metadata merge dropped source")
	}

	high := 2.0
	_, err = s.UpdateObservation(obs.ID, ObservationPatch{Confidence: &high})
	wantKind(t, err, errors.KindValidation)
}

func TestCreateRelationship(t *testing.T) {
	s := setupStore(t)
	a := mustEntity(t, s, "vpc", "network")
	b := mustEntity(t, s, "subnet", "network")

	rel, err := s.CreateRelationship(RelationshipInput{SourceID: b, TargetID: a, Type: "part_of"})
	if err != nil {
		t.Fatalf("CreateRelationship: %v", err)
	}
	if rel.SourceID != b || rel.TargetID != a || rel.Type != "part_of" {
		t.Errorf("relationship = %+v", rel)
	}

	// Self-loops are allowed.
	mustRelate(t, s, a, a, "peers_with")

	_, err = s.CreateRelationship(RelationshipInput{SourceID: a, TargetID: "nope", Type: "x"})
	wantKind(t, err, errors.KindDanglingReference)

	_, err = s.CreateRelationship(RelationshipInput{SourceID: a, TargetID: b})
	wantKind(t, err, errors.KindValidation)
}

func TestListAndUpdateRelationships(t *testing.T) {
	s := setupStore(t)
	a := mustEntity(t, s, "a", "x")
	b := mustEntity(t, s, "b", "x")
	c := mustEntity(t, s, "c", "x")
	first := mustRelate(t, s, a, b, "depends_on")
	mustRelate(t, s, c, a, "uses")
	mustRelate(t, s, b, c, "depends_on")

	touching, err := s.ListRelationships(RelationshipFilter{EntityID: a})
	if err != nil {
		t.Fatalf("ListRelationships: %v", err)
	}
	if len(touching) != 2 || touching[0].ID != first {
		t.Errorf("relationships touching a = %+v", touching)
	}

	deps, err := s.ListRelationships(RelationshipFilter{Type: "depends_on"})
	if err != nil {
		t.Fatal(err)
	}
	if len(deps) != 2 {
		t.Errorf("Expected 2 depends_on, got %d", len(deps))
	}

	typ := "requires"
	updated, err := s.UpdateRelationship(first, RelationshipPatch{Type: &typ})
	if err != nil {
		t.Fatalf("UpdateRelationship: %v", err)
	}
	if updated.Type != "requires" || updated.SourceID != a {
		t.Errorf("updated = %+v", updated)
	}

	if err := s.DeleteRelationship(first); err != nil {
		t.Fatalf("DeleteRelationship: %v", err)
	}
	wantKind(t, s.DeleteRelationship(first), errors.KindNotFound)
}

func TestPruneDanglingRelationships(t *testing.T) {
	s := setupStore(t)
	a := mustEntity(t, s, "a", "x")
	b := mustEntity(t, s, "b", "x")
	c := mustEntity(t, s, "c", "x")
	mustRelate(t, s, a, b, "r")
	mustRelate(t, s, c, b, "r")
	kept := mustRelate(t, s, a, c, "r")

	if err := s.DeleteEntity(b); err != nil {
		t.Fatal(err)
	}
	// Relationships survive the soft delete until pruned.
	before, _ := s.ListRelationships(RelationshipFilter{})
	if len(before) != 3 {
		t.Fatalf("Expected 3 relationships before prune, got %d", len(before))
	}

	n, err := s.PruneDanglingRelationships()
	if err != nil {
		t.Fatalf("PruneDanglingRelationships: %v", err)
	}
	if n != 2 {
		t.Errorf("pruned %d, want 2", n)
	}
	after, _ := s.ListRelationships(RelationshipFilter{})
	if len(after) != 1 || after[0].ID != kept {
		t.Errorf("remaining = %+v", after)
	}
}
