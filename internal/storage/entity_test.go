package storage

import (
	"testing"
	"time"

	"github.com/wagnerlima/memory-cloud/iac-memory/internal/errors"
	"github.com/wagnerlima/memory-cloud/iac-memory/internal/models"
)

func TestCreateEntity_WithObservations(t *testing.T) {
	s := setupStore(t)

	low := 0.4
	e, obs, err := s.CreateEntity(EntityInput{
		Name:     "aws_instance.web",
		Type:     "terraform_resource",
		Metadata: models.Metadata{"region": models.String("eu-west-1")},
		Observations: []ObservationInput{
			{Type: "note", Content: "Runs the frontend"},
			{Type: "guess", Content: "Probably t3.small", Confidence: &low},
		},
	})
	if err != nil {
		t.Fatalf("CreateEntity: %v", err)
	}
	if e.ID == "" {
		t.Error("Entity ID should not be empty")
	}
	if !e.CreatedAt.Equal(e.UpdatedAt) {
		t.Errorf("new entity: created_at %v != updated_at %v", e.CreatedAt, e.UpdatedAt)
	}
	if len(obs) != 2 {
		t.Fatalf("Expected 2 observations, got %d", len(obs))
	}
	if obs[0].Confidence != DefaultConfidence {
		t.Errorf("default confidence = %v, want %v", obs[0].Confidence, DefaultConfidence)
	}
	if obs[1].Confidence != 0.4 {
		t.Errorf("confidence = %v, want 0.4", obs[1].Confidence)
	}

	got, err := s.GetEntity(e.ID)
	if err != nil {
		t.Fatalf("GetEntity: %v", err)
	}
	if region, _ := got.Metadata["region"].Str(); region != "eu-west-1" {
		t.Errorf("metadata region = %q", region)
	}
}

func TestCreateEntity_DuplicateNameAcrossTypes(t *testing.T) {
	s := setupStore(t)
	mustEntity(t, s, "shared", "module")

	_, _, err := s.CreateEntity(EntityInput{Name: "shared", Type: "playbook"})
	wantKind(t, err, errors.KindDuplicateName)
}

func TestCreateEntity_Validation(t *testing.T) {
	s := setupStore(t)

	_, _, err := s.CreateEntity(EntityInput{Name: "", Type: "x"})
	wantKind(t, err, errors.KindValidation)

	bad := 1.5
	_, _, err = s.CreateEntity(EntityInput{
		Name:         "ok",
		Type:         "x",
		Observations: []ObservationInput{{Type: "t", Content: "c", Confidence: &bad}},
	})
	wantKind(t, err, errors.KindValidation)

	// The failed batch must not leave the entity behind.
	if _, err := s.GetEntityByName("ok"); !errors.IsNotFound(err) {
		t.Errorf("entity from failed create exists: %v", err)
	}
}

func TestUpdateEntity_RenameAndMergeMetadata(t *testing.T) {
	s := setupStore(t)
	e, _, err := s.CreateEntity(EntityInput{
		Name:     "db",
		Type:     "rds",
		Metadata: models.Metadata{"engine": models.String("postgres"), "size": models.Number(20)},
	})
	if err != nil {
		t.Fatalf("CreateEntity: %v", err)
	}

	name := "db-primary"
	updated, err := s.UpdateEntity(e.ID, EntityPatch{
		Name:     &name,
		Metadata: models.Metadata{"size": models.Number(100)},
	})
	if err != nil {
		t.Fatalf("UpdateEntity: %v", err)
	}
	if updated.Name != "db-primary" {
		t.Errorf("Name = %q", updated.Name)
	}
	if engine, _ := updated.Metadata["engine"].Str(); engine != "postgres" {
		t.Errorf("merge dropped engine: %v", updated.Metadata)
	}
	if size, _ := updated.Metadata["size"].Num(); size != 100 {
		t.Errorf("size = %v, want 100", size)
	}
	if !updated.UpdatedAt.After(e.UpdatedAt) {
		t.Errorf("updated_at not advanced: %v -> %v", e.UpdatedAt, updated.UpdatedAt)
	}

	replaced, err := s.UpdateEntity(e.ID, EntityPatch{ReplaceMetadata: true})
	if err != nil {
		t.Fatalf("UpdateEntity replace: %v", err)
	}
	if len(replaced.Metadata) != 0 {
		t.Errorf("replace with nil should clear metadata, got %v", replaced.Metadata)
	}

	if _, err := s.GetEntityByName("db"); !errors.IsNotFound(err) {
		t.Errorf("old name still resolves: %v", err)
	}
}

func TestUpdateEntity_RenameCollision(t *testing.T) {
	s := setupStore(t)
	mustEntity(t, s, "a", "x")
	b := mustEntity(t, s, "b", "x")

	name := "a"
	_, err := s.UpdateEntity(b, EntityPatch{Name: &name})
	wantKind(t, err, errors.KindDuplicateName)

	// Renaming to its own name is a no-op, not a collision.
	self := "b"
	if _, err := s.UpdateEntity(b, EntityPatch{Name: &self}); err != nil {
		t.Errorf("self rename: %v", err)
	}
}

func TestUpdateEntity_ClockSkewKeepsOrdering(t *testing.T) {
	s := setupStore(t)
	id := mustEntity(t, s, "skewed", "x")
	created, err := s.GetEntity(id)
	if err != nil {
		t.Fatal(err)
	}

	s.now = func() time.Time { return created.CreatedAt.Add(-time.Hour) }
	typ := "y"
	updated, err := s.UpdateEntity(id, EntityPatch{Type: &typ})
	if err != nil {
		t.Fatalf("UpdateEntity: %v", err)
	}
	if updated.UpdatedAt.Before(updated.CreatedAt) {
		t.Errorf("updated_at %v before created_at %v", updated.UpdatedAt, updated.CreatedAt)
	}
}

func TestDeleteEntity_SoftDeleteFreesName(t *testing.T) {
	s := setupStore(t)
	e, _, err := s.CreateEntity(EntityInput{
		Name:         "bucket",
		Type:         "s3",
		Observations: []ObservationInput{{Type: "note", Content: "versioned"}},
	})
	if err != nil {
		t.Fatal(err)
	}

	if err := s.DeleteEntity(e.ID); err != nil {
		t.Fatalf("DeleteEntity: %v", err)
	}
	if _, err := s.GetEntity(e.ID); !errors.IsNotFound(err) {
		t.Errorf("GetEntity after delete: %v", err)
	}
	if _, err := s.ListObservations(e.ID); !errors.IsNotFound(err) {
		t.Errorf("ListObservations of deleted entity: %v", err)
	}
	wantKind(t, s.DeleteEntity(e.ID), errors.KindNotFound)

	again, _, err := s.CreateEntity(EntityInput{Name: "bucket", Type: "s3"})
	if err != nil {
		t.Fatalf("recreate deleted name: %v", err)
	}
	if again.ID == e.ID {
		t.Error("recreated entity reused the deleted id")
	}
}

func TestListEntities(t *testing.T) {
	s := setupStore(t)
	mustEntity(t, s, "c", "vm")
	mustEntity(t, s, "a", "vm")
	mustEntity(t, s, "b", "network")
	gone := mustEntity(t, s, "d", "vm")
	if err := s.DeleteEntity(gone); err != nil {
		t.Fatal(err)
	}

	all, err := s.ListEntities()
	if err != nil {
		t.Fatalf("ListEntities: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("Expected 3 live entities, got %d", len(all))
	}
	if all[0].Name != "a" || all[2].Name != "c" {
		t.Errorf("not ordered by name: %s, %s, %s", all[0].Name, all[1].Name, all[2].Name)
	}

	vms, err := s.ListEntities(ByEntityType("vm"), WithLimit(1))
	if err != nil {
		t.Fatalf("ListEntities filtered: %v", err)
	}
	if len(vms) != 1 || vms[0].Name != "a" {
		t.Errorf("filtered listing = %+v", vms)
	}
}
