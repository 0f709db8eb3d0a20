package function

import (
	"context"
	"testing"
)

func TestNew_AllocatesIdentity(t *testing.T) {
	d := New("acct-1", "double", "return x * 2")
	if d.Intrinsics().EcsID.String() == "" {
		t.Fatal("expected New() to allocate an ecs_id")
	}
	if d.AccountID != "acct-1" || d.Name != "double" {
		t.Fatalf("unexpected definition fields: %+v", d)
	}
}

func TestValidate_RejectsEmptySource(t *testing.T) {
	d := New("acct-1", "double", "")
	if _, err := Validate(context.Background(), d); err == nil {
		t.Error("Validate() should reject an empty source")
	}
}

func TestValidate_RejectsEmptyName(t *testing.T) {
	d := New("acct-1", "", "return x")
	if _, err := Validate(context.Background(), d); err == nil {
		t.Error("Validate() should reject an empty name")
	}
}

func TestValidate_PassesThroughUnchanged(t *testing.T) {
	d := New("acct-1", "double", "return x * 2")
	before := d.Intrinsics().EcsID

	out, err := Validate(context.Background(), d)
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if out.Intrinsics().EcsID != before {
		t.Error("Validate() should not change identity on a pass-through")
	}
}

func TestPublish_MarksPublished(t *testing.T) {
	d := New("acct-1", "double", "return x * 2")
	if d.Published {
		t.Fatal("a freshly constructed definition should not be published")
	}

	out, err := Publish(context.Background(), d)
	if err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if !out.Published {
		t.Error("Publish() should mark the definition published")
	}
}
